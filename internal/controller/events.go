package controller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DoyleJ11/stage-quiz-backend/internal/apperr"
	"github.com/DoyleJ11/stage-quiz-backend/internal/engine"
	"github.com/DoyleJ11/stage-quiz-backend/internal/types"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

var ErrUnknownRequest = errors.New("unknown request")

var validate = validator.New()

// Request names on the wire.
const (
	ReqAuth           = "auth"
	ReqJoinSession    = "joinSession"
	ReqUpdatePosition = "updatePosition"
	ReqGetSelf        = "getSelf"
	ReqGetGames       = "getGames"
	ReqMakeGame       = "makeGame"
	ReqMakeSession    = "makeSession"
	ReqSetupTeams     = "setupTeams"
	ReqStartGame      = "startGame"
)

type Event interface{ isEvent() }

type AuthEvent struct {
	Token string `validate:"required"`
}

type JoinSessionEvent struct {
	Code     string `validate:"required"`
	Nickname string `validate:"required"`
}

type UpdatePositionEvent struct {
	RoomID   string `validate:"required"`
	Nickname string `validate:"required"`
	Position engine.Position
}

type GetSelfEvent struct{}

type GetGamesEvent struct{}

type MakeGameEvent struct {
	Name   string             `validate:"required,max=100"`
	Stages []engine.StageType `validate:"required,min=1,dive,oneof=Weighted Seesaw Tiles"`
	Vocab  []engine.VocabPair `validate:"required,min=1"`
}

type MakeSessionEvent struct {
	GameID string `validate:"required"`
}

type SetupTeamsEvent struct {
	Code       string `validate:"required"`
	TargetSize int    `validate:"min=1"`
}

type StartGameEvent struct {
	Code string `validate:"required"`
}

func (AuthEvent) isEvent()           {}
func (JoinSessionEvent) isEvent()    {}
func (UpdatePositionEvent) isEvent() {}
func (GetSelfEvent) isEvent()        {}
func (GetGamesEvent) isEvent()       {}
func (MakeGameEvent) isEvent()       {}
func (MakeSessionEvent) isEvent()    {}
func (SetupTeamsEvent) isEvent()     {}
func (StartGameEvent) isEvent()      {}

// Decode turns a raw client message into a validated event.
func Decode(m types.ClientMessage) (Event, error) {
	var ev Event

	switch m.Request {
	case ReqAuth:
		ev = AuthEvent{Token: m.Token}
	case ReqJoinSession:
		ev = JoinSessionEvent{Code: m.Code, Nickname: NormalizeNickname(m.Nickname)}
	case ReqUpdatePosition:
		if m.Position == nil {
			return nil, apperr.Validation(apperr.CodeBadRequest, errors.New("position is required"))
		}
		ev = UpdatePositionEvent{
			RoomID:   m.RoomID,
			Nickname: NormalizeNickname(m.Nickname),
			Position: engine.Position{X: m.Position.X, Y: m.Position.Y},
		}
	case ReqGetSelf:
		ev = GetSelfEvent{}
	case ReqGetGames:
		ev = GetGamesEvent{}
	case ReqMakeGame:
		game, err := decodeMakeGame(m)
		if err != nil {
			return nil, err
		}
		ev = game
	case ReqMakeSession:
		ev = MakeSessionEvent{GameID: m.Game}
	case ReqSetupTeams:
		ev = SetupTeamsEvent{Code: m.Code, TargetSize: m.Number}
	case ReqStartGame:
		ev = StartGameEvent{Code: m.Code}
	default:
		return nil, apperr.Validation(apperr.CodeUnknownRequest, fmt.Errorf("%w: %q", ErrUnknownRequest, m.Request))
	}

	if err := validate.Struct(ev); err != nil {
		return nil, apperr.Validation(apperr.CodeBadRequest, err)
	}
	return ev, nil
}

func decodeMakeGame(m types.ClientMessage) (MakeGameEvent, error) {
	ev := MakeGameEvent{Name: strings.TrimSpace(m.Name)}
	for _, s := range m.Stages {
		ev.Stages = append(ev.Stages, engine.StageType(s))
	}
	for i, pair := range m.Dict {
		term, translation := strings.TrimSpace(pair[0]), strings.TrimSpace(pair[1])
		if term == "" || translation == "" {
			return MakeGameEvent{}, apperr.Validation(apperr.CodeBadRequest, fmt.Errorf("dict entry %d is incomplete", i))
		}
		ev.Vocab = append(ev.Vocab, engine.VocabPair{Term: term, Translation: translation})
	}
	return ev, nil
}

// NormalizeNickname NFC-normalises a nickname so composed and decomposed
// forms compare equal. Case and surrounding whitespace are preserved.
func NormalizeNickname(nickname string) string {
	return norm.NFC.String(nickname)
}
