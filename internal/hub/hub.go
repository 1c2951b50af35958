package hub

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/stage-quiz-backend/internal/engine"
	"github.com/DoyleJ11/stage-quiz-backend/internal/peer"
	"github.com/DoyleJ11/stage-quiz-backend/internal/room"
	"github.com/DoyleJ11/stage-quiz-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var ErrNoSuchSession = errors.New("no such session")
var ErrNicknameTaken = errors.New("nickname already in session")
var ErrTeamsAlreadySet = errors.New("teams already set up")
var ErrNotGameMaster = errors.New("caller is not the game master")
var ErrCodeSpaceExhausted = errors.New("no free session code")

const codeDigits = 6
const maxCodeAttempts = 64

type HubMsg interface{ isHubMsg() }

// GameDef is the part of a stored game a session needs.
type GameDef struct {
	Name   string
	Stages []engine.StageType
	Vocab  []engine.VocabPair
}

type MakeSession struct {
	Game   GameDef
	Master peer.Peer
	Reply  chan MakeSessionResult
}

type MakeSessionResult struct {
	Code string
	Err  error
}

type JoinSession struct {
	Code   string
	Player peer.Peer
	Reply  chan JoinResult
}

type JoinResult struct {
	Deck []engine.StageEntry
	Err  error
}

type SetupTeams struct {
	Code       string
	TargetSize int
	Caller     string
	Reply      chan SetupTeamsResult
}

type SetupTeamsResult struct {
	RoomIDs []string
	Teams   [][]string
	Err     error
}

type StartGame struct {
	Code   string
	Caller string
	Reply  chan error
}

type GetRoom struct {
	ID    string
	Reply chan *room.Room
}

type GetSession struct {
	Code  string
	Reply chan *SessionView
}

// RoomWon is sent by a room goroutine when it clears its last stage.
type RoomWon struct {
	Won room.Won
}

type ShutdownHub struct{}

func (MakeSession) isHubMsg() {}
func (JoinSession) isHubMsg() {}
func (SetupTeams) isHubMsg()  {}
func (StartGame) isHubMsg()   {}
func (GetRoom) isHubMsg()     {}
func (GetSession) isHubMsg()  {}
func (RoomWon) isHubMsg()     {}
func (ShutdownHub) isHubMsg() {}

// SessionView is a read-only copy of a session for callers outside the hub.
type SessionView struct {
	Code     string
	GameName string
	Master   string
	Players  []string
	Rooms    []string
	Deck     []engine.StageEntry
}

type session struct {
	code     string
	master   peer.Peer
	players  []peer.Peer
	gameName string
	deck     []engine.StageEntry
	rooms    []string
}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session
	rooms    map[string]*room.Room
	rng      engine.Rand
	newID    func() string
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

type Option func(*Hub)

// WithRand fixes the source used for codes, decks and start positions.
func WithRand(rng engine.Rand) Option {
	return func(h *Hub) { h.rng = rng }
}

func WithLogger(log *zap.Logger) Option {
	return func(h *Hub) { h.log = log }
}

func NewHub(parent context.Context, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session),
		rooms:    make(map[string]*room.Room),
		rng:      engine.DefaultRand(),
		newID:    uuid.NewString,
		log:      zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case MakeSession:
				code, err := h.makeSession(msg)
				msg.Reply <- MakeSessionResult{Code: code, Err: err}

			case JoinSession:
				deck, err := h.join(msg)
				msg.Reply <- JoinResult{Deck: deck, Err: err}

			case SetupTeams:
				msg.Reply <- h.setupTeams(msg)

			case StartGame:
				msg.Reply <- h.startGame(msg)

			case GetRoom:
				msg.Reply <- h.rooms[msg.ID] // May be nil

			case GetSession:
				msg.Reply <- h.view(msg.Code)

			case RoomWon:
				h.announceWin(msg.Won)

			case ShutdownHub:
				// Rooms run on contexts derived from ours; cancelling stops them all.
				clear(h.rooms)
				clear(h.sessions)
				h.cancel()
			}
		}
	}
}

func (h *Hub) makeSession(msg MakeSession) (string, error) {
	deck, err := engine.BuildDeck(msg.Game.Vocab, msg.Game.Stages, h.rng)
	if err != nil {
		return "", err
	}

	code, err := h.freeCode()
	if err != nil {
		return "", err
	}

	h.sessions[code] = &session{
		code:     code,
		master:   msg.Master,
		gameName: msg.Game.Name,
		deck:     deck,
	}
	h.log.Info("session created",
		zap.String("code", code),
		zap.String("master", msg.Master.Name),
		zap.Int("stages", len(deck)))
	return code, nil
}

// freeCode draws 6-digit codes until one is not in use.
func (h *Hub) freeCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := fmt.Sprintf("%0*d", codeDigits, h.rng.IntN(1_000_000))
		if _, taken := h.sessions[code]; !taken {
			return code, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", code))
	}
	return "", ErrCodeSpaceExhausted
}

func (h *Hub) join(msg JoinSession) ([]engine.StageEntry, error) {
	s, ok := h.sessions[msg.Code]
	if !ok {
		return nil, ErrNoSuchSession
	}
	if lo.ContainsBy(s.players, func(p peer.Peer) bool { return p.Name == msg.Player.Name }) {
		return nil, ErrNicknameTaken
	}

	s.players = append(s.players, msg.Player)

	roster := types.RosterUpdate{Code: s.code, Name: s.gameName, Users: playerNames(s.players)}
	if !s.master.Push(types.ServerMessage{Type: types.TypeRoster, Roster: &roster}) {
		h.log.Warn("dropped roster update", zap.String("code", s.code))
	}
	return s.deck, nil
}

func (h *Hub) setupTeams(msg SetupTeams) SetupTeamsResult {
	s, ok := h.sessions[msg.Code]
	if !ok {
		return SetupTeamsResult{Err: ErrNoSuchSession}
	}
	if s.master.Name != msg.Caller {
		return SetupTeamsResult{Err: ErrNotGameMaster}
	}
	if len(s.rooms) > 0 {
		return SetupTeamsResult{Err: ErrTeamsAlreadySet}
	}

	teams, err := engine.Partition(playerNames(s.players), msg.TargetSize, h.rng)
	if err != nil {
		return SetupTeamsResult{Err: err}
	}

	byName := lo.KeyBy(s.players, func(p peer.Peer) string { return p.Name })

	res := SetupTeamsResult{RoomIDs: make([]string, 0, len(teams)), Teams: make([][]string, 0, len(teams))}
	for _, team := range teams {
		id := h.newID()
		members := make([]room.Member, len(team))
		for i, m := range team {
			members[i] = room.Member{Peer: byName[m.Name], Position: m.Position}
		}

		h.rooms[id] = room.New(h.ctx, room.Config{
			ID:      id,
			Session: s.code,
			Deck:    s.deck,
			Members: members,
			OnWon:   h.reportWin,
			Log:     h.log,
		})
		res.RoomIDs = append(res.RoomIDs, id)
		res.Teams = append(res.Teams, engine.MemberNames(team))
	}
	s.rooms = res.RoomIDs

	h.log.Info("teams set up",
		zap.String("code", s.code),
		zap.Int("teams", len(teams)),
		zap.Int("players", len(s.players)))
	return res
}

func (h *Hub) startGame(msg StartGame) error {
	s, ok := h.sessions[msg.Code]
	if !ok {
		return ErrNoSuchSession
	}
	if s.master.Name != msg.Caller {
		return ErrNotGameMaster
	}

	for _, p := range s.players {
		if !p.Push(types.ServerMessage{Type: types.TypeStart, Start: true}) {
			h.log.Warn("dropped start signal", zap.String("code", s.code), zap.String("player", p.Name))
		}
	}
	return nil
}

// reportWin runs on a room goroutine. The hub never blocks on a room, so
// waiting for inbox space here cannot deadlock.
func (h *Hub) reportWin(w room.Won) {
	select {
	case h.inbox <- RoomWon{Won: w}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) announceWin(w room.Won) {
	s, ok := h.sessions[w.Session]
	if !ok {
		return
	}

	win := types.WinEvent{Room: w.Room, Users: w.Names}
	msg := types.ServerMessage{Type: types.TypeWin, Win: &win}

	h.log.Info("session won", zap.String("code", s.code), zap.String("room", w.Room), zap.Strings("users", w.Names))
	if !s.master.Push(msg) {
		h.log.Warn("dropped win event", zap.String("code", s.code), zap.String("to", s.master.Name))
	}
	for _, p := range s.players {
		if !p.Push(msg) {
			h.log.Warn("dropped win event", zap.String("code", s.code), zap.String("to", p.Name))
		}
	}
}

func (h *Hub) view(code string) *SessionView {
	s, ok := h.sessions[code]
	if !ok {
		return nil
	}
	return &SessionView{
		Code:     s.code,
		GameName: s.gameName,
		Master:   s.master.Name,
		Players:  playerNames(s.players),
		Rooms:    slices.Clone(s.rooms),
		Deck:     s.deck,
	}
}

func playerNames(players []peer.Peer) []string {
	return lo.Map(players, func(p peer.Peer, _ int) string { return p.Name })
}
