package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/stage-quiz-backend/internal/apperr"
	"github.com/DoyleJ11/stage-quiz-backend/internal/auth"
	"github.com/DoyleJ11/stage-quiz-backend/internal/engine"
	"github.com/DoyleJ11/stage-quiz-backend/internal/hub"
	"github.com/DoyleJ11/stage-quiz-backend/internal/moderation"
	"github.com/DoyleJ11/stage-quiz-backend/internal/peer"
	"github.com/DoyleJ11/stage-quiz-backend/internal/room"
	"github.com/DoyleJ11/stage-quiz-backend/internal/store"
	"github.com/DoyleJ11/stage-quiz-backend/internal/types"
	pub "github.com/DoyleJ11/stage-quiz-backend/pkg/types"
	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var ErrHubStopped = errors.New("hub stopped")
var ErrRoomStopped = errors.New("room stopped")

// minLanguageConfidence below which a game's language is left blank.
const minLanguageConfidence = 0.5

type Controller struct {
	hub       *hub.Hub
	store     store.Store
	verifier  auth.Verifier
	moderator *moderation.Moderator
	log       *zap.Logger
	now       func() time.Time
}

func New(h *hub.Hub, s store.Store, v auth.Verifier, m *moderation.Moderator, log *zap.Logger) *Controller {
	return &Controller{
		hub:       h,
		store:     s,
		verifier:  v,
		moderator: m,
		log:       log,
		now:       time.Now,
	}
}

// Handle processes one inbound message from conn. Failures are reported to
// conn only; nothing here is fatal to the process.
func (c *Controller) Handle(ctx context.Context, conn *peer.Conn, msg types.ClientMessage) {
	log := c.log.With(
		zap.String("conn", conn.ID),
		zap.String("request", msg.Request),
		zap.String("request_id", msg.RequestID),
	)
	log.Debug("event received")

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling event", zap.Any("panic", r), zap.Stack("stack"))
			conn.Send(pub.ErrorMessage(msg.RequestID, apperr.CodeInternal))
		}
	}()

	if err := c.handle(ctx, conn, msg); err != nil {
		e := apperr.From(err)
		if e.Kind == apperr.KindInternal {
			log.Error("event failed", zap.Error(err))
		} else {
			log.Info("event rejected", zap.String("kind", e.Kind.String()), zap.String("code", e.Code), zap.Error(err))
		}
		conn.Send(pub.ErrorMessage(msg.RequestID, e.Code))
	}
}

func (c *Controller) handle(ctx context.Context, conn *peer.Conn, msg types.ClientMessage) error {
	ev, err := Decode(msg)
	if err != nil {
		return err
	}

	// Events that need no session token.
	switch e := ev.(type) {
	case AuthEvent:
		return c.authenticate(ctx, conn, msg.RequestID, e)
	case JoinSessionEvent:
		return c.joinSession(ctx, conn, msg.RequestID, e)
	case UpdatePositionEvent:
		return c.updatePosition(ctx, e)
	}

	email, err := c.caller(ctx, msg.Auth)
	if err != nil {
		return err
	}

	switch e := ev.(type) {
	case GetSelfEvent:
		return c.getSelf(ctx, conn, msg.RequestID, email)
	case GetGamesEvent:
		return c.getGames(ctx, conn, msg.RequestID, email)
	case MakeGameEvent:
		return c.makeGame(ctx, conn, msg.RequestID, email, e)
	case MakeSessionEvent:
		return c.makeSession(ctx, conn, msg.RequestID, email, e)
	case SetupTeamsEvent:
		return c.setupTeams(ctx, conn, msg.RequestID, email, e)
	case StartGameEvent:
		return c.startGame(ctx, conn, msg.RequestID, email, e)
	default:
		return apperr.Validation(apperr.CodeUnknownRequest, fmt.Errorf("%w: %T", ErrUnknownRequest, ev))
	}
}

func (c *Controller) caller(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperr.Unauthenticated(apperr.CodeNotAuthenticated, errors.New("missing session token"))
	}
	email, err := c.store.EmailForToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.Unauthenticated(apperr.CodeNotAuthenticated, err)
	}
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("lookup session token: %w", err))
	}
	return email, nil
}

func (c *Controller) authenticate(ctx context.Context, conn *peer.Conn, requestID string, e AuthEvent) error {
	id, err := c.verifier.VerifyIdentity(ctx, e.Token)
	if err != nil {
		return apperr.Unauthenticated(apperr.CodeCannotVerify, err)
	}

	token := auth.NewSessionToken()
	if err := c.store.SaveToken(ctx, token, id.Email); err != nil {
		return apperr.Internal(fmt.Errorf("save session token: %w", err))
	}
	created, err := c.store.PutUser(ctx, store.User{Email: id.Email, Name: id.Name, Picture: id.Picture})
	if err != nil {
		return apperr.Internal(fmt.Errorf("put user: %w", err))
	}
	if created {
		c.log.Info("user created", zap.String("email", id.Email))
	}

	conn.Send(pub.ServerMessage{Type: pub.TypeAuth, ResponseID: requestID, Auth: token})
	return nil
}

func (c *Controller) joinSession(ctx context.Context, conn *peer.Conn, requestID string, e JoinSessionEvent) error {
	if !c.moderator.Allowed(e.Nickname) {
		return apperr.Validation(apperr.CodeNicknameRejected, fmt.Errorf("nickname %q rejected", e.Nickname))
	}

	player := peer.Peer{Name: e.Nickname, RequestID: requestID, Conn: conn}
	res, err := request(ctx, c.hub, func(reply chan hub.JoinResult) hub.HubMsg {
		return hub.JoinSession{Code: e.Code, Player: player, Reply: reply}
	})
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fromHubErr(res.Err)
	}

	conn.Send(pub.ServerMessage{
		Type:       pub.TypeJoined,
		ResponseID: requestID,
		Success:    true,
		StageData:  toCards(res.Deck),
	})
	return nil
}

// updatePosition replies nothing directly: the room snapshot broadcast,
// tagged with each member's own id, is the answer.
func (c *Controller) updatePosition(ctx context.Context, e UpdatePositionEvent) error {
	r, err := request(ctx, c.hub, func(reply chan *room.Room) hub.HubMsg {
		return hub.GetRoom{ID: e.RoomID, Reply: reply}
	})
	if err != nil {
		return err
	}
	if r == nil {
		return apperr.Validation(apperr.CodeNoSuchRoom, fmt.Errorf("room %q", e.RoomID))
	}

	reply := make(chan error, 1)
	select {
	case r.Inbox() <- room.Move{Name: e.Nickname, Position: e.Position, Reply: reply}:
	case <-r.Done():
		return apperr.Internal(ErrRoomStopped)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err = <-reply:
	case <-r.Done():
		return apperr.Internal(ErrRoomStopped)
	case <-ctx.Done():
		return ctx.Err()
	}

	if errors.Is(err, engine.ErrRoomAlreadyWon) {
		c.log.Debug("move after win ignored", zap.String("room", e.RoomID), zap.String("member", e.Nickname))
		return nil
	}
	return fromHubErr(err)
}

func (c *Controller) getSelf(ctx context.Context, conn *peer.Conn, requestID, email string) error {
	u, err := c.store.GetUser(ctx, email)
	if err != nil {
		return apperr.Internal(fmt.Errorf("get user: %w", err))
	}
	conn.Send(pub.ServerMessage{
		Type:       pub.TypeSelf,
		ResponseID: requestID,
		User:       &pub.User{Email: u.Email, Name: u.Name, Picture: u.Picture},
	})
	return nil
}

func (c *Controller) getGames(ctx context.Context, conn *peer.Conn, requestID, email string) error {
	games, err := c.store.GamesByOwner(ctx, email)
	if err != nil {
		return &apperr.Error{Kind: apperr.KindInternal, Code: apperr.CodeCannotGetGames, Err: err}
	}
	conn.Send(pub.ServerMessage{
		Type:       pub.TypeGames,
		ResponseID: requestID,
		Items:      lo.Map(games, func(g store.Game, _ int) pub.GameSummary { return toSummary(g) }),
	})
	return nil
}

func (c *Controller) makeGame(ctx context.Context, conn *peer.Conn, requestID, email string, e MakeGameEvent) error {
	game := store.Game{
		ID:     uuid.NewString(),
		Name:   e.Name,
		Owner:  email,
		Stages: lo.Map(e.Stages, func(s engine.StageType, _ int) string { return string(s) }),
		Dict: lo.Map(e.Vocab, func(v engine.VocabPair, _ int) [2]string {
			return [2]string{v.Term, v.Translation}
		}),
		CreatedAt: c.now().UTC(),
	}
	game.TermLanguage = detectLanguage(lo.Map(e.Vocab, func(v engine.VocabPair, _ int) string { return v.Term }))
	game.TranslationLanguage = detectLanguage(lo.Map(e.Vocab, func(v engine.VocabPair, _ int) string { return v.Translation }))

	if err := c.store.CreateGame(ctx, game); err != nil {
		return apperr.Internal(fmt.Errorf("create game: %w", err))
	}
	c.log.Info("game created", zap.String("game", game.ID), zap.String("owner", email), zap.Int("stages", len(game.Stages)))

	msg := pub.SuccessMessage(requestID)
	msg.GameID = game.ID
	conn.Send(msg)
	return nil
}

func (c *Controller) makeSession(ctx context.Context, conn *peer.Conn, requestID, email string, e MakeSessionEvent) error {
	game, err := c.store.LoadGame(ctx, e.GameID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validation(apperr.CodeNoSuchGame, fmt.Errorf("game %q: %w", e.GameID, err))
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("load game: %w", err))
	}

	def, err := toGameDef(game)
	if err != nil {
		return apperr.Internal(err)
	}

	master := peer.Peer{Name: email, RequestID: requestID, Conn: conn}
	res, err := request(ctx, c.hub, func(reply chan hub.MakeSessionResult) hub.HubMsg {
		return hub.MakeSession{Game: def, Master: master, Reply: reply}
	})
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fromHubErr(res.Err)
	}

	conn.Send(pub.ServerMessage{
		Type:       pub.TypeSession,
		ResponseID: requestID,
		Session:    &pub.SessionInfo{Code: res.Code, Name: game.Name},
	})
	return nil
}

func (c *Controller) setupTeams(ctx context.Context, conn *peer.Conn, requestID, email string, e SetupTeamsEvent) error {
	res, err := request(ctx, c.hub, func(reply chan hub.SetupTeamsResult) hub.HubMsg {
		return hub.SetupTeams{Code: e.Code, TargetSize: e.TargetSize, Caller: email, Reply: reply}
	})
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fromHubErr(res.Err)
	}

	conn.Send(pub.ServerMessage{
		Type:       pub.TypeTeams,
		ResponseID: requestID,
		Teams:      &pub.TeamsEvent{Teams: res.Teams},
	})
	return nil
}

func (c *Controller) startGame(ctx context.Context, conn *peer.Conn, requestID, email string, e StartGameEvent) error {
	hubErr, err := request(ctx, c.hub, func(reply chan error) hub.HubMsg {
		return hub.StartGame{Code: e.Code, Caller: email, Reply: reply}
	})
	if err != nil {
		return err
	}
	if hubErr != nil {
		return fromHubErr(hubErr)
	}

	conn.Send(pub.SuccessMessage(requestID))
	return nil
}

// request sends a message to the hub and waits for its reply.
func request[T any](ctx context.Context, h *hub.Hub, build func(chan T) hub.HubMsg) (T, error) {
	var zero T
	reply := make(chan T, 1)

	select {
	case h.Inbox() <- build(reply):
	case <-ctx.Done():
		return zero, apperr.Internal(ctx.Err())
	case <-h.Done():
		return zero, apperr.Internal(ErrHubStopped)
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, apperr.Internal(ctx.Err())
	case <-h.Done():
		return zero, apperr.Internal(ErrHubStopped)
	}
}

func fromHubErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hub.ErrNoSuchSession):
		return apperr.Validation(apperr.CodeNoSuchSession, err)
	case errors.Is(err, hub.ErrNicknameTaken):
		return apperr.Conflict(apperr.CodeNicknameTaken, err)
	case errors.Is(err, hub.ErrTeamsAlreadySet):
		return apperr.Conflict(apperr.CodeTeamsAlreadySet, err)
	case errors.Is(err, hub.ErrNotGameMaster):
		return apperr.Unauthenticated(apperr.CodeNotAuthenticated, err)
	case errors.Is(err, engine.ErrUnknownMember):
		return apperr.Validation(apperr.CodeNoSuchRoom, err)
	case errors.Is(err, engine.ErrInvalidTeamSize), errors.Is(err, engine.ErrEmptyVocabulary):
		return apperr.Validation(apperr.CodeBadRequest, err)
	default:
		return apperr.Internal(err)
	}
}

func toGameDef(g store.Game) (hub.GameDef, error) {
	def := hub.GameDef{Name: g.Name}
	for _, s := range g.Stages {
		st := engine.StageType(s)
		if !st.Valid() {
			return hub.GameDef{}, fmt.Errorf("game %s has unknown stage type %q", g.ID, s)
		}
		def.Stages = append(def.Stages, st)
	}
	def.Vocab = lo.Map(g.Dict, func(p [2]string, _ int) engine.VocabPair {
		return engine.VocabPair{Term: p[0], Translation: p[1]}
	})
	return def, nil
}

func toCards(deck []engine.StageEntry) []pub.StageCard {
	return lo.Map(deck, func(e engine.StageEntry, _ int) pub.StageCard {
		return pub.StageCard{
			StageName:     string(e.StageName),
			Term:          e.Term,
			Options:       e.Options,
			CorrectOption: e.CorrectOption,
		}
	})
}

func toSummary(g store.Game) pub.GameSummary {
	return pub.GameSummary{
		ID:                  g.ID,
		Name:                g.Name,
		Stages:              g.Stages,
		Dict:                g.Dict,
		TermLanguage:        g.TermLanguage,
		TranslationLanguage: g.TranslationLanguage,
	}
}

// detectLanguage returns the ISO 639-1 code of the words taken together, or
// "" when the guess is weak.
func detectLanguage(words []string) string {
	info := whatlanggo.Detect(strings.Join(words, " "))
	if info.Confidence < minLanguageConfidence {
		return ""
	}
	return info.Lang.Iso6391()
}
