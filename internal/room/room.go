package room

import (
	"context"

	"github.com/DoyleJ11/stage-quiz-backend/internal/engine"
	"github.com/DoyleJ11/stage-quiz-backend/internal/peer"
	"github.com/DoyleJ11/stage-quiz-backend/pkg/types"
	"go.uber.org/zap"
)

type Msg interface{ isRoomMsg() }

// Move is a position update from one member. Reply, if set, receives the
// outcome once the room has applied (or refused) it.
type Move struct {
	Name     string
	Position engine.Position
	Reply    chan error
}

func (Move) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type View struct {
	ID      string
	Session string
	Version int
	State   engine.RoomState
}

// Won is reported once, from the room goroutine, when the last stage is cleared.
type Won struct {
	Room    string
	Session string
	Names   []string
}

type Member struct {
	Peer     peer.Peer
	Position engine.Position
}

type Config struct {
	ID      string
	Session string
	Deck    []engine.StageEntry
	Members []Member
	OnWon   func(Won)
	Log     *zap.Logger
}

type Room struct {
	inbox   chan Msg
	id      string
	session string
	deck    []engine.StageEntry
	state   engine.RoomState
	peers   map[string]peer.Peer
	version int
	onWon   func(Won)
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts the room goroutine. Every member is sent the initial snapshot
// before New returns.
func New(parent context.Context, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)

	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	members := make([]engine.Member, 0, len(cfg.Members))
	peers := make(map[string]peer.Peer, len(cfg.Members))
	for _, m := range cfg.Members {
		members = append(members, engine.Member{Name: m.Peer.Name, Position: m.Position})
		peers[m.Peer.Name] = m.Peer
	}

	r := &Room{
		inbox:   make(chan Msg, 64),
		id:      cfg.ID,
		session: cfg.Session,
		deck:    cfg.Deck,
		state:   engine.NewRoomState(members),
		peers:   peers,
		onWon:   cfg.OnWon,
		log:     log.With(zap.String("room", cfg.ID), zap.String("session", cfg.Session)),
		ctx:     ctx,
		cancel:  cancel,
	}

	r.broadcast()
	go r.loop()
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) Session() string { return r.session }

// Inbox exposes the room's mailbox to the controller and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room goroutine has stopped serving its inbox.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Move:
				err := r.move(msg)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case GetState:
				msg.Reply <- View{
					ID:      r.id,
					Session: r.session,
					Version: r.version,
					State:   r.state,
				}

			case Shutdown:
				r.cancel()
				return
			}
		}
	}
}

func (r *Room) move(msg Move) error {
	events, newState, err := engine.Apply(r.state, r.deck, engine.MoveCommand{Name: msg.Name, Position: msg.Position})
	if err != nil {
		return err
	}

	r.state = newState
	r.version++

	if engine.ContainsEvent(events, engine.EvtStageCleared) {
		r.log.Info("stage cleared", zap.Int("stage", r.state.CurrentStage-1))
	}

	r.broadcast()

	if engine.ContainsEvent(events, engine.EvtRoomWon) {
		r.log.Info("room won")
		if r.onWon != nil {
			r.onWon(Won{Room: r.id, Session: r.session, Names: engine.MemberNames(r.state.Members)})
		}
	}
	return nil
}

func (r *Room) broadcast() {
	snap := Snapshot(r.id, r.session, r.state)
	for _, m := range r.state.Members {
		p := r.peers[m.Name]
		if !p.Push(types.ServerMessage{Type: types.TypeRoom, Room: &snap}) {
			// Slow or gone; the transport owns the connection lifecycle.
			r.log.Warn("dropped room snapshot", zap.String("member", m.Name))
		}
	}
}

// Snapshot renders the name-only roster, positions and stage index.
func Snapshot(id, session string, s engine.RoomState) types.RoomSnapshot {
	users := make([]types.UserPosition, len(s.Members))
	for i, m := range s.Members {
		users[i] = types.UserPosition{
			Name:     m.Name,
			Position: types.Position{X: m.Position.X, Y: m.Position.Y},
		}
	}
	return types.RoomSnapshot{
		ID:           id,
		Session:      session,
		CurrentStage: s.CurrentStage,
		Users:        users,
	}
}
