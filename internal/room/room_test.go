package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/stage-quiz-backend/internal/engine"
	"github.com/DoyleJ11/stage-quiz-backend/internal/peer"
	"github.com/DoyleJ11/stage-quiz-backend/pkg/types"
)

// helper: receive one message with a timeout so tests never hang
func recvMessage(t *testing.T, c *peer.Conn, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case msg := <-c.Out():
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{} // unreachable
	}
}

func recvNoMessage(t *testing.T, c *peer.Conn, within time.Duration) {
	t.Helper()
	select {
	case msg := <-c.Out():
		t.Fatalf("expected no message within %v, but got: %+v", within, msg)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, r *Room) View {
	t.Helper()
	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

func move(t *testing.T, r *Room, name string, pos engine.Position) error {
	t.Helper()
	reply := make(chan error, 1)
	r.Inbox() <- Move{Name: name, Position: pos, Reply: reply}
	select {
	case err := <-reply:
		return err
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for move reply")
		return nil
	}
}

type fixture struct {
	room  *Room
	conns map[string]*peer.Conn
	won   chan Won
}

func newFixture(t *testing.T, deck []engine.StageEntry, names ...string) fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := fixture{conns: map[string]*peer.Conn{}, won: make(chan Won, 4)}
	var members []Member
	for _, n := range names {
		c := peer.NewConn(n, 8)
		f.conns[n] = c
		members = append(members, Member{Peer: peer.Peer{Name: n, RequestID: "join-" + n, Conn: c}})
	}

	f.room = New(ctx, Config{
		ID:      "room-1",
		Session: "123456",
		Deck:    deck,
		Members: members,
		OnWon:   func(w Won) { f.won <- w },
	})
	return f
}

func TestRoom_InitialSnapshotToEveryMember(t *testing.T) {
	f := newFixture(t, []engine.StageEntry{{StageName: engine.StageTiles}}, "A", "B")

	for name, c := range f.conns {
		msg := recvMessage(t, c, 100*time.Millisecond)
		if msg.Type != types.TypeRoom || msg.Room == nil {
			t.Fatalf("%s: want room snapshot, got %+v", name, msg)
		}
		if msg.ResponseID != "join-"+name {
			t.Fatalf("%s: snapshot tagged %q", name, msg.ResponseID)
		}
		if msg.Room.CurrentStage != 1 || len(msg.Room.Users) != 2 {
			t.Fatalf("%s: unexpected snapshot %+v", name, msg.Room)
		}
	}
}

func TestRoom_MoveClampsAndBroadcasts(t *testing.T) {
	deck := []engine.StageEntry{{StageName: engine.StageWeighted, CorrectOption: 0}}
	f := newFixture(t, deck, "A", "B")
	recvMessage(t, f.conns["A"], 100*time.Millisecond)
	recvMessage(t, f.conns["B"], 100*time.Millisecond)

	if err := move(t, f.room, "A", engine.Position{X: 400, Y: -3}); err != nil {
		t.Fatalf("unexpected err %v", err)
	}

	for _, c := range f.conns {
		msg := recvMessage(t, c, 100*time.Millisecond)
		got := msg.Room.Users[0].Position
		if got != (types.Position{X: engine.StageHeight, Y: 0}) {
			t.Fatalf("want clamped position, got %+v", got)
		}
	}

	if v := recvView(t, f.room); v.Version != 1 || v.State.CurrentStage != 1 {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestRoom_UnknownMemberRejected(t *testing.T) {
	f := newFixture(t, []engine.StageEntry{{StageName: engine.StageTiles}}, "A")
	recvMessage(t, f.conns["A"], 100*time.Millisecond)

	if err := move(t, f.room, "Z", engine.Position{}); !errors.Is(err, engine.ErrUnknownMember) {
		t.Fatalf("want ErrUnknownMember, got %v", err)
	}
	recvNoMessage(t, f.conns["A"], 50*time.Millisecond)
}

func TestRoom_WinReportedOnceAndLaterMovesIgnored(t *testing.T) {
	deck := []engine.StageEntry{{StageName: engine.StageTiles, CorrectOption: 1}}
	f := newFixture(t, deck, "A")
	recvMessage(t, f.conns["A"], 100*time.Millisecond)

	if err := move(t, f.room, "A", engine.Position{X: 80, Y: 90}); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	snap := recvMessage(t, f.conns["A"], 100*time.Millisecond)
	if snap.Room.CurrentStage != 2 {
		t.Fatalf("want stage 2 after clearing, got %d", snap.Room.CurrentStage)
	}

	select {
	case w := <-f.won:
		if w.Room != "room-1" || w.Session != "123456" || len(w.Names) != 1 || w.Names[0] != "A" {
			t.Fatalf("unexpected win %+v", w)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected win report")
	}

	if err := move(t, f.room, "A", engine.Position{X: 10, Y: 10}); !errors.Is(err, engine.ErrRoomAlreadyWon) {
		t.Fatalf("want ErrRoomAlreadyWon, got %v", err)
	}
	recvNoMessage(t, f.conns["A"], 50*time.Millisecond)
	if len(f.won) != 0 {
		t.Fatalf("win reported more than once")
	}
}

func TestRoom_DropsWhenMemberOutboxFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := peer.NewConn("slow", 1)
	fast := peer.NewConn("fast", 8)
	r := New(ctx, Config{
		ID:   "room-2",
		Deck: []engine.StageEntry{{StageName: engine.StageWeighted}},
		Members: []Member{
			{Peer: peer.Peer{Name: "slow", Conn: slow}},
			{Peer: peer.Peer{Name: "fast", Conn: fast}},
		},
	})

	// slow never drains; the room must keep serving fast.
	for i := 0; i < 3; i++ {
		if err := move(t, r, "fast", engine.Position{X: float64(i)}); err != nil {
			t.Fatalf("unexpected err %v", err)
		}
	}
	if v := recvView(t, r); v.Version != 3 {
		t.Fatalf("want version 3, got %d", v.Version)
	}
	if len(fast.Out()) != 4 {
		t.Fatalf("fast member should hold 4 snapshots, has %d", len(fast.Out()))
	}

	r.Inbox() <- Shutdown{}
}

func TestRoom_ConcurrentMovesAreSerialized(t *testing.T) {
	const members, moves = 8, 50

	names := make([]string, members)
	for i := range names {
		names[i] = fmt.Sprintf("m%d", i)
	}
	// x stays at 0, so the movement gate keeps the stage open throughout.
	deck := []engine.StageEntry{{StageName: engine.StageWeighted}}
	f := newFixture(t, deck, names...)

	var wg sync.WaitGroup
	errs := make(chan error, members*moves)
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for j := 0; j < moves; j++ {
				reply := make(chan error, 1)
				f.room.Inbox() <- Move{Name: name, Position: engine.Position{X: 0, Y: float64(j)}, Reply: reply}
				if err := <-reply; err != nil {
					errs <- fmt.Errorf("%s move %d: %w", name, j, err)
				}
			}
		}(name)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	v := recvView(t, f.room)
	if v.Version != members*moves {
		t.Fatalf("want version %d, got %d", members*moves, v.Version)
	}
	if v.State.CurrentStage != 1 || v.State.Won {
		t.Fatalf("stage should still be open: %+v", v.State)
	}
	if len(v.State.Members) != members {
		t.Fatalf("want %d members, got %d", members, len(v.State.Members))
	}
	for _, m := range v.State.Members {
		if m.Position != (engine.Position{X: 0, Y: moves - 1}) {
			t.Fatalf("%s: last move lost, at %+v", m.Name, m.Position)
		}
	}
}
