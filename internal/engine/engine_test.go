package engine

import (
	"errors"
	"math"
	"testing"
)

func deckOf(entries ...StageEntry) []StageEntry { return entries }

func roomAt(stage int, positions ...Position) RoomState {
	s := RoomState{CurrentStage: stage}
	for i, p := range positions {
		s.Members = append(s.Members, Member{Name: string(rune('A' + i)), Position: p})
	}
	return s
}

func TestIsStageCleared_Weighted(t *testing.T) {
	even := deckOf(StageEntry{StageName: StageWeighted, CorrectOption: 2})
	odd := deckOf(StageEntry{StageName: StageWeighted, CorrectOption: 1})

	cases := []struct {
		name string
		room RoomState
		deck []StageEntry
		want bool
	}{
		{
			name: "movement gate fails below MinMovement",
			room: roomAt(1, Position{X: 5, Y: 80}),
			deck: even,
			want: false,
		},
		{
			name: "even parity lower half clears",
			room: roomAt(1, Position{X: 10, Y: 80}, Position{X: 60, Y: 50}),
			deck: even,
			want: true,
		},
		{
			name: "even parity single violator blocks",
			room: roomAt(1, Position{X: 40, Y: 80}, Position{X: 40, Y: 20}),
			deck: even,
			want: false,
		},
		{
			name: "odd parity upper half clears",
			room: roomAt(1, Position{X: 40, Y: 20}, Position{X: 40, Y: 50}),
			deck: odd,
			want: true,
		},
		{
			name: "odd parity lower half blocks",
			room: roomAt(1, Position{X: 40, Y: 20}, Position{X: 40, Y: 51}),
			deck: odd,
			want: false,
		},
		{
			name: "gate measured from stage origin",
			room: roomAt(2, Position{X: 105, Y: 80}),
			deck: deckOf(StageEntry{StageName: StageTiles}, StageEntry{StageName: StageWeighted, CorrectOption: 0}),
			want: false,
		},
		{
			name: "second stage cleared past its origin",
			room: roomAt(2, Position{X: 110, Y: 80}),
			deck: deckOf(StageEntry{StageName: StageTiles}, StageEntry{StageName: StageWeighted, CorrectOption: 0}),
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsStageCleared(tc.room, tc.deck); got != tc.want {
				t.Fatalf("IsStageCleared: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsStageCleared_Seesaw(t *testing.T) {
	even := deckOf(StageEntry{StageName: StageSeesaw, CorrectOption: 0})
	odd := deckOf(StageEntry{StageName: StageSeesaw, CorrectOption: 3})

	cases := []struct {
		name string
		room RoomState
		deck []StageEntry
		want bool
	}{
		{
			name: "strict majority clears",
			room: roomAt(1, Position{X: 20, Y: 90}, Position{X: 20, Y: 70}, Position{X: 20, Y: 10}),
			deck: even,
			want: true,
		},
		{
			name: "exact half does not clear",
			room: roomAt(1, Position{X: 20, Y: 90}, Position{X: 20, Y: 10}),
			deck: even,
			want: false,
		},
		{
			name: "on the pivot does not count",
			room: roomAt(1, Position{X: 20, Y: 50}),
			deck: even,
			want: false,
		},
		{
			name: "odd parity counts upper half",
			room: roomAt(1, Position{X: 20, Y: 10}, Position{X: 20, Y: 30}, Position{X: 20, Y: 90}),
			deck: odd,
			want: true,
		},
		{
			name: "one member below gate fails everyone",
			room: roomAt(1, Position{X: 20, Y: 90}, Position{X: 20, Y: 90}, Position{X: 9, Y: 90}),
			deck: even,
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsStageCleared(tc.room, tc.deck); got != tc.want {
				t.Fatalf("IsStageCleared: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsStageCleared_Tiles(t *testing.T) {
	cases := []struct {
		name   string
		option int
		pos    Position
		want   bool
	}{
		{name: "option 0 upper half past midpoint", option: 0, pos: Position{X: 70, Y: 20}, want: true},
		{name: "option 0 rejects before midpoint", option: 0, pos: Position{X: 30, Y: 20}, want: false},
		{name: "option 1 lower half past midpoint", option: 1, pos: Position{X: 70, Y: 80}, want: true},
		{name: "option 1 rejects upper half", option: 1, pos: Position{X: 70, Y: 20}, want: false},
		{name: "option 2 upper half before midpoint", option: 2, pos: Position{X: 30, Y: 20}, want: true},
		{name: "option 3 lower half before midpoint", option: 3, pos: Position{X: 0, Y: 100}, want: true},
		{name: "option 3 rejects past midpoint", option: 3, pos: Position{X: 90, Y: 100}, want: false},
		{name: "no movement gate", option: 2, pos: Position{X: 0, Y: 0}, want: true},
		{name: "midline counts as both halves", option: 1, pos: Position{X: 50, Y: 50}, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deck := deckOf(StageEntry{StageName: StageTiles, CorrectOption: tc.option})
			if got := IsStageCleared(roomAt(1, tc.pos), deck); got != tc.want {
				t.Fatalf("IsStageCleared: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsStageCleared_StageOutOfDeck(t *testing.T) {
	deck := deckOf(StageEntry{StageName: StageTiles, CorrectOption: 2})
	if IsStageCleared(roomAt(2, Position{}), deck) {
		t.Fatalf("expected no clear past the end of the deck")
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		name  string
		stage int
		in    Position
		want  Position
	}{
		{name: "inside untouched", stage: 1, in: Position{X: 40, Y: 60}, want: Position{X: 40, Y: 60}},
		{name: "negative pinned to zero", stage: 2, in: Position{X: -5, Y: -1}, want: Position{X: 0, Y: 0}},
		{name: "x capped at current stage end", stage: 2, in: Position{X: 999, Y: 50}, want: Position{X: 200, Y: 50}},
		{name: "y capped at room width", stage: 1, in: Position{X: 1, Y: 1e9}, want: Position{X: 1, Y: RoomWidth}},
		{name: "NaN pinned", stage: 1, in: Position{X: math.NaN(), Y: math.Inf(1)}, want: Position{X: 0, Y: RoomWidth}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clamp(tc.in, tc.stage); got != tc.want {
				t.Fatalf("Clamp: got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestApply_AdvancesExactlyOneStage(t *testing.T) {
	// Both stages hold for a member at (60, 20); only one may be cleared per move.
	deck := deckOf(
		StageEntry{StageName: StageTiles, CorrectOption: 0},
		StageEntry{StageName: StageTiles, CorrectOption: 2},
	)
	s := NewRoomState([]Member{{Name: "A"}})

	events, next, err := Apply(s, deck, MoveCommand{Name: "A", Position: Position{X: 60, Y: 20}})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if next.CurrentStage != 2 {
		t.Fatalf("want stage 2, got %d", next.CurrentStage)
	}
	if !ContainsEvent(events, EvtStageCleared) || ContainsEvent(events, EvtRoomWon) {
		t.Fatalf("unexpected events %+v", events)
	}
	if s.Members[0].Position != (Position{}) {
		t.Fatalf("Apply mutated its input state")
	}

	events, next, err = Apply(next, deck, MoveCommand{Name: "A", Position: Position{X: 120, Y: 20}})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtRoomWon) || !next.Won || next.CurrentStage != 3 {
		t.Fatalf("expected win at stage 3, got %+v / %+v", events, next)
	}

	if _, _, err := Apply(next, deck, MoveCommand{Name: "A"}); !errors.Is(err, ErrRoomAlreadyWon) {
		t.Fatalf("want ErrRoomAlreadyWon, got %v", err)
	}
}

func TestApply_ClampsBeforeStoring(t *testing.T) {
	deck := deckOf(StageEntry{StageName: StageWeighted, CorrectOption: 1})
	s := NewRoomState([]Member{{Name: "A"}, {Name: "B"}})

	_, next, err := Apply(s, deck, MoveCommand{Name: "B", Position: Position{X: 500, Y: -40}})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if got := next.Members[1].Position; got != (Position{X: StageHeight, Y: 0}) {
		t.Fatalf("want clamped position, got %+v", got)
	}
	if next.CurrentStage != 1 {
		t.Fatalf("A has not moved; stage must not advance")
	}
}

func TestApply_RejectsUnknownMember(t *testing.T) {
	s := NewRoomState([]Member{{Name: "A"}})
	_, next, err := Apply(s, nil, MoveCommand{Name: "Z"})
	if !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("want ErrUnknownMember, got %v", err)
	}
	if next.CurrentStage != 1 {
		t.Fatalf("state changed on error")
	}
}
