package engine

import (
	"errors"
	"slices"
)

var ErrUnknownMember = errors.New("member not in room")
var ErrRoomAlreadyWon = errors.New("room already won")
var ErrEmptyVocabulary = errors.New("vocabulary is empty")
var ErrInvalidTeamSize = errors.New("team size must be at least 1")

// Play area geometry. Stages are stacked along x, each StageHeight long;
// y always spans [0, RoomWidth].
const (
	RoomWidth   = 100.0
	StageHeight = 100.0
	MinMovement = StageHeight * 0.1
)

type StageType string

const (
	StageWeighted StageType = "Weighted"
	StageSeesaw   StageType = "Seesaw"
	StageTiles    StageType = "Tiles"
)

func (t StageType) Valid() bool {
	switch t {
	case StageWeighted, StageSeesaw, StageTiles:
		return true
	}
	return false
}

type Position struct {
	X float64
	Y float64
}

type VocabPair struct {
	Term        string
	Translation string
}

// StageEntry is one generated quiz card of a session deck.
type StageEntry struct {
	StageName     StageType
	Term          string
	Options       []string
	CorrectOption int
}

type Member struct {
	Name     string
	Position Position
}

// RoomState is the mutable part of a room. CurrentStage is 1-based.
type RoomState struct {
	Members      []Member
	CurrentStage int
	Won          bool
}

type MoveCommand struct {
	Name     string
	Position Position
}

type EventType string

const (
	EvtPositionUpdated EventType = "PositionUpdated"
	EvtStageCleared    EventType = "StageCleared"
	EvtRoomWon         EventType = "RoomWon"
)

type Event struct {
	Type     EventType
	Name     string
	Position Position
	Stage    int
}

/*
	MoveCommand -> EvtPositionUpdated
	            -> EvtPositionUpdated -> EvtStageCleared                 (stage predicate holds)
	            -> EvtPositionUpdated -> EvtStageCleared -> EvtRoomWon   (last stage cleared)

	A cleared stage advances the room by exactly one. The next stage is only
	evaluated on the following move, even if it already holds.
*/

func Apply(s RoomState, deck []StageEntry, cmd MoveCommand) ([]Event, RoomState, error) {
	if s.Won {
		return nil, s, ErrRoomAlreadyWon
	}

	idx := slices.IndexFunc(s.Members, func(m Member) bool { return m.Name == cmd.Name })
	if idx < 0 {
		return nil, s, ErrUnknownMember
	}

	newState := s
	newState.Members = slices.Clone(s.Members)

	pos := Clamp(cmd.Position, s.CurrentStage)
	newState.Members[idx].Position = pos
	events := []Event{{Type: EvtPositionUpdated, Name: cmd.Name, Position: pos}}

	if IsStageCleared(newState, deck) {
		events = append(events, Event{Type: EvtStageCleared, Stage: newState.CurrentStage})
		newState.CurrentStage++

		if newState.CurrentStage > len(deck) {
			newState.Won = true
			events = append(events, Event{Type: EvtRoomWon, Stage: newState.CurrentStage})
		}
	}
	return events, newState, nil
}

// IsStageCleared reports whether every member of the room satisfies the
// predicate of the room's current stage. It has no side effects.
func IsStageCleared(s RoomState, deck []StageEntry) bool {
	entry, ok := currentEntry(s, deck)
	if !ok {
		return false
	}

	origin := StageOrigin(s.CurrentStage)

	switch entry.StageName {
	case StageWeighted:
		for _, m := range s.Members {
			if !passedMovementGate(m.Position, origin) {
				return false
			}
			if !onCorrectSide(m.Position, entry.CorrectOption) {
				return false
			}
		}
		return true

	case StageSeesaw:
		correct := 0
		for _, m := range s.Members {
			if !passedMovementGate(m.Position, origin) {
				return false
			}
			if strictlyOnCorrectSide(m.Position, entry.CorrectOption) {
				correct++
			}
		}
		return correct*2 > len(s.Members)

	case StageTiles:
		for _, m := range s.Members {
			if !inQuadrant(m.Position, origin, entry.CorrectOption) {
				return false
			}
		}
		return true

	default:
		return false
	}
}

func currentEntry(s RoomState, deck []StageEntry) (StageEntry, bool) {
	idx := s.CurrentStage - 1
	if idx < 0 || idx >= len(deck) {
		return StageEntry{}, false
	}
	return deck[idx], true
}

func passedMovementGate(p Position, origin float64) bool {
	return p.X >= origin+MinMovement
}

// Even options need the lower half (y >= midline), odd options the upper half.
func onCorrectSide(p Position, correctOption int) bool {
	if correctOption%2 == 0 {
		return p.Y >= Midline()
	}
	return p.Y <= Midline()
}

// Seesaw counts only members clearly off the pivot.
func strictlyOnCorrectSide(p Position, correctOption int) bool {
	if correctOption%2 == 0 {
		return p.Y > Midline()
	}
	return p.Y < Midline()
}

// Tiles: option 0 upper half past the stage midpoint, 1 lower half past it,
// 2 upper half before it, 3 lower half before it. y grows downwards, so the
// upper half is y <= midline.
func inQuadrant(p Position, origin float64, correctOption int) bool {
	xMid := origin + StageHeight/2
	upperY := p.Y <= Midline()
	lowerY := p.Y >= Midline()
	farX := p.X >= xMid
	nearX := p.X <= xMid

	switch correctOption {
	case 0:
		return upperY && farX
	case 1:
		return lowerY && farX
	case 2:
		return upperY && nearX
	case 3:
		return lowerY && nearX
	default:
		return false
	}
}
