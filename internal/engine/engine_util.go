package engine

import "math/rand/v2"

// Rand is the subset of *rand.Rand the engine draws from.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide math/rand/v2 source, which is safe
// for concurrent use.
func DefaultRand() Rand { return globalRand{} }

func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func NewRoomState(members []Member) RoomState {
	return RoomState{Members: members, CurrentStage: 1}
}

func Midline() float64 { return RoomWidth / 2 }

// StageOrigin is the x coordinate where the 1-based stage begins.
func StageOrigin(stage int) float64 {
	return float64(stage-1) * StageHeight
}

// Clamp forces p inside [0, stage*StageHeight] x [0, RoomWidth].
func Clamp(p Position, stage int) Position {
	return Position{
		X: clampFloat(p.X, 0, float64(stage)*StageHeight),
		Y: clampFloat(p.Y, 0, RoomWidth),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	// NaN compares false against everything; pin it to the lower bound.
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func MemberNames(members []Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}
