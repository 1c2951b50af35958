package engine

// TeamCount is ceil(roster / targetSize).
func TeamCount(roster, targetSize int) int {
	if targetSize < 1 {
		return 0
	}
	return (roster + targetSize - 1) / targetSize
}

// Partition deals names round-robin into TeamCount teams: name i joins team
// i mod count. Every member starts at x=0 with a random whole-number y.
func Partition(names []string, targetSize int, rng Rand) ([][]Member, error) {
	if targetSize < 1 {
		return nil, ErrInvalidTeamSize
	}

	count := TeamCount(len(names), targetSize)
	teams := make([][]Member, count)
	for i, name := range names {
		start := Position{X: 0, Y: float64(rng.IntN(int(RoomWidth) + 1))}
		teams[i%count] = append(teams[i%count], Member{Name: name, Position: start})
	}
	return teams, nil
}
