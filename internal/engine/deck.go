package engine

import "slices"

// OptionCount is the number of answer options on every stage card.
const OptionCount = 4

// Shuffle returns a uniformly shuffled copy of items (Fisher-Yates).
func Shuffle[T any](items []T, rng Rand) []T {
	out := slices.Clone(items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// BuildDeck produces one StageEntry per stage type. The vocabulary is shuffled
// once; stage i quizzes entry i and draws its distractors from entries
// i+1..i+3, all modulo the vocabulary length. Small vocabularies therefore
// yield repeated or duplicate options.
func BuildDeck(vocab []VocabPair, stages []StageType, rng Rand) ([]StageEntry, error) {
	if len(vocab) == 0 {
		return nil, ErrEmptyVocabulary
	}

	shuffled := Shuffle(vocab, rng)
	n := len(shuffled)

	deck := make([]StageEntry, 0, len(stages))
	for i, stage := range stages {
		correct := rng.IntN(OptionCount)

		options := make([]string, 0, OptionCount)
		for k := 1; k < OptionCount; k++ {
			options = append(options, shuffled[(i+k)%n].Translation)
		}
		options = slices.Insert(options, correct, shuffled[i%n].Translation)

		deck = append(deck, StageEntry{
			StageName:     stage,
			Term:          shuffled[i%n].Term,
			Options:       options,
			CorrectOption: correct,
		})
	}
	return deck, nil
}
