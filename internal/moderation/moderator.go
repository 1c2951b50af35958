package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator flags nicknames that contain a banned word. Matching ignores
// case, punctuation, whitespace and common leet-speak substitutions.
type Moderator struct {
	matcher *goahocorasick.Machine
}

// NewModerator builds the automaton. With no words, every nickname is allowed.
func NewModerator(bannedWords []string) (*Moderator, error) {
	patterns := make([][]rune, 0, len(bannedWords))
	for _, word := range bannedWords {
		if p := normalize(word); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return &Moderator{}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m}, nil
}

// ParseWordList splits a comma separated list, dropping blanks.
func ParseWordList(list string) []string {
	var words []string
	for _, w := range strings.Split(list, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func (m *Moderator) Allowed(nickname string) bool {
	if m == nil || m.matcher == nil {
		return true
	}
	text := normalize(nickname)
	if len(text) == 0 {
		return true
	}
	return len(m.matcher.MultiPatternSearch(text, true)) == 0
}

func normalize(input string) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet-speak characters back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
