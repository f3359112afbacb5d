// Package moderation masks forbidden words in message content before it is stored.
package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Moderator matches forbidden words after folding case, leet speak and separators,
// so "B.4.d-g3r" is caught as "badger". Matched characters are replaced in the original text.
type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

// NewModerator returns a Moderator that changes nothing when words is empty.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := lo.FilterMap(words, func(w string, _ int) ([]rune, bool) {
		folded, _ := fold(strings.TrimSpace(w))
		return folded, len(folded) > 0
	})
	m := &Moderator{replacement: replacement}
	if len(patterns) == 0 {
		return m, nil
	}
	m.machine = new(goahocorasick.Machine)
	if err := m.machine.Build(patterns); err != nil {
		return nil, err
	}
	return m, nil
}

// Censor masks every match, the length and the unmatched characters are untouched.
func (m *Moderator) Censor(content string) string {
	if m == nil || m.machine == nil || content == "" {
		return content
	}
	folded, positions := fold(content)
	if len(folded) == 0 {
		return content
	}
	terms := m.machine.MultiPatternSearch(folded, false)
	if len(terms) == 0 {
		return content
	}

	runes := []rune(content)
	for _, term := range terms {
		last := term.Pos + len(term.Word) - 1
		if term.Pos < 0 || last >= len(positions) {
			continue
		}
		for i := positions[term.Pos]; i <= positions[last]; i++ {
			runes[i] = m.replacement
		}
	}
	return string(runes)
}

// fold returns the searchable form of s and, for each folded rune, its index in s.
func fold(s string) ([]rune, []int) {
	folded := make([]rune, 0, len(s))
	positions := make([]int, 0, len(s))
	for i, r := range []rune(s) {
		if mapped, ok := leet[r]; ok {
			r = mapped
		}
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		positions = append(positions, i)
	}
	return folded, positions
}
