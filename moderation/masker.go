// Package moderation masks muted words in rendered output. Masking is a
// display concern only; stored message content is never mutated.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Masker replaces occurrences of muted words with a mask character. The
// match is case-insensitive over an Aho-Corasick automaton, so one pass
// covers the whole muted list regardless of its size.
type Masker struct {
	matcher  *goahocorasick.Machine
	maskRune rune
}

// NewMasker builds the automaton from the muted word list. An empty list
// yields a pass-through masker.
func NewMasker(mutedWords []string, maskRune rune) (Masker, error) {
	var patterns [][]rune
	for _, word := range mutedWords {
		lowered := toLowerRunes([]rune(word))
		if len(lowered) == 0 {
			continue
		}
		patterns = append(patterns, lowered)
	}
	if len(patterns) == 0 {
		return Masker{maskRune: maskRune}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Masker{}, err
	}
	return Masker{matcher: m, maskRune: maskRune}, nil
}

// Mask returns the input with every muted word replaced by the mask rune,
// one rune per original rune so alignment is preserved.
func (m Masker) Mask(original string) string {
	if m.matcher == nil {
		return original
	}

	runes := []rune(original)
	lowered := toLowerRunes(runes)
	spans := m.matcher.MultiPatternSearch(lowered, false)
	if len(spans) == 0 {
		return original
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(runes) {
			continue
		}
		for i := start; i < end; i++ {
			runes[i] = m.maskRune
		}
	}
	return string(runes)
}

func toLowerRunes(in []rune) []rune {
	out := make([]rune, len(in))
	for i, r := range in {
		out[i] = unicode.ToLower(r)
	}
	return out
}
