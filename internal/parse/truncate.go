package parse

import (
	"strings"
	"unicode/utf8"
)

// Size ceilings for codex payloads, in runes.
const (
	MaxTextRunes   = 20_000
	MaxOutputRunes = 30_000
	MaxArgsRunes   = 10_000

	// MaxPromptRunes bounds first-prompt previews, marker included.
	MaxPromptRunes = 100
)

// Ellipsis is appended to anything cut short.
const Ellipsis = "..."

// Truncate keeps the first max runes of s and appends Ellipsis when anything
// was dropped. The same input always produces the same output.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// Prompt turns a first user message into a single-line preview of at most
// MaxPromptRunes runes.
func Prompt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= MaxPromptRunes {
		return s
	}
	return Truncate(s, MaxPromptRunes-len(Ellipsis))
}
