package model

import "fmt"

// Source identifies which CLI produced a session log.
type Source string

const (
	SourceClaude Source = "claude"
	SourceCodex  Source = "codex"
)

// Sources lists every supported provider in display order.
var Sources = []Source{SourceClaude, SourceCodex}

// ParseSource maps a provider tag to a Source. There is no default provider:
// anything but "claude" or "codex" is rejected.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceClaude, SourceCodex:
		return Source(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

func (s Source) String() string {
	return string(s)
}
