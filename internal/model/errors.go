package model

import "errors"

var (
	// ErrNotFound is returned when a session file or project directory is missing.
	ErrNotFound = errors.New("not found")
	// ErrMalformed is returned when a whole file cannot be read or decoded.
	ErrMalformed = errors.New("malformed")
	// ErrUnknownSource is returned for provider tags other than claude/codex.
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidArgument is returned for out-of-domain query parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)
