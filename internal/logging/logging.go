// Package logging configures the process-wide slog handler and hands out
// per-component loggers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

const (
	CompIndex  = "index"
	CompSearch = "search"
	CompStats  = "stats"
	CompEngine = "engine"
	CompWatch  = "watch"
	CompOpen   = "open"
	CompCLI    = "cli"
)

var level = new(slog.LevelVar)

var root atomic.Pointer[slog.Logger]

func init() {
	level.Set(slog.LevelWarn)
	root.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Setup points all component loggers at w. Loggers handed out earlier pick
// up the new level but keep their old writer.
func Setup(w io.Writer, lvl slog.Level, json bool) {
	level.Set(lvl)
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	root.Store(slog.New(h))
}

// ForComponent returns a logger tagged with the component name.
func ForComponent(name string) *slog.Logger {
	return root.Load().With(slog.String("component", name))
}
