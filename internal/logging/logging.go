// Package logging sets up the Hub's structured logger: colorized and
// human-readable on a TTY, JSON otherwise. It also provides the
// conn_id-scoped logger every accept loop uses to correlate the handful of
// log lines a single connection produces across register/probe/handoff.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level is the shared, adjustable log level for the process.
var Level = new(slog.LevelVar)

// Setup parses levelRaw (case-insensitive "debug"/"info"/"warn"/"error")
// and installs the process-wide slog default handler at that level: tint
// for colorized, human-readable output on a TTY, JSON otherwise. An empty
// or unparseable levelRaw falls back to info and the returned error
// reports why, so callers can log the fallback without aborting startup.
func Setup(levelRaw string) error {
	var parseErr error
	lvl := slog.LevelInfo
	if levelRaw != "" {
		if l, err := ParseLevel(levelRaw); err != nil {
			parseErr = fmt.Errorf("parse log level %q: %w", levelRaw, err)
		} else {
			lvl = l
		}
	}
	Level.Set(lvl)

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      Level,
			TimeFormat: time.TimeOnly,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: Level,
		})
	}
	slog.SetDefault(slog.New(handler))
	return parseErr
}

// SetLevel changes the global log level.
func SetLevel(l slog.Level) {
	Level.Set(l)
}

// GetLevel returns the current global log level.
func GetLevel() slog.Level {
	return Level.Level()
}

// ParseLevel converts a string like "debug", "info", "warn", "error" to the
// corresponding slog.Level. It is case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.ToUpper(s)))
	return l, err
}

// WithConnID returns a logger scoped to one accepted connection's
// correlation ID. The backend and frontend listeners use this instead of
// passing "conn_id", id to every slog call so a connection's register,
// probe, and handoff log lines share one attribute set.
func WithConnID(id string) *slog.Logger {
	return slog.Default().With("conn_id", id)
}
