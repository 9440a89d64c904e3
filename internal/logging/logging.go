// Package logging builds the process-wide zerolog.Logger. Every log event
// goes to stderr, never stdout: some transport bindings use stdout for
// the protocol itself, so any stray log line there would corrupt the
// stream. Grounded on zerolog usage across the pack (e.g.
// rickchristie-postgres-mcp's PostgresMcp, which threads a zerolog.Logger
// through its core engine).
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's level names as plain strings so callers (config
// files, env vars) never need to import zerolog directly.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// New builds a stderr-only logger at the given level. pretty selects a
// human-readable console writer (for local development) over structured
// JSON (the production default).
func New(level Level, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}

	logger = logger.Level(parseLevel(level))
	return logger
}

func parseLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
