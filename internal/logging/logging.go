// Package logging builds zerolog loggers from a level name.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps debug|info|warn|error to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a JSON logger with the specified level and output.
func New(level string, output io.Writer) zerolog.Logger {
	return zerolog.New(output).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// NewConsole creates a human-readable logger for command-line tools.
func NewConsole(level string, output io.Writer) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}
