// Package logging builds the structured logger shared by both programs.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/seismicdata/drf-fanout/internal/config"
)

// New builds a slog.Logger at the given level. The logger writes to stdout
// when level is debug or info (or unrecognised) and to stderr when level is
// warn or error; every record goes to that one writer, whatever the
// record's own level.
func New(level config.LogLevel) *slog.Logger {
	var w io.Writer = os.Stdout
	var slogLevel slog.Level
	switch level {
	case config.LogLevelDebug:
		slogLevel = slog.LevelDebug
	case config.LogLevelInfo:
		slogLevel = slog.LevelInfo
	case config.LogLevelWarn:
		w = os.Stderr
		slogLevel = slog.LevelWarn
	case config.LogLevelError:
		w = os.Stderr
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(w, &tint.Options{Level: slogLevel}))
}
