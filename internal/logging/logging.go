package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level and an optional rotating file sink.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New creates a text slog.Logger writing to stdout and, when File is set,
// to a size-rotated log file as well.
func New(opts Options) *slog.Logger {
	return slog.New(NewHandler(os.Stdout, opts))
}

// NewHandler builds the handler behind New with an explicit console writer.
func NewHandler(console io.Writer, opts Options) slog.Handler {
	w := console
	if opts.File != "" {
		w = io.MultiWriter(console, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: levelFromString(opts.Level),
	})
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
