package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"error":   slog.LevelError,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"verbose": slog.LevelDebug,
	}
	for in, want := range tests {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHandlerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, Options{Level: "warn"}))

	logger.Info("hidden")
	logger.Warn("shown", "date", "2025-01-20")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "date=2025-01-20") {
		t.Fatalf("warn line missing: %q", out)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug must be disabled at warn level")
	}
}

func TestHandlerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditor.log")
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, Options{Level: "info", File: path, MaxSizeMB: 1}))

	logger.Info("puzzle served", "date", "2025-01-20")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "puzzle served") || !strings.Contains(buf.String(), "puzzle served") {
		t.Fatalf("expected line in both sinks, file=%q console=%q", data, buf.String())
	}
}
