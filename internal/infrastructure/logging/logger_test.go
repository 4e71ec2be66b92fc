package logging

import (
	"log/slog"
	"testing"

	"github.com/saltline/steward-core/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewReturnsUsableLogger(t *testing.T) {
	log := New(config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, "test")
	if log == nil || log.Logger == nil {
		t.Fatal("New() returned nil logger")
	}
	// Must not panic.
	log.Debug("debug message", "key", "value")
	log.Info("info message")
}

func TestWithAddsAttributes(t *testing.T) {
	log := Default()
	child := log.With("component", "test")
	if child == nil || child.Logger == log.Logger {
		t.Error("With() should return a distinct logger")
	}
}
