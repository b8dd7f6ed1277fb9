package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{" info ", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"none", LevelNone},
		{"off", LevelNone},
		{"invalid", LevelInfo}, // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "repro.log")

	l, err := New(LevelInfo, logPath, "attempt")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	l.Info("model call %d", 1)
	l.Debug("should not appear")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "[INFO] [attempt] model call 1") {
		t.Errorf("missing info line, got: %s", text)
	}
	if strings.Contains(text, "should not appear") {
		t.Errorf("debug message written at INFO level")
	}
}

func TestWithPrefixCombines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(LevelDebug, &buf, "attempt")

	l.WithPrefix("gateway").Warn("retrying")

	if !strings.Contains(buf.String(), "[attempt:gateway] retrying") {
		t.Errorf("missing combined prefix, got: %s", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(LevelInfo, &buf, "")

	l.Debug("debug1")
	l.SetLevel(LevelDebug)
	l.Debug("debug2")

	if strings.Contains(buf.String(), "debug1") {
		t.Errorf("debug1 should not appear (level was INFO)")
	}
	if !strings.Contains(buf.String(), "debug2") {
		t.Errorf("debug2 should appear after SetLevel(LevelDebug)")
	}
}

func TestDisabledLogger(t *testing.T) {
	l, err := New(LevelNone, "", "test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Close()

	if l.Enabled(LevelError) {
		t.Errorf("disabled logger reports enabled")
	}
	l.Error("error")
}

func TestGlobalLoggerWithoutInit(t *testing.T) {
	if Global() == nil {
		t.Fatal("Global() returned nil")
	}
	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
}

func TestSlogHandlerForwardsAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(LevelInfo, &buf, "")

	s := slog.New(NewSlogHandler(l)).WithGroup("gateway")
	s.Info("call failed", "attempt", 2)
	s.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "[INFO] call failed gateway.attempt=2") {
		t.Errorf("unexpected slog output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record forwarded at INFO level")
	}
}
