package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelInfo))

	log.Info("session state", "id", "abc", "status", "RUNNING")

	line := buf.String()
	if !strings.Contains(line, "[INF] session state id=abc status=RUNNING") {
		t.Errorf("unexpected line: %q", line)
	}

	if !strings.HasSuffix(line, "\n") {
		t.Error("line should end with newline")
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelWarn))

	log.Info("dropped")
	log.Debug("dropped")
	log.Warn("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Errorf("records below level were written: %q", buf.String())
	}

	if !strings.Contains(buf.String(), "[WRN] kept") {
		t.Errorf("warn record missing: %q", buf.String())
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelDebug)).With("session", "s1").WithGroup("poll")

	log.Debug("tick", "n", 3)

	if !strings.Contains(buf.String(), "[DBG] tick session=s1 poll.n=3") {
		t.Errorf("unexpected line: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseLevel(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}

		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
