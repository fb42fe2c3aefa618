package plog

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLogLevels(t *testing.T) {
	var logBuf bytes.Buffer
	SetOutput(&logBuf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})

	t.Run("Logs all levels when level is Debug", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(LevelDebug)

		Debug("debug message", "key", "val1")
		Info("info message", "key", "val2")
		Warn("warn message")

		output := logBuf.String()

		if !strings.Contains(output, "level=DEBUG msg=\"debug message\" key=val1") {
			t.Errorf("expected debug message to be logged, got: %s", output)
		}
		if !strings.Contains(output, "level=INFO msg=\"info message\" key=val2") {
			t.Errorf("expected info message to be logged, got: %s", output)
		}
		if !strings.Contains(output, "level=WARN msg=\"warn message\"") {
			t.Errorf("expected warn message to be logged, got: %s", output)
		}
	})

	t.Run("Suppresses lower levels when level is Warn", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(LevelWarn)

		Debug("debug message")
		Info("info message")
		Error("error message")

		output := logBuf.String()

		if strings.Contains(output, "level=DEBUG") || strings.Contains(output, "level=INFO") {
			t.Errorf("expected no debug or info output at warn level, got: %s", output)
		}
		if !strings.Contains(output, "level=ERROR msg=\"error message\"") {
			t.Errorf("expected error message to be logged, got: %s", output)
		}
	})

	t.Run("Notice renders with its own name", func(t *testing.T) {
		logBuf.Reset()
		SetLevel(LevelNotice)

		Debug("debug message")
		Notice("notice message", "path", "a/b")

		output := logBuf.String()

		if strings.Contains(output, "level=DEBUG") {
			t.Errorf("expected debug to be suppressed at notice level, got: %s", output)
		}
		if !strings.Contains(output, "level=NOTICE msg=\"notice message\" path=a/b") {
			t.Errorf("expected notice message to be logged, got: %s", output)
		}
	})
}

func TestLevelFromString(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"notice", "NOTICE"},
		{"info", "INFO"},
		{"WARN", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"garbage", "INFO"},
		{"", "INFO"},
	}

	for _, tc := range testCases {
		got := LevelFromString(tc.in)
		name := got.String()
		if override, ok := levelNames[got]; ok {
			name = override
		}
		if name != tc.want {
			t.Errorf("LevelFromString(%q) = %s, want %s", tc.in, name, tc.want)
		}
	}
}
