package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerDefault(t *testing.T) {
	l := NewLogger(nil)
	if l == nil {
		t.Fatal("NewLogger(nil) returned nil")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	l.Debug("should not appear")
	l.Info("also should not appear")
	l.Warn("this one should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("level filtering failed, got: %q", out)
	}
	if !strings.Contains(out, "this one should appear") {
		t.Errorf("expected WARN message in output, got: %q", out)
	}
}

func TestLogPrefixes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	out := buf.String()
	for _, prefix := range []string{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]"} {
		if !strings.Contains(out, prefix) {
			t.Errorf("expected %s in output, got: %q", prefix, out)
		}
	}
}

func TestFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	l.Debug("dispatching", "opcode", "ALARM", "task", 3)

	out := buf.String()
	if !strings.Contains(out, "opcode=ALARM") || !strings.Contains(out, "task=3") {
		t.Errorf("expected key=value pairs in output, got: %q", out)
	}
}

func TestDefaultLoggerSingleton(t *testing.T) {
	first := Default()
	second := Default()
	if first != second {
		t.Error("Default() should return the same instance across calls")
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	custom := NewLogger(&Config{Level: LevelDebug, Output: &buf})
	SetDefault(custom)
	defer SetDefault(NewLogger(nil))

	Debug("via package-level helper")
	if !strings.Contains(buf.String(), "via package-level helper") {
		t.Error("SetDefault did not redirect package-level logging helpers")
	}
}
