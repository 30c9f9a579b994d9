package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"
)

var _ asynq.Logger = (*AsynqLogger)(nil)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"WARN", log.WarnLevel},
		{" error ", log.ErrorLevel},
		{"", log.InfoLevel},
		{"chatty", log.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	l.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("expected warn entry with fields, got %q", out)
	}
}

func TestAsynqLogger(t *testing.T) {
	var buf bytes.Buffer
	a := NewAsynqLogger(New(&buf, "debug"))

	a.Info("worker ", "started")

	out := buf.String()
	if !strings.Contains(out, "worker started") {
		t.Errorf("expected joined message, got %q", out)
	}
	if !strings.Contains(out, "component=asynq") {
		t.Errorf("expected component field, got %q", out)
	}
}
