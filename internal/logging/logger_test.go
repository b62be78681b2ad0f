package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerWritesJSONEntry(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New().SetOutput(buf).SetLevel(LevelDebug)

	logger.WithField("request_id", "abc").Info("Request completed", map[string]interface{}{
		"status": "200",
	})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid json: %v", err)
	}
	if entry.Level != "INFO" || entry.Message != "Request completed" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Timestamp == "" {
		t.Fatal("expected a timestamp")
	}
	// WithField values and per-call fields merge into one map.
	if entry.Fields["request_id"] != "abc" || entry.Fields["status"] != "200" {
		t.Fatalf("unexpected fields: %+v", entry.Fields)
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New().SetOutput(buf).SetLevel(LevelWarn)

	logger.Debug("dropped")
	logger.Info("dropped too")
	if buf.Len() != 0 {
		t.Fatalf("expected sub-warn entries to be dropped, got %q", buf.String())
	}

	logger.Error("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatal("expected error entry to be written")
	}
}

func TestLevelString(t *testing.T) {
	levels := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		Level(99):  "UNKNOWN",
	}
	for level, want := range levels {
		if got := level.String(); got != want {
			t.Fatalf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestDefaultLoggerHelpers(t *testing.T) {
	orig := Default
	t.Cleanup(func() { Default = orig })

	buf := &bytes.Buffer{}
	Default = New().SetOutput(buf).SetLevel(LevelDebug)

	Debug("session created")
	Info("request accepted")
	Warn("request rejected")
	Error("request failed")

	out := buf.String()
	for _, want := range []string{"session created", "request accepted", "request rejected", "request failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in default logger output, got %s", want, out)
		}
	}
}
