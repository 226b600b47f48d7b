package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "json", "info")

	logger.Info("hello", Agent("triage"), Status(StatusSuccess))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry[KeyAgent] != "triage" {
		t.Errorf("agent attribute = %v, want triage", entry[KeyAgent])
	}
	if entry[KeyStatus] != StatusSuccess {
		t.Errorf("status attribute = %v, want %s", entry[KeyStatus], StatusSuccess)
	}
}

func TestSetupLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "text", "warn")

	logger.Info("should be filtered")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be filtered") {
		t.Error("info message logged despite warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn message missing")
	}
}

func TestErrNilSafe(t *testing.T) {
	attr := Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) should produce an omittable group, got key %q", attr.Key)
	}

	attr = Err(errors.New("boom"))
	if attr.Key != KeyError || attr.Value.String() != "boom" {
		t.Errorf("Err() = %v=%v, want %s=boom", attr.Key, attr.Value, KeyError)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{"simple address", "alice@example.com"},
		{"mixed case normalized", "Alice@Example.COM"},
	}

	want := AnonymizeEmail("alice@example.com")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			if got != want {
				t.Errorf("AnonymizeEmail(%q) = %q, want %q", tt.email, got, want)
			}
			if !strings.HasPrefix(got, "user:") {
				t.Errorf("anonymized email %q missing user: prefix", got)
			}
			if strings.Contains(got, "alice") {
				t.Errorf("anonymized email %q leaks the address", got)
			}
		})
	}

	if AnonymizeEmail("") != "" {
		t.Error("empty email should stay empty")
	}
}

func TestWithAgent(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	WithAgent(base, "cleanup").Info("run")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry[KeyAgent] != "cleanup" {
		t.Errorf("agent attribute = %v, want cleanup", entry[KeyAgent])
	}
}
