package internal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_DevelopmentUsesTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "development", "info")

	logger.Info("reply dispatched", "quote_id", "q-1")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("expected text output in development, got %q", out)
	}
	if !strings.Contains(out, "service=devismail") {
		t.Errorf("expected service attribute, got %q", out)
	}
}

func TestNewLogger_ProductionUsesJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "info")

	logger.Info("reply dispatched", "quote_id", "q-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output in production: %v", err)
	}
	if entry["service"] != "devismail" {
		t.Errorf("expected service attribute, got %v", entry["service"])
	}
	if entry["quote_id"] != "q-1" {
		t.Errorf("expected quote_id attribute, got %v", entry["quote_id"])
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "warn")

	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("expected info logs to be filtered at warn level")
	}
	if !strings.Contains(out, "emitted") {
		t.Error("expected warn logs to pass")
	}
}

func TestParseLogLevel_UnknownDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "verbose")

	logger.Debug("suppressed")
	logger.Info("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("expected debug logs to be filtered at the default level")
	}
	if !strings.Contains(out, "emitted") {
		t.Error("expected info logs to pass")
	}
}
