package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/OmDoke/Book-Inventory-Management-System/internal/config"
)

func TestNewServerLogger_JSONFormat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := newServerLogger(&out, slog.LevelInfo, config.LogFormatJSON)
	logger.Info("json log test", slog.String("key", "value"))

	line := out.String()
	if !strings.Contains(line, "\"msg\":\"json log test\"") {
		t.Fatalf("expected json message field, got: %s", line)
	}
	if !strings.Contains(line, "\"key\":\"value\"") {
		t.Fatalf("expected json key field, got: %s", line)
	}
}

func TestNewServerLogger_TextFormat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := newServerLogger(&out, slog.LevelInfo, config.LogFormatText)
	logger.Info("text log test", slog.String("key", "value"), slog.Any("error", errors.New("boom")))

	line := out.String()
	if !strings.Contains(line, "text log test") {
		t.Fatalf("expected text message, got: %s", line)
	}
	if !strings.Contains(line, "key=") {
		t.Fatalf("expected text key field, got: %s", line)
	}
	if !strings.Contains(line, "boom") {
		t.Fatalf("expected error value, got: %s", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no color escapes for non-terminal output, got: %q", line)
	}
}

func TestNewServerLogger_LevelFilters(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := newServerLogger(&out, slog.LevelWarn, config.LogFormatJSON)
	logger.Info("dropped")
	logger.Warn("kept")

	line := out.String()
	if strings.Contains(line, "dropped") {
		t.Fatalf("expected info record to be filtered, got: %s", line)
	}
	if !strings.Contains(line, "kept") {
		t.Fatalf("expected warn record, got: %s", line)
	}
}
