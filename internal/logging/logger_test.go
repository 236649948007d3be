package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	NewComponentLogger(logger, "masker").Info("frame masked", Int(FieldFrame, 42))

	line := buf.String()
	if !strings.Contains(line, " INFO masker: frame masked") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "frame=42") {
		t.Fatalf("missing attribute in line: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be a prefix, not an attribute: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Warn("remux fallback", String("reason", "ffmpeg not found"), Error(errors.New("exit status 1")))

	line := buf.String()
	if !strings.Contains(line, `reason="ffmpeg not found"`) {
		t.Fatalf("expected quoted reason, got %q", line)
	}
	if !strings.Contains(line, `error="exit status 1"`) {
		t.Fatalf("expected quoted error, got %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("emitted")

	if strings.Contains(buf.String(), "suppressed") {
		t.Fatalf("info record should be filtered at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "emitted") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("processing started", String(FieldRunID, "abc"))

	line := buf.String()
	if !strings.Contains(line, `"level":"info"`) {
		t.Fatalf("expected lowercase level key: %q", line)
	}
	if !strings.Contains(line, `"run_id":"abc"`) {
		t.Fatalf("expected run_id attribute: %q", line)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
