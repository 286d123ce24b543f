package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zkrising/tachi-import-scripts/internal/config"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/services"
)

func TestNewFromConfigWritesJSONCopy(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.LogDir = t.TempDir()

	var console bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, &console, nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("converted scores", logging.Int("count", 3))
	if !strings.Contains(console.String(), "converted scores") {
		t.Fatalf("expected console copy, got %q", console.String())
	}

	data, err := os.ReadFile(filepath.Join(cfg.Logging.LogDir, "tis.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", data, err)
	}
	if line["msg"] != "converted scores" || line["level"] != "info" {
		t.Fatalf("unexpected log line %v", line)
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key in %v", line)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "lr2")
	logger.Warn("chart not found", logging.String("title", "Freedom Dive"), logging.Int("bp", 3))

	out := buf.String()
	for _, want := range []string{"WARN", "lr2: chart not found", `title="Freedom Dive"`, "bp=3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should be rendered as a prefix, got %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithSource(context.Background(), "usc")
	ctx = services.WithPlaytype(ctx, "Keyboard")
	ctx = services.WithRequestID(ctx, "req-1")

	logging.WithContext(ctx, logger).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line[logging.FieldSource] != "usc" || line[logging.FieldPlaytype] != "Keyboard" || line[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("context fields missing: %v", line)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "notes mismatch", "score_rejected", logging.String(logging.FieldErrorHint, "rescan songs"))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line[logging.FieldEventType] != "score_rejected" {
		t.Fatalf("missing event type: %v", line)
	}
	if line[logging.FieldErrorHint] != "rescan songs" {
		t.Fatalf("explicit hint should win: %v", line)
	}
	if _, ok := line[logging.FieldImpact]; !ok {
		t.Fatalf("missing impact: %v", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), logging.ParseLevel("error")) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.ErrorWithContext(nil, "ignored", "none")
}
