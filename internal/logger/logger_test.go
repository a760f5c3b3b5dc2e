package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/samvad-hq/samvad-vision-predictor/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestLoggerWritesJSONWithLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := initWithWriter(&config.Config{AppName: "predictor", Env: "test", LogLevel: "info"}, &buf)
	defer func() { S = nil }()

	log.DebugObj("hidden", "k", "v")
	log.InfoObj("prediction completed", "prediction_meta", map[string]any{"top_tag": "dress"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if entry["msg"] != "prediction completed" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["app"] != "predictor" {
		t.Fatalf("missing app field: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts field: %v", entry)
	}
	meta, ok := entry["prediction_meta"].(map[string]any)
	if !ok || meta["top_tag"] != "dress" {
		t.Fatalf("unexpected prediction_meta %v", entry["prediction_meta"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHelpersAreNoopBeforeInit(t *testing.T) {
	S = nil
	DebugObj("nothing", "k", 1)
	ErrorObj("nothing", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close before Init: %v", err)
	}
}
