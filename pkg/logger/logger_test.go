package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"ytbatch/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tc := range tests {
		got, err := logger.ParseLevel(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, wantErr %v", tc.in, got, err, tc.want, tc.wantErr)
		}
	}
}

//nolint:paralleltest // New replaces the default slog logger
func TestNew(t *testing.T) {
	if _, err := logger.New(nil); err == nil {
		t.Fatal("New(nil) succeeded unexpectedly")
	}

	var buf bytes.Buffer

	log, err := logger.New(&logger.Options{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	log.Info("dropped")
	log.Warn("kept", slog.String("id", "abc123"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a single json record, got %q: %v", buf.String(), err)
	}

	if rec["msg"] != "kept" || rec["id"] != "abc123" {
		t.Errorf("record = %v", rec)
	}

	buf.Reset()

	log, err = logger.New(&logger.Options{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New(text) failed: %v", err)
	}

	log.Info("downloading", slog.String("id", "abc123"))

	if out := buf.String(); !strings.Contains(out, "msg=downloading") || !strings.Contains(out, "id=abc123") {
		t.Errorf("text output = %q", out)
	}

	if _, err := logger.New(&logger.Options{Format: "xml", Output: &buf}); err == nil {
		t.Error("unknown format accepted without error")
	}
}
