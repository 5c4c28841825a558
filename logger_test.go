// logger_test.go - Process logger and level parsing

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"loud":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for name, want := range cases {
		if got := ParseLogLevel(name); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestConsoleLogger_JSONWhenRedirected(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, -1, slog.LevelInfo)
	l.Debug("hidden")
	l.Info("gpu thread acquired render context", "frames", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not a single JSON record: %q", buf.String())
	}
	if rec["msg"] != "gpu thread acquired render context" || rec["frames"] != float64(3) {
		t.Fatalf("record %v", rec)
	}
}

func TestSetLogger_NilRestoresSilentDefault(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Logger().Info("visible")
	SetLogger(nil)
	Logger().Info("dropped")
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("default logger is not silent")
	}
	if !bytes.Contains(buf.Bytes(), []byte("visible")) || bytes.Contains(buf.Bytes(), []byte("dropped")) {
		t.Fatalf("log output %q", buf.String())
	}
}
