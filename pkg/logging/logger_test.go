package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fieldnav/pkg/config"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	cleanup, err := Init(&config.LogConfig{Path: path, Level: "DEBUG"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("hello from test", "key", "value")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing entry, got: %s", data)
	}
}

func TestInitRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	if err := os.WriteFile(path, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cleanup, err := Init(&config.LogConfig{Path: path, Level: "INFO"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	cleanup()

	old, err := os.ReadFile(path + ".old")
	if err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
	if !strings.Contains(string(old), "previous run") {
		t.Errorf("rotated file content = %s", old)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "nonsense", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
