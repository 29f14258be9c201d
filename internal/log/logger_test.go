package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firestige.xyz/bytescope/internal/config"
)

// withFile returns a config logging to path as well as stdout.
func withFile(path, level, format string) config.LogConfig {
	return config.LogConfig{
		Level:  level,
		Format: format,
		Outputs: config.LogOutputsConfig{
			File: config.FileOutputConfig{
				Enabled:  true,
				Path:     path,
				Rotation: config.RotationConfig{MaxSizeMB: 1, MaxBackups: 1},
			},
		},
	}
}

// restoreDefault puts the process logger back and releases any log file.
func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		Close()
		slog.SetDefault(prev)
	})
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestInitWritesToFile(t *testing.T) {
	restoreDefault(t)
	path := filepath.Join(t.TempDir(), "bytescope.log")

	if err := Init(withFile(path, "debug", "text")); err != nil {
		t.Fatalf("Init: %v", err)
	}
	slog.Debug("frame extracted", "seq", 7, "len", 35)
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := readLog(t, path)
	if !strings.Contains(out, "frame extracted") || !strings.Contains(out, "seq=7") {
		t.Errorf("log file = %q, want the debug record", out)
	}
}

func TestInitAsReloadSwitchesFileAndLevel(t *testing.T) {
	restoreDefault(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	if err := Init(withFile(first, "info", "text")); err != nil {
		t.Fatalf("Init first: %v", err)
	}
	slog.Info("before reload")

	// Reloading while the first file is open hands output to the second.
	if err := Init(withFile(second, "warn", "json")); err != nil {
		t.Fatalf("Init second: %v", err)
	}
	slog.Info("filtered by level")
	slog.Warn("after reload", "seq", 3)
	Close()

	a := readLog(t, first)
	if !strings.Contains(a, "before reload") || strings.Contains(a, "after reload") {
		t.Errorf("first file = %q", a)
	}

	b := readLog(t, second)
	if strings.Contains(b, "before reload") || strings.Contains(b, "filtered by level") {
		t.Errorf("second file = %q", b)
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(b)), &rec); err != nil {
		t.Fatalf("second file is not one json record: %v (%q)", err, b)
	}
	if rec["msg"] != "after reload" || rec["level"] != "WARN" {
		t.Errorf("record = %v", rec)
	}
}

func TestFailedInitKeepsCurrentLogger(t *testing.T) {
	restoreDefault(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "kept.log")

	if err := Init(withFile(path, "info", "text")); err != nil {
		t.Fatalf("Init: %v", err)
	}

	bad := []config.LogConfig{
		withFile(filepath.Join(dir, "other.log"), "info", "xml"),
		{Level: "trace", Format: "text"},
		{Level: "info", Format: "text", Outputs: config.LogOutputsConfig{
			File: config.FileOutputConfig{Enabled: true},
		}},
	}
	for _, cfg := range bad {
		if err := Init(cfg); err == nil {
			t.Errorf("Init(%+v) succeeded, want error", cfg)
		}
	}

	slog.Info("still here")
	Close()
	if out := readLog(t, path); !strings.Contains(out, "still here") {
		t.Errorf("log file = %q, want record written after failed reloads", out)
	}
}

func TestCloseWithoutFile(t *testing.T) {
	restoreDefault(t)
	if err := Init(config.LogConfig{Level: "info", Format: "text"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Close(); err != nil {
		t.Errorf("Close without file: %v", err)
	}
	if err := Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNewHandlerFormats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"msg":"hello"`},
		{"JSON", `"msg":"hello"`},
		{"text", "msg=hello"},
		{"", "msg=hello"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			h, err := newHandler(&buf, tt.format, slog.LevelInfo)
			if err != nil {
				t.Fatalf("newHandler(%q): %v", tt.format, err)
			}
			slog.New(h).Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}

	for _, format := range []string{"xml", "logfmt"} {
		if _, err := newHandler(&bytes.Buffer{}, format, slog.LevelInfo); err == nil {
			t.Errorf("newHandler(%q) succeeded, want error", format)
		}
	}
}
