package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/pkg/pulse"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, DefaultLogFormat)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
	if cfg.Inspector.Addr != DefaultInspectorAddr {
		t.Errorf("Inspector.Addr = %q, want %q", cfg.Inspector.Addr, DefaultInspectorAddr)
	}
	if cfg.OverlapPolicy() != pulse.OverlapIndependent {
		t.Errorf("OverlapPolicy() = %v, want independent", cfg.OverlapPolicy())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pulse.json", `{
  "log": {"level": "DEBUG", "format": "json"},
  "metrics": {"enabled": false},
  "effects": {"overlap": "queue", "queueLimit": 4}
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want default", cfg.Metrics.Namespace)
	}
	if cfg.OverlapPolicy() != pulse.OverlapQueue {
		t.Errorf("OverlapPolicy() = %v, want queue", cfg.OverlapPolicy())
	}
	if len(cfg.EffectOptions()) != 2 {
		t.Errorf("expected 2 effect options, got %d", len(cfg.EffectOptions()))
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pulse.yaml", `
log:
  level: warn
inspector:
  addr: ":9000"
effects:
  overlap: latest
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want default", cfg.Log.Format)
	}
	if cfg.Inspector.Addr != ":9000" {
		t.Errorf("Inspector.Addr = %q, want :9000", cfg.Inspector.Addr)
	}
	if cfg.OverlapPolicy() != pulse.OverlapLatest {
		t.Errorf("OverlapPolicy() = %v, want latest", cfg.OverlapPolicy())
	}
}

func TestLoadFindsFile(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	var pe *errors.PulseError
	if !stderrors.As(err, &pe) || pe.Code != "P101" {
		t.Fatalf("expected P101 for empty dir, got %v", err)
	}

	writeFile(t, dir, "pulse.yml", "log:\n  format: json\n")
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestFindPrefersJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pulse.yaml", "")
	want := writeFile(t, dir, "pulse.json", "{}")

	got, err := Find(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Find() = %q, want %q", got, want)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		code    string
	}{
		{"invalid json", "pulse.json", "{not json", "P102"},
		{"invalid yaml", "pulse.yaml", "log: [", "P102"},
		{"unsupported ext", "pulse.toml", "", "P103"},
		{"bad level", "level.json", `{"log":{"level":"loud"}}`, "P104"},
		{"bad format", "format.json", `{"log":{"format":"xml"}}`, "P104"},
		{"bad overlap", "overlap.json", `{"effects":{"overlap":"sometimes"}}`, "P105"},
		{"bad queue limit", "queue.json", `{"effects":{"queueLimit":-1}}`, "P106"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := LoadFile(path)
			var pe *errors.PulseError
			if !stderrors.As(err, &pe) {
				t.Fatalf("expected PulseError, got %v", err)
			}
			if pe.Code != tt.code {
				t.Errorf("Code = %q, want %q", pe.Code, tt.code)
			}
		})
	}

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	var pe *errors.PulseError
	if !stderrors.As(err, &pe) || pe.Code != "P101" {
		t.Errorf("expected P101 for missing file, got %v", err)
	}
}
