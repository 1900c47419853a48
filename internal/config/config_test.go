package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}

	if cfg.Pipeline.QualityThreshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %f", cfg.Pipeline.QualityThreshold)
	}

	if cfg.Rewrite.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Rewrite.Provider)
	}

	if !cfg.Distribution.Facebook.Enabled {
		t.Error("expected facebook enabled by default")
	}

	if cfg.Server.Port != 8600 {
		t.Errorf("expected port 8600, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
pipeline:
  max_stories_per_run: 3
rewrite:
  provider: ollama
  model: qwen2.5:7b
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Pipeline.MaxStoriesPerRun != 3 {
		t.Errorf("expected 3 stories per run, got %d", cfg.Pipeline.MaxStoriesPerRun)
	}
	if cfg.Rewrite.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Rewrite.Provider)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Sources.MaxRetries != 3 {
		t.Errorf("expected default max_retries 3, got %d", cfg.Sources.MaxRetries)
	}
	if cfg.Images.HourlyLimit != 50 {
		t.Errorf("expected default hourly limit 50, got %d", cfg.Images.HourlyLimit)
	}
	if cfg.Pipeline.Schedule != "0 9 * * 1,3,5" {
		t.Errorf("expected default schedule, got %q", cfg.Pipeline.Schedule)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
