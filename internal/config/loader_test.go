package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderDefaults(t *testing.T) {
	// Run from an empty dir so a developer's .mysteryforge.yaml does
	// not leak into the test.
	chdirTemp(t)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %q, want info", cfg.Log.Level)
	}
	if cfg.Pipeline.WorldRetryBudget != 2 {
		t.Errorf("pipeline.world_retry_budget = %d, want 2", cfg.Pipeline.WorldRetryBudget)
	}
	if cfg.Pipeline.LogicRetryBudget != 3 {
		t.Errorf("pipeline.logic_retry_budget = %d, want 3", cfg.Pipeline.LogicRetryBudget)
	}
	if cfg.Images.Concurrency != 3 {
		t.Errorf("images.concurrency = %d, want 3", cfg.Images.Concurrency)
	}
	if cfg.Images.BackoffMultiplier != 2.0 {
		t.Errorf("images.backoff_multiplier = %g, want 2.0", cfg.Images.BackoffMultiplier)
	}
	if cfg.Generators.Default != "gemini" {
		t.Errorf("generators.default = %q, want gemini", cfg.Generators.Default)
	}
	if !cfg.Generators.Gemini.Enabled {
		t.Error("generators.gemini should be enabled by default")
	}
	if cfg.Game.Players.Total != 6 {
		t.Errorf("game.players.total = %d, want 6", cfg.Game.Players.Total)
	}
}

func TestLoaderConfigFile(t *testing.T) {
	dir := chdirTemp(t)

	content := []byte(`
log:
  level: debug
pipeline:
  logic_retry_budget: 5
images:
  concurrency: 8
game:
  theme: arctic research station
`)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Pipeline.LogicRetryBudget != 5 {
		t.Errorf("pipeline.logic_retry_budget = %d, want 5", cfg.Pipeline.LogicRetryBudget)
	}
	if cfg.Images.Concurrency != 8 {
		t.Errorf("images.concurrency = %d, want 8", cfg.Images.Concurrency)
	}
	if cfg.Game.Theme != "arctic research station" {
		t.Errorf("game.theme = %q", cfg.Game.Theme)
	}
	// Untouched keys keep their defaults.
	if cfg.Pipeline.WorldRetryBudget != 2 {
		t.Errorf("pipeline.world_retry_budget = %d, want default 2", cfg.Pipeline.WorldRetryBudget)
	}
}

func TestLoaderEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MYSTERYFORGE_LOG_LEVEL", "error")
	t.Setenv("MYSTERYFORGE_IMAGES_CONCURRENCY", "5")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "error" {
		t.Errorf("log.level = %q, want error (from env)", cfg.Log.Level)
	}
	if cfg.Images.Concurrency != 5 {
		t.Errorf("images.concurrency = %d, want 5 (from env)", cfg.Images.Concurrency)
	}
}

func TestLoaderBadConfigFile(t *testing.T) {
	dir := chdirTemp(t)

	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("log: [unclosed"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := NewLoader().WithConfigFile(path).Load(); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}
