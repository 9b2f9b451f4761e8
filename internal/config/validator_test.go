package config

import (
	"strings"
	"testing"
)

func baseConfig(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	cfg := baseConfig(t)
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateLogLevel(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Log.Level = "verbose"

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected error for bad log level")
	}
	if !strings.Contains(err.Error(), "log.level") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestValidatePipelineBudgets(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Pipeline.WorldRetryBudget = -1
	cfg.Pipeline.LogicRetryBudget = 99

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected errors for out of range budgets")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(verrs), verrs)
	}
}

func TestValidatePipelineTimeout(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Pipeline.StageTimeout = "five minutes"

	if err := ValidateConfig(cfg); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidateGeneratorDefault(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Generators.Default = "oracle"
	if err := ValidateConfig(cfg); err == nil {
		t.Error("expected error for unknown default generator")
	}

	cfg = baseConfig(t)
	cfg.Generators.Default = "mock"
	cfg.Generators.Mock.Enabled = false
	if err := ValidateConfig(cfg); err == nil {
		t.Error("expected error when default generator is disabled")
	}
}

func TestValidateGeneratorPath(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Generators.Gemini.Path = ""
	if err := ValidateConfig(cfg); err == nil {
		t.Error("expected error for enabled generator with no path")
	}

	// Disabled generators are not validated.
	cfg = baseConfig(t)
	cfg.Generators.Default = "mock"
	cfg.Generators.Mock.Enabled = true
	cfg.Generators.Gemini.Enabled = false
	cfg.Generators.Gemini.Path = ""
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("disabled generator should not be validated, got: %v", err)
	}
}

func TestValidateImages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Images.Concurrency = 0 }},
		{"excessive concurrency", func(c *Config) { c.Images.Concurrency = 64 }},
		{"zero attempts", func(c *Config) { c.Images.MaxAttempts = 0 }},
		{"bad backoff base", func(c *Config) { c.Images.BackoffBase = "soon" }},
		{"max below base", func(c *Config) {
			c.Images.BackoffBase = "10s"
			c.Images.BackoffMax = "1s"
		}},
		{"bad attempt timeout", func(c *Config) { c.Images.AttemptTimeout = "" }},
		{"shrinking multiplier", func(c *Config) { c.Images.BackoffMultiplier = 0.5 }},
		{"excessive multiplier", func(c *Config) { c.Images.BackoffMultiplier = 50 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(t)
			tt.mutate(cfg)
			if err := ValidateConfig(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateGamePlayerSplit(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Game.Players.Male = 5 // total stays 6, female 3

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected error for mismatched player split")
	}
	if !strings.Contains(err.Error(), "game.players") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestValidateArchive(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Archive.Path = ""
	if err := ValidateConfig(cfg); err == nil {
		t.Error("expected error for enabled archive with no path")
	}

	cfg = baseConfig(t)
	cfg.Archive.Enabled = false
	cfg.Archive.Path = ""
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("disabled archive should not require a path, got: %v", err)
	}
}
