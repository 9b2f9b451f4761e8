package config

import "github.com/aledesanfer/mysteryforge/internal/core"

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Game       core.GameConfig  `mapstructure:"game"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Generators GeneratorsConfig `mapstructure:"generators"`
	Images     ImagesConfig     `mapstructure:"images"`
	Output     OutputConfig     `mapstructure:"output"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// PipelineConfig configures pipeline execution.
type PipelineConfig struct {
	// StageTimeout bounds a single stage execution.
	StageTimeout string `mapstructure:"stage_timeout"`
	// WorldRetryBudget is how many times the world coherence gate may
	// send the run back to world generation.
	WorldRetryBudget int `mapstructure:"world_retry_budget"`
	// LogicRetryBudget is how many times the game logic gate may send
	// the run back to timeline generation.
	LogicRetryBudget int `mapstructure:"logic_retry_budget"`
}

// GeneratorsConfig configures available content generators.
type GeneratorsConfig struct {
	Default string          `mapstructure:"default"`
	Gemini  GeneratorConfig `mapstructure:"gemini"`
	Mock    GeneratorConfig `mapstructure:"mock"`
}

// GeneratorConfig configures a single generator backend.
type GeneratorConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Path        string  `mapstructure:"path"`
	Model       string  `mapstructure:"model"`
	ImageModel  string  `mapstructure:"image_model"`
	Temperature float64 `mapstructure:"temperature"`
}

// ImagesConfig configures the portrait batch runner.
type ImagesConfig struct {
	Concurrency       int     `mapstructure:"concurrency"`
	MaxAttempts       int     `mapstructure:"max_attempts"`
	BackoffBase       string  `mapstructure:"backoff_base"`
	BackoffMax        string  `mapstructure:"backoff_max"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	AttemptTimeout    string  `mapstructure:"attempt_timeout"`
}

// OutputConfig configures where game packages are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// ArchiveConfig configures the run archive database.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
