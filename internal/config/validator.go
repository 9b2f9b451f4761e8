package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateGame(cfg)
	v.validatePipeline(&cfg.Pipeline)
	v.validateGenerators(&cfg.Generators)
	v.validateImages(&cfg.Images)
	v.validateOutput(&cfg.Output)
	v.validateArchive(&cfg.Archive)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateGame(cfg *Config) {
	if err := cfg.Game.Validate(); err != nil {
		v.addError("game", nil, err.Error())
	}
	g := &cfg.Game
	if g.Players.Male+g.Players.Female != g.Players.Total {
		v.addError("game.players", g.Players,
			"male + female must equal total")
	}
}

func (v *Validator) validatePipeline(cfg *PipelineConfig) {
	if _, err := time.ParseDuration(cfg.StageTimeout); err != nil {
		v.addError("pipeline.stage_timeout", cfg.StageTimeout, "invalid duration format")
	}

	if cfg.WorldRetryBudget < 0 || cfg.WorldRetryBudget > 10 {
		v.addError("pipeline.world_retry_budget", cfg.WorldRetryBudget, "must be between 0 and 10")
	}
	if cfg.LogicRetryBudget < 0 || cfg.LogicRetryBudget > 10 {
		v.addError("pipeline.logic_retry_budget", cfg.LogicRetryBudget, "must be between 0 and 10")
	}
}

func (v *Validator) validateGenerators(cfg *GeneratorsConfig) {
	validDefaults := map[string]bool{"gemini": true, "mock": true}
	if !validDefaults[cfg.Default] {
		v.addError("generators.default", cfg.Default, "unknown generator")
	}

	defaultEnabled := map[string]bool{
		"gemini": cfg.Gemini.Enabled,
		"mock":   cfg.Mock.Enabled,
	}
	if validDefaults[cfg.Default] && !defaultEnabled[cfg.Default] {
		v.addError("generators.default", cfg.Default, "default generator must be enabled")
	}

	v.validateGenerator("generators.gemini", &cfg.Gemini)
}

func (v *Validator) validateGenerator(prefix string, cfg *GeneratorConfig) {
	if !cfg.Enabled {
		return
	}

	if cfg.Path == "" {
		v.addError(prefix+".path", cfg.Path, "path required when enabled")
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		v.addError(prefix+".temperature", cfg.Temperature, "must be between 0 and 2")
	}
}

func (v *Validator) validateImages(cfg *ImagesConfig) {
	if cfg.Concurrency < 1 || cfg.Concurrency > 16 {
		v.addError("images.concurrency", cfg.Concurrency, "must be between 1 and 16")
	}
	if cfg.MaxAttempts < 1 || cfg.MaxAttempts > 10 {
		v.addError("images.max_attempts", cfg.MaxAttempts, "must be between 1 and 10")
	}

	base, baseErr := time.ParseDuration(cfg.BackoffBase)
	if baseErr != nil {
		v.addError("images.backoff_base", cfg.BackoffBase, "invalid duration format")
	}
	max, maxErr := time.ParseDuration(cfg.BackoffMax)
	if maxErr != nil {
		v.addError("images.backoff_max", cfg.BackoffMax, "invalid duration format")
	}
	if baseErr == nil && maxErr == nil && max < base {
		v.addError("images.backoff_max", cfg.BackoffMax, "must be >= images.backoff_base")
	}
	if cfg.BackoffMultiplier < 1 || cfg.BackoffMultiplier > 10 {
		v.addError("images.backoff_multiplier", cfg.BackoffMultiplier, "must be between 1 and 10")
	}

	if _, err := time.ParseDuration(cfg.AttemptTimeout); err != nil {
		v.addError("images.attempt_timeout", cfg.AttemptTimeout, "invalid duration format")
	}
}

func (v *Validator) validateOutput(cfg *OutputConfig) {
	if cfg.Dir == "" {
		v.addError("output.dir", cfg.Dir, "directory required")
	}
}

func (v *Validator) validateArchive(cfg *ArchiveConfig) {
	if cfg.Enabled && cfg.Path == "" {
		v.addError("archive.path", cfg.Path, "path required when enabled")
	}
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
