package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "MYSTERYFORGE",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "MYSTERYFORGE",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (MYSTERYFORGE_*)
// 3. Project config (.mysteryforge.yaml in current directory)
// 4. User config (~/.config/mysteryforge/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".mysteryforge")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "mysteryforge"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	// Game defaults
	l.v.SetDefault("game.language", "en")
	l.v.SetDefault("game.country", "US")
	l.v.SetDefault("game.epoch", "1920s")
	l.v.SetDefault("game.theme", "grand estate gala")
	l.v.SetDefault("game.players.total", 6)
	l.v.SetDefault("game.players.male", 3)
	l.v.SetDefault("game.players.female", 3)
	l.v.SetDefault("game.host_gender", "female")
	l.v.SetDefault("game.duration_minutes", 120)
	l.v.SetDefault("game.difficulty", "medium")
	l.v.SetDefault("game.generate_images", true)
	l.v.SetDefault("game.dry_run", false)

	// Pipeline defaults
	l.v.SetDefault("pipeline.stage_timeout", "5m")
	l.v.SetDefault("pipeline.world_retry_budget", 2)
	l.v.SetDefault("pipeline.logic_retry_budget", 3)

	// Generator defaults
	l.v.SetDefault("generators.default", "gemini")
	l.v.SetDefault("generators.gemini.enabled", true)
	l.v.SetDefault("generators.gemini.path", "gemini")
	l.v.SetDefault("generators.gemini.model", "gemini-2.5-flash")
	l.v.SetDefault("generators.gemini.image_model", "imagen-3.0-generate-002")
	l.v.SetDefault("generators.gemini.temperature", 0.7)
	l.v.SetDefault("generators.mock.enabled", false)

	// Image batch defaults
	l.v.SetDefault("images.concurrency", 3)
	l.v.SetDefault("images.max_attempts", 3)
	l.v.SetDefault("images.backoff_base", "2s")
	l.v.SetDefault("images.backoff_max", "30s")
	l.v.SetDefault("images.backoff_multiplier", 2.0)
	l.v.SetDefault("images.attempt_timeout", "2m")

	// Output defaults
	l.v.SetDefault("output.dir", "games")

	// Archive defaults
	l.v.SetDefault("archive.enabled", true)
	l.v.SetDefault("archive.path", ".mysteryforge/archive.db")
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}
