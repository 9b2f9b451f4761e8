package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aledesanfer/mysteryforge/internal/config"
	"github.com/aledesanfer/mysteryforge/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string

	// Initialized at declaration so it is ready before any file's init()
	// runs; generate.go's init binds flags through it.
	loader = config.NewLoader()
)

var rootCmd = &cobra.Command{
	Use:   "mysteryforge",
	Short: "Generate complete murder mystery party games",
	Long: `mysteryforge generates a complete, internally consistent murder
mystery party game: the setting, the suspects, the crime, a shared
timeline, per-player packets and a host guide, plus portraits for
every character.

Generation runs as a validated pipeline; incoherent worlds and
unsolvable mysteries are regenerated automatically within configured
retry budgets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .mysteryforge.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")

	v := loader.Viper()
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// loadConfig loads and validates configuration from all sources.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}
