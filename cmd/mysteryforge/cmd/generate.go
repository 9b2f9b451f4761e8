package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aledesanfer/mysteryforge/internal/adapters/archive"
	"github.com/aledesanfer/mysteryforge/internal/adapters/genai"
	"github.com/aledesanfer/mysteryforge/internal/config"
	"github.com/aledesanfer/mysteryforge/internal/core"
	"github.com/aledesanfer/mysteryforge/internal/logging"
	"github.com/aledesanfer/mysteryforge/internal/packaging"
	"github.com/aledesanfer/mysteryforge/internal/workflow"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new murder mystery game",
	Long: `Generate runs the full pipeline: world, suspects, crime, timeline,
killer, clues and host guide, then packages everything under the
output directory. Aborted runs report where and why they stopped.`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.Int("players", 0, "number of players (4-10)")
	f.String("theme", "", "party theme")
	f.String("epoch", "", "historical epoch of the setting")
	f.String("language", "", "language for all generated content")
	f.String("difficulty", "", "mystery difficulty (easy, medium, hard)")
	f.Int("duration", 0, "target party duration in minutes (60-180)")
	f.Bool("no-images", false, "skip portrait generation")
	f.Bool("mock", false, "use the offline mock generator")
	f.String("output", "", "output directory for game packages")

	v := loader.Viper()
	_ = v.BindPFlag("game.players.total", f.Lookup("players"))
	_ = v.BindPFlag("game.theme", f.Lookup("theme"))
	_ = v.BindPFlag("game.epoch", f.Lookup("epoch"))
	_ = v.BindPFlag("game.language", f.Lookup("language"))
	_ = v.BindPFlag("game.difficulty", f.Lookup("difficulty"))
	_ = v.BindPFlag("game.duration_minutes", f.Lookup("duration"))
	_ = v.BindPFlag("output.dir", f.Lookup("output"))

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	// The players flag sets only the total; rebalance the split before
	// validation so --players 8 does not trip the male+female check.
	if cmd.Flags().Changed("players") {
		total, _ := cmd.Flags().GetInt("players")
		loader.Set("game.players.male", total/2)
		loader.Set("game.players.female", total-total/2)
	}
	if noImages, _ := cmd.Flags().GetBool("no-images"); noImages {
		loader.Set("game.generate_images", false)
	}
	if mock, _ := cmd.Flags().GetBool("mock"); mock {
		loader.Set("generators.default", "mock")
		loader.Set("generators.mock.enabled", true)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	gen, img, err := buildGenerators(cfg, log)
	if err != nil {
		return err
	}

	packager := packaging.NewFilePackager(cfg.Output.Dir, log)
	engine, err := workflow.BuildPipeline(cfg, gen, img, packager, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := core.NewGameState(cfg.Game)
	log.Info("starting generation",
		"game_id", string(state.Meta.ID),
		"theme", cfg.Game.Theme,
		"players", cfg.Game.Players.Total,
		"generator", gen.Name())

	started := time.Now()
	outcome := engine.Run(ctx, state)

	if cfg.Archive.Enabled {
		archiveOutcome(cfg, log, state, outcome, time.Since(started))
	}

	if outcome.Status != workflow.OutcomeSuccess {
		return fmt.Errorf("generation aborted: %s", outcome.Reason)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Game generated in %s\n", outcome.Duration.Round(time.Second))
	if state.Packaging != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Package: %s (%d files)\n",
			state.Packaging.OutputDir, len(state.Packaging.Files))
	}
	return nil
}

// buildGenerators picks the content and image backends from config.
// Dry runs always use the offline mock.
func buildGenerators(cfg *config.Config, log *logging.Logger) (core.ContentGenerator, core.ImageGenerator, error) {
	name := cfg.Generators.Default
	if cfg.Game.DryRun {
		name = "mock"
	}

	switch name {
	case "mock":
		return genai.NewMockContentGenerator(cfg.Game), genai.NewMockImageGenerator(), nil
	case "gemini":
		gemini := genai.NewGeminiGenerator(genai.ProviderConfig{
			Name:        "gemini",
			Path:        cfg.Generators.Gemini.Path,
			Model:       cfg.Generators.Gemini.Model,
			ImageModel:  cfg.Generators.Gemini.ImageModel,
			Temperature: cfg.Generators.Gemini.Temperature,
		}, log)
		return gemini, gemini.ImagePort(), nil
	default:
		return nil, nil, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("unknown generator %q", name))
	}
}

// archiveOutcome records the run in the local archive. Archive failures
// are logged, never fatal; the game package on disk is the source of
// truth.
func archiveOutcome(cfg *config.Config, log *logging.Logger, state *core.GameState, outcome workflow.RunOutcome, elapsed time.Duration) {
	store, err := archive.NewStore(cfg.Archive.Path)
	if err != nil {
		log.Warn("archive unavailable", "error", err.Error())
		return
	}
	defer store.Close()

	// A fresh context so an interrupted run still gets archived.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := archive.NewRecord(state, string(outcome.Status), outcome.Reason, elapsed)
	if err := store.Save(ctx, rec); err != nil {
		log.Warn("archiving run failed", "error", err.Error())
	}
}
