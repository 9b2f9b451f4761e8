package workflow

import (
	"fmt"
	"time"

	"github.com/aledesanfer/mysteryforge/internal/config"
	"github.com/aledesanfer/mysteryforge/internal/core"
	"github.com/aledesanfer/mysteryforge/internal/logging"
)

// BuildPipeline assembles the standard engine from configuration and
// the capability implementations.
func BuildPipeline(cfg *config.Config, gen core.ContentGenerator, img core.ImageGenerator, packager Packager, log *logging.Logger) (*Engine, error) {
	if log == nil {
		log = logging.NewNop()
	}

	stageTimeout, err := time.ParseDuration(cfg.Pipeline.StageTimeout)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("invalid stage timeout %q", cfg.Pipeline.StageTimeout))
	}

	settings, err := portraitSettings(cfg)
	if err != nil {
		return nil, err
	}

	table := NewTable(cfg.Pipeline.WorldRetryBudget, cfg.Pipeline.LogicRetryBudget)

	stages := []Stage{
		NewWorldStage(gen),
		NewVisualStyleStage(gen),
		NewCharactersStage(gen),
		NewCharacterPortraitsStage(img, settings, log),
		NewRelationshipsStage(gen),
		NewCrimeDesignStage(gen),
		NewTimelineStage(gen),
		NewKillerSelectionStage(gen, log),
		NewContentStage(gen),
		NewHostPortraitsStage(img, settings, log),
		NewPackagingStage(packager),
	}
	gates := []Gate{
		NewWorldGate(gen),
		NewLogicGate(gen),
	}

	return NewEngine(table, stages, gates,
		WithStageTimeout(stageTimeout),
		WithLogger(log),
	)
}

func portraitSettings(cfg *config.Config) (PortraitSettings, error) {
	base, err := time.ParseDuration(cfg.Images.BackoffBase)
	if err != nil {
		return PortraitSettings{}, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("invalid backoff base %q", cfg.Images.BackoffBase))
	}
	max, err := time.ParseDuration(cfg.Images.BackoffMax)
	if err != nil {
		return PortraitSettings{}, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("invalid backoff cap %q", cfg.Images.BackoffMax))
	}
	attemptTimeout, err := time.ParseDuration(cfg.Images.AttemptTimeout)
	if err != nil {
		return PortraitSettings{}, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("invalid attempt timeout %q", cfg.Images.AttemptTimeout))
	}

	// Image providers are the rate limited path: start from the rate
	// limit profile (high jitter) and let config set the knobs.
	policy := RateLimitRetryPolicy()
	for _, opt := range []RetryPolicyOption{
		WithMaxAttempts(cfg.Images.MaxAttempts),
		WithBaseDelay(base),
		WithMaxDelay(max),
		WithMultiplier(cfg.Images.BackoffMultiplier),
		WithAttemptTimeout(attemptTimeout),
	} {
		opt(policy)
	}

	return PortraitSettings{
		OutputDir:   cfg.Output.Dir,
		Concurrency: cfg.Images.Concurrency,
		Policy:      policy,
	}, nil
}
