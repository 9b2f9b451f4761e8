package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aledesanfer/mysteryforge/internal/core"
	"github.com/aledesanfer/mysteryforge/internal/logging"
)

// PortraitSettings configures the portrait batches.
type PortraitSettings struct {
	OutputDir   string
	Concurrency int
	Policy      *RetryPolicy
}

type portraitTask struct {
	subject string
	prompt  string
	path    string
}

// CharacterPortraitsStage generates one portrait per suspect through
// the batch runner. Individual failures degrade the run (the suspect
// simply has no portrait); they never abort it.
type CharacterPortraitsStage struct {
	img      core.ImageGenerator
	settings PortraitSettings
	log      *logging.Logger
}

func NewCharacterPortraitsStage(img core.ImageGenerator, settings PortraitSettings, log *logging.Logger) *CharacterPortraitsStage {
	if log == nil {
		log = logging.NewNop()
	}
	return &CharacterPortraitsStage{img: img, settings: settings, log: log}
}

func (s *CharacterPortraitsStage) ID() StageID { return StageCharacterPortraits }

// boundsOwnAttempts exempts the batch from the engine stage timeout;
// each portrait attempt carries its own deadline.
func (s *CharacterPortraitsStage) boundsOwnAttempts() {}

func (s *CharacterPortraitsStage) Run(ctx context.Context, state *core.GameState) error {
	if !state.Config.GenerateImages {
		s.log.Info("portrait generation disabled, skipping")
		return nil
	}

	dir := portraitDir(s.settings.OutputDir, state)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.ErrExecution(core.CodeGeneratorFailed,
			"creating portrait directory failed").WithCause(err)
	}

	tasks := make([]portraitTask, len(state.Characters))
	for i, ch := range state.Characters {
		tasks[i] = portraitTask{
			subject: ch.Name,
			prompt:  portraitPrompt(state.VisualStyle, ch),
			path:    filepath.Join(dir, ch.ID+".png"),
		}
	}

	outcomes, err := runPortraitBatch(ctx, s.img, s.settings, s.log, "character_portraits", tasks)
	if err != nil {
		return err
	}

	// Merge in a single post-barrier step; outcome order matches the
	// suspect roster.
	for i, out := range outcomes {
		if out.Succeeded() {
			state.Characters[i].ImagePath = out.Value
		} else {
			s.log.Warn("portrait unavailable, suspect ships without one",
				"subject", tasks[i].subject,
				"attempts", out.Attempts,
				"error", out.Err.Error())
		}
	}

	s.log.Info("portrait batch finished",
		"succeeded", CountSucceeded(outcomes),
		"total", len(outcomes))
	return nil
}

// HostPortraitsStage generates the victim and detective portraits for
// the host's two personas.
type HostPortraitsStage struct {
	img      core.ImageGenerator
	settings PortraitSettings
	log      *logging.Logger
}

func NewHostPortraitsStage(img core.ImageGenerator, settings PortraitSettings, log *logging.Logger) *HostPortraitsStage {
	if log == nil {
		log = logging.NewNop()
	}
	return &HostPortraitsStage{img: img, settings: settings, log: log}
}

func (s *HostPortraitsStage) ID() StageID { return StageHostPortraits }

// boundsOwnAttempts exempts the batch from the engine stage timeout.
func (s *HostPortraitsStage) boundsOwnAttempts() {}

func (s *HostPortraitsStage) Run(ctx context.Context, state *core.GameState) error {
	if !state.Config.GenerateImages {
		s.log.Info("portrait generation disabled, skipping")
		return nil
	}

	dir := portraitDir(s.settings.OutputDir, state)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.ErrExecution(core.CodeGeneratorFailed,
			"creating portrait directory failed").WithCause(err)
	}

	var tasks []portraitTask
	victimIdx, detectiveIdx := -1, -1
	if state.Crime != nil {
		victimIdx = len(tasks)
		tasks = append(tasks, portraitTask{
			subject: state.Crime.Victim.Name,
			prompt:  victimPortraitPrompt(state.VisualStyle, &state.Crime.Victim),
			path:    filepath.Join(dir, "victim.png"),
		})
	}
	if state.HostGuide != nil && state.HostGuide.DetectiveRole != nil {
		detectiveIdx = len(tasks)
		tasks = append(tasks, portraitTask{
			subject: state.HostGuide.DetectiveRole.CharacterName,
			prompt:  detectivePortraitPrompt(state.VisualStyle, state.HostGuide.DetectiveRole),
			path:    filepath.Join(dir, "detective.png"),
		})
	}
	if len(tasks) == 0 {
		return nil
	}

	outcomes, err := runPortraitBatch(ctx, s.img, s.settings, s.log, "host_portraits", tasks)
	if err != nil {
		return err
	}

	if victimIdx >= 0 && outcomes[victimIdx].Succeeded() {
		state.Crime.Victim.ImagePath = outcomes[victimIdx].Value
	}
	if detectiveIdx >= 0 && outcomes[detectiveIdx].Succeeded() {
		state.HostGuide.DetectiveRole.ImagePath = outcomes[detectiveIdx].Value
	}
	for i, out := range outcomes {
		if !out.Succeeded() {
			s.log.Warn("host portrait unavailable",
				"subject", tasks[i].subject,
				"error", out.Err.Error())
		}
	}
	return nil
}

func runPortraitBatch(ctx context.Context, img core.ImageGenerator, settings PortraitSettings, log *logging.Logger, label string, tasks []portraitTask) ([]Outcome[string], error) {
	return RunBatch(ctx, BatchConfig{
		Concurrency: settings.Concurrency,
		Policy:      settings.Policy,
		Label:       label,
	}, log, tasks, func(ctx context.Context, task portraitTask) (string, error) {
		err := img.Generate(ctx, core.ImageRequest{
			Subject:    task.subject,
			Prompt:     task.prompt,
			OutputPath: task.path,
		})
		if err != nil {
			return "", err
		}
		return task.path, nil
	})
}

func portraitDir(outputDir string, state *core.GameState) string {
	return filepath.Join(outputDir, fmt.Sprintf("game-%s", state.Meta.ID), "portraits")
}
