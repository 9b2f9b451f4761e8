package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

// severityFatal marks a logic issue the validator considers beyond
// repair by regeneration. It fails the run instead of retrying.
const severityFatal = "fatal"

// WorldGate judges whether the generated world is internally coherent
// with the requested configuration. On incoherence it routes the run
// back to world generation.
type WorldGate struct {
	gen core.ContentGenerator
}

// NewWorldGate creates the world coherence gate.
func NewWorldGate(gen core.ContentGenerator) *WorldGate {
	return &WorldGate{gen: gen}
}

func (g *WorldGate) ID() StageID { return GateWorldValidation }

// Evaluate asks the generator for a coherence judgment and maps it to
// a verdict. It never writes to state.
func (g *WorldGate) Evaluate(ctx context.Context, state *core.GameState) (core.Verdict, error) {
	if state.World == nil {
		return core.Verdict{}, core.ErrValidation(core.CodeMissingWorld,
			"world validation reached without a generated world")
	}

	res, err := g.gen.Generate(ctx, core.ContentRequest{
		Stage:  string(g.ID()),
		Prompt: worldValidationPrompt(state),
		Schema: schemaFor[core.WorldValidation](),
	})
	if err != nil {
		return core.Verdict{}, err
	}

	var report core.WorldValidation
	if err := json.Unmarshal(res.Raw, &report); err != nil {
		return core.Verdict{}, core.ErrInvalidResponse(
			"world validator returned malformed judgment").WithCause(err)
	}

	if report.IsCoherent {
		return core.Pass(), nil
	}
	return core.Retry(summarizeStrings("world incoherent", report.Issues)), nil
}

// LogicGate judges whether the assembled crime, timeline and killer
// selection form a solvable, contradiction-free mystery. On failure it
// routes the run back to timeline generation, which re-runs everything
// through killer selection.
type LogicGate struct {
	gen core.ContentGenerator
}

// NewLogicGate creates the game logic gate.
func NewLogicGate(gen core.ContentGenerator) *LogicGate {
	return &LogicGate{gen: gen}
}

func (g *LogicGate) ID() StageID { return GateGameLogic }

func (g *LogicGate) Evaluate(ctx context.Context, state *core.GameState) (core.Verdict, error) {
	if state.Timeline == nil {
		return core.Verdict{}, core.ErrValidation(core.CodeMissingTimeline,
			"logic validation reached without a timeline")
	}
	if state.KillerSelection == nil {
		return core.Verdict{}, core.ErrValidation(core.CodeKillerUnknown,
			"logic validation reached without a killer selection")
	}

	res, err := g.gen.Generate(ctx, core.ContentRequest{
		Stage:  string(g.ID()),
		Prompt: logicValidationPrompt(state),
		Schema: schemaFor[core.ValidationReport](),
	})
	if err != nil {
		return core.Verdict{}, err
	}

	var report core.ValidationReport
	if err := json.Unmarshal(res.Raw, &report); err != nil {
		return core.Verdict{}, core.ErrInvalidResponse(
			"logic validator returned malformed judgment").WithCause(err)
	}

	if report.IsConsistent {
		return core.Pass(), nil
	}

	var descriptions []string
	for _, issue := range report.Issues {
		if issue.Severity == severityFatal {
			return core.Fail(fmt.Sprintf("unsalvageable logic flaw: %s", issue.Description)), nil
		}
		descriptions = append(descriptions, issue.Description)
	}
	return core.Retry(summarizeStrings("game logic inconsistent", descriptions)), nil
}

// summarizeStrings joins issue texts into a single verdict reason,
// truncated so log lines stay readable.
func summarizeStrings(prefix string, issues []string) string {
	if len(issues) == 0 {
		return prefix
	}
	const maxIssues = 3
	shown := issues
	if len(shown) > maxIssues {
		shown = shown[:maxIssues]
	}
	reason := fmt.Sprintf("%s: %s", prefix, strings.Join(shown, "; "))
	if len(issues) > maxIssues {
		reason += fmt.Sprintf(" (and %d more)", len(issues)-maxIssues)
	}
	return reason
}
