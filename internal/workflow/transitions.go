package workflow

import (
	"context"
	"fmt"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

// StageID identifies a node in the pipeline state machine.
type StageID string

const (
	StageWorldGeneration    StageID = "world_generation"
	GateWorldValidation     StageID = "world_validation"
	StageVisualStyle        StageID = "visual_style"
	StageCharacters         StageID = "character_generation"
	StageCharacterPortraits StageID = "character_portraits"
	StageRelationships      StageID = "relationship_generation"
	StageCrimeDesign        StageID = "crime_design"
	StageTimeline           StageID = "timeline_generation"
	StageKillerSelection    StageID = "killer_selection"
	GateGameLogic           StageID = "game_logic_validation"
	StageContent            StageID = "content_generation"
	StageHostPortraits      StageID = "host_portraits"
	StagePackaging          StageID = "packaging"

	// StageSuccess is the distinguished terminal state.
	StageSuccess StageID = "success"
)

// Stage is one unit of pipeline work. It reads fields written by
// earlier stages and writes only its own.
type Stage interface {
	ID() StageID
	Run(ctx context.Context, state *core.GameState) error
}

// Gate is a validation node. Evaluate must be read-only with respect
// to state; a returned error is a fatal infrastructure failure, not a
// verdict.
type Gate interface {
	ID() StageID
	Evaluate(ctx context.Context, state *core.GameState) (core.Verdict, error)
}

// GateEdges declares a gate's outgoing edges and its retry budget.
type GateEdges struct {
	// Pass is the stage entered on a passing verdict.
	Pass StageID
	// RetryTarget is the earlier stage re-entered on a retry verdict.
	// Every stage between it and the gate re-runs in order.
	RetryTarget StageID
	// Budget is the maximum number of retry verdicts honored before
	// the run aborts.
	Budget int
}

// Table is the static transition table of the pipeline.
type Table struct {
	Start  StageID
	Linear map[StageID]StageID
	Gates  map[StageID]GateEdges
}

// NewTable builds the standard pipeline table. The gate budgets come
// from configuration rather than being baked into the engine.
func NewTable(worldBudget, logicBudget int) *Table {
	return &Table{
		Start: StageWorldGeneration,
		Linear: map[StageID]StageID{
			StageWorldGeneration:    GateWorldValidation,
			StageVisualStyle:        StageCharacters,
			StageCharacters:         StageCharacterPortraits,
			StageCharacterPortraits: StageRelationships,
			StageRelationships:      StageCrimeDesign,
			StageCrimeDesign:        StageTimeline,
			StageTimeline:           StageKillerSelection,
			StageKillerSelection:    GateGameLogic,
			StageContent:            StageHostPortraits,
			StageHostPortraits:      StagePackaging,
			StagePackaging:          StageSuccess,
		},
		Gates: map[StageID]GateEdges{
			GateWorldValidation: {
				Pass:        StageVisualStyle,
				RetryTarget: StageWorldGeneration,
				Budget:      worldBudget,
			},
			GateGameLogic: {
				Pass:        StageContent,
				RetryTarget: StageTimeline,
				Budget:      logicBudget,
			},
		},
	}
}

// Validate checks the table's structural invariants: the start node
// exists, every edge lands on a known node or the terminal state, and
// gate retry targets are plain stages.
func (t *Table) Validate() error {
	known := func(id StageID) bool {
		if id == StageSuccess {
			return true
		}
		if _, ok := t.Linear[id]; ok {
			return true
		}
		_, ok := t.Gates[id]
		return ok
	}

	if !known(t.Start) || t.Start == StageSuccess {
		return core.ErrValidation(core.CodeStageNotFound,
			fmt.Sprintf("start stage %q not declared in table", t.Start))
	}

	for from, to := range t.Linear {
		if !known(to) {
			return core.ErrValidation(core.CodeStageNotFound,
				fmt.Sprintf("stage %q advances to undeclared stage %q", from, to))
		}
	}

	for id, edges := range t.Gates {
		if !known(edges.Pass) {
			return core.ErrValidation(core.CodeStageNotFound,
				fmt.Sprintf("gate %q passes to undeclared stage %q", id, edges.Pass))
		}
		if _, ok := t.Linear[edges.RetryTarget]; !ok {
			return core.ErrValidation(core.CodeStageNotFound,
				fmt.Sprintf("gate %q retry target %q is not a plain stage", id, edges.RetryTarget))
		}
		if edges.Budget < 0 {
			return core.ErrValidation(core.CodeInvalidConfig,
				fmt.Sprintf("gate %q has negative retry budget %d", id, edges.Budget))
		}
	}

	return nil
}
