package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/aledesanfer/mysteryforge/internal/core"
	"github.com/aledesanfer/mysteryforge/internal/logging"
)

// OutcomeStatus is the terminal state of a pipeline run.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeAborted OutcomeStatus = "aborted"
)

// RunOutcome is the result of a full pipeline run. On abort the state
// carries whatever the pipeline produced before the terminal stage.
type RunOutcome struct {
	Status   OutcomeStatus
	State    *core.GameState
	Reason   string
	Err      error
	Duration time.Duration
	// Trace records every node executed, in order, including
	// re-entries caused by gate retries.
	Trace []StageID
}

// Engine sequences stages and validation gates according to a static
// transition table. It is strictly sequential: exactly one node runs
// at a time.
type Engine struct {
	table        *Table
	stages       map[StageID]Stage
	gates        map[StageID]Gate
	stageTimeout time.Duration
	log          *logging.Logger
}

// EngineOption configures an engine.
type EngineOption func(*Engine)

// attemptBounded marks stages that already bound their provider calls
// with per-attempt deadlines and retry budgets. The engine leaves
// those stages to their own limits; the portrait batches degrade on
// slow providers instead of timing out wholesale.
type attemptBounded interface {
	boundsOwnAttempts()
}

// WithStageTimeout bounds each stage execution. Gates are bounded by
// the same deadline. Stages whose work is bounded per attempt are
// exempt.
func WithStageTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.stageTimeout = d
	}
}

// WithLogger sets the engine logger.
func WithLogger(log *logging.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates an engine over a validated table. Every stage and
// gate the table references must be registered.
func NewEngine(table *Table, stages []Stage, gates []Gate, opts ...EngineOption) (*Engine, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		table:  table,
		stages: make(map[StageID]Stage, len(stages)),
		gates:  make(map[StageID]Gate, len(gates)),
		log:    logging.NewNop(),
	}
	for _, s := range stages {
		e.stages[s.ID()] = s
	}
	for _, g := range gates {
		e.gates[g.ID()] = g
	}
	for _, opt := range opts {
		opt(e)
	}

	for id := range table.Linear {
		if _, ok := e.stages[id]; !ok {
			return nil, core.ErrValidation(core.CodeStageNotFound,
				fmt.Sprintf("table references unregistered stage %q", id))
		}
	}
	for id := range table.Gates {
		if _, ok := e.gates[id]; !ok {
			return nil, core.ErrValidation(core.CodeStageNotFound,
				fmt.Sprintf("table references unregistered gate %q", id))
		}
	}

	return e, nil
}

// Run drives the state machine from the table's start stage to a
// terminal outcome. Stages never retry themselves; only a gate's
// retry verdict re-enters earlier stages, and only while its budget
// holds.
func (e *Engine) Run(ctx context.Context, state *core.GameState) RunOutcome {
	start := time.Now()
	log := e.log.WithRun(string(state.Meta.ID))

	var trace []StageID
	current := e.table.Start

	for current != StageSuccess {
		if err := ctx.Err(); err != nil {
			return e.aborted(state, trace, start,
				core.ErrCancelled("run cancelled").WithCause(err))
		}

		trace = append(trace, current)

		if gate, ok := e.gates[current]; ok {
			next, err := e.evaluateGate(ctx, log, gate, state)
			if err != nil {
				return e.aborted(state, trace, start, err)
			}
			current = next
			continue
		}

		stage := e.stages[current]
		if err := e.runStage(ctx, log, stage, state); err != nil {
			return e.aborted(state, trace, start, err)
		}
		current = e.table.Linear[current]
	}

	log.Info("pipeline completed", "duration", time.Since(start).String())
	return RunOutcome{
		Status:   OutcomeSuccess,
		State:    state,
		Duration: time.Since(start),
		Trace:    trace,
	}
}

func (e *Engine) runStage(ctx context.Context, log *logging.Logger, stage Stage, state *core.GameState) error {
	stageCtx := ctx
	_, selfBounded := stage.(attemptBounded)
	if e.stageTimeout > 0 && !selfBounded {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, e.stageTimeout)
		defer cancel()
	}

	slog := log.WithStage(string(stage.ID()))
	slog.Info("stage starting")
	started := time.Now()

	if err := stage.Run(stageCtx, state); err != nil {
		if stageCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = core.ErrTimeout(fmt.Sprintf(
				"stage %s exceeded the %s stage timeout", stage.ID(), e.stageTimeout)).WithCause(err)
		}
		slog.Error("stage failed", "error", err.Error())
		return err
	}

	slog.Info("stage completed", "duration", time.Since(started).String())
	return nil
}

func (e *Engine) evaluateGate(ctx context.Context, log *logging.Logger, gate Gate, state *core.GameState) (StageID, error) {
	gateCtx := ctx
	if e.stageTimeout > 0 {
		var cancel context.CancelFunc
		gateCtx, cancel = context.WithTimeout(ctx, e.stageTimeout)
		defer cancel()
	}

	id := gate.ID()
	edges := e.table.Gates[id]
	glog := log.WithStage(string(id))

	verdict, err := gate.Evaluate(gateCtx, state)
	if err != nil {
		if gateCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = core.ErrTimeout(fmt.Sprintf(
				"gate %s exceeded the %s stage timeout", id, e.stageTimeout)).WithCause(err)
		}
		glog.Error("gate evaluation failed", "error", err.Error())
		return "", err
	}

	switch verdict.Decision {
	case core.DecisionPass:
		glog.Info("gate passed")
		return edges.Pass, nil

	case core.DecisionRetry:
		used := state.IncrementRetry(string(id))
		if used > edges.Budget {
			glog.Warn("retry budget exhausted",
				"budget", edges.Budget,
				"reason", verdict.Reason)
			return "", core.ErrRetryBudgetExhausted(string(id), used)
		}
		glog.Warn("gate requested retry",
			"attempt", used,
			"budget", edges.Budget,
			"target", string(edges.RetryTarget),
			"reason", verdict.Reason)
		return edges.RetryTarget, nil

	case core.DecisionFail:
		glog.Error("gate failed run", "reason", verdict.Reason)
		return "", core.ErrValidation(core.CodeInvalidState,
			fmt.Sprintf("%s rejected the run: %s", id, verdict.Reason))

	default:
		return "", core.ErrExecution(core.CodeInvalidState,
			fmt.Sprintf("gate %s returned unknown decision %q", id, verdict.Decision))
	}
}

func (e *Engine) aborted(state *core.GameState, trace []StageID, start time.Time, err error) RunOutcome {
	return RunOutcome{
		Status:   OutcomeAborted,
		State:    state,
		Reason:   err.Error(),
		Err:      err,
		Duration: time.Since(start),
		Trace:    trace,
	}
}
