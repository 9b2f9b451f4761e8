package workflow

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aledesanfer/mysteryforge/internal/logging"
)

// BatchConfig configures the bounded-concurrency batch runner.
type BatchConfig struct {
	// Concurrency is the number of workers. Values below 1 run
	// everything on a single worker.
	Concurrency int
	// Policy governs retries within a single task. Nil means one
	// attempt per task.
	Policy *RetryPolicy
	// Label names the batch for logging.
	Label string
}

// Outcome is the terminal result of one batch task. Outcomes are
// returned in input order regardless of completion order.
type Outcome[R any] struct {
	Index    int
	Value    R
	Err      error
	Attempts int
	Duration time.Duration
}

// Succeeded reports whether the task completed without error.
func (o Outcome[R]) Succeeded() bool {
	return o.Err == nil
}

// BatchFunc executes one task. It is called from multiple workers and
// must not touch shared state.
type BatchFunc[T, R any] func(ctx context.Context, item T) (R, error)

// RunBatch executes fn over items with at most cfg.Concurrency tasks
// in flight. Each task runs to completion, including its retries, on
// one worker before the worker takes the next item.
//
// Task failures do not stop the batch: a failed task records its error
// in its outcome and the rest continue. The returned error is non-nil
// only when the context is cancelled, in which case workers stop
// taking new items, in-flight attempts are interrupted, and the
// partial outcomes are still returned.
func RunBatch[T, R any](ctx context.Context, cfg BatchConfig, log *logging.Logger, items []T, fn BatchFunc[T, R]) ([]Outcome[R], error) {
	if log == nil {
		log = logging.NewNop()
	}
	workers := cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	outcomes := make([]Outcome[R], len(items))
	for i := range outcomes {
		outcomes[i].Index = i
	}
	if len(items) == 0 {
		return outcomes, ctx.Err()
	}

	indices := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(indices)
		for i := range items {
			select {
			case indices <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range indices {
				// Each task owns its slot; no lock needed.
				outcomes[i] = runTask(gctx, cfg, log, i, items[i], fn)
				if gctx.Err() != nil {
					return gctx.Err()
				}
			}
			return nil
		})
	}

	err := g.Wait()
	// Mark tasks that never ran as cancelled rather than leaving
	// zero-valued outcomes.
	if err != nil {
		for i := range outcomes {
			if outcomes[i].Attempts == 0 && outcomes[i].Err == nil {
				outcomes[i].Err = err
			}
		}
	}
	return outcomes, err
}

func runTask[T, R any](ctx context.Context, cfg BatchConfig, log *logging.Logger, index int, item T, fn BatchFunc[T, R]) Outcome[R] {
	out := Outcome[R]{Index: index}
	policy := cfg.Policy
	if policy == nil {
		policy = &RetryPolicy{MaxAttempts: 1}
	}

	start := time.Now()
	err := policy.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		out.Attempts++
		value, err := fn(ctx, item)
		if err != nil {
			return err
		}
		out.Value = value
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		log.Warn("task attempt failed, backing off",
			"batch", cfg.Label,
			"task", index,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error())
	})
	out.Duration = time.Since(start)
	out.Err = err
	return out
}

// CountSucceeded returns how many outcomes completed without error.
func CountSucceeded[R any](outcomes []Outcome[R]) int {
	n := 0
	for i := range outcomes {
		if outcomes[i].Succeeded() {
			n++
		}
	}
	return n
}
