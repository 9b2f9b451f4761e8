package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

func TestRunBatchAllSucceed(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}

	outcomes, err := RunBatch(context.Background(), BatchConfig{Concurrency: 3}, nil, items,
		func(ctx context.Context, n int) (int, error) {
			return n * 2, nil
		})
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if len(outcomes) != len(items) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(items))
	}
	for i, out := range outcomes {
		if !out.Succeeded() {
			t.Errorf("outcome %d failed: %v", i, out.Err)
		}
		if out.Index != i {
			t.Errorf("outcome %d has index %d", i, out.Index)
		}
		if out.Value != items[i]*2 {
			t.Errorf("outcome %d = %d, want %d", i, out.Value, items[i]*2)
		}
	}
}

func TestRunBatchConcurrencyCap(t *testing.T) {
	const limit = 3
	var inFlight, peak int64

	items := make([]int, 20)
	_, err := RunBatch(context.Background(), BatchConfig{Concurrency: limit}, nil, items,
		func(ctx context.Context, _ int) (struct{}, error) {
			n := atomic.AddInt64(&inFlight, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return struct{}{}, nil
		})
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if got := atomic.LoadInt64(&peak); got > limit {
		t.Errorf("observed %d tasks in flight, cap is %d", got, limit)
	}
}

func TestRunBatchOrderPreserved(t *testing.T) {
	items := make([]int, 16)
	for i := range items {
		items[i] = i
	}

	// Later tasks finish earlier; outcomes must still follow input
	// order.
	outcomes, err := RunBatch(context.Background(), BatchConfig{Concurrency: 8}, nil, items,
		func(ctx context.Context, n int) (string, error) {
			time.Sleep(time.Duration(len(items)-n) * time.Millisecond)
			return fmt.Sprintf("task-%d", n), nil
		})
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	for i, out := range outcomes {
		if want := fmt.Sprintf("task-%d", i); out.Value != want {
			t.Errorf("outcome %d = %q, want %q", i, out.Value, want)
		}
	}
}

func TestRunBatchPartialFailure(t *testing.T) {
	// Scenario: 8 tasks, concurrency 5, task #3 fails all 3 attempts.
	policy := NewRetryPolicy(WithMaxAttempts(3), WithBaseDelay(time.Millisecond), WithJitter(0))
	items := make([]int, 8)
	for i := range items {
		items[i] = i
	}

	var attemptsOnThree int64
	outcomes, err := RunBatch(context.Background(),
		BatchConfig{Concurrency: 5, Policy: policy}, nil, items,
		func(ctx context.Context, n int) (int, error) {
			if n == 3 {
				atomic.AddInt64(&attemptsOnThree, 1)
				return 0, core.ErrRateLimit("injected")
			}
			return n, nil
		})
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}

	if got := CountSucceeded(outcomes); got != 7 {
		t.Errorf("succeeded = %d, want 7", got)
	}
	if outcomes[3].Succeeded() {
		t.Error("task 3 should have failed")
	}
	if !IsRetryExhausted(outcomes[3].Err) {
		t.Errorf("task 3 error = %v, want retry exhaustion", outcomes[3].Err)
	}
	if outcomes[3].Attempts != 3 {
		t.Errorf("task 3 attempts = %d, want 3", outcomes[3].Attempts)
	}
	if atomic.LoadInt64(&attemptsOnThree) != 3 {
		t.Errorf("task 3 executed %d times, want 3", attemptsOnThree)
	}
	// Sibling tasks are untouched by the failure.
	for i, out := range outcomes {
		if i == 3 {
			continue
		}
		if !out.Succeeded() || out.Value != i {
			t.Errorf("outcome %d = (%d, %v), want (%d, nil)", i, out.Value, out.Err, i)
		}
	}
}

func TestRunBatchNonRetryableFailsImmediately(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(5), WithBaseDelay(time.Millisecond))

	outcomes, err := RunBatch(context.Background(),
		BatchConfig{Concurrency: 2, Policy: policy}, nil, []int{0, 1},
		func(ctx context.Context, n int) (int, error) {
			if n == 1 {
				return 0, core.ErrInvalidResponse("garbage")
			}
			return n, nil
		})
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if outcomes[1].Attempts != 1 {
		t.Errorf("non-retryable failure consumed %d attempts, want 1", outcomes[1].Attempts)
	}
	if !outcomes[0].Succeeded() {
		t.Error("sibling task should succeed")
	}
}

func TestRunBatchDeterministicWithMock(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	run := func() []Outcome[string] {
		outcomes, err := RunBatch(context.Background(), BatchConfig{Concurrency: 4}, nil, items,
			func(ctx context.Context, s string) (string, error) {
				return "out-" + s, nil
			})
		if err != nil {
			t.Fatalf("RunBatch() error = %v", err)
		}
		return outcomes
	}

	first := run()
	second := run()
	for i := range first {
		if first[i].Value != second[i].Value || first[i].Index != second[i].Index ||
			(first[i].Err == nil) != (second[i].Err == nil) {
			t.Errorf("outcome %d differs between identical runs", i)
		}
	}
}

func TestRunBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})

	items := make([]int, 10)
	done := make(chan struct{})
	var outcomes []Outcome[int]
	var err error
	go func() {
		defer close(done)
		outcomes, err = RunBatch(ctx, BatchConfig{Concurrency: 2}, nil, items,
			func(ctx context.Context, _ int) (int, error) {
				started.Done()
				select {
				case <-release:
					return 1, nil
				case <-ctx.Done():
					return 0, ctx.Err()
				}
			})
	}()

	started.Wait()
	cancel()
	close(release)
	<-done

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunBatch() error = %v, want context.Canceled", err)
	}
	if len(outcomes) != len(items) {
		t.Fatalf("got %d outcomes, want %d even on cancellation", len(outcomes), len(items))
	}
	// Tasks that never started must still carry a terminal outcome.
	for i, out := range outcomes {
		if out.Err == nil && out.Attempts == 0 {
			t.Errorf("outcome %d has neither a result nor an error", i)
		}
	}
}

func TestRunBatchEmptyInput(t *testing.T) {
	outcomes, err := RunBatch(context.Background(), BatchConfig{Concurrency: 4}, nil, []int{},
		func(ctx context.Context, n int) (int, error) { return n, nil })
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("got %d outcomes, want 0", len(outcomes))
	}
}
