package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Orkestra/internal/domain"
)

// fakeClock не ждёт реального времени и записывает запрошенные паузы.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()

	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func newTestRunner() (*Runner, *fakeClock) {
	clock := newFakeClock()
	return New(Config{Clock: clock}), clock
}

func TestRunForward_Success(t *testing.T) {
	r, _ := newTestRunner()
	step := domain.Step{
		Name: "reserve",
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			return domain.Continue(sc.With("reservationId", "r-1")), nil
		},
	}

	res, err := r.RunForward(context.Background(), step, domain.NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	if res.Outcome.Context.String("reservationId") != "r-1" {
		t.Error("outcome should carry the updated context")
	}
}

func TestRunForward_RetriesUntilSuccess(t *testing.T) {
	r, clock := newTestRunner()

	calls := 0
	step := domain.Step{
		Name: "charge",
		Retry: &domain.RetryPolicy{
			MaxAttempts:  5,
			Backoff:      domain.BackoffExponential,
			InitialDelay: time.Second,
		},
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			calls++
			if calls < 3 {
				return domain.Outcome{}, domain.Retryablef("gateway unavailable")
			}
			return domain.Continue(sc), nil
		},
	}

	res, err := r.RunForward(context.Background(), step, domain.NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}

	sleeps := clock.Sleeps()
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleeps = %v, want %v", sleeps, want)
		}
	}
}

func TestRunForward_NonRetryableStopsImmediately(t *testing.T) {
	r, clock := newTestRunner()

	calls := 0
	step := domain.Step{
		Name:  "charge",
		Retry: &domain.RetryPolicy{MaxAttempts: 5},
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			calls++
			return domain.Outcome{}, domain.Failf("card declined")
		},
	}

	res, err := r.RunForward(context.Background(), step, domain.NewContext(nil))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 || res.Attempts != 1 {
		t.Errorf("calls = %d, attempts = %d; non-retryable failure must not retry", calls, res.Attempts)
	}
	if len(clock.Sleeps()) != 0 {
		t.Error("no backoff expected")
	}
}

func TestRunForward_AttemptsExhausted(t *testing.T) {
	r, _ := newTestRunner()

	calls := 0
	step := domain.Step{
		Name:  "charge",
		Retry: &domain.RetryPolicy{MaxAttempts: 3},
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			calls++
			return domain.Outcome{}, domain.Retryablef("still down")
		},
	}

	res, err := r.RunForward(context.Background(), step, domain.NewContext(nil))
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 || res.Attempts != 3 {
		t.Errorf("calls = %d, attempts = %d; want 3", calls, res.Attempts)
	}
}

func TestRunForward_Timeout(t *testing.T) {
	r := New(Config{}) // системные часы: таймаут шага реальный

	step := domain.Step{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			<-ctx.Done()
			return domain.Outcome{}, ctx.Err()
		},
	}

	_, err := r.RunForward(context.Background(), step, domain.NewContext(nil))
	if !errors.Is(err, ErrStepTimeout) {
		t.Fatalf("err = %v, want ErrStepTimeout", err)
	}
	if !domain.IsRetryable(err) {
		t.Error("timeout should be retryable")
	}
}

func TestRunForward_CancelledContext(t *testing.T) {
	r, _ := newTestRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	step := domain.Step{
		Name: "any",
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			return domain.Outcome{}, ctx.Err()
		},
	}

	_, err := r.RunForward(ctx, step, domain.NewContext(nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunCompensation_NilCompensateIsNoop(t *testing.T) {
	r, _ := newTestRunner()
	step := domain.Step{Name: "readonly"}

	if err := r.RunCompensation(context.Background(), step, domain.NewContext(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCompensation_RetriesThenSucceeds(t *testing.T) {
	r, _ := newTestRunner()

	calls := 0
	step := domain.Step{
		Name:  "reserve",
		Retry: &domain.RetryPolicy{MaxAttempts: 3},
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			return domain.Continue(sc), nil
		},
		Compensate: func(ctx context.Context, sc domain.Context) error {
			calls++
			if calls < 2 {
				return domain.Retryablef("inventory service unavailable")
			}
			return nil
		},
	}

	if err := r.RunCompensation(context.Background(), step, domain.NewContext(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRunCompensation_ExhaustionIsCompensationError(t *testing.T) {
	r, _ := newTestRunner()

	step := domain.Step{
		Name:  "reserve",
		Retry: &domain.RetryPolicy{MaxAttempts: 2},
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			return domain.Continue(sc), nil
		},
		Compensate: func(ctx context.Context, sc domain.Context) error {
			return domain.Retryablef("still down")
		},
	}

	err := r.RunCompensation(context.Background(), step, domain.NewContext(nil))
	if !IsCompensationFailure(err) {
		t.Fatalf("err = %v, want CompensationError", err)
	}

	var compErr *CompensationError
	errors.As(err, &compErr)
	if compErr.Step != "reserve" || compErr.Attempts != 2 {
		t.Errorf("step = %q attempts = %d", compErr.Step, compErr.Attempts)
	}
}
