package domain

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestNewDefinition_Validation(t *testing.T) {
	forward := func(ctx context.Context, sc Context) (Outcome, error) {
		return Continue(sc), nil
	}

	tests := []struct {
		name  string
		saga  string
		steps []Step
	}{
		{"empty saga name", "", []Step{{Name: "a", Forward: forward}}},
		{"no steps", "order", nil},
		{"empty step name", "order", []Step{{Name: "", Forward: forward}}},
		{"no forward action", "order", []Step{{Name: "a"}}},
		{"duplicate step name", "order", []Step{
			{Name: "a", Forward: forward},
			{Name: "a", Forward: forward},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDefinition(tt.saga, tt.steps...)
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("err = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestDefinition_IndexOf(t *testing.T) {
	def := testDefinition(t, "reserve", "charge", "ship")

	i, ok := def.IndexOf("charge")
	if !ok || i != 1 {
		t.Errorf("IndexOf(charge) = %d, %v; want 1, true", i, ok)
	}
	if _, ok := def.IndexOf("missing"); ok {
		t.Error("IndexOf(missing) should report false")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	def := testDefinition(t, "a")

	if err := reg.Register(def); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(def); !errors.Is(err, ErrSagaExists) {
		t.Errorf("duplicate register err = %v, want ErrSagaExists", err)
	}

	got, err := reg.Get("test")
	if err != nil || got != def {
		t.Errorf("Get = %v, %v; want definition", got, err)
	}
	if _, err := reg.Get("missing"); !errors.Is(err, ErrSagaNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrSagaNotFound", err)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	tests := []struct {
		name    string
		policy  *RetryPolicy
		attempt int
		want    time.Duration
	}{
		{"nil policy", nil, 1, time.Second},
		{"fixed", &RetryPolicy{Backoff: BackoffFixed, InitialDelay: 2 * time.Second}, 3, 2 * time.Second},
		{"exponential first", &RetryPolicy{Backoff: BackoffExponential, InitialDelay: time.Second}, 1, time.Second},
		{"exponential third", &RetryPolicy{Backoff: BackoffExponential, InitialDelay: time.Second}, 3, 4 * time.Second},
		{"exponential capped", &RetryPolicy{Backoff: BackoffExponential, InitialDelay: time.Second, MaxDelay: 3 * time.Second}, 5, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_Attempts(t *testing.T) {
	var nilPolicy *RetryPolicy
	if nilPolicy.Attempts() != 1 {
		t.Error("nil policy should allow exactly one attempt")
	}
	if (&RetryPolicy{MaxAttempts: 5}).Attempts() != 5 {
		t.Error("Attempts should return MaxAttempts")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(Failf("boom")) {
		t.Error("Failf should not be retryable")
	}
	if !IsRetryable(Retryablef("boom")) {
		t.Error("Retryablef should be retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Error("context.Canceled should not be retryable")
	}
	if !IsRetryable(errors.New("infrastructure")) {
		t.Error("unknown errors are treated as transient")
	}
}

func TestWithRecovery(t *testing.T) {
	panicking := func(ctx context.Context, sc Context) (Outcome, error) {
		panic("blew up")
	}

	_, err := Decorate(panicking, WithRecovery())(context.Background(), NewContext(nil))

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("err = %v, want StepError", err)
	}
	if stepErr.Retryable {
		t.Error("panic should be non-retryable")
	}
}

func TestDecorate_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Decorator {
		return func(next ForwardFunc) ForwardFunc {
			return func(ctx context.Context, sc Context) (Outcome, error) {
				calls = append(calls, name)
				return next(ctx, sc)
			}
		}
	}

	forward := func(ctx context.Context, sc Context) (Outcome, error) {
		calls = append(calls, "forward")
		return Continue(sc), nil
	}

	decorated := Decorate(forward, mark("outer"), mark("inner"))
	if _, err := decorated(context.Background(), NewContext(nil)); err != nil {
		t.Fatalf("decorated: %v", err)
	}

	want := []string{"outer", "inner", "forward"}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestWithLogging_PassesThrough(t *testing.T) {
	forward := func(ctx context.Context, sc Context) (Outcome, error) {
		return Terminate(sc, "done"), nil
	}

	out, err := Decorate(forward, WithLogging(slog.Default(), "step"))(context.Background(), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeTerminate {
		t.Errorf("kind = %s, want terminate", out.Kind)
	}
}
