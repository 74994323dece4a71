package sagas

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/orchestrator"
	"github.com/shaiso/Orkestra/internal/runner"
	"github.com/shaiso/Orkestra/internal/store"
)

func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, *domain.Registry) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := domain.NewRegistry()
	if err := RegisterBuiltins(reg, logger); err != nil {
		t.Fatalf("register builtins: %v", err)
	}

	orch := orchestrator.New(orchestrator.Config{
		Registry: reg,
		Store:    store.NewMemoryStore(),
		Runner:   runner.New(runner.Config{Logger: logger}),
		Logger:   logger,
	})
	return orch, reg
}

func TestOrderSaga_SmallAmountCompletesWithoutApproval(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	exec, err := orch.Submit(ctx, SagaOrder, map[string]any{
		"order_id": "o-1",
		"amount":   42.0,
	}, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := orch.Run(ctx, exec.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", res.Status)
	}
	if got := res.Context.String("approved_by"); got != "auto" {
		t.Errorf("approved_by = %q, want auto", got)
	}
	if res.Context.String("shipment_id") == "" {
		t.Error("shipment_id is empty, ship step did not run")
	}
}

func TestOrderSaga_LargeAmountWaitsForApproval(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	exec, err := orch.Submit(ctx, SagaOrder, map[string]any{
		"order_id": "o-2",
		"amount":   5000.0,
	}, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := orch.Run(ctx, exec.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != domain.StatusWaiting {
		t.Fatalf("status = %s, want WAITING", res.Status)
	}

	got, err := orch.Inspect(ctx, exec.ID)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got.Wait == nil || got.Wait.EventType != EventApprovalDecision {
		t.Fatalf("wait = %+v, want event type %s", got.Wait, EventApprovalDecision)
	}

	res, err = orch.Resume(ctx, exec.ID, EventApprovalDecision, map[string]any{
		"approved": true,
		"user":     "alice",
	})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if res.Status != domain.StatusCompleted {
		t.Fatalf("status after approval = %s, want COMPLETED", res.Status)
	}
	if got := res.Context.String("approved_by"); got != "alice" {
		t.Errorf("approved_by = %q, want alice", got)
	}
}

func TestOrderSaga_RejectionCompensatesReservation(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	exec, err := orch.Submit(ctx, SagaOrder, map[string]any{
		"order_id": "o-3",
		"amount":   5000.0,
	}, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := orch.Run(ctx, exec.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	res, err := orch.Resume(ctx, exec.ID, EventApprovalDecision, map[string]any{
		"approved": false,
		"reason":   "suspicious order",
	})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if res.Status != domain.StatusCompensated {
		t.Fatalf("status = %s, want COMPENSATED", res.Status)
	}

	got, err := orch.Inspect(ctx, exec.ID)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got.Steps[0].Status != domain.StepCompensated {
		t.Errorf("reserve status = %s, want COMPENSATED", got.Steps[0].Status)
	}
}

func TestOrderSaga_ZeroAmountTerminatesEarly(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	exec, err := orch.Submit(ctx, SagaOrder, map[string]any{
		"order_id": "o-4",
		"amount":   0.0,
	}, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := orch.Run(ctx, exec.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", res.Status)
	}
	if res.Reason != "nothing to charge" {
		t.Errorf("reason = %q, want %q", res.Reason, "nothing to charge")
	}

	got, err := orch.Inspect(ctx, exec.ID)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if idx, _ := OrderSaga(slog.New(slog.NewTextHandler(io.Discard, nil))).IndexOf("ship"); got.Steps[idx].Status != domain.StepPending {
		t.Errorf("ship status = %s, want PENDING", got.Steps[idx].Status)
	}
}

func TestOrderSaga_MissingAmountFails(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	exec, err := orch.Submit(ctx, SagaOrder, map[string]any{"order_id": "o-5"}, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := orch.Run(ctx, exec.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want FAILED", res.Status)
	}
	if res.FailedStep != "reserve" {
		t.Errorf("failed step = %q, want reserve", res.FailedStep)
	}
}
