package domain

import (
	"context"
	"testing"
	"time"
)

func noopStep(name string) Step {
	return Step{
		Name: name,
		Forward: func(ctx context.Context, sc Context) (Outcome, error) {
			return Continue(sc), nil
		},
		Compensate: func(ctx context.Context, sc Context) error {
			return nil
		},
	}
}

func testDefinition(t *testing.T, names ...string) *Definition {
	t.Helper()
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = noopStep(name)
	}
	def, err := NewDefinition("test", steps...)
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}
	return def
}

func TestNewExecution(t *testing.T) {
	def := testDefinition(t, "reserve", "charge", "ship")
	exec := NewExecution(def, NewContext(map[string]any{"orderId": "o-1"}))

	if exec.Status != StatusRunning {
		t.Errorf("status = %s, want RUNNING", exec.Status)
	}
	if exec.Version != 1 {
		t.Errorf("version = %d, want 1", exec.Version)
	}
	if len(exec.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(exec.Steps))
	}
	for i, name := range []string{"reserve", "charge", "ship"} {
		if exec.Steps[i].Name != name {
			t.Errorf("step %d name = %q, want %q", i, exec.Steps[i].Name, name)
		}
		if exec.Steps[i].Status != StepPending {
			t.Errorf("step %d status = %s, want PENDING", i, exec.Steps[i].Status)
		}
	}
}

func TestExecution_MarkStepCompletedPrefixOrder(t *testing.T) {
	def := testDefinition(t, "a", "b", "c")
	exec := NewExecution(def, NewContext(nil))

	// Шаг 1 до шага 0 — нарушение префиксного инварианта
	if err := exec.MarkStepCompleted(1, 1); err == nil {
		t.Error("completing step 1 before step 0 should fail")
	}

	if err := exec.MarkStepCompleted(0, 1); err != nil {
		t.Fatalf("complete step 0: %v", err)
	}
	if err := exec.MarkStepCompleted(1, 2); err != nil {
		t.Fatalf("complete step 1: %v", err)
	}
	if exec.Steps[1].Attempts != 2 {
		t.Errorf("attempts = %d, want 2", exec.Steps[1].Attempts)
	}
}

func TestExecution_MarkStepCompletedAfterSkipped(t *testing.T) {
	def := testDefinition(t, "a", "b", "c")
	exec := NewExecution(def, NewContext(nil))

	// Forward jump через шаг b: SKIPPED не нарушает префикс
	_ = exec.MarkStepCompleted(0, 1)
	exec.MarkStepsSkipped(1, 2)

	if err := exec.MarkStepCompleted(2, 1); err != nil {
		t.Fatalf("complete step after skipped: %v", err)
	}
	if exec.Steps[1].Status != StepSkipped {
		t.Errorf("step 1 status = %s, want SKIPPED", exec.Steps[1].Status)
	}
}

func TestExecution_MarkStepsSkippedLeavesNonPending(t *testing.T) {
	def := testDefinition(t, "a", "b")
	exec := NewExecution(def, NewContext(nil))

	_ = exec.MarkStepCompleted(0, 1)
	exec.MarkStepsSkipped(0, 2)

	if exec.Steps[0].Status != StepCompleted {
		t.Error("completed step must not become SKIPPED")
	}
	if exec.Steps[1].Status != StepSkipped {
		t.Error("pending step should become SKIPPED")
	}
}

func TestExecution_MarkCancelRequested(t *testing.T) {
	def := testDefinition(t, "a")
	exec := NewExecution(def, NewContext(nil))

	exec.MarkCancelRequested()

	if !exec.PendingCancel {
		t.Error("PendingCancel should be set")
	}
	if exec.Status != StatusRunning {
		t.Error("status must not change, cancel is cooperative")
	}
}

func TestExecution_CompletedDescending(t *testing.T) {
	def := testDefinition(t, "a", "b", "c", "d")
	exec := NewExecution(def, NewContext(nil))

	_ = exec.MarkStepCompleted(0, 1)
	_ = exec.MarkStepCompleted(1, 1)
	_ = exec.MarkStepCompleted(2, 1)
	exec.MarkStepFailed(3, 1)

	got := exec.CompletedDescending()
	want := []int{2, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("indexes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indexes = %v, want %v", got, want)
		}
	}
}

func TestExecution_ResetStepsFrom(t *testing.T) {
	def := testDefinition(t, "a", "b", "c")
	exec := NewExecution(def, NewContext(nil))

	_ = exec.MarkStepCompleted(0, 1)
	_ = exec.MarkStepCompleted(1, 1)
	_ = exec.MarkStepCompleted(2, 1)

	exec.ResetStepsFrom(1)

	if exec.Steps[0].Status != StepCompleted {
		t.Error("step 0 should stay COMPLETED")
	}
	for i := 1; i < 3; i++ {
		if exec.Steps[i].Status != StepPending {
			t.Errorf("step %d should be reset to PENDING", i)
		}
		if exec.Steps[i].Attempts != 0 {
			t.Errorf("step %d attempts should be reset", i)
		}
	}
}

func TestExecution_WaitingTransitions(t *testing.T) {
	def := testDefinition(t, "a")
	exec := NewExecution(def, NewContext(nil))
	deadline := time.Now().Add(time.Hour)

	exec.MarkWaiting("approval", deadline)

	if exec.Status != StatusWaiting {
		t.Errorf("status = %s, want WAITING", exec.Status)
	}
	if exec.Wait == nil || exec.Wait.EventType != "approval" {
		t.Fatal("wait condition should be set")
	}

	exec.MarkRunning()

	if exec.Status != StatusRunning {
		t.Errorf("status = %s, want RUNNING", exec.Status)
	}
	if exec.Wait != nil {
		t.Error("wait condition should be cleared")
	}
}

func TestExecution_TerminalStatuses(t *testing.T) {
	tests := []struct {
		name     string
		mark     func(e *Execution)
		status   Status
		terminal bool
	}{
		{"completed", func(e *Execution) { e.MarkCompleted("") }, StatusCompleted, true},
		{"failed", func(e *Execution) { e.MarkFailed("a", "boom") }, StatusFailed, true},
		{"compensating", func(e *Execution) { e.MarkCompensating("a", "boom") }, StatusCompensating, false},
		{"compensated", func(e *Execution) { e.MarkCompensated() }, StatusCompensated, true},
		{"compensation_failed", func(e *Execution) { e.MarkCompensationFailed("a", "boom") }, StatusCompensationFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := testDefinition(t, "a")
			exec := NewExecution(def, NewContext(nil))

			tt.mark(exec)

			if exec.Status != tt.status {
				t.Errorf("status = %s, want %s", exec.Status, tt.status)
			}
			if exec.IsFinished() != tt.terminal {
				t.Errorf("IsFinished = %v, want %v", exec.IsFinished(), tt.terminal)
			}
		})
	}
}

func TestExecution_CloneIsIndependent(t *testing.T) {
	def := testDefinition(t, "a", "b")
	exec := NewExecution(def, NewContext(map[string]any{"k": "v"}))
	exec.MarkWaiting("approval", time.Now().Add(time.Hour))

	clone := exec.Clone()
	clone.Steps[0].Status = StepCompleted
	clone.Wait.EventType = "other"
	clone.Context = clone.Context.With("k", "changed")

	if exec.Steps[0].Status != StepPending {
		t.Error("clone mutation leaked into steps")
	}
	if exec.Wait.EventType != "approval" {
		t.Error("clone mutation leaked into wait condition")
	}
	if exec.Context.String("k") != "v" {
		t.Error("clone mutation leaked into context")
	}
}
