package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/domain"
)

func testExecution(t *testing.T) *domain.Execution {
	t.Helper()
	def, err := domain.NewDefinition("order", domain.Step{
		Name: "reserve",
		Forward: func(ctx context.Context, sc domain.Context) (domain.Outcome, error) {
			return domain.Continue(sc), nil
		},
	})
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	return domain.NewExecution(def, domain.NewContext(map[string]any{"orderId": "o-1"}))
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	exec := testExecution(t)

	if err := s.Create(ctx, exec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, exec); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v, want ErrAlreadyExists", err)
	}

	got, err := s.Get(ctx, exec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Saga != "order" || got.Version != 1 {
		t.Errorf("got saga=%s version=%d", got.Saga, got.Version)
	}

	// Get возвращает копию
	got.Status = domain.StatusCompleted
	again, _ := s.Get(ctx, exec.ID)
	if again.Status != domain.StatusRunning {
		t.Error("mutation of returned record leaked into store")
	}

	if _, err := s.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing get err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_SaveCAS(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	exec := testExecution(t)
	_ = s.Create(ctx, exec)

	// Успешный CAS инкрементирует версию
	exec.MarkWaiting("approval", time.Now().Add(time.Hour))
	if err := s.Save(ctx, exec, 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if exec.Version != 2 {
		t.Errorf("version = %d, want 2", exec.Version)
	}

	// Повторный CAS со старой версией — конфликт
	stale := exec.Clone()
	stale.MarkRunning()
	if err := s.Save(ctx, stale, 1); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale save err = %v, want ErrVersionConflict", err)
	}

	// Запись не изменилась
	got, _ := s.Get(ctx, exec.ID)
	if got.Status != domain.StatusWaiting || got.Version != 2 {
		t.Errorf("record changed by failed CAS: status=%s version=%d", got.Status, got.Version)
	}
}

func TestMemoryStore_ListDueWaiting(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	due := testExecution(t)
	due.MarkWaiting("approval", now.Add(-time.Minute))
	_ = s.Create(ctx, due)

	notDue := testExecution(t)
	notDue.MarkWaiting("approval", now.Add(time.Hour))
	_ = s.Create(ctx, notDue)

	running := testExecution(t)
	_ = s.Create(ctx, running)

	got, err := s.ListDueWaiting(ctx, now, 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Errorf("due = %d records, want exactly the expired one", len(got))
	}
}

func TestMemoryStore_ListFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := testExecution(t)
	_ = s.Create(ctx, a)

	b := testExecution(t)
	b.MarkCompleted("")
	_ = s.Create(ctx, b)

	running, err := s.List(ctx, Filter{Status: domain.StatusRunning})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(running) != 1 || running[0].ID != a.ID {
		t.Errorf("running filter returned %d records", len(running))
	}

	all, _ := s.List(ctx, Filter{Saga: "order"})
	if len(all) != 2 {
		t.Errorf("saga filter returned %d records, want 2", len(all))
	}

	none, _ := s.List(ctx, Filter{Saga: "other"})
	if len(none) != 0 {
		t.Errorf("unknown saga returned %d records", len(none))
	}
}

func TestMemoryStore_PurgeTerminal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	old := testExecution(t)
	old.MarkCompleted("")
	_ = s.Create(ctx, old)

	active := testExecution(t)
	_ = s.Create(ctx, active)

	purged, err := s.PurgeTerminal(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	if _, err := s.Get(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Error("terminal record should be purged")
	}
	if _, err := s.Get(ctx, active.ID); err != nil {
		t.Error("active record should survive purge")
	}
}

func TestMemoryStore_GetByIdempotencyKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	exec := testExecution(t)
	exec.IdempotencyKey = "order-42"
	_ = s.Create(ctx, exec)

	got, err := s.GetByIdempotencyKey(ctx, "order", "order-42")
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if got.ID != exec.ID {
		t.Error("wrong record returned")
	}

	if _, err := s.GetByIdempotencyKey(ctx, "order", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key err = %v, want ErrNotFound", err)
	}
}
