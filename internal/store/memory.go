package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/domain"
)

// MemoryStore — in-memory реализация Store с теми же CAS-семантиками,
// что и у Postgres-реализации. Используется тестами ядра.
type MemoryStore struct {
	mu    sync.RWMutex
	execs map[uuid.UUID]*domain.Execution
}

// NewMemoryStore создаёт пустой MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{execs: make(map[uuid.UUID]*domain.Execution)}
}

// Create сохраняет новую запись.
func (s *MemoryStore) Create(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.execs[exec.ID]; exists {
		return ErrAlreadyExists
	}
	s.execs[exec.ID] = exec.Clone()
	return nil
}

// Get возвращает копию записи по ID.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.execs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return exec.Clone(), nil
}

// Save записывает состояние с проверкой версии.
func (s *MemoryStore) Save(ctx context.Context, exec *domain.Execution, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.execs[exec.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}

	exec.Version = expectedVersion + 1
	s.execs[exec.ID] = exec.Clone()
	return nil
}

// List возвращает записи по фильтру, новые первыми.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var execs []domain.Execution
	for _, exec := range s.execs {
		if filter.Saga != "" && exec.Saga != filter.Saga {
			continue
		}
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		execs = append(execs, *exec.Clone())
	}

	sort.Slice(execs, func(i, j int) bool {
		return execs[i].CreatedAt.After(execs[j].CreatedAt)
	})

	return paginate(execs, filter.Limit, filter.Offset), nil
}

// ListRunning возвращает RUNNING/COMPENSATING записи, старые первыми.
func (s *MemoryStore) ListRunning(ctx context.Context, limit int) ([]domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var execs []domain.Execution
	for _, exec := range s.execs {
		if exec.Status == domain.StatusRunning || exec.Status == domain.StatusCompensating {
			execs = append(execs, *exec.Clone())
		}
	}

	sort.Slice(execs, func(i, j int) bool {
		return execs[i].CreatedAt.Before(execs[j].CreatedAt)
	})

	return paginate(execs, limit, 0), nil
}

// ListDueWaiting возвращает WAITING-записи с истёкшим дедлайном.
func (s *MemoryStore) ListDueWaiting(ctx context.Context, now time.Time, limit int) ([]domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var execs []domain.Execution
	for _, exec := range s.execs {
		if exec.Status != domain.StatusWaiting || exec.Wait == nil {
			continue
		}
		if exec.Wait.Deadline.After(now) {
			continue
		}
		execs = append(execs, *exec.Clone())
	}

	sort.Slice(execs, func(i, j int) bool {
		return execs[i].Wait.Deadline.Before(execs[j].Wait.Deadline)
	})

	return paginate(execs, limit, 0), nil
}

// GetByIdempotencyKey ищет запись по ключу идемпотентности.
func (s *MemoryStore) GetByIdempotencyKey(ctx context.Context, saga, key string) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, exec := range s.execs {
		if exec.Saga == saga && exec.IdempotencyKey == key {
			return exec.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// PurgeTerminal удаляет терминальные записи старше before.
func (s *MemoryStore) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, exec := range s.execs {
		if exec.IsFinished() && exec.UpdatedAt.Before(before) {
			delete(s.execs, id)
			purged++
		}
	}
	return purged, nil
}

// paginate применяет limit/offset к отсортированному срезу.
func paginate(execs []domain.Execution, limit, offset int) []domain.Execution {
	if offset > 0 {
		if offset >= len(execs) {
			return nil
		}
		execs = execs[offset:]
	}
	if limit > 0 && limit < len(execs) {
		execs = execs[:limit]
	}
	return execs
}
