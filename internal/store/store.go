package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/domain"
)

// Общие ошибки хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("execution not found")

	// ErrAlreadyExists — запись с таким ID уже существует.
	ErrAlreadyExists = errors.New("execution already exists")

	// ErrVersionConflict — версия записи изменилась с момента загрузки.
	// Проигравший CAS должен перечитать запись и решить, что делать;
	// хранилище никогда не перезаписывает вслепую.
	ErrVersionConflict = errors.New("execution version conflict")
)

// Filter — параметры выборки executions.
type Filter struct {
	Saga   string
	Status domain.Status
	Limit  int
	Offset int
}

// Store — порт персистенции execution-записей.
//
// Каждый вызов атомарен. Save использует expectedVersion как
// optimistic-concurrency токен: при несовпадении возвращается
// ErrVersionConflict и запись не меняется; при успехе версия записи
// инкрементируется (и в хранилище, и в переданном объекте).
type Store interface {
	// Create сохраняет новую запись.
	Create(ctx context.Context, exec *domain.Execution) error

	// Get возвращает копию записи по ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Execution, error)

	// Save записывает полное состояние записи с проверкой версии.
	Save(ctx context.Context, exec *domain.Execution, expectedVersion int64) error

	// List возвращает записи по фильтру, новые первыми.
	List(ctx context.Context, filter Filter) ([]domain.Execution, error)

	// ListRunning возвращает записи в статусе RUNNING или COMPENSATING,
	// старые первыми. Используется engine'ом для восстановления после
	// рестарта процесса.
	ListRunning(ctx context.Context, limit int) ([]domain.Execution, error)

	// ListDueWaiting возвращает WAITING-записи с истёкшим дедлайном
	// ожидания. Используется sweeper'ом для доставки события timeout.
	ListDueWaiting(ctx context.Context, now time.Time, limit int) ([]domain.Execution, error)

	// GetByIdempotencyKey ищет запись по ключу идемпотентности submit.
	GetByIdempotencyKey(ctx context.Context, saga, key string) (*domain.Execution, error)

	// PurgeTerminal удаляет терминальные записи, не менявшиеся с
	// указанного момента. Возвращает количество удалённых.
	PurgeTerminal(ctx context.Context, before time.Time) (int64, error)
}
