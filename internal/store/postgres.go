package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Orkestra/internal/domain"
)

// ExecutionRepo — Postgres-реализация Store.
//
// CAS реализован условием WHERE version = $expected: UPDATE, не
// затронувший строк, означает либо отсутствие записи, либо конфликт
// версий — различаем дополнительным SELECT.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

const executionColumns = `
	id, saga, status, step_index, steps, context,
	wait_event, wait_deadline, pending_cancel,
	failed_step, error, reason, idempotency_key,
	version, created_at, updated_at
`

// Create сохраняет новую запись.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	stepsJSON, contextJSON, err := marshalState(exec)
	if err != nil {
		return err
	}

	var waitEvent *string
	var waitDeadline *time.Time
	if exec.Wait != nil {
		waitEvent = &exec.Wait.EventType
		waitDeadline = &exec.Wait.Deadline
	}

	query := `
		INSERT INTO executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.Saga,
		exec.Status,
		exec.StepIndex,
		stepsJSON,
		contextJSON,
		waitEvent,
		waitDeadline,
		exec.PendingCancel,
		nullString(exec.FailedStep),
		nullString(exec.Error),
		nullString(exec.Reason),
		nullString(exec.IdempotencyKey),
		exec.Version,
		exec.CreatedAt,
		exec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Get возвращает запись по ID.
func (r *ExecutionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// Save записывает полное состояние записи с проверкой версии.
func (r *ExecutionRepo) Save(ctx context.Context, exec *domain.Execution, expectedVersion int64) error {
	stepsJSON, contextJSON, err := marshalState(exec)
	if err != nil {
		return err
	}

	var waitEvent *string
	var waitDeadline *time.Time
	if exec.Wait != nil {
		waitEvent = &exec.Wait.EventType
		waitDeadline = &exec.Wait.Deadline
	}

	query := `
		UPDATE executions
		SET status = $2, step_index = $3, steps = $4, context = $5,
		    wait_event = $6, wait_deadline = $7, pending_cancel = $8,
		    failed_step = $9, error = $10, reason = $11,
		    version = $12, updated_at = $13
		WHERE id = $1 AND version = $14
	`
	result, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.Status,
		exec.StepIndex,
		stepsJSON,
		contextJSON,
		waitEvent,
		waitDeadline,
		exec.PendingCancel,
		nullString(exec.FailedStep),
		nullString(exec.Error),
		nullString(exec.Reason),
		expectedVersion+1,
		exec.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Строка не затронута: записи нет или версия ушла вперёд
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM executions WHERE id = $1)`, exec.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check execution existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	exec.Version = expectedVersion + 1
	return nil
}

// List возвращает записи по фильтру, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter Filter) ([]domain.Execution, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE ($1::text IS NULL OR saga = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Saga),
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListRunning возвращает RUNNING/COMPENSATING записи, старые первыми.
func (r *ExecutionRepo) ListRunning(ctx context.Context, limit int) ([]domain.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE status IN ('RUNNING', 'COMPENSATING')
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list running executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListDueWaiting возвращает WAITING-записи с истёкшим дедлайном.
func (r *ExecutionRepo) ListDueWaiting(ctx context.Context, now time.Time, limit int) ([]domain.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE status = 'WAITING' AND wait_deadline <= $1
		ORDER BY wait_deadline ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// GetByIdempotencyKey ищет запись по ключу идемпотентности submit.
func (r *ExecutionRepo) GetByIdempotencyKey(ctx context.Context, saga, key string) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE saga = $1 AND idempotency_key = $2`
	return scanExecution(r.pool.QueryRow(ctx, query, saga, key))
}

// PurgeTerminal удаляет терминальные записи, не менявшиеся с before.
func (r *ExecutionRepo) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM executions
		WHERE status IN ('COMPLETED', 'FAILED', 'COMPENSATED', 'COMPENSATION_FAILED')
		  AND updated_at < $1
	`
	result, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("purge executions: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

// marshalState сериализует steps и context в jsonb.
func marshalState(exec *domain.Execution) (stepsJSON, contextJSON []byte, err error) {
	stepsJSON, err = json.Marshal(exec.Steps)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal steps: %w", err)
	}
	contextJSON, err = json.Marshal(exec.Context)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal context: %w", err)
	}
	return stepsJSON, contextJSON, nil
}

// scanExecution сканирует одну строку в Execution.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var stepsJSON, contextJSON []byte
	var waitEvent *string
	var waitDeadline *time.Time
	var failedStep, execError, reason, idempotencyKey *string

	err := row.Scan(
		&exec.ID,
		&exec.Saga,
		&exec.Status,
		&exec.StepIndex,
		&stepsJSON,
		&contextJSON,
		&waitEvent,
		&waitDeadline,
		&exec.PendingCancel,
		&failedStep,
		&execError,
		&reason,
		&idempotencyKey,
		&exec.Version,
		&exec.CreatedAt,
		&exec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if err := json.Unmarshal(stepsJSON, &exec.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := json.Unmarshal(contextJSON, &exec.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}

	if waitEvent != nil && waitDeadline != nil {
		exec.Wait = &domain.WaitCondition{EventType: *waitEvent, Deadline: *waitDeadline}
	}
	if failedStep != nil {
		exec.FailedStep = *failedStep
	}
	if execError != nil {
		exec.Error = *execError
	}
	if reason != nil {
		exec.Reason = *reason
	}
	if idempotencyKey != nil {
		exec.IdempotencyKey = *idempotencyKey
	}

	return &exec, nil
}

// collectExecutions сканирует все строки результата.
func collectExecutions(rows pgx.Rows) ([]domain.Execution, error) {
	var execs []domain.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}

// nullString возвращает nil для пустой строки (NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
