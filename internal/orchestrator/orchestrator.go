package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/mq"
	"github.com/shaiso/Orkestra/internal/runner"
	"github.com/shaiso/Orkestra/internal/store"
	"github.com/shaiso/Orkestra/internal/telemetry"
)

// Orchestrator двигает executions по шагам саги.
//
// Orchestrator не владеет жизненным циклом процесса: его методы
// вызываются engine'ом (из consumers и polling), API-сервисом
// (Submit/Cancel/Inspect) и sweeper'ом (Resume с событием timeout).
// Всё состояние живёт в Store; сам Orchestrator stateless и безопасен
// для конкурентного использования.
type Orchestrator struct {
	registry  *domain.Registry
	store     store.Store
	runner    *runner.Runner
	publisher *mq.Publisher
	clock     runner.Clock
	logger    *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Registry — реестр определений саг.
	Registry *domain.Registry

	// Store — хранилище execution-записей.
	Store store.Store

	// Runner — исполнитель шагов.
	Runner *runner.Runner

	// Publisher — публикация событий в MQ. Nil допустим: сервис
	// работает в режиме polling-only, без событий.
	Publisher *mq.Publisher

	// Clock — часы для метрик длительности (default: системные).
	Clock runner.Clock

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	clock := cfg.Clock
	if clock == nil {
		clock = runner.SystemClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		registry:  cfg.Registry,
		store:     cfg.Store,
		runner:    cfg.Runner,
		publisher: cfg.Publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Result — снимок execution после того, как оркестратор его отпустил.
type Result struct {
	// ExecutionID — идентификатор execution.
	ExecutionID uuid.UUID

	// Status — статус на момент возврата.
	Status domain.Status

	// Context — снапшот контекста.
	Context domain.Context

	// FailedStep — шаг, вызвавший компенсацию или FAILED.
	FailedStep string

	// Error — текст ошибки, если была.
	Error string

	// Reason — причина досрочного Terminate.
	Reason string
}

// Done возвращает true, если execution достиг терминального статуса.
func (r *Result) Done() bool {
	return r.Status.IsTerminal()
}

// Waiting возвращает true, если execution ждёт внешнего события.
func (r *Result) Waiting() bool {
	return r.Status == domain.StatusWaiting
}

// NeedsAttention возвращает true, если требуется ручное вмешательство.
func (r *Result) NeedsAttention() bool {
	return r.Status == domain.StatusCompensationFailed
}

// Submit создаёт новый execution для саги и публикует его в очередь.
//
// Не запускает выполнение сам: RUNNING-запись подхватит engine —
// по сообщению execution.submitted либо polling'ом. Непустой
// idempotencyKey дедуплицирует повторный submit: при совпадении ключа
// возвращается существующая запись без создания новой.
func (o *Orchestrator) Submit(ctx context.Context, saga string, initial map[string]any, idempotencyKey string) (*domain.Execution, error) {
	def, err := o.registry.Get(saga)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		existing, err := o.store.GetByIdempotencyKey(ctx, saga, idempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	exec := domain.NewExecution(def, domain.NewContext(initial))
	exec.IdempotencyKey = idempotencyKey

	if err := o.store.Create(ctx, exec); err != nil {
		return nil, err
	}

	telemetry.ExecutionsStarted.WithLabelValues(saga).Inc()
	o.logger.Info("execution submitted",
		"execution_id", exec.ID,
		"saga", saga,
	)

	if o.publisher != nil {
		if err := o.publisher.PublishExecutionSubmitted(ctx, exec.ID, saga); err != nil {
			// Не фатально: polling engine'а подхватит запись
			o.logger.Warn("failed to publish execution.submitted",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}

	return exec, nil
}

// Inspect возвращает текущее состояние execution.
func (o *Orchestrator) Inspect(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return o.store.Get(ctx, id)
}

// Cancel запрашивает отмену execution.
//
// Отмена кооперативная: идущий шаг не прерывается, флаг проверяется на
// границе шагов, после чего завершённый префикс компенсируется. Для
// WAITING-записи шага в полёте нет, поэтому она переводится в
// COMPENSATING сразу — откат выполнит engine.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	exec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if exec.Status.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}
	if exec.PendingCancel || exec.Status == domain.StatusCompensating {
		// Отмена уже в работе
		return exec, nil
	}

	if exec.Status == domain.StatusWaiting {
		exec.MarkCompensating("", "execution cancelled")
	} else {
		exec.MarkCancelRequested()
	}

	if err := o.store.Save(ctx, exec, exec.Version); err != nil {
		return nil, err
	}

	o.logger.Info("execution cancel requested",
		"execution_id", exec.ID,
		"saga", exec.Saga,
		"status", exec.Status,
	)
	return exec, nil
}

// result собирает Result из записи.
func (o *Orchestrator) result(exec *domain.Execution) *Result {
	return &Result{
		ExecutionID: exec.ID,
		Status:      exec.Status,
		Context:     exec.Context,
		FailedStep:  exec.FailedStep,
		Error:       exec.Error,
		Reason:      exec.Reason,
	}
}

// save персистит переход с CAS по текущей версии записи.
func (o *Orchestrator) save(ctx context.Context, exec *domain.Execution) error {
	return o.store.Save(ctx, exec, exec.Version)
}

// finish публикует терминальный переход: метрика + событие в MQ.
func (o *Orchestrator) finish(ctx context.Context, exec *domain.Execution) {
	telemetry.ExecutionsFinished.WithLabelValues(exec.Saga, string(exec.Status)).Inc()

	if o.publisher == nil {
		return
	}
	payload := mq.ExecutionFinishedPayload{
		ExecutionID: exec.ID,
		Saga:        exec.Saga,
		Status:      string(exec.Status),
		FailedStep:  exec.FailedStep,
		Error:       exec.Error,
	}
	if err := o.publisher.PublishExecutionFinished(ctx, payload); err != nil {
		o.logger.Warn("failed to publish execution.finished",
			"execution_id", exec.ID,
			"error", err,
		)
	}
}
