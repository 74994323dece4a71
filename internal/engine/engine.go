package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/mq"
	"github.com/shaiso/Orkestra/internal/orchestrator"
	"github.com/shaiso/Orkestra/internal/store"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
)

// Engine подхватывает executions и двигает их через Orchestrator.
type Engine struct {
	orch  *orchestrator.Orchestrator
	store store.Store

	// MQ (nil conn — режим polling-only)
	conn *mq.Connection

	// Active executions — записи, которые прямо сейчас гонит этот
	// процесс (id → присутствие)
	active map[uuid.UUID]struct{}
	mu     sync.RWMutex

	// Consumers
	execConsumer  *mq.Consumer
	eventConsumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Engine.
type Config struct {
	// Orchestrator — ядро оркестрации.
	Orchestrator *orchestrator.Orchestrator

	// Store — хранилище execution-записей.
	Store store.Store

	// Conn — подключение к RabbitMQ. Nil допустим: engine работает
	// только на polling.
	Conn *mq.Connection

	// PollInterval — интервал polling (default: 10s).
	PollInterval time.Duration

	// BatchSize — количество записей за один poll (default: 100).
	BatchSize int

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		orch:         cfg.Orchestrator,
		store:        cfg.Store,
		conn:         cfg.Conn,
		active:       make(map[uuid.UUID]struct{}),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает Engine.
//
// Запускает:
//   - Consumer для executions.submitted
//   - Consumer для events.incoming
//   - Polling горутину для fallback и recovery
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancelFunc = cancel

	e.logger.Info("starting engine",
		"poll_interval", e.pollInterval,
		"batch_size", e.batchSize,
		"mq", e.conn != nil,
	)

	if e.conn != nil {
		e.execConsumer = mq.NewConsumer(e.conn, e.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueExecutionsSubmitted),
			Handler:  e.handleExecutionSubmitted,
			Prefetch: 10,
		})

		e.eventConsumer = mq.NewConsumer(e.conn, e.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueExecutionEvents),
			Handler:  e.handleExternalEvent,
			Prefetch: 10,
		})

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.execConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("execution consumer error", "error", err)
			}
		}()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.eventConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("event consumer error", "error", err)
			}
		}()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()

	e.logger.Info("engine started")
	return nil
}

// Stop останавливает Engine.
//
// Идущие шаги дорабатывают до границы шага: отмена контекста оставляет
// записи в RUNNING/COMPENSATING, после рестарта их подхватит polling.
func (e *Engine) Stop() {
	e.logger.Info("stopping engine...")

	if e.cancelFunc != nil {
		e.cancelFunc()
	}

	if e.execConsumer != nil {
		e.execConsumer.Stop()
	}
	if e.eventConsumer != nil {
		e.eventConsumer.Stop()
	}

	e.wg.Wait()

	e.logger.Info("engine stopped")
}

// pollLoop — цикл polling для fallback и recovery.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте: подхватываем записи, оставшиеся
	// RUNNING/COMPENSATING после рестарта процесса
	e.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (e *Engine) poll(ctx context.Context) {
	execs, err := e.store.ListRunning(ctx, e.batchSize)
	if err != nil {
		e.logger.Error("failed to list running executions", "error", err)
		return
	}

	if len(execs) == 0 {
		return
	}

	e.logger.Debug("poll found runnable executions", "count", len(execs))

	for i := range execs {
		e.process(ctx, execs[i].ID)
	}
}

// process запускает прогон execution в отдельной горутине.
// Запись, которую процесс уже гонит, пропускается.
func (e *Engine) process(ctx context.Context, id uuid.UUID) {
	if !e.addActive(id) {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.removeActive(id)

		res, err := e.orch.Run(ctx, id)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				// Останавливаемся, запись подберёт recovery
			case errors.Is(err, store.ErrVersionConflict):
				// Запись увёл другой процесс
				e.logger.Debug("execution taken by another process", "execution_id", id)
			default:
				e.logger.Error("failed to run execution", "execution_id", id, "error", err)
			}
			return
		}

		e.logger.Debug("execution released",
			"execution_id", id,
			"status", res.Status,
		)
	}()
}

// addActive добавляет execution в активные.
// false — запись уже обрабатывается этим процессом.
func (e *Engine) addActive(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.active[id]; exists {
		return false
	}
	e.active[id] = struct{}{}
	return true
}

// removeActive удаляет execution из активных.
func (e *Engine) removeActive(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, id)
}

// isActive проверяет, гонит ли процесс эту запись.
func (e *Engine) isActive(id uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.active[id]
	return exists
}

// ActiveCount возвращает количество активных executions.
func (e *Engine) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}
