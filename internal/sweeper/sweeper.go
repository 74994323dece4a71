package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/orchestrator"
	"github.com/shaiso/Orkestra/internal/runner"
	"github.com/shaiso/Orkestra/internal/store"
)

// Default configuration values.
const (
	defaultSweepInterval = 15 * time.Second
	defaultBatchSize     = 100
	defaultRetention     = 30 * 24 * time.Hour
	defaultPurgeSpec     = "0 3 * * *"
)

// Sweeper доставляет таймауты ожидания и чистит старые записи.
type Sweeper struct {
	store store.Store
	orch  *orchestrator.Orchestrator
	clock runner.Clock

	sweepInterval time.Duration
	batchSize     int

	retention time.Duration
	purgeSpec string
	cron      *cron.Cron

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Sweeper.
type Config struct {
	// Store — хранилище execution-записей.
	Store store.Store

	// Orchestrator — ядро оркестрации (для Resume).
	Orchestrator *orchestrator.Orchestrator

	// Clock — часы (default: системные).
	Clock runner.Clock

	// SweepInterval — интервал проверки дедлайнов (default: 15s).
	SweepInterval time.Duration

	// BatchSize — количество записей за один тик (default: 100).
	BatchSize int

	// Retention — сколько хранить терминальные записи (default: 30d).
	Retention time.Duration

	// PurgeSpec — cron-выражение запуска очистки (default: "0 3 * * *").
	PurgeSpec string

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Sweeper.
func New(cfg Config) (*Sweeper, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = runner.SystemClock()
	}

	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	purgeSpec := cfg.PurgeSpec
	if purgeSpec == "" {
		purgeSpec = defaultPurgeSpec
	}
	if err := ValidateCronExpr(purgeSpec); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		store:         cfg.Store,
		orch:          cfg.Orchestrator,
		clock:         clock,
		sweepInterval: sweepInterval,
		batchSize:     batchSize,
		retention:     retention,
		purgeSpec:     purgeSpec,
		logger:        logger,
	}, nil
}

// Start запускает Sweeper: цикл проверки дедлайнов и cron очистки.
func (s *Sweeper) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting sweeper",
		"sweep_interval", s.sweepInterval,
		"retention", s.retention,
		"purge_spec", s.purgeSpec,
	)

	s.cron = cron.New(cron.WithParser(cronParser))
	if _, err := s.cron.AddFunc(s.purgeSpec, func() {
		if err := s.Purge(ctx); err != nil {
			s.logger.Error("retention purge failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule purge job: %w", err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sweepLoop(ctx)
	}()

	s.logger.Info("sweeper started")
	return nil
}

// Stop останавливает Sweeper.
func (s *Sweeper) Stop() {
	s.logger.Info("stopping sweeper...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()

	s.logger.Info("sweeper stopped")
}

// sweepLoop — цикл проверки дедлайнов ожидания.
func (s *Sweeper) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	if err := s.Tick(ctx); err != nil {
		s.logger.Error("sweep tick failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("sweep tick failed", "error", err)
			}
		}
	}
}

// Tick выполняет один проход по просроченным ожиданиям.
//
// Каждой WAITING-записи с истёкшим дедлайном доставляется
// зарезервированное событие timeout через Resume Gateway. Ошибки одной
// записи не блокируют остальные; проигрыш CAS (запись успел
// возобновить настоящий доставщик события) — не ошибка.
func (s *Sweeper) Tick(ctx context.Context) error {
	now := s.clock.Now()

	execs, err := s.store.ListDueWaiting(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due waiting executions: %w", err)
	}

	if len(execs) == 0 {
		return nil
	}

	s.logger.Debug("found expired wait deadlines", "count", len(execs))

	var delivered int
	for i := range execs {
		exec := &execs[i]

		res, err := s.orch.Resume(ctx, exec.ID, domain.EventTimeout, nil)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				return err
			case errors.Is(err, store.ErrNotFound),
				errors.Is(err, store.ErrVersionConflict),
				errors.Is(err, orchestrator.ErrInvalidState):
				// Запись исчезла или её успело возобновить настоящее событие
				s.logger.Debug("timeout delivery lost the race",
					"execution_id", exec.ID,
					"reason", err,
				)
				continue
			default:
				s.logger.Error("failed to deliver timeout",
					"execution_id", exec.ID,
					"saga", exec.Saga,
					"error", err,
				)
				continue
			}
		}

		delivered++
		s.logger.Info("wait deadline expired",
			"execution_id", exec.ID,
			"saga", exec.Saga,
			"status", res.Status,
		)
	}

	s.logger.Info("sweep tick completed",
		"due", len(execs),
		"delivered", delivered,
	)
	return nil
}

// Purge удаляет терминальные записи старше retention-окна.
func (s *Sweeper) Purge(ctx context.Context) error {
	before := s.clock.Now().Add(-s.retention)

	purged, err := s.store.PurgeTerminal(ctx, before)
	if err != nil {
		return fmt.Errorf("purge terminal executions: %w", err)
	}

	s.logger.Info("retention purge completed",
		"before", before,
		"purged", purged,
	)
	return nil
}
