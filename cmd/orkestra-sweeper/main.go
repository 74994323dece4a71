// Orkestra Sweeper — доставляет таймауты ожидания и чистит
// терминальные executions.
//
// Sweeper — синглтон: лидерство между репликами разыгрывается
// через pg advisory lock.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/orchestrator"
	"github.com/shaiso/Orkestra/internal/runner"
	"github.com/shaiso/Orkestra/internal/sagas"
	"github.com/shaiso/Orkestra/internal/store"
	"github.com/shaiso/Orkestra/internal/sweeper"
	"github.com/shaiso/Orkestra/internal/telemetry"
)

const sweeperLockKey int64 = 515151

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting orkestra-sweeper")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := store.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	repo := store.NewExecutionRepo(pool)

	// Реестр саг: Resume выполняет шаг, которому доставлен таймаут
	registry := domain.NewRegistry()
	if err := sagas.RegisterBuiltins(registry, logger); err != nil {
		logger.Error("failed to register sagas", "error", err)
		os.Exit(1)
	}

	orch := orchestrator.New(orchestrator.Config{
		Registry: registry,
		Store:    repo,
		Runner:   runner.New(runner.Config{Logger: logger}),
		Logger:   logger,
	})

	sw, err := sweeper.New(sweeper.Config{
		Store:        repo,
		Orchestrator: orch,
		PurgeSpec:    os.Getenv("SWEEPER_PURGE_SPEC"),
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to create sweeper", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// лидерство: sweeper стартует только после захвата advisory lock
	go func() {
		tk := time.NewTicker(time.Second)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", sweeperLockKey)
			}
		}()

		for !hasLock {
			select {
			case <-tk.C:
				if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", sweeperLockKey).Scan(&hasLock); err != nil {
					logger.Warn("advisory lock attempt failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}

		logger.Info("acquired leadership, starting sweeper")
		if err := sw.Start(ctx); err != nil {
			logger.Error("failed to start sweeper", "error", err)
			cancel()
			return
		}

		<-ctx.Done()
		sw.Stop()
	}()

	// serve
	port := ":8081"
	if v := os.Getenv("SWEEPER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("orkestra-sweeper stopped")
}
