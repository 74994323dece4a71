// Orkestra Engine — выполняет executions саг.
//
// Engine:
//   - Получает новые executions из RabbitMQ
//   - Прогоняет шаги через orchestrator, при сбоях запускает компенсацию
//   - Доставляет внешние события в WAITING executions
//   - Подхватывает осиротевшие записи через polling после рестартов
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/engine"
	"github.com/shaiso/Orkestra/internal/mq"
	"github.com/shaiso/Orkestra/internal/orchestrator"
	"github.com/shaiso/Orkestra/internal/runner"
	"github.com/shaiso/Orkestra/internal/sagas"
	"github.com/shaiso/Orkestra/internal/store"
	"github.com/shaiso/Orkestra/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting orkestra-engine")

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

	// Реестр саг
	registry := domain.NewRegistry()
	if err := sagas.RegisterBuiltins(registry, logger); err != nil {
		logger.Error("failed to register sagas", "error", err)
		os.Exit(1)
	}

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqConn, err = mq.NewConnection(mq.URL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	orch := orchestrator.New(orchestrator.Config{
		Registry:  registry,
		Store:     repo,
		Runner:    runner.New(runner.Config{Logger: logger}),
		Publisher: publisher,
		Logger:    logger,
	})

	// Создаём engine
	eng := engine.New(engine.Config{
		Orchestrator: orch,
		Store:        repo,
		Conn:         mqConn,
		Logger:       logger,
	})

	// Запускаем engine
	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ENGINE_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем engine
	eng.Stop()
	logger.Info("orkestra-engine stopped")
}
