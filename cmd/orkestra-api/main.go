// Orkestra API — HTTP-интерфейс к оркестратору саг.
//
// API:
//   - Показывает зарегистрированные саги
//   - Запускает executions и публикует их в RabbitMQ для engine
//   - Принимает внешние события и запросы отмены
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Orkestra/internal/api"
	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/mq"
	"github.com/shaiso/Orkestra/internal/orchestrator"
	"github.com/shaiso/Orkestra/internal/runner"
	"github.com/shaiso/Orkestra/internal/sagas"
	"github.com/shaiso/Orkestra/internal/store"
	"github.com/shaiso/Orkestra/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orkestra_api_http_requests_total",
		Help: "Total HTTP requests handled by orkestra_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting orkestra-api")

	// Подключаемся к базе данных
	pool, err := store.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	repo := store.NewExecutionRepo(pool)

	// Реестр саг
	registry := domain.NewRegistry()
	if err := sagas.RegisterBuiltins(registry, logger); err != nil {
		logger.Error("failed to register sagas", "error", err)
		os.Exit(1)
	}

	// RabbitMQ: при недоступности события не публикуются,
	// engine подхватывает записи через polling
	var publisher *mq.Publisher
	mqConn, err := mq.NewConnection(mq.URL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events will rely on engine polling", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
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

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Registry:  registry,
		Orch:      orch,
		Store:     repo,
		Publisher: publisher,
		Logger:    logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
