package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики ядра оркестрации. Экспортируются через /metrics каждого
// сервиса (promhttp в cmd/*).
var (
	// ExecutionsStarted — количество принятых submit'ов.
	ExecutionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orkestra_executions_started_total",
		Help: "Executions accepted by submit",
	}, []string{"saga"})

	// ExecutionsFinished — количество терминальных переходов по статусам.
	// Статус COMPENSATION_FAILED — сигнал для алертинга.
	ExecutionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orkestra_executions_finished_total",
		Help: "Executions that reached a terminal status",
	}, []string{"saga", "status"})

	// StepsExecuted — количество выполненных forward-действий по результату.
	StepsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orkestra_steps_executed_total",
		Help: "Forward step actions by result",
	}, []string{"saga", "result"})

	// StepDuration — длительность forward-действий (включая retry).
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orkestra_step_duration_seconds",
		Help:    "Forward step action duration including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"saga"})

	// CompensationsExecuted — количество компенсирующих действий по результату.
	CompensationsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orkestra_compensations_executed_total",
		Help: "Compensating actions by result",
	}, []string{"saga", "result"})
)
