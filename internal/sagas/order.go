package sagas

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Orkestra/internal/domain"
)

const (
	// SagaOrder — имя встроенной саги оформления заказа.
	SagaOrder = "order"

	// EventApprovalDecision — событие решения по заказу, которого
	// ждёт шаг approve.
	EventApprovalDecision = "approval.decision"

	// approvalThreshold — сумма, начиная с которой заказ требует
	// ручного подтверждения.
	approvalThreshold = 1000.0

	// approvalDeadline — сколько ждать решения по заказу.
	approvalDeadline = 24 * time.Hour
)

// Ключи контекста саги order.
const (
	keyAmount      = "amount"
	keyReservation = "reservation_id"
	keyPayment     = "payment_id"
	keyShipment    = "shipment_id"
	keyApprovedBy  = "approved_by"
)

// OrderSaga — сага оформления заказа: резерв товара, подтверждение
// для крупных сумм, списание оплаты, отгрузка.
//
// Шаги работают только с контекстом: сага демонстрирует механику
// (suspend/resume, terminate, компенсацию), а не интеграцию с
// внешними системами.
func OrderSaga(logger *slog.Logger) *domain.Definition {
	wrap := func(name string, f domain.ForwardFunc) domain.ForwardFunc {
		return domain.Decorate(f,
			domain.WithRecovery(),
			domain.WithLogging(logger, name),
		)
	}

	return domain.MustDefinition(SagaOrder,
		domain.Step{
			Name:       "reserve",
			Forward:    wrap("reserve", reserveStock),
			Compensate: releaseStock(logger),
			Timeout:    10 * time.Second,
			Retry: &domain.RetryPolicy{
				MaxAttempts:  3,
				Backoff:      domain.BackoffExponential,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     2 * time.Second,
			},
		},
		domain.Step{
			Name:    "approve",
			Forward: wrap("approve", approveOrder),
		},
		domain.Step{
			Name:       "charge",
			Forward:    wrap("charge", chargePayment),
			Compensate: refundPayment(logger),
			Timeout:    10 * time.Second,
			Retry: &domain.RetryPolicy{
				MaxAttempts:  3,
				Backoff:      domain.BackoffExponential,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     2 * time.Second,
			},
		},
		domain.Step{
			Name:    "ship",
			Forward: wrap("ship", shipOrder),
			Timeout: 10 * time.Second,
		},
	)
}

// reserveStock резервирует товар и кладёт идентификатор резерва в
// контекст.
func reserveStock(ctx context.Context, sc Context) (domain.Outcome, error) {
	amount, ok := sc.Value(keyAmount)
	if !ok {
		return domain.Outcome{}, domain.Failf("order saga: %q is required in the initial context", keyAmount)
	}
	if _, ok := toFloat(amount); !ok {
		return domain.Outcome{}, domain.Failf("order saga: %q must be a number, got %T", keyAmount, amount)
	}
	return domain.Continue(sc.With(keyReservation, "rsv-"+sc.String("order_id"))), nil
}

// releaseStock снимает резерв. Идемпотентен: повторный вызов на уже
// снятом резерве — no-op.
func releaseStock(logger *slog.Logger) domain.CompensateFunc {
	return func(ctx context.Context, sc Context) error {
		logger.Info("reservation released", "reservation_id", sc.String(keyReservation))
		return nil
	}
}

// approveOrder приостанавливает сагу до решения по крупному заказу.
// Мелкие заказы проходят без ожидания; jump поверх charge не нужен —
// шаг просто продолжает выполнение.
func approveOrder(ctx context.Context, sc Context) (domain.Outcome, error) {
	switch sc.EventType() {
	case "":
		amount, _ := toFloat(mustValue(sc, keyAmount))
		if amount < approvalThreshold {
			return domain.Continue(sc.With(keyApprovedBy, "auto")), nil
		}
		return domain.Suspend(sc, EventApprovalDecision, time.Now().Add(approvalDeadline)), nil

	case domain.EventTimeout:
		return domain.Outcome{}, domain.Failf("order saga: approval deadline expired")

	default:
		event := sc.Event()
		if approved, _ := event["approved"].(bool); !approved {
			reason, _ := event["reason"].(string)
			if reason == "" {
				reason = "order rejected"
			}
			return domain.Outcome{}, domain.Failf("order saga: %s", reason)
		}
		user, _ := event["user"].(string)
		return domain.Continue(sc.With(keyApprovedBy, user)), nil
	}
}

// chargePayment списывает оплату.
func chargePayment(ctx context.Context, sc Context) (domain.Outcome, error) {
	amount, _ := toFloat(mustValue(sc, keyAmount))
	if amount <= 0 {
		// Нулевой заказ: списывать и отгружать нечего.
		return domain.Terminate(sc, "nothing to charge"), nil
	}
	return domain.Continue(sc.With(keyPayment, "pay-"+sc.String("order_id"))), nil
}

// refundPayment возвращает оплату.
func refundPayment(logger *slog.Logger) domain.CompensateFunc {
	return func(ctx context.Context, sc Context) error {
		logger.Info("payment refunded", "payment_id", sc.String(keyPayment))
		return nil
	}
}

// shipOrder оформляет отгрузку. Компенсации нет: отгрузка — последний
// шаг, после неё сага завершается.
func shipOrder(ctx context.Context, sc Context) (domain.Outcome, error) {
	return domain.Continue(sc.With(keyShipment, "shp-"+sc.String("order_id"))), nil
}

// Context — алиас для краткости сигнатур шагов.
type Context = domain.Context

func mustValue(sc Context, key string) any {
	v, _ := sc.Value(key)
	return v
}

// toFloat приводит числовое значение контекста к float64.
// После JSON-десериализации числа приходят как float64, но шаги
// вызываются и с контекстом, собранным в коде.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
