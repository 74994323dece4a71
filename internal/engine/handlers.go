package engine

import (
	"context"
	"errors"

	"github.com/shaiso/Orkestra/internal/mq"
	"github.com/shaiso/Orkestra/internal/orchestrator"
	"github.com/shaiso/Orkestra/internal/store"
)

// handleExecutionSubmitted обрабатывает событие о новом execution.
func (e *Engine) handleExecutionSubmitted(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExecutionSubmittedPayload](&delivery.Message)
	if err != nil {
		e.logger.Error("failed to parse execution.submitted payload", "error", err)
		return err
	}

	e.logger.Debug("received execution.submitted event",
		"execution_id", payload.ExecutionID,
		"saga", payload.Saga,
	)

	// Прогон длинный (таймауты, retry, ожидания) — в горутину,
	// сообщение подтверждаем сразу: источник истины БД, потерянное
	// сообщение догонит polling
	e.process(ctx, payload.ExecutionID)
	return nil
}

// handleExternalEvent доставляет внешнее событие в WAITING execution.
//
// Ошибки валидации шлюза (записи нет, запись не ждёт, тип события не
// совпал) не ретраятся: это либо устаревшая доставка, либо чужое
// событие — сообщение подтверждается и отбрасывается. Конфликт версий
// возвращается как ошибка, сообщение уходит на повторную доставку.
func (e *Engine) handleExternalEvent(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExternalEventPayload](&delivery.Message)
	if err != nil {
		e.logger.Error("failed to parse execution.event payload", "error", err)
		return err
	}

	e.logger.Debug("received execution.event",
		"execution_id", payload.ExecutionID,
		"event_type", payload.EventType,
	)

	res, err := e.orch.Resume(ctx, payload.ExecutionID, payload.EventType, payload.Payload)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound),
			errors.Is(err, orchestrator.ErrInvalidState),
			errors.Is(err, orchestrator.ErrEventMismatch):
			e.logger.Warn("event not deliverable, dropping",
				"execution_id", payload.ExecutionID,
				"event_type", payload.EventType,
				"reason", err,
			)
			return nil
		default:
			e.logger.Error("failed to resume execution",
				"execution_id", payload.ExecutionID,
				"event_type", payload.EventType,
				"error", err,
			)
			return err
		}
	}

	e.logger.Info("execution resumed by event",
		"execution_id", payload.ExecutionID,
		"event_type", payload.EventType,
		"status", res.Status,
	)
	return nil
}
