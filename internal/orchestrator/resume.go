package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/telemetry"
)

// Resume доставляет внешнее событие в WAITING execution и продолжает
// выполнение с ждущего шага.
//
// Валидация:
//   - запись должна существовать (store.ErrNotFound иначе);
//   - запись должна быть в WAITING (ErrInvalidState иначе — в том
//     числе для повторной доставки уже потреблённого события);
//   - тип события должен совпадать с условием ожидания
//     (ErrEventMismatch иначе); зарезервированный тип EventTimeout
//     принимается всегда — им sweeper доставляет истечение дедлайна.
//
// Переход WAITING→RUNNING персистится через CAS до повторного вызова
// шага: из конкурирующих resume ровно один выигрывает, остальные
// получают store.ErrVersionConflict и ничего не выполняют. Событие
// доступно шагу через Context.Event(), в снапшот не сериализуется.
func (o *Orchestrator) Resume(ctx context.Context, id uuid.UUID, eventType string, payload map[string]any) (*Result, error) {
	exec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if exec.Status != domain.StatusWaiting || exec.Wait == nil {
		return nil, fmt.Errorf("%w: status %s", ErrInvalidState, exec.Status)
	}
	if eventType != exec.Wait.EventType && eventType != domain.EventTimeout {
		return nil, fmt.Errorf("%w: want %q, got %q", ErrEventMismatch, exec.Wait.EventType, eventType)
	}

	def, err := o.registry.Get(exec.Saga)
	if err != nil {
		return nil, err
	}

	// CAS-переход до выполнения шага: победитель ровно один
	exec.Context = exec.Context.WithEvent(eventType, payload)
	exec.MarkRunning()
	if err := o.save(ctx, exec); err != nil {
		return nil, err
	}

	telemetry.WithSaga(telemetry.WithExecutionID(o.logger, exec.ID.String()), exec.Saga).Info(
		"execution resumed",
		"event_type", eventType,
	)

	return o.drive(ctx, def, exec)
}
