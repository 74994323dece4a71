package orchestrator

import (
	"context"
	"log/slog"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/telemetry"
)

// compensate откатывает завершённый префикс execution.
//
// Шаги компенсируются в строго убывающем порядке индексов; каждый
// откаченный шаг персистится отдельным переходом, поэтому рестарт
// процесса продолжает откат с места обрыва, не повторяя уже
// откаченные шаги (сами компенсации при этом at-least-once —
// CompensateFunc обязана быть идемпотентной).
//
// Первое падение компенсации прекращает откат: execution переходит в
// COMPENSATION_FAILED, более ранние шаги остаются неоткаченными и
// ждут вмешательства оператора.
func (o *Orchestrator) compensate(ctx context.Context, def *domain.Definition, exec *domain.Execution, logger *slog.Logger) (*Result, error) {
	for _, i := range exec.CompletedDescending() {
		step := def.Step(i)
		stepLogger := telemetry.WithStep(logger, step.Name)

		if err := o.runner.RunCompensation(ctx, step, exec.Context); err != nil {
			if ctx.Err() != nil {
				// Запись остаётся COMPENSATING, откат продолжит recovery
				return nil, ctx.Err()
			}
			telemetry.CompensationsExecuted.WithLabelValues(exec.Saga, "failed").Inc()
			stepLogger.Error("compensation failed", "error", err)

			exec.MarkCompensationFailed(step.Name, err.Error())
			if err := o.save(ctx, exec); err != nil {
				return nil, err
			}
			o.finish(ctx, exec)
			return o.result(exec), nil
		}

		telemetry.CompensationsExecuted.WithLabelValues(exec.Saga, "ok").Inc()
		stepLogger.Debug("step compensated")

		exec.MarkStepCompensated(i)
		if err := o.save(ctx, exec); err != nil {
			return nil, err
		}
	}

	exec.MarkCompensated()
	if err := o.save(ctx, exec); err != nil {
		return nil, err
	}

	logger.Info("execution compensated", "failed_step", exec.FailedStep)
	o.finish(ctx, exec)
	return o.result(exec), nil
}
