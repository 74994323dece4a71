package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/telemetry"
)

// Run двигает execution вперёд, пока тот не завершится или не
// приостановится.
//
// Run безопасно вызывать для записи в любом статусе: терминальная и
// WAITING записи возвращаются как есть, RUNNING прогоняется по шагам,
// COMPENSATING продолжает откат (восстановление после рестарта
// процесса). Отмена ctx останавливает работу между переходами, запись
// остаётся в текущем статусе и будет подхвачена recovery.
//
// Конфликт версий при сохранении (запись увёл другой исполнитель)
// возвращается как ошибка без внутренних retry: вызывающий перечитывает
// состояние и решает сам.
func (o *Orchestrator) Run(ctx context.Context, id uuid.UUID) (*Result, error) {
	exec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	def, err := o.registry.Get(exec.Saga)
	if err != nil {
		return nil, err
	}

	return o.drive(ctx, def, exec)
}

// drive — основной цикл оркестрации одного execution.
func (o *Orchestrator) drive(ctx context.Context, def *domain.Definition, exec *domain.Execution) (*Result, error) {
	logger := telemetry.WithSaga(telemetry.WithExecutionID(o.logger, exec.ID.String()), exec.Saga)

	for {
		switch {
		case exec.Status.IsTerminal():
			return o.result(exec), nil

		case exec.Status == domain.StatusWaiting:
			return o.result(exec), nil

		case exec.Status == domain.StatusCompensating:
			return o.compensate(ctx, def, exec, logger)
		}

		// StatusRunning: граница шага — точка кооперативной отмены
		if exec.PendingCancel {
			logger.Info("cancel observed at step boundary", "step_index", exec.StepIndex)
			exec.MarkCompensating("", "execution cancelled")
			if err := o.save(ctx, exec); err != nil {
				return nil, err
			}
			continue
		}

		step := def.Step(exec.StepIndex)
		stepLogger := telemetry.WithStep(logger, step.Name)

		start := o.clock.Now()
		res, err := o.runner.RunForward(ctx, step, exec.Context)
		telemetry.StepDuration.WithLabelValues(exec.Saga).Observe(o.clock.Now().Sub(start).Seconds())

		if err != nil {
			if ctx.Err() != nil {
				// Процесс останавливается: запись остаётся RUNNING,
				// её подхватит recovery после рестарта
				return nil, ctx.Err()
			}
			telemetry.StepsExecuted.WithLabelValues(exec.Saga, "failed").Inc()
			stepLogger.Error("step failed", "attempts", res.Attempts, "error", err)
			if err := o.beginFailure(ctx, exec, step.Name, res.Attempts, err); err != nil {
				return nil, err
			}
			if exec.IsFinished() {
				o.finish(ctx, exec)
			}
			continue
		}

		telemetry.StepsExecuted.WithLabelValues(exec.Saga, "ok").Inc()

		out := res.Outcome
		switch out.Kind {
		case domain.OutcomeContinue:
			exec.Context = out.Context.WithoutEvent()
			if err := exec.MarkStepCompleted(exec.StepIndex, res.Attempts); err != nil {
				return nil, err
			}
			exec.StepIndex++
			if exec.StepIndex >= def.Len() {
				exec.MarkCompleted("")
			}
			if err := o.save(ctx, exec); err != nil {
				return nil, err
			}
			if exec.IsFinished() {
				stepLogger.Info("execution completed")
				o.finish(ctx, exec)
			}

		case domain.OutcomeSuspend:
			if out.EventType == "" {
				stepLogger.Error("invalid suspend outcome", "error", ErrSuspendWithoutEvent)
				if err := o.beginFailure(ctx, exec, step.Name, res.Attempts, ErrSuspendWithoutEvent); err != nil {
					return nil, err
				}
				if exec.IsFinished() {
					o.finish(ctx, exec)
				}
				continue
			}
			exec.Context = out.Context.WithoutEvent()
			exec.MarkWaiting(out.EventType, out.Deadline)
			if err := o.save(ctx, exec); err != nil {
				return nil, err
			}
			stepLogger.Info("execution suspended",
				"event_type", out.EventType,
				"deadline", out.Deadline,
			)
			return o.result(exec), nil

		case domain.OutcomeJump:
			target, ok := def.IndexOf(out.Target)
			if !ok {
				cause := fmt.Errorf("%w: %q", ErrUnknownJumpTarget, out.Target)
				stepLogger.Error("invalid jump outcome", "error", cause)
				if err := o.beginFailure(ctx, exec, step.Name, res.Attempts, cause); err != nil {
					return nil, err
				}
				if exec.IsFinished() {
					o.finish(ctx, exec)
				}
				continue
			}
			exec.Context = out.Context.WithoutEvent()
			if target <= exec.StepIndex {
				// Прыжок назад: суффикс сбрасывается в PENDING,
				// компенсация для сброшенных шагов не запускается
				exec.ResetStepsFrom(target)
			} else {
				if err := exec.MarkStepCompleted(exec.StepIndex, res.Attempts); err != nil {
					return nil, err
				}
				exec.MarkStepsSkipped(exec.StepIndex+1, target)
			}
			exec.StepIndex = target
			if err := o.save(ctx, exec); err != nil {
				return nil, err
			}
			stepLogger.Info("execution jumped", "target", out.Target)

		case domain.OutcomeTerminate:
			exec.Context = out.Context.WithoutEvent()
			if err := exec.MarkStepCompleted(exec.StepIndex, res.Attempts); err != nil {
				return nil, err
			}
			exec.MarkCompleted(out.Reason)
			if err := o.save(ctx, exec); err != nil {
				return nil, err
			}
			stepLogger.Info("execution terminated early", "reason", out.Reason)
			o.finish(ctx, exec)
			return o.result(exec), nil

		default:
			return nil, fmt.Errorf("unknown outcome kind %d from step %q", out.Kind, step.Name)
		}

		// Перечитываем запись перед следующим шагом: видим PendingCancel
		// и чужие переходы
		reloaded, err := o.store.Get(ctx, exec.ID)
		if err != nil {
			return nil, err
		}
		exec = reloaded
	}
}

// beginFailure фиксирует невосстановимое падение шага.
//
// Если завершённых шагов нет — компенсировать нечего, execution сразу
// переходит в FAILED. Иначе запускается откат: COMPENSATING персистится
// до начала компенсации, чтобы рестарт процесса продолжил откат.
func (o *Orchestrator) beginFailure(ctx context.Context, exec *domain.Execution, stepName string, attempts int, cause error) error {
	exec.MarkStepFailed(exec.StepIndex, attempts)

	if len(exec.CompletedDescending()) == 0 {
		exec.MarkFailed(stepName, cause.Error())
	} else {
		exec.MarkCompensating(stepName, cause.Error())
	}

	return o.save(ctx, exec)
}
