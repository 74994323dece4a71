package runner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaiso/Orkestra/internal/domain"
)

// Runner выполняет действие одного шага под таймаутом и RetryPolicy.
type Runner struct {
	clock  Clock
	logger *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Clock — часы для таймаутов и пауз (default: системные).
	Clock Clock

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{clock: clock, logger: logger}
}

// ForwardResult — результат RunForward.
type ForwardResult struct {
	// Outcome — исход успешного forward-действия.
	Outcome domain.Outcome

	// Attempts — сколько попыток было сделано.
	Attempts int
}

// RunForward выполняет forward-действие шага с retry по политике.
//
// Возвращает ошибку, когда попытки исчерпаны либо ошибка классифицирована
// как non-retryable. Отмена контекста прерывает и попытки, и паузы.
func (r *Runner) RunForward(ctx context.Context, step domain.Step, sc domain.Context) (*ForwardResult, error) {
	maxAttempts := step.Retry.Attempts()

	var lastErr error
	for attempt := 1; ; attempt++ {
		out, err := r.invokeForward(ctx, step, sc)
		if err == nil {
			return &ForwardResult{Outcome: out, Attempts: attempt}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return &ForwardResult{Attempts: attempt}, ctx.Err()
		}
		if !domain.IsRetryable(err) || attempt >= maxAttempts {
			return &ForwardResult{Attempts: attempt}, lastErr
		}

		delay := step.Retry.Delay(attempt)
		r.logger.Debug("retrying step",
			"step", step.Name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if err := r.clock.Sleep(ctx, delay); err != nil {
			return &ForwardResult{Attempts: attempt}, err
		}
	}
}

// RunCompensation выполняет компенсирующее действие шага.
//
// Компенсация ретраится по той же политике, что и forward-действие;
// исчерпание попыток возвращается как *CompensationError — это сигнал
// оркестратору перевести execution в COMPENSATION_FAILED, дальше
// автоматическое восстановление не предпринимается.
//
// Шаг без компенсирующего действия пропускается.
func (r *Runner) RunCompensation(ctx context.Context, step domain.Step, sc domain.Context) error {
	if step.Compensate == nil {
		return nil
	}

	maxAttempts := step.Retry.Attempts()

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := r.invokeCompensation(ctx, step, sc)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !domain.IsRetryable(err) || attempt >= maxAttempts {
			return &CompensationError{Step: step.Name, Attempts: attempt, Err: lastErr}
		}

		delay := step.Retry.Delay(attempt)
		r.logger.Debug("retrying compensation",
			"step", step.Name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if err := r.clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// invokeForward выполняет одну попытку forward-действия.
// Действие гоняется против дедлайна в отдельной горутине: зависшее
// действие не блокирует оркестратор дольше таймаута шага.
func (r *Runner) invokeForward(ctx context.Context, step domain.Step, sc domain.Context) (domain.Outcome, error) {
	stepCtx := ctx
	var cancel context.CancelFunc
	if step.Timeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	type result struct {
		out domain.Outcome
		err error
	}
	done := make(chan result, 1)

	go func() {
		out, err := step.Forward(stepCtx, sc)
		done <- result{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			// Отменили весь процесс, а не таймаут шага
			return domain.Outcome{}, ctx.Err()
		}
		return domain.Outcome{}, domain.WrapRetryable(step.Name, ErrStepTimeout)
	}
}

// invokeCompensation выполняет одну попытку компенсации.
func (r *Runner) invokeCompensation(ctx context.Context, step domain.Step, sc domain.Context) error {
	stepCtx := ctx
	var cancel context.CancelFunc
	if step.Timeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)

	go func() {
		done <- step.Compensate(stepCtx, sc)
	}()

	select {
	case err := <-done:
		return err
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.WrapRetryable(step.Name, ErrStepTimeout)
	}
}

// IsCompensationFailure проверяет, является ли ошибка исчерпанием
// попыток компенсации.
func IsCompensationFailure(err error) bool {
	var compErr *CompensationError
	return errors.As(err, &compErr)
}
