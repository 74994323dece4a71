package domain

import (
	"context"
	"log/slog"
	"time"
)

// Decorator — обёртка вокруг forward-действия шага.
//
// Сквозное поведение (логирование, восстановление после паники)
// композируется явно при построении определения саги, а не через
// ambient-состояние или перехват вызовов.
type Decorator func(ForwardFunc) ForwardFunc

// Decorate применяет декораторы слева направо:
// Decorate(f, d1, d2) = d1(d2(f)).
func Decorate(f ForwardFunc, decorators ...Decorator) ForwardFunc {
	for i := len(decorators) - 1; i >= 0; i-- {
		f = decorators[i](f)
	}
	return f
}

// WithLogging логирует вызов и исход forward-действия.
func WithLogging(logger *slog.Logger, stepName string) Decorator {
	return func(next ForwardFunc) ForwardFunc {
		return func(ctx context.Context, sc Context) (Outcome, error) {
			start := time.Now()
			out, err := next(ctx, sc)
			if err != nil {
				logger.Warn("step action failed",
					"step", stepName,
					"duration", time.Since(start),
					"retryable", IsRetryable(err),
					"error", err,
				)
				return out, err
			}
			logger.Debug("step action finished",
				"step", stepName,
				"duration", time.Since(start),
				"outcome", out.Kind.String(),
			)
			return out, nil
		}
	}
}

// WithRecovery превращает панику forward-действия в неповторяемую
// ошибку шага, запускающую компенсацию.
func WithRecovery() Decorator {
	return func(next ForwardFunc) ForwardFunc {
		return func(ctx context.Context, sc Context) (out Outcome, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = Failf("step panicked: %v", r)
				}
			}()
			return next(ctx, sc)
		}
	}
}
