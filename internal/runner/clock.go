package runner

import (
	"context"
	"time"
)

// Clock — порт времени для таймаутов и backoff-пауз.
// Тесты подставляют фейковые часы и не ждут реального времени.
type Clock interface {
	// Now возвращает текущее время.
	Now() time.Time

	// Sleep ждёт d или отмену контекста (возвращает ctx.Err()).
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock — системные часы.
type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SystemClock возвращает часы на базе time.
func SystemClock() Clock {
	return realClock{}
}
