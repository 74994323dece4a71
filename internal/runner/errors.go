package runner

import (
	"errors"
	"fmt"
)

// ErrStepTimeout — попытка действия не уложилась в таймаут шага.
// Таймаут считается retryable, пока не исчерпан бюджет попыток.
var ErrStepTimeout = errors.New("step timed out")

// CompensationError — компенсирующее действие исчерпало попытки.
//
// Отдельный тип, потому что последствия отличаются от обычной ошибки
// шага: execution уходит в COMPENSATION_FAILED и требует оператора.
type CompensationError struct {
	// Step — имя шага, чья компенсация упала.
	Step string

	// Attempts — сколько попыток было сделано.
	Attempts int

	// Err — последняя ошибка компенсации.
	Err error
}

// Error реализует интерфейс error.
func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation of step %q failed after %d attempt(s): %v", e.Step, e.Attempts, e.Err)
}

// Unwrap возвращает последнюю ошибку компенсации.
func (e *CompensationError) Unwrap() error {
	return e.Err
}
