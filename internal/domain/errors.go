package domain

import (
	"context"
	"errors"
	"fmt"
)

// Общие ошибки определений саг.
var (
	// ErrSagaNotFound — сага не зарегистрирована.
	ErrSagaNotFound = errors.New("saga not found")

	// ErrSagaExists — сага с таким именем уже зарегистрирована.
	ErrSagaExists = errors.New("saga already registered")

	// ErrInvalidDefinition — определение саги не прошло валидацию.
	ErrInvalidDefinition = errors.New("invalid saga definition")
)

// StepError — ошибка forward- или компенсирующего действия шага.
//
// Retryable выставляет автор шага: true означает транзиентную проблему,
// которую имеет смысл повторить в рамках RetryPolicy шага.
type StepError struct {
	// Msg — описание проблемы.
	Msg string

	// Retryable — можно ли повторять попытку.
	Retryable bool

	// Err — обёрнутая причина (опционально).
	Err error
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap возвращает обёрнутую причину.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Failf создаёт неповторяемую (non-retryable) ошибку шага.
// Такая ошибка сразу запускает компенсацию.
func Failf(format string, args ...any) *StepError {
	return &StepError{Msg: fmt.Sprintf(format, args...)}
}

// Retryablef создаёт повторяемую ошибку шага.
func Retryablef(format string, args ...any) *StepError {
	return &StepError{Msg: fmt.Sprintf(format, args...), Retryable: true}
}

// WrapFailure оборачивает ошибку как неповторяемую.
func WrapFailure(msg string, err error) *StepError {
	return &StepError{Msg: msg, Err: err}
}

// WrapRetryable оборачивает ошибку как повторяемую.
func WrapRetryable(msg string, err error) *StepError {
	return &StepError{Msg: msg, Retryable: true, Err: err}
}

// IsRetryable классифицирует ошибку действия шага.
//
// StepError несёт флаг от автора шага. Отмена контекста не повторяется —
// процесс останавливается. Любая другая ошибка считается
// инфраструктурной и повторяется.
func IsRetryable(err error) bool {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Retryable
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
