package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrInvalidState — resume для execution не в статусе WAITING.
	ErrInvalidState = errors.New("execution is not waiting for an event")

	// ErrEventMismatch — тип события не совпадает с условием ожидания.
	ErrEventMismatch = errors.New("event type does not match wait condition")

	// ErrAlreadyTerminal — операция над завершённым execution.
	ErrAlreadyTerminal = errors.New("execution already finished")

	// ErrUnknownJumpTarget — шаг вернул Jump на несуществующий шаг.
	// Ошибка определения саги; ведёт к компенсации, как падение шага.
	ErrUnknownJumpTarget = errors.New("jump target is not a step of this saga")

	// ErrSuspendWithoutEvent — шаг вернул Suspend без типа события.
	// Ошибка определения саги; ведёт к компенсации, как падение шага.
	ErrSuspendWithoutEvent = errors.New("suspend outcome without event type")
)
