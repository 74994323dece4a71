package domain

// Status — статус выполнения execution.
//
// Жизненный цикл:
//
//	RUNNING → COMPLETED
//	        ↘ WAITING → RUNNING (внешнее событие через resume)
//	        ↘ COMPENSATING → COMPENSATED
//	                       ↘ COMPENSATION_FAILED
//	        ↘ FAILED (шаг упал, но ни один шаг ещё не был завершён)
type Status string

const (
	// StatusRunning — execution выполняется (или готов к выполнению).
	StatusRunning Status = "RUNNING"

	// StatusWaiting — execution приостановлен, ждёт внешнего события.
	StatusWaiting Status = "WAITING"

	// StatusCompleted — все шаги завершены успешно (или шаг вернул Terminate).
	StatusCompleted Status = "COMPLETED"

	// StatusFailed — шаг упал, компенсировать было нечего
	// (ни один шаг не успел завершиться).
	StatusFailed Status = "FAILED"

	// StatusCompensating — идёт откат завершённых шагов в обратном порядке.
	StatusCompensating Status = "COMPENSATING"

	// StatusCompensated — все завершённые шаги успешно откачены.
	StatusCompensated Status = "COMPENSATED"

	// StatusCompensationFailed — компенсация упала после всех retry.
	// Терминальное состояние, требует ручного вмешательства оператора.
	StatusCompensationFailed Status = "COMPENSATION_FAILED"
)

// IsTerminal возвращает true, если статус финальный (execution завершён).
// Терминальные записи неизменяемы и хранятся для аудита.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCompensated, StatusCompensationFailed:
		return true
	default:
		return false
	}
}

// StepStatus — статус отдельного шага внутри execution.
//
// Жизненный цикл:
//
//	PENDING → COMPLETED → COMPENSATED (при откате)
//	        ↘ FAILED
//	        ↘ SKIPPED (forward jump перепрыгнул шаг)
type StepStatus string

const (
	// StepPending — шаг ещё не выполнялся (или сброшен backward jump'ом).
	StepPending StepStatus = "PENDING"

	// StepCompleted — forward-действие шага завершилось успешно.
	StepCompleted StepStatus = "COMPLETED"

	// StepFailed — forward-действие упало после всех retry.
	StepFailed StepStatus = "FAILED"

	// StepCompensated — компенсирующее действие шага выполнено.
	StepCompensated StepStatus = "COMPENSATED"

	// StepSkipped — шаг пропущен forward jump'ом: его forward-действие
	// не выполнялось, компенсация для него не запускается.
	StepSkipped StepStatus = "SKIPPED"
)
