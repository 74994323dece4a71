package domain

import "time"

// OutcomeKind — вариант исхода forward-действия шага.
type OutcomeKind int

const (
	// OutcomeContinue — шаг завершён, перейти к следующему.
	OutcomeContinue OutcomeKind = iota

	// OutcomeSuspend — приостановить execution до внешнего события.
	OutcomeSuspend

	// OutcomeJump — перейти к шагу с указанным именем.
	OutcomeJump

	// OutcomeTerminate — завершить execution успешно, не выполняя
	// оставшиеся шаги.
	OutcomeTerminate
)

// String возвращает строковое представление OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeSuspend:
		return "suspend"
	case OutcomeJump:
		return "jump"
	case OutcomeTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Outcome — исход успешного forward-действия шага.
//
// Tagged union: Kind определяет, какие поля заполнены. Оркестратор
// разбирает Outcome исчерпывающим switch'ем.
type Outcome struct {
	// Kind — вариант исхода.
	Kind OutcomeKind

	// Context — обновлённый контекст (заполнен всегда).
	Context Context

	// EventType — ожидаемый тип события (только Suspend).
	EventType string

	// Deadline — крайний срок ожидания события (только Suspend).
	Deadline time.Time

	// Target — имя целевого шага (только Jump).
	Target string

	// Reason — причина досрочного завершения (только Terminate).
	Reason string
}

// Continue — шаг завершён, execution продолжается со следующего шага.
func Continue(sc Context) Outcome {
	return Outcome{Kind: OutcomeContinue, Context: sc}
}

// Suspend — приостановить execution до события eventType или до deadline.
// Истечение deadline доставляется как зарезервированное событие EventTimeout.
func Suspend(sc Context, eventType string, deadline time.Time) Outcome {
	return Outcome{Kind: OutcomeSuspend, Context: sc, EventType: eventType, Deadline: deadline}
}

// Jump — перейти к шагу target. Прыжок назад допустим: записи шагов
// начиная с target сбрасываются в PENDING без компенсации.
func Jump(sc Context, target string) Outcome {
	return Outcome{Kind: OutcomeJump, Context: sc, Target: target}
}

// Terminate — завершить execution успешно, оставшиеся шаги не выполняются.
func Terminate(sc Context, reason string) Outcome {
	return Outcome{Kind: OutcomeTerminate, Context: sc, Reason: reason}
}

// EventTimeout — зарезервированный тип события, которым sweeper
// доставляет истечение дедлайна ожидания. Принимается Resume Gateway
// для любой WAITING-записи независимо от ожидаемого типа события;
// шаг сам решает, что делать с таймаутом.
const EventTimeout = "timeout"
