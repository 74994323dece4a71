package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WaitCondition — условие ожидания внешнего события.
type WaitCondition struct {
	// EventType — тип события, которое снимет ожидание.
	EventType string `json:"event_type"`

	// Deadline — крайний срок ожидания. По истечении sweeper доставит
	// зарезервированное событие EventTimeout.
	Deadline time.Time `json:"deadline"`
}

// StepRecord — исход одного шага внутри execution.
type StepRecord struct {
	// Name — имя шага (копия Step.Name, для аудита без определения).
	Name string `json:"name"`

	// Status — текущий исход шага.
	Status StepStatus `json:"status"`

	// Attempts — сколько попыток заняло последнее выполнение.
	Attempts int `json:"attempts,omitempty"`
}

// Execution — персистентная запись одного запуска саги.
//
// Инварианты:
//   - исходы шагов заполняются строгим префиксом: шаг i может стать
//     COMPLETED только когда все шаги до него COMPLETED или SKIPPED
//     (backward jump сбрасывает суффикс обратно в PENDING, сохраняя
//     префикс; forward jump помечает перепрыгнутые шаги SKIPPED);
//   - компенсация затрагивает ровно COMPLETED-шаги в строго убывающем
//     порядке индексов;
//   - каждая запись в хранилище проходит через CAS по Version, поэтому
//     двигать запись в каждый момент может не более одного исполнителя.
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// Saga — имя саги из реестра определений.
	Saga string `json:"saga"`

	// Status — текущий статус.
	Status Status `json:"status"`

	// StepIndex — индекс текущего шага.
	StepIndex int `json:"step_index"`

	// Steps — исходы шагов в порядке определения.
	Steps []StepRecord `json:"steps"`

	// Context — текущий снапшот контекста.
	Context Context `json:"context"`

	// Wait — условие ожидания. Заполнено только в статусе WAITING.
	Wait *WaitCondition `json:"wait,omitempty"`

	// PendingCancel — запрошена отмена; оркестратор проверяет флаг
	// перед началом каждого шага.
	PendingCancel bool `json:"pending_cancel,omitempty"`

	// FailedStep — имя шага, с которого началась компенсация,
	// либо шага, на котором упала компенсация.
	FailedStep string `json:"failed_step,omitempty"`

	// Error — текст ошибки, приведшей к компенсации или FAILED.
	Error string `json:"error,omitempty"`

	// Reason — причина досрочного Terminate.
	Reason string `json:"reason,omitempty"`

	// IdempotencyKey — ключ идемпотентности submit (опционально).
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Version — монотонная версия для optimistic concurrency.
	// Хранилище инкрементирует её при каждом успешном Save.
	Version int64 `json:"version"`

	// CreatedAt — время создания execution.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего перехода.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewExecution создаёт RUNNING-запись для определения саги.
func NewExecution(def *Definition, initial Context) *Execution {
	steps := make([]StepRecord, def.Len())
	for i, name := range def.StepNames() {
		steps[i] = StepRecord{Name: name, Status: StepPending}
	}

	now := time.Now().UTC()
	return &Execution{
		ID:        uuid.New(),
		Saga:      def.Name(),
		Status:    StatusRunning,
		Steps:     steps,
		Context:   initial,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsFinished возвращает true, если execution в терминальном статусе.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// CurrentStepName возвращает имя текущего шага.
func (e *Execution) CurrentStepName() string {
	if e.StepIndex < 0 || e.StepIndex >= len(e.Steps) {
		return ""
	}
	return e.Steps[e.StepIndex].Name
}

// CompletedDescending возвращает индексы COMPLETED-шагов в строго
// убывающем порядке — порядок обхода компенсации.
func (e *Execution) CompletedDescending() []int {
	var indexes []int
	for i := len(e.Steps) - 1; i >= 0; i-- {
		if e.Steps[i].Status == StepCompleted {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// MarkStepCompleted помечает шаг COMPLETED.
// Перед ним допускаются только COMPLETED и SKIPPED шаги; нарушение
// префиксного инварианта — ошибка программирования ядра.
func (e *Execution) MarkStepCompleted(i, attempts int) error {
	for j := 0; j < i; j++ {
		if e.Steps[j].Status != StepCompleted && e.Steps[j].Status != StepSkipped {
			return fmt.Errorf("step %q completed before step %q", e.Steps[i].Name, e.Steps[j].Name)
		}
	}
	e.Steps[i].Status = StepCompleted
	e.Steps[i].Attempts = attempts
	e.touch()
	return nil
}

// MarkStepFailed помечает шаг FAILED.
func (e *Execution) MarkStepFailed(i, attempts int) {
	e.Steps[i].Status = StepFailed
	e.Steps[i].Attempts = attempts
	e.touch()
}

// MarkStepCompensated помечает шаг COMPENSATED.
func (e *Execution) MarkStepCompensated(i int) {
	e.Steps[i].Status = StepCompensated
	e.touch()
}

// MarkStepsSkipped помечает шаги в полуинтервале [from, to) как SKIPPED.
// Используется forward jump'ом: пропущенные шаги не выполнялись и при
// компенсации не откатываются.
func (e *Execution) MarkStepsSkipped(from, to int) {
	for i := from; i < to && i < len(e.Steps); i++ {
		if e.Steps[i].Status == StepPending {
			e.Steps[i].Status = StepSkipped
		}
	}
	e.touch()
}

// ResetStepsFrom сбрасывает записи шагов начиная с индекса from в
// PENDING. Используется backward jump'ом: сброшенные шаги будут
// выполнены заново, компенсация для них не запускается.
func (e *Execution) ResetStepsFrom(from int) {
	for i := from; i < len(e.Steps); i++ {
		e.Steps[i].Status = StepPending
		e.Steps[i].Attempts = 0
	}
	e.touch()
}

// MarkCancelRequested взводит флаг отмены. Оркестратор проверяет флаг
// на границе шагов; идущий шаг не прерывается.
func (e *Execution) MarkCancelRequested() {
	e.PendingCancel = true
	e.touch()
}

// MarkWaiting переводит execution в WAITING с условием ожидания.
func (e *Execution) MarkWaiting(eventType string, deadline time.Time) {
	e.Status = StatusWaiting
	e.Wait = &WaitCondition{EventType: eventType, Deadline: deadline}
	e.touch()
}

// MarkRunning возвращает execution в RUNNING, снимая условие ожидания.
func (e *Execution) MarkRunning() {
	e.Status = StatusRunning
	e.Wait = nil
	e.touch()
}

// MarkCompleted переводит execution в COMPLETED.
func (e *Execution) MarkCompleted(reason string) {
	e.Status = StatusCompleted
	e.Reason = reason
	e.Wait = nil
	e.touch()
}

// MarkFailed переводит execution в FAILED: шаг упал, но завершённых
// шагов не было — компенсировать нечего.
func (e *Execution) MarkFailed(step, errMsg string) {
	e.Status = StatusFailed
	e.FailedStep = step
	e.Error = errMsg
	e.Wait = nil
	e.touch()
}

// MarkCompensating переводит execution в COMPENSATING, фиксируя
// причину отката.
func (e *Execution) MarkCompensating(step, errMsg string) {
	e.Status = StatusCompensating
	e.FailedStep = step
	e.Error = errMsg
	e.Wait = nil
	e.touch()
}

// MarkCompensated переводит execution в COMPENSATED.
func (e *Execution) MarkCompensated() {
	e.Status = StatusCompensated
	e.touch()
}

// MarkCompensationFailed переводит execution в COMPENSATION_FAILED.
// Терминальное состояние для ручного вмешательства: FailedStep — шаг,
// чья компенсация упала; шаги до него остаются неоткаченными.
func (e *Execution) MarkCompensationFailed(step, errMsg string) {
	e.Status = StatusCompensationFailed
	e.FailedStep = step
	e.Error = errMsg
	e.touch()
}

// Clone возвращает глубокую копию записи.
func (e *Execution) Clone() *Execution {
	clone := *e
	clone.Steps = append([]StepRecord(nil), e.Steps...)
	clone.Context = NewContext(e.Context.Values())
	if e.Wait != nil {
		wait := *e.Wait
		clone.Wait = &wait
	}
	return &clone
}

func (e *Execution) touch() {
	e.UpdatedAt = time.Now().UTC()
}
