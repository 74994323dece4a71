package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/domain"
)

// Saga DTOs

// SagaResponse — ответ с определением саги.
type SagaResponse struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

// SagaFromDefinition конвертирует domain.Definition в SagaResponse.
func SagaFromDefinition(def *domain.Definition) SagaResponse {
	return SagaResponse{
		Name:  def.Name(),
		Steps: def.StepNames(),
	}
}

// Execution DTOs

// StartExecutionRequest — запрос на запуск саги.
type StartExecutionRequest struct {
	Input          map[string]any `json:"input,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// EventRequest — внешнее событие для WAITING execution.
type EventRequest struct {
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// WaitResponse — условие ожидания.
type WaitResponse struct {
	EventType string    `json:"event_type"`
	Deadline  time.Time `json:"deadline"`
}

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID             uuid.UUID      `json:"id"`
	Saga           string         `json:"saga"`
	Status         string         `json:"status"`
	StepIndex      int            `json:"step_index"`
	Context        map[string]any `json:"context,omitempty"`
	Wait           *WaitResponse  `json:"wait,omitempty"`
	PendingCancel  bool           `json:"pending_cancel,omitempty"`
	FailedStep     string         `json:"failed_step,omitempty"`
	Error          string         `json:"error,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Version        int64          `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	resp := ExecutionResponse{
		ID:             e.ID,
		Saga:           e.Saga,
		Status:         string(e.Status),
		StepIndex:      e.StepIndex,
		Context:        e.Context.Values(),
		PendingCancel:  e.PendingCancel,
		FailedStep:     e.FailedStep,
		Error:          e.Error,
		Reason:         e.Reason,
		IdempotencyKey: e.IdempotencyKey,
		Version:        e.Version,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if e.Wait != nil {
		resp.Wait = &WaitResponse{
			EventType: e.Wait.EventType,
			Deadline:  e.Wait.Deadline,
		}
	}
	return resp
}

// StepRecordResponse — ответ с исходом шага.
type StepRecordResponse struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts,omitempty"`
}

// StepRecordsFromDomain конвертирует исходы шагов execution.
func StepRecordsFromDomain(e domain.Execution) []StepRecordResponse {
	result := make([]StepRecordResponse, len(e.Steps))
	for i, step := range e.Steps {
		result[i] = StepRecordResponse{
			Name:     step.Name,
			Status:   string(step.Status),
			Attempts: step.Attempts,
		}
	}
	return result
}
