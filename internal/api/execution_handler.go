package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/mq"
	"github.com/shaiso/Orkestra/internal/store"
)

// ListExecutions возвращает список executions с фильтрацией.
// GET /api/v1/executions?saga=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{
		Saga:   r.URL.Query().Get("saga"),
		Status: domain.Status(r.URL.Query().Get("status")),
		Limit:  parseIntOr(r.URL.Query().Get("limit"), 50),
		Offset: parseIntOr(r.URL.Query().Get("offset"), 0),
	}

	execs, err := h.store.List(r.Context(), filter)
	if HandleDomainError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(execs))
	for i, exec := range execs {
		result[i] = ExecutionFromDomain(exec)
	}

	List(w, result, len(result))
}

// StartExecution запускает новый execution саги.
// POST /api/v1/sagas/{name}/executions
func (h *Handler) StartExecution(w http.ResponseWriter, r *http.Request) {
	saga := r.PathValue("name")

	var req StartExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	exec, err := h.orch.Submit(r.Context(), saga, req.Input, req.IdempotencyKey)
	if HandleDomainError(w, h.logger, err, "saga not found") {
		return
	}

	Created(w, ExecutionFromDomain(*exec))
}

// GetExecution возвращает execution по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.store.Get(r.Context(), id)
	if HandleDomainError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// ListExecutionSteps возвращает исходы шагов execution.
// GET /api/v1/executions/{id}/steps
func (h *Handler) ListExecutionSteps(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.store.Get(r.Context(), id)
	if HandleDomainError(w, h.logger, err, "execution not found") {
		return
	}

	result := StepRecordsFromDomain(*exec)
	List(w, result, len(result))
}

// SubmitEvent доставляет внешнее событие в WAITING execution.
// POST /api/v1/executions/{id}/events
//
// С подключённым MQ событие публикуется в очередь и доставляется
// engine'ом (202). В polling-only режиме событие доставляется
// синхронно через Resume Gateway.
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.EventType == "" {
		BadRequest(w, "event_type is required")
		return
	}

	// Быстрая валидация до публикации: запись существует и ждёт
	exec, err := h.store.Get(r.Context(), id)
	if HandleDomainError(w, h.logger, err, "execution not found") {
		return
	}
	if exec.Status != domain.StatusWaiting {
		InvalidState(w, "execution is not waiting for an event")
		return
	}

	if h.publisher != nil {
		payload := mq.ExternalEventPayload{
			ExecutionID: id,
			EventType:   req.EventType,
			Payload:     req.Payload,
		}
		if err := h.publisher.PublishExternalEvent(r.Context(), payload); err != nil {
			InternalError(w, h.logger, err)
			return
		}
		Accepted(w, ExecutionFromDomain(*exec))
		return
	}

	res, err := h.orch.Resume(r.Context(), id, req.EventType, req.Payload)
	if HandleDomainError(w, h.logger, err, "execution not found") {
		return
	}

	updated, err := h.store.Get(r.Context(), res.ExecutionID)
	if HandleDomainError(w, h.logger, err, "execution not found") {
		return
	}
	Success(w, ExecutionFromDomain(*updated))
}

// CancelExecution запрашивает отмену execution.
// POST /api/v1/executions/{id}/cancel
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.orch.Cancel(r.Context(), id)
	if HandleDomainError(w, h.logger, err, "execution not found") {
		return
	}

	Accepted(w, ExecutionFromDomain(*exec))
}

// parseIntOr парсит строку в int с дефолтным значением.
func parseIntOr(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
