package api

import (
	"net/http"
)

// ListSagas возвращает список зарегистрированных саг.
// GET /api/v1/sagas
func (h *Handler) ListSagas(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()

	result := make([]SagaResponse, 0, len(names))
	for _, name := range names {
		def, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		result = append(result, SagaFromDefinition(def))
	}

	List(w, result, len(result))
}

// GetSaga возвращает определение саги по имени.
// GET /api/v1/sagas/{name}
func (h *Handler) GetSaga(w http.ResponseWriter, r *http.Request) {
	def, err := h.registry.Get(r.PathValue("name"))
	if HandleDomainError(w, h.logger, err, "saga not found") {
		return
	}

	Success(w, SagaFromDefinition(def))
}
