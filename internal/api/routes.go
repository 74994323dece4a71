package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Sagas
	mux.Handle("GET /api/v1/sagas", chain(http.HandlerFunc(h.ListSagas)))
	mux.Handle("GET /api/v1/sagas/{name}", chain(http.HandlerFunc(h.GetSaga)))

	// Executions
	mux.Handle("GET /api/v1/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("POST /api/v1/sagas/{name}/executions", chain(http.HandlerFunc(h.StartExecution)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))
	mux.Handle("GET /api/v1/executions/{id}/steps", chain(http.HandlerFunc(h.ListExecutionSteps)))
	mux.Handle("POST /api/v1/executions/{id}/events", chain(http.HandlerFunc(h.SubmitEvent)))
	mux.Handle("POST /api/v1/executions/{id}/cancel", chain(http.HandlerFunc(h.CancelExecution)))
}
