package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ExecuteFlow синхронно выполняет flow, указанный в теле.
// POST /api/v1/flows/execute
func (h *Handler) ExecuteFlow(w http.ResponseWriter, r *http.Request) {
	var req ExecuteFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.FlowID == "" {
		BadRequest(w, "flow_id is required")
		return
	}

	h.execute(w, r, req.FlowID, req.Context)
}

// CreateExecution запускает flow из пути.
// POST /api/v1/flows/{id}/executions
//
// С "async": true запуск ставится в очередь RabbitMQ и возвращается 202.
func (h *Handler) CreateExecution(w http.ResponseWriter, r *http.Request) {
	flowID := r.PathValue("id")

	var req CreateExecutionRequest
	// Пустое тело допустимо: запуск без контекста
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	if !req.Async {
		h.execute(w, r, flowID, req.Context)
		return
	}

	msgID, err := h.manager.RequestExecution(r.Context(), flowID, req.Context)
	if HandleError(w, h.logger, err) {
		return
	}

	Accepted(w, ExecutionRequestedResponse{
		FlowID:    flowID,
		MessageID: msgID,
		Message:   "Execution requested",
	})
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, flowID string, execCtx any) {
	exec, err := h.manager.ExecuteFlow(r.Context(), flowID, execCtx)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, ExecutionFromDomain(exec))
}

// GetExecution возвращает execution по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := h.manager.GetExecution(r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, ExecutionFromDomain(exec))
}

// ListExecutions возвращает executions, новые первыми.
// GET /api/v1/executions?flow_id=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	execs, err := h.manager.ListExecutions(r.Context(), r.URL.Query().Get("flow_id"))
	if HandleError(w, h.logger, err) {
		return
	}

	result := make([]ExecutionResponse, len(execs))
	for i, e := range execs {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}
