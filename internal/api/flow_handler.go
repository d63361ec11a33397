package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/flowmanager/internal/engine"
)

// Health возвращает состояние сервиса и счётчики.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Stats:  h.manager.Stats(),
	})
}

// RegisterFlow валидирует и регистрирует flow.
// POST /api/v1/flows
//
// Тело: {"flow": {...}} или {"flow_data": {"flow": {...}}}.
func (h *Handler) RegisterFlow(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	raw := body
	if wrapped, ok := body["flow_data"].(map[string]any); ok {
		raw = wrapped
	}

	flowID, warnings, err := h.manager.RegisterFlow(raw)
	if HandleError(w, h.logger, err) {
		return
	}
	if warnings == nil {
		warnings = []engine.Warning{}
	}

	Created(w, RegisterFlowResponse{
		FlowID:   flowID,
		Message:  "Flow registered successfully",
		Warnings: warnings,
	})
}

// ListFlows возвращает список всех flows.
// GET /api/v1/flows
func (h *Handler) ListFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := h.manager.ListFlows(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}

	result := make([]FlowResponse, len(flows))
	for i, f := range flows {
		result[i] = FlowFromDomain(f)
	}

	List(w, result, len(result))
}

// GetFlow возвращает flow по ID.
// GET /api/v1/flows/{id}
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := h.manager.GetFlow(r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, FlowFromDomain(flow))
}
