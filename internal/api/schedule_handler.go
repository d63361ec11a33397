package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/flowmanager/internal/scheduler"
)

// schedulerEnabled отвечает 503, если планировщик не настроен.
func (h *Handler) schedulerEnabled(w http.ResponseWriter) bool {
	if h.scheduler == nil {
		ServiceUnavailable(w, "scheduler is disabled")
		return false
	}
	return true
}

// ListSchedules возвращает список schedules.
// GET /api/v1/schedules?flow_id=...
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	if !h.schedulerEnabled(w) {
		return
	}

	schedules, err := h.scheduler.List(r.Context(), r.URL.Query().Get("flow_id"))
	if HandleError(w, h.logger, err) {
		return
	}

	result := make([]ScheduleResponse, len(schedules))
	for i, s := range schedules {
		result[i] = ScheduleFromDomain(s)
	}

	List(w, result, len(result))
}

// CreateSchedule создаёт schedule для flow.
// POST /api/v1/flows/{id}/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.schedulerEnabled(w) {
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.CronExpr == "" {
		BadRequest(w, "cron_expr is required")
		return
	}

	sched, err := h.scheduler.Add(r.Context(), scheduler.AddRequest{
		FlowID:   r.PathValue("id"),
		CronExpr: req.CronExpr,
		Timezone: req.Timezone,
		Context:  req.Context,
	})
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, ScheduleFromDomain(sched))
}

// GetSchedule возвращает schedule по ID.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.schedulerEnabled(w) {
		return
	}

	sched, err := h.scheduler.Get(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, ScheduleFromDomain(sched))
}

// DeleteSchedule удаляет schedule.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.schedulerEnabled(w) {
		return
	}

	if HandleError(w, h.logger, h.scheduler.Remove(r.Context(), r.PathValue("id"))) {
		return
	}

	NoContent(w)
}
