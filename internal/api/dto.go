package api

import (
	"time"

	"github.com/shaiso/flowmanager/internal/domain"
	"github.com/shaiso/flowmanager/internal/engine"
	"github.com/shaiso/flowmanager/internal/flowmanager"
)

// Flow DTOs

// RegisterFlowResponse — ответ на регистрацию flow.
type RegisterFlowResponse struct {
	FlowID   string           `json:"flow_id"`
	Message  string           `json:"message"`
	Warnings []engine.Warning `json:"warnings"`
}

// TaskResponse — task в составе flow.
type TaskResponse struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Work        *domain.WorkSpec `json:"work,omitempty"`

	// Bound — к task привязана работа (иначе no-op).
	Bound bool `json:"bound"`
}

// FlowResponse — ответ с flow.
type FlowResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	StartTask  string             `json:"start_task"`
	Tasks      []TaskResponse     `json:"tasks"`
	Conditions []domain.Condition `json:"conditions"`
	CreatedAt  time.Time          `json:"created_at"`
}

// FlowFromDomain конвертирует domain.Flow в FlowResponse.
func FlowFromDomain(f *domain.Flow) FlowResponse {
	tasks := make([]TaskResponse, len(f.Tasks))
	for i, t := range f.Tasks {
		tasks[i] = TaskResponse{
			Name:        t.Name,
			Description: t.Description,
			Work:        t.WorkSpec,
			Bound:       t.HasWork(),
		}
	}

	conditions := f.Conditions
	if conditions == nil {
		conditions = []domain.Condition{}
	}

	return FlowResponse{
		ID:         f.ID,
		Name:       f.Name,
		StartTask:  f.StartTask,
		Tasks:      tasks,
		Conditions: conditions,
		CreatedAt:  f.CreatedAt,
	}
}

// Execution DTOs

// ExecuteFlowRequest — запрос на запуск flow по ID в теле.
type ExecuteFlowRequest struct {
	FlowID  string `json:"flow_id"`
	Context any    `json:"context,omitempty"`
}

// CreateExecutionRequest — запрос на запуск flow из пути.
type CreateExecutionRequest struct {
	Context any `json:"context,omitempty"`

	// Async — поставить запуск в очередь RabbitMQ вместо синхронного выполнения.
	Async bool `json:"async,omitempty"`
}

// ExecutionRequestedResponse — ответ на асинхронный запуск.
type ExecutionRequestedResponse struct {
	FlowID    string `json:"flow_id"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

// TaskResultResponse — результат task в порядке посещения.
type TaskResultResponse struct {
	Task            string  `json:"task"`
	Status          string  `json:"status"`
	Data            any     `json:"data,omitempty"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
}

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ExecutionID string               `json:"execution_id"`
	FlowID      string               `json:"flow_id"`
	Status      string               `json:"status"`
	CurrentTask string               `json:"current_task,omitempty"`
	TaskResults []TaskResultResponse `json:"task_results"`
	StartTime   time.Time            `json:"start_time"`
	EndTime     *time.Time           `json:"end_time,omitempty"`
	DurationMs  int64                `json:"duration_ms"`
	Context     map[string]any       `json:"context"`
}

// ExecutionFromDomain конвертирует domain.FlowExecution в ExecutionResponse.
func ExecutionFromDomain(e *domain.FlowExecution) ExecutionResponse {
	results := make([]TaskResultResponse, 0, len(e.TaskOrder))
	for _, name := range e.TaskOrder {
		r := e.TaskResults[name]
		results = append(results, TaskResultResponse{
			Task:            name,
			Status:          string(r.Status),
			Data:            r.Data,
			Error:           r.Error,
			ExecutionTimeMs: float64(r.ExecutionTime.Microseconds()) / 1000,
		})
	}

	return ExecutionResponse{
		ExecutionID: e.ExecutionID,
		FlowID:      e.FlowID,
		Status:      string(e.Status),
		CurrentTask: e.CurrentTask,
		TaskResults: results,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		DurationMs:  e.Duration().Milliseconds(),
		Context:     e.Context,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	CronExpr string `json:"cron_expr"`
	Timezone string `json:"timezone,omitempty"`
	Context  any    `json:"context,omitempty"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              string         `json:"id"`
	FlowID          string         `json:"flow_id"`
	CronExpr        string         `json:"cron_expr"`
	Timezone        string         `json:"timezone"`
	Enabled         bool           `json:"enabled"`
	NextDueAt       *time.Time     `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time     `json:"last_run_at,omitempty"`
	LastExecutionID string         `json:"last_execution_id,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:              s.ID,
		FlowID:          s.FlowID,
		CronExpr:        s.CronExpr,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		Context:         s.Context,
		CreatedAt:       s.CreatedAt,
	}
}

// Health DTOs

// HealthResponse — ответ /health.
type HealthResponse struct {
	Status string `json:"status"`
	flowmanager.Stats
}
