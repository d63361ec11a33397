package domain

import (
	"maps"
	"time"
)

// ContextErrorKey — ключ контекста, куда записывается текст фатальной ошибки run.
const ContextErrorKey = "error"

// ResultKey возвращает ключ контекста, под которым лежат данные task.
func ResultKey(taskName string) string {
	return taskName + "_result"
}

// FlowExecution — экземпляр выполнения flow.
//
// Создаётся в начале run и изменяется только движком, ведущим этот run.
// После выхода из статуса running запись больше не меняется.
type FlowExecution struct {
	// ExecutionID — уникальный идентификатор выполнения.
	ExecutionID string `json:"execution_id"`

	// FlowID — ссылка на выполняемый flow.
	FlowID string `json:"flow_id"`

	// Status — текущий статус выполнения.
	Status FlowStatus `json:"status"`

	// CurrentTask — task, которая выполняется (или будет выполнена) следующей.
	CurrentTask string `json:"current_task,omitempty"`

	// TaskResults — результаты по имени task.
	TaskResults map[string]TaskResult `json:"task_results"`

	// TaskOrder — имена tasks в порядке посещения.
	TaskOrder []string `json:"task_order"`

	// StartTime — время начала выполнения.
	StartTime time.Time `json:"start_time"`

	// EndTime — время завершения. Nil, пока выполнение идёт.
	EndTime *time.Time `json:"end_time,omitempty"`

	// Context — накопленные данные, видимые всем tasks execution.
	Context map[string]any `json:"context"`
}

// NewFlowExecution создаёт execution в статусе pending.
// Контекст копируется, поэтому map вызывающего не изменяется.
func NewFlowExecution(executionID, flowID, startTask string, seed map[string]any) *FlowExecution {
	execCtx := make(map[string]any, len(seed))
	maps.Copy(execCtx, seed)

	return &FlowExecution{
		ExecutionID: executionID,
		FlowID:      flowID,
		Status:      FlowStatusPending,
		CurrentTask: startTask,
		TaskResults: make(map[string]TaskResult),
		TaskOrder:   make([]string, 0),
		StartTime:   time.Now(),
		Context:     execCtx,
	}
}

// MarkRunning переводит execution в статус running.
func (e *FlowExecution) MarkRunning() {
	e.Status = FlowStatusRunning
}

// MarkCompleted переводит execution в статус completed.
func (e *FlowExecution) MarkCompleted() {
	e.Status = FlowStatusCompleted
}

// MarkFailed переводит execution в статус failed.
// Непустой errText записывается в Context["error"].
func (e *FlowExecution) MarkFailed(errText string) {
	e.Status = FlowStatusFailed
	if errText != "" {
		e.Context[ContextErrorKey] = errText
	}
}

// Finish фиксирует время завершения.
func (e *FlowExecution) Finish() {
	now := time.Now()
	e.EndTime = &now
}

// RecordResult сохраняет результат task и публикует её данные
// в контекст под ключом "<task>_result".
func (e *FlowExecution) RecordResult(taskName string, result TaskResult) {
	if _, seen := e.TaskResults[taskName]; !seen {
		e.TaskOrder = append(e.TaskOrder, taskName)
	}
	e.TaskResults[taskName] = result
	e.Context[ResultKey(taskName)] = result.Data
}

// OrderedResults возвращает результаты в порядке посещения tasks.
func (e *FlowExecution) OrderedResults() []TaskResult {
	results := make([]TaskResult, 0, len(e.TaskOrder))
	for _, name := range e.TaskOrder {
		results = append(results, e.TaskResults[name])
	}
	return results
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *FlowExecution) Duration() time.Duration {
	if e.EndTime == nil {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}

// IsFinished возвращает true, если execution завершён.
func (e *FlowExecution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// Clone возвращает снимок execution.
// Maps и срезы копируются, значения внутри них — нет.
func (e *FlowExecution) Clone() *FlowExecution {
	c := *e
	c.TaskResults = maps.Clone(e.TaskResults)
	c.TaskOrder = append([]string(nil), e.TaskOrder...)
	c.Context = maps.Clone(e.Context)
	if e.EndTime != nil {
		end := *e.EndTime
		c.EndTime = &end
	}
	return &c
}
