package domain

import (
	"context"
	"time"
)

// Work — исполняемое поведение task.
//
// Work получает общий контекст execution (только для чтения) и возвращает
// данные результата. Ошибка превращается исполнителем в TaskResult
// со статусом failure, поэтому Work не должен паниковать ради ветвления.
type Work interface {
	Execute(ctx context.Context, execCtx map[string]any) (any, error)
}

// WorkFunc — адаптер, позволяющий использовать функцию как Work.
type WorkFunc func(ctx context.Context, execCtx map[string]any) (any, error)

// Execute вызывает f(ctx, execCtx).
func (f WorkFunc) Execute(ctx context.Context, execCtx map[string]any) (any, error) {
	return f(ctx, execCtx)
}

// WorkSpec — декларативное описание встроенной работы в определении flow.
//
//	{"type": "delay", "config": {"duration_ms": 200}}
type WorkSpec struct {
	// Type — тип работы: "delay", "http", "transform".
	Type string `json:"type"`

	// Config — конфигурация работы (зависит от типа).
	Config map[string]any `json:"config,omitempty"`
}

// Task — отдельная единица работы внутри flow.
type Task struct {
	// Name — уникальное в пределах flow имя.
	Name string `json:"name"`

	// Description — описание task. По ключевым словам описания
	// может быть привязана демонстрационная работа.
	Description string `json:"description"`

	// WorkSpec — декларативная работа из определения (опционально).
	WorkSpec *WorkSpec `json:"work,omitempty"`

	// Work — привязанное поведение. Разрешается один раз при регистрации flow.
	// Nil означает no-op task.
	Work Work `json:"-"`
}

// HasWork возвращает true, если к task привязано поведение.
func (t *Task) HasWork() bool {
	return t.Work != nil
}

// TaskResult — результат одного вызова task.
//
// Создаётся исполнителем ровно один раз на посещённую task
// и после этого не изменяется.
type TaskResult struct {
	// Status — success или failure.
	Status TaskStatus `json:"status"`

	// Data — данные, которые вернула работа.
	Data any `json:"data,omitempty"`

	// Error — текст ошибки при failure.
	Error string `json:"error,omitempty"`

	// ExecutionTime — длительность выполнения.
	ExecutionTime time.Duration `json:"execution_time"`
}

// Succeeded возвращает true, если task завершилась успешно.
func (r TaskResult) Succeeded() bool {
	return r.Status == TaskStatusSuccess
}

// Failed возвращает true, если task завершилась с ошибкой.
func (r TaskResult) Failed() bool {
	return r.Status == TaskStatusFailure
}
