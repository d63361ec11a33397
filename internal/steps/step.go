package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/flowmanager/internal/domain"
	"github.com/shaiso/flowmanager/internal/engine"
)

// Ключ конфигурации, общий для всех типов.
const configTimeoutMs = "timeout_ms"

// Step — интерфейс для встроенных типов работ.
//
// Каждый тип (http, delay, transform) реализует этот интерфейс
// и регистрируется в Registry. Из Step и конфигурации task
// собирается domain.Work.
type Step interface {
	// Type возвращает тип работы.
	Type() string

	// Execute выполняет работу и возвращает результат.
	// Работа должна проверять ctx.Done() для graceful shutdown.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// TaskBinder — Step, который готовит работу при привязке к task:
// проверяет статическую часть конфигурации и создаёт ресурсы один раз.
// Registry вызывает BindTask вместо NewWork.
type TaskBinder interface {
	Step
	BindTask(taskName string, config map[string]any) (domain.Work, error)
}

// Request — входные данные для выполнения работы.
type Request struct {
	// TaskName — имя task, к которой привязана работа.
	TaskName string

	// Config — конфигурация (уже отрендеренная через engine.RenderConfig).
	Config map[string]any

	// ExecContext — контекст execution с результатами предыдущих tasks.
	// Только для чтения.
	ExecContext map[string]any
}

// Response — результат выполнения работы.
type Response struct {
	// Outputs — выходные данные. Попадают в контекст как "<task>_result".
	Outputs map[string]any
}

// NewRequest создаёт новый Request.
func NewRequest(taskName string, config, execCtx map[string]any) *Request {
	if config == nil {
		config = make(map[string]any)
	}
	return &Request{
		TaskName:    taskName,
		Config:      config,
		ExecContext: execCtx,
	}
}

// EmptyResponse возвращает пустой Response.
func EmptyResponse() *Response {
	return &Response{
		Outputs: make(map[string]any),
	}
}

// stepWork связывает Step с конфигурацией конкретной task.
type stepWork struct {
	step     Step
	taskName string
	config   map[string]any
}

// NewWork собирает domain.Work из Step и конфигурации task.
//
// Перед каждым вызовом конфигурация рендерится по контексту execution,
// поэтому шаблоны вида {{ .task1_result.id }} видят данные предыдущих tasks.
// Ключ timeout_ms ограничивает время выполнения.
func NewWork(step Step, taskName string, config map[string]any) domain.Work {
	return &stepWork{step: step, taskName: taskName, config: config}
}

// Execute реализует domain.Work.
func (w *stepWork) Execute(ctx context.Context, execCtx map[string]any) (any, error) {
	rendered, err := engine.RenderConfig(w.config, execCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: render config: %w", w.step.Type(), err)
	}

	if ms := GetConfigInt(rendered, configTimeoutMs); ms > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}

	resp, err := w.step.Execute(ctx, NewRequest(w.taskName, rendered, execCtx))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return EmptyResponse().Outputs, nil
	}
	return resp.Outputs, nil
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
// Строки (результат рендеринга шаблонов) разбираются как JSON-число.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case string:
			if f, ok := engine.ParseValue(n).(float64); ok {
				return int(f)
			}
		}
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига.
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetConfigMap извлекает map из конфига.
func GetConfigMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// GetConfigMapString извлекает map[string]string из конфига.
func GetConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}
