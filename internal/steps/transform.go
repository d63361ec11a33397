package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/flowmanager/internal/engine"
)

const (
	// StepTypeTransform — тип работы трансформации.
	StepTypeTransform = "transform"

	configMappings = "mappings"
)

// TransformStep — работа трансформации данных.
//
// Mappings рендерятся по контексту execution до вызова (см. NewWork),
// TransformStep только приводит результаты к JSON-значениям.
//
// Конфигурация:
//
//	{
//	    "mappings": {
//	        "total": "{{ len .task1_result.users }}",
//	        "first": "{{ json (index .task1_result.users 0) }}"
//	    }
//	}
//
// Outputs:
//
//	{
//	    "total": 2,
//	    "first": {"id": 1, "name": "John"}
//	}
type TransformStep struct{}

// NewTransformStep создаёт новый TransformStep.
func NewTransformStep() *TransformStep {
	return &TransformStep{}
}

// Type возвращает тип работы.
func (s *TransformStep) Type() string {
	return StepTypeTransform
}

// Execute выполняет трансформацию данных.
func (s *TransformStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	default:
	}

	raw, ok := req.Config[configMappings]
	if !ok || raw == nil {
		return EmptyResponse(), nil
	}

	mappings, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: mappings must be an object", ErrInvalidConfig, StepTypeTransform)
	}

	outputs := make(map[string]any, len(mappings))
	for key, val := range mappings {
		if str, ok := val.(string); ok {
			outputs[key] = engine.ParseValue(str)
			continue
		}
		outputs[key] = val
	}

	return &Response{Outputs: outputs}, nil
}
