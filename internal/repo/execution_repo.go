package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/shaiso/flowmanager/internal/domain"
)

// ExecutionRepo — in-memory хранилище executions.
//
// Save сохраняет копию, GetByID и List возвращают копии, поэтому
// снимки, прочитанные во время run, не меняются вместе с ним.
type ExecutionRepo struct {
	executions *table[*domain.FlowExecution]
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo() *ExecutionRepo {
	return &ExecutionRepo{executions: newTable[*domain.FlowExecution]()}
}

// Save сохраняет снимок execution.
func (r *ExecutionRepo) Save(ctx context.Context, exec *domain.FlowExecution) error {
	if exec.ExecutionID == "" {
		return fmt.Errorf("save execution: %w: empty id", ErrInvalidState)
	}
	r.executions.put(exec.ExecutionID, exec.Clone())
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id string) (*domain.FlowExecution, error) {
	exec, ok := r.executions.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return exec.Clone(), nil
}

// ExecutionFilter — фильтр для List.
type ExecutionFilter struct {
	FlowID string
	Status domain.FlowStatus
	Limit  int
	Offset int
}

// List возвращает executions, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]*domain.FlowExecution, error) {
	rows := r.executions.filter(func(e *domain.FlowExecution) bool {
		if filter.FlowID != "" && e.FlowID != filter.FlowID {
			return false
		}
		return filter.Status == "" || e.Status == filter.Status
	})

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].StartTime.Equal(rows[j].StartTime) {
			return rows[i].StartTime.After(rows[j].StartTime)
		}
		return rows[i].ExecutionID < rows[j].ExecutionID
	})

	rows = page(rows, filter.Limit, filter.Offset)

	out := make([]*domain.FlowExecution, len(rows))
	for i, e := range rows {
		out[i] = e.Clone()
	}
	return out, nil
}

// Count возвращает количество executions.
func (r *ExecutionRepo) Count() int {
	return r.executions.len()
}
