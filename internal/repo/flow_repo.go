package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/shaiso/flowmanager/internal/domain"
)

// FlowRepo — in-memory хранилище зарегистрированных flows.
//
// Flow неизменяем после регистрации, поэтому хранится и отдаётся по указателю.
// Повторная регистрация с тем же ID заменяет запись (last-write-wins).
type FlowRepo struct {
	flows *table[*domain.Flow]
}

// NewFlowRepo создаёт новый FlowRepo.
func NewFlowRepo() *FlowRepo {
	return &FlowRepo{flows: newTable[*domain.Flow]()}
}

// Save сохраняет flow, заменяя существующий с тем же ID.
func (r *FlowRepo) Save(ctx context.Context, flow *domain.Flow) error {
	if flow.ID == "" {
		return fmt.Errorf("save flow: %w: empty id", ErrInvalidState)
	}
	r.flows.put(flow.ID, flow)
	return nil
}

// GetByID возвращает flow по ID.
func (r *FlowRepo) GetByID(ctx context.Context, id string) (*domain.Flow, error) {
	flow, ok := r.flows.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return flow, nil
}

// List возвращает все flows, отсортированные по времени регистрации и ID.
func (r *FlowRepo) List(ctx context.Context) ([]*domain.Flow, error) {
	flows := r.flows.filter(nil)
	sort.Slice(flows, func(i, j int) bool {
		if !flows[i].CreatedAt.Equal(flows[j].CreatedAt) {
			return flows[i].CreatedAt.Before(flows[j].CreatedAt)
		}
		return flows[i].ID < flows[j].ID
	})
	return flows, nil
}

// Delete удаляет flow.
func (r *FlowRepo) Delete(ctx context.Context, id string) error {
	if !r.flows.delete(id) {
		return ErrNotFound
	}
	return nil
}

// Count возвращает количество flows.
func (r *FlowRepo) Count() int {
	return r.flows.len()
}
