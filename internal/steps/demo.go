package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowmanager/internal/domain"
)

// Demo — демонстрационные работы fetch/process/store.
//
// Работы читают данные друг друга из контекста execution:
// process ожидает task1_result, store ожидает task2_result.
type Demo struct {
	// Latency — имитировать задержку внешних систем.
	Latency bool
}

// RegisterDemo привязывает демонстрационные работы к ключевым словам
// описания: "fetch", "process", "store".
func RegisterDemo(r *Registry, latency bool) {
	d := &Demo{Latency: latency}
	r.BindKeyword("fetch", domain.WorkFunc(d.FetchData))
	r.BindKeyword("process", domain.WorkFunc(d.ProcessData))
	r.BindKeyword("store", domain.WorkFunc(d.StoreData))
}

// FetchData возвращает фиксированный список пользователей.
func (d *Demo) FetchData(ctx context.Context, _ map[string]any) (any, error) {
	if err := d.sleep(ctx, 200*time.Millisecond); err != nil {
		return nil, err
	}
	return map[string]any{
		"users": []any{
			map[string]any{"id": 1, "name": "John"},
			map[string]any{"id": 2, "name": "Jane"},
		},
	}, nil
}

// ProcessData считает пользователей из результата task1.
func (d *Demo) ProcessData(ctx context.Context, execCtx map[string]any) (any, error) {
	fetched, ok := execCtx[domain.ResultKey("task1")].(map[string]any)
	if !ok || len(fetched) == 0 {
		return nil, fmt.Errorf("%w: no data to process", ErrMissingInput)
	}

	if err := d.sleep(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}

	return map[string]any{
		"processed_users": countItems(fetched["users"]),
		"timestamp":       time.Now().Format(time.RFC3339Nano),
	}, nil
}

// StoreData имитирует сохранение результата task2.
func (d *Demo) StoreData(ctx context.Context, execCtx map[string]any) (any, error) {
	processed, ok := execCtx[domain.ResultKey("task2")].(map[string]any)
	if !ok || len(processed) == 0 {
		return nil, fmt.Errorf("%w: no processed data to store", ErrMissingInput)
	}

	if err := d.sleep(ctx, 100*time.Millisecond); err != nil {
		return nil, err
	}

	return map[string]any{
		"stored":    true,
		"record_id": uuid.NewString(),
	}, nil
}

// sleep ждёт d, если включена задержка, с учётом отмены ctx.
func (d *Demo) sleep(ctx context.Context, dur time.Duration) error {
	if !d.Latency {
		return ctx.Err()
	}

	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// countItems возвращает длину списка из результата.
func countItems(v any) int {
	switch items := v.(type) {
	case []any:
		return len(items)
	case []map[string]any:
		return len(items)
	default:
		return 0
	}
}
