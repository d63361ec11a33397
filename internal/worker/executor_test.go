package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/flowmanager/internal/domain"
)

func newTestExecutor() *Executor {
	return NewExecutor(ExecutorConfig{NoopDelay: time.Millisecond})
}

func TestExecutor_Noop(t *testing.T) {
	exec := newTestExecutor()
	task := &domain.Task{Name: "task1"}

	result := exec.Execute(context.Background(), task, nil)

	if !result.Succeeded() {
		t.Fatalf("status = %s, want success (error: %s)", result.Status, result.Error)
	}
	if result.Data != "Result from task1" {
		t.Errorf("data = %v, want %q", result.Data, "Result from task1")
	}
	if result.ExecutionTime < time.Millisecond {
		t.Errorf("execution time = %v, want at least the noop delay", result.ExecutionTime)
	}
}

func TestExecutor_DefaultNoopDelay(t *testing.T) {
	if got := NewExecutor(ExecutorConfig{}).noopDelay; got != DefaultNoopDelay {
		t.Errorf("noopDelay = %v, want %v", got, DefaultNoopDelay)
	}
	if got := NewExecutor(ExecutorConfig{NoopDelay: -1}).noopDelay; got != 0 {
		t.Errorf("negative noopDelay = %v, want 0", got)
	}
}

func TestExecutor_Work(t *testing.T) {
	tests := []struct {
		name       string
		work       domain.WorkFunc
		wantStatus domain.TaskStatus
		wantData   any
		wantError  string
	}{
		{
			name: "success",
			work: func(ctx context.Context, execCtx map[string]any) (any, error) {
				return "done", nil
			},
			wantStatus: domain.TaskStatusSuccess,
			wantData:   "done",
		},
		{
			name: "error",
			work: func(ctx context.Context, execCtx map[string]any) (any, error) {
				return nil, errors.New("boom")
			},
			wantStatus: domain.TaskStatusFailure,
			wantError:  "boom",
		},
		{
			name: "panic",
			work: func(ctx context.Context, execCtx map[string]any) (any, error) {
				panic("kaboom")
			},
			wantStatus: domain.TaskStatusFailure,
			wantError:  "work panicked: kaboom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newTestExecutor()
			task := &domain.Task{Name: "t", Work: tt.work}

			result := exec.Execute(context.Background(), task, map[string]any{})

			if result.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", result.Status, tt.wantStatus)
			}
			if tt.wantData != nil && result.Data != tt.wantData {
				t.Errorf("data = %v, want %v", result.Data, tt.wantData)
			}
			if result.Error != tt.wantError {
				t.Errorf("error = %q, want %q", result.Error, tt.wantError)
			}
		})
	}
}

func TestExecutor_WorkSeesContext(t *testing.T) {
	exec := newTestExecutor()
	task := &domain.Task{Name: "t", Work: domain.WorkFunc(func(ctx context.Context, execCtx map[string]any) (any, error) {
		return execCtx["user"], nil
	})}

	result := exec.Execute(context.Background(), task, map[string]any{"user": "john"})

	if result.Data != "john" {
		t.Errorf("data = %v, want john", result.Data)
	}
}

func TestExecutor_Cancelled(t *testing.T) {
	exec := newTestExecutor()
	started := make(chan struct{})
	task := &domain.Task{Name: "slow", Work: domain.WorkFunc(func(ctx context.Context, execCtx map[string]any) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})}

	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		<-started
		cancel(errors.New("shutdown"))
	}()

	result := exec.Execute(ctx, task, nil)

	if !result.Failed() {
		t.Fatalf("status = %s, want failure", result.Status)
	}
	if result.Error != "task cancelled: shutdown" {
		t.Errorf("error = %q, want %q", result.Error, "task cancelled: shutdown")
	}
}

func TestExecutor_CancelledBeforeNoop(t *testing.T) {
	exec := NewExecutor(ExecutorConfig{NoopDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := exec.Execute(ctx, &domain.Task{Name: "t"}, nil)

	if !result.Failed() {
		t.Fatalf("status = %s, want failure", result.Status)
	}
	if !strings.HasPrefix(result.Error, "task cancelled: ") {
		t.Errorf("error = %q, want task cancelled prefix", result.Error)
	}
}
