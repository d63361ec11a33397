package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/flowmanager/internal/domain"
	"github.com/shaiso/flowmanager/internal/mq"
)

// fakeRunner запоминает вызовы и возвращает заданный результат.
type fakeRunner struct {
	flowID  string
	execCtx any
	err     error
}

func (r *fakeRunner) ExecuteFlow(ctx context.Context, flowID string, execCtx any) (*domain.FlowExecution, error) {
	r.flowID = flowID
	r.execCtx = execCtx
	if r.err != nil {
		return nil, r.err
	}
	exec := domain.NewFlowExecution("exec-1", flowID, "start", nil)
	exec.MarkRunning()
	exec.MarkFailed("")
	exec.Finish()
	return exec, nil
}

func delivery(payload any) *mq.Delivery {
	return &mq.Delivery{Message: *mq.NewMessage(mq.MessageTypeExecutionRequested, payload)}
}

func TestHandleExecutionRequested(t *testing.T) {
	runner := &fakeRunner{}
	w := New(Config{Runner: runner})

	err := w.handleExecutionRequested(context.Background(), delivery(map[string]any{
		"flow_id": "flow-1",
		"context": map[string]any{"k": "v"},
	}))
	if err != nil {
		t.Fatalf("handle error = %v", err)
	}

	if runner.flowID != "flow-1" {
		t.Errorf("flowID = %q, want flow-1", runner.flowID)
	}
	ctx, ok := runner.execCtx.(map[string]any)
	if !ok || ctx["k"] != "v" {
		t.Errorf("execCtx = %v, want map with k=v", runner.execCtx)
	}
}

func TestHandleExecutionRequested_NoContext(t *testing.T) {
	runner := &fakeRunner{}
	w := New(Config{Runner: runner})

	if err := w.handleExecutionRequested(context.Background(), delivery(map[string]any{"flow_id": "flow-1"})); err != nil {
		t.Fatalf("handle error = %v", err)
	}
	if runner.execCtx != nil {
		t.Errorf("execCtx = %v, want nil", runner.execCtx)
	}
}

func TestHandleExecutionRequested_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		runErr  error
		wantErr error
	}{
		{"missing flow id", map[string]any{}, nil, mq.ErrBadPayload},
		{"bad payload", "oops", nil, mq.ErrBadPayload},
		{"runner rejects", map[string]any{"flow_id": "x"}, errors.New("flow not found"), mq.ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(Config{Runner: &fakeRunner{err: tt.runErr}})

			err := w.handleExecutionRequested(context.Background(), delivery(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWorker_StartWithoutRunner(t *testing.T) {
	w := New(Config{})
	if err := w.Start(context.Background()); !errors.Is(err, ErrNoRunner) {
		t.Errorf("Start() error = %v, want ErrNoRunner", err)
	}
}

func TestWorker_Stop(t *testing.T) {
	w := New(Config{Runner: &fakeRunner{}})
	w.Stop()

	if !w.IsStopped() {
		t.Error("IsStopped() = false after Stop")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("Start() after Stop error = %v, want ErrWorkerStopped", err)
	}
}
