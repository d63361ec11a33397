package worker

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/shaiso/flowmanager/internal/domain"
	"github.com/shaiso/flowmanager/internal/telemetry"
)

// DefaultNoopDelay — задержка task без работы.
const DefaultNoopDelay = 100 * time.Millisecond

// Executor выполняет работу одной task против контекста execution.
//
// Execute никогда не возвращает ошибку: любая неудача, включая панику
// и отмену контекста, превращается в TaskResult со статусом failure.
type Executor struct {
	noopDelay time.Duration
	logger    *slog.Logger
	metrics   *telemetry.Metrics
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// NoopDelay — задержка для task без работы (default: 100ms).
	// Отрицательное значение отключает задержку.
	NoopDelay time.Duration

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// NewExecutor создаёт новый Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	noopDelay := cfg.NoopDelay
	if noopDelay == 0 {
		noopDelay = DefaultNoopDelay
	}
	if noopDelay < 0 {
		noopDelay = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		noopDelay: noopDelay,
		logger:    logger,
		metrics:   cfg.Metrics,
	}
}

// workOutcome — то, что вернула работа в горутине.
type workOutcome struct {
	data any
	err  error
}

// Execute выполняет task и возвращает ровно один результат.
func (e *Executor) Execute(ctx context.Context, task *domain.Task, execCtx map[string]any) domain.TaskResult {
	start := time.Now()
	logger := telemetry.WithTask(e.logger, task.Name)

	var result domain.TaskResult
	if task.HasWork() {
		result = e.runWork(ctx, task, execCtx)
	} else {
		result = e.runNoop(ctx, task)
	}
	result.ExecutionTime = time.Since(start)

	e.metrics.TaskFinished(string(result.Status), result.ExecutionTime)

	if result.Failed() {
		logger.Warn("task failed", "error", result.Error, "duration", result.ExecutionTime)
	} else {
		logger.Debug("task succeeded", "duration", result.ExecutionTime)
	}

	return result
}

func (e *Executor) runNoop(ctx context.Context, task *domain.Task) domain.TaskResult {
	if err := ctx.Err(); err != nil {
		return cancelledResult(ctx)
	}

	if e.noopDelay > 0 {
		timer := time.NewTimer(e.noopDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return cancelledResult(ctx)
		case <-timer.C:
		}
	}

	return domain.TaskResult{
		Status: domain.TaskStatusSuccess,
		Data:   "Result from " + task.Name,
	}
}

func (e *Executor) runWork(ctx context.Context, task *domain.Task, execCtx map[string]any) domain.TaskResult {
	if err := ctx.Err(); err != nil {
		return cancelledResult(ctx)
	}

	// Работа читает снимок: после отмены движок продолжает писать в контекст
	snapshot := maps.Clone(execCtx)
	if snapshot == nil {
		snapshot = make(map[string]any)
	}

	done := make(chan workOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- workOutcome{err: fmt.Errorf("%w: %v", ErrWorkPanic, r)}
			}
		}()

		data, err := task.Work.Execute(ctx, snapshot)
		done <- workOutcome{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return cancelledResult(ctx)
	case out := <-done:
		if out.err != nil {
			return domain.TaskResult{
				Status: domain.TaskStatusFailure,
				Error:  out.err.Error(),
			}
		}
		return domain.TaskResult{
			Status: domain.TaskStatusSuccess,
			Data:   out.data,
		}
	}
}

// cancelledResult — результат task, прерванной отменой контекста.
func cancelledResult(ctx context.Context) domain.TaskResult {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = ctx.Err()
	}
	return domain.TaskResult{
		Status: domain.TaskStatusFailure,
		Error:  fmt.Sprintf("%s: %v", ErrTaskCancelled, cause),
	}
}
