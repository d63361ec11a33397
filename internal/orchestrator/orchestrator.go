package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/flowmanager/internal/domain"
	"github.com/shaiso/flowmanager/internal/engine"
	"github.com/shaiso/flowmanager/internal/telemetry"
)

// DefaultMaxSteps — лимит tasks на один run.
const DefaultMaxSteps = 1000

// TaskExecutor выполняет одну task. Реализуется worker.Executor.
type TaskExecutor interface {
	Execute(ctx context.Context, task *domain.Task, execCtx map[string]any) domain.TaskResult
}

// Store сохраняет снимки execution. Реализуется repo.ExecutionRepo.
type Store interface {
	Save(ctx context.Context, exec *domain.FlowExecution) error
}

// Orchestrator ведёт run flow: выполняет tasks по одной,
// выбирает следующую по условию и формирует запись execution.
//
// Один Orchestrator обслуживает любое количество параллельных runs;
// каждый run владеет своим FlowExecution.
type Orchestrator struct {
	executor TaskExecutor
	store    Store
	maxSteps int
	newID    func() string

	active *activeRuns

	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Executor — исполнитель tasks (обязателен).
	Executor TaskExecutor

	// Store — хранилище снимков execution (опционально).
	Store Store

	// MaxSteps — лимит выполненных tasks на run (default: 1000).
	MaxSteps int

	// NewID — генератор ID execution (default: uuid).
	NewID func() string

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		executor: cfg.Executor,
		store:    cfg.Store,
		maxSteps: maxSteps,
		newID:    newID,
		active:   newActiveRuns(),
		logger:   logger,
		metrics:  cfg.Metrics,
	}
}

// Run выполняет flow и возвращает завершённый execution.
//
// Run не возвращает ошибку: неудача task, отсутствующая task,
// превышение лимита шагов и отмена ctx дают execution со статусом failed.
// Flow повторно не валидируется.
func (o *Orchestrator) Run(ctx context.Context, flow *domain.Flow, initialContext map[string]any) *domain.FlowExecution {
	exec := domain.NewFlowExecution(o.newID(), flow.ID, flow.StartTask, initialContext)
	exec.MarkRunning()

	logger := telemetry.WithExecutionID(telemetry.WithFlowID(o.logger, flow.ID), exec.ExecutionID)
	state := newRunState(flow, exec, logger)

	o.active.add(exec.ExecutionID, state)
	defer o.active.remove(exec.ExecutionID)

	logger.Info("execution started", "start_task", flow.StartTask)
	o.save(ctx, state)

	defer func() {
		state.update(func(exec *domain.FlowExecution) {
			exec.Finish()
		})
		// Финальный снимок сохраняется и после отмены ctx
		o.save(context.WithoutCancel(ctx), state)

		o.metrics.ExecutionFinished(string(exec.Status), exec.Duration())
		logger.Info("execution finished",
			"status", exec.Status,
			"tasks", len(exec.TaskOrder),
			"duration", exec.Duration(),
		)
	}()

	o.loop(ctx, state)

	return exec
}

// loop — цикл run. Завершает execution статусом completed или failed.
func (o *Orchestrator) loop(ctx context.Context, s *runState) {
	exec := s.exec

	for exec.CurrentTask != "" && exec.CurrentTask != domain.EndTask {
		if ctx.Err() != nil {
			o.fail(s, cancelError(ctx))
			return
		}

		if s.steps >= o.maxSteps {
			o.fail(s, fmt.Errorf("%w: %d", ErrStepLimitExceeded, o.maxSteps))
			return
		}

		name := exec.CurrentTask
		task, ok := s.flow.TaskByName(name)
		if !ok {
			o.fail(s, fmt.Errorf("%w: %q", ErrTaskNotFound, name))
			return
		}

		result := o.executor.Execute(ctx, task, exec.Context)
		s.steps++

		next := domain.EndTask
		if cond, ok := s.flow.ConditionFor(name); ok {
			next = engine.Evaluate(*cond, result)
		}

		s.update(func(exec *domain.FlowExecution) {
			exec.RecordResult(name, result)
			exec.CurrentTask = next
		})

		s.logger.Debug("task transition",
			"task", name,
			"status", result.Status,
			"next", next,
		)

		if result.Failed() && next == domain.EndTask {
			o.fail(s, nil)
			return
		}

		o.save(ctx, s)
	}

	s.update(func(exec *domain.FlowExecution) {
		exec.MarkCompleted()
	})
}

// fail переводит execution в failed. Текст err попадает в Context["error"].
func (o *Orchestrator) fail(s *runState, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
		s.logger.Warn("execution fault", "error", err)
	}

	s.update(func(exec *domain.FlowExecution) {
		exec.MarkFailed(errText)
	})
}

func (o *Orchestrator) save(ctx context.Context, s *runState) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(ctx, s.snapshot()); err != nil {
		s.logger.Error("failed to save execution", "error", err)
	}
}

// ActiveCount возвращает количество выполняющихся runs.
func (o *Orchestrator) ActiveCount() int {
	return o.active.count()
}

// Active возвращает снимки выполняющихся runs.
func (o *Orchestrator) Active() []*domain.FlowExecution {
	return o.active.snapshots()
}

func cancelError(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrRunCancelled, cause)
}
