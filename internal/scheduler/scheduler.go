package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowmanager/internal/domain"
	"github.com/shaiso/flowmanager/internal/engine"
	"github.com/shaiso/flowmanager/internal/flowmanager"
	"github.com/shaiso/flowmanager/internal/repo"
	"github.com/shaiso/flowmanager/internal/telemetry"
)

const (
	defaultBatchSize    = 100
	defaultTickInterval = time.Second
)

// Runner находит и запускает flows. Реализуется flowmanager.Manager.
type Runner interface {
	GetFlow(flowID string) (*domain.Flow, error)
	ExecuteFlow(ctx context.Context, flowID string, execCtx any) (*domain.FlowExecution, error)
}

// Scheduler запускает flows по cron-расписаниям.
//
// Расписания хранятся в памяти процесса. Due schedules выполняются
// последовательно внутри Tick; пропущенные за время долгого run
// срабатывания не накапливаются, следующее время считается от текущего.
type Scheduler struct {
	schedules    *repo.ScheduleRepo
	runner       Runner
	batchSize    int
	tickInterval time.Duration
	now          func() time.Time

	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules *repo.ScheduleRepo
	Runner    Runner

	BatchSize    int           // количество schedules за один тик (default: 100)
	TickInterval time.Duration // интервал Run (default: 1s)

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	schedules := cfg.Schedules
	if schedules == nil {
		schedules = repo.NewScheduleRepo()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules:    schedules,
		runner:       cfg.Runner,
		batchSize:    batchSize,
		tickInterval: tickInterval,
		now:          now,
		logger:       logger.With("component", "scheduler"),
		metrics:      cfg.Metrics,
	}
}

// AddRequest — параметры нового schedule.
type AddRequest struct {
	FlowID   string
	CronExpr string
	Timezone string
	Context  any
}

// Add создаёт включённый schedule для зарегистрированного flow.
func (s *Scheduler) Add(ctx context.Context, req AddRequest) (*domain.Schedule, error) {
	if _, err := s.runner.GetFlow(req.FlowID); err != nil {
		return nil, err
	}

	execCtx, err := engine.ValidateContext(req.Context)
	if err != nil {
		return nil, err
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	now := s.now()
	sched := &domain.Schedule{
		ID:        uuid.NewString(),
		FlowID:    req.FlowID,
		CronExpr:  req.CronExpr,
		Timezone:  tz,
		Context:   execCtx,
		Enabled:   true,
		CreatedAt: now.UTC(),
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		return nil, err
	}
	sched.NextDueAt = &nextDue

	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	s.logger.Info("schedule added",
		"schedule_id", sched.ID,
		"flow_id", sched.FlowID,
		"cron", sched.CronExpr,
		"next_due_at", nextDue,
	)

	return sched, nil
}

// Get возвращает schedule по ID.
func (s *Scheduler) Get(ctx context.Context, id string) (*domain.Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	return sched, err
}

// Remove удаляет schedule.
func (s *Scheduler) Remove(ctx context.Context, id string) error {
	err := s.schedules.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	if err == nil {
		s.logger.Info("schedule removed", "schedule_id", id)
	}
	return err
}

// List возвращает schedules. Пустой flowID означает все flows.
func (s *Scheduler) List(ctx context.Context, flowID string) ([]*domain.Schedule, error) {
	return s.schedules.List(ctx, repo.ScheduleFilter{FlowID: flowID})
}

// Run вызывает Tick каждые TickInterval до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "tick_interval", s.tickInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick выполняет один тик планировщика.
//
//  1. Находит due schedules (enabled, next_due_at <= now)
//  2. Сдвигает next_due_at и запускает flow
//  3. Записывает ID execution в schedule
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	due, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(due))

	var started int
	for _, sched := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ok, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"flow_id", sched.FlowID,
				"error", err,
			)
			continue
		}
		if ok {
			started++
		}
	}

	s.logger.Info("scheduler tick completed", "due", len(due), "executions_started", started)
	return nil
}

// processSchedule запускает flow одного schedule.
// Возвращает true, если execution был создан.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Повторная попытка даст ту же ошибку
		s.logger.Warn("invalid schedule, disabling", "schedule_id", sched.ID, "error", err)
		return false, s.schedules.SetEnabled(ctx, sched.ID, false)
	}

	exec, err := s.runner.ExecuteFlow(ctx, sched.FlowID, sched.Context)
	if errors.Is(err, flowmanager.ErrFlowNotFound) {
		s.logger.Warn("flow not found for schedule, disabling",
			"schedule_id", sched.ID,
			"flow_id", sched.FlowID,
		)
		return false, s.schedules.SetEnabled(ctx, sched.ID, false)
	}
	if err != nil {
		return false, fmt.Errorf("execute flow: %w", err)
	}

	s.metrics.ScheduledRun()
	s.logger.Info("scheduled execution finished",
		"schedule_id", sched.ID,
		"flow_id", sched.FlowID,
		"execution_id", exec.ExecutionID,
		"status", exec.Status,
	)

	sched.RecordRun(exec.ExecutionID, nextDue)
	if err := s.schedules.Update(ctx, sched); err != nil {
		// Schedule могли удалить, пока шёл run
		if errors.Is(err, repo.ErrNotFound) {
			return true, nil
		}
		return true, fmt.Errorf("update schedule: %w", err)
	}

	return true, nil
}
