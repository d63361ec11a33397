package flowmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/flowmanager/internal/domain"
	"github.com/shaiso/flowmanager/internal/engine"
	"github.com/shaiso/flowmanager/internal/mq"
	"github.com/shaiso/flowmanager/internal/orchestrator"
	"github.com/shaiso/flowmanager/internal/repo"
	"github.com/shaiso/flowmanager/internal/steps"
	"github.com/shaiso/flowmanager/internal/telemetry"
	"github.com/shaiso/flowmanager/internal/worker"
)

// Publisher публикует события выполнения. Реализуется mq.Publisher.
type Publisher interface {
	PublishExecutionRequested(ctx context.Context, payload mq.ExecutionRequestedPayload) (string, error)
	PublishExecutionFinished(ctx context.Context, payload mq.ExecutionFinishedPayload) error
}

// Manager — точка входа сервиса: регистрация flows, запуск и чтение executions.
//
// Все зависимости передаются через Config; глобального состояния нет.
// Методы безопасны для конкурентного вызова.
type Manager struct {
	flows        *repo.FlowRepo
	executions   *repo.ExecutionRepo
	validator    *engine.Validator
	binder       *steps.Registry
	orchestrator *orchestrator.Orchestrator
	publisher    Publisher

	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Config — конфигурация Manager. Все поля опциональны.
type Config struct {
	Flows      *repo.FlowRepo
	Executions *repo.ExecutionRepo
	Validator  *engine.Validator

	// Binder привязывает work к tasks при регистрации (default: steps.DefaultRegistry()).
	Binder *steps.Registry

	// Orchestrator ведёт runs. Если nil, создаётся с worker.Executor
	// и сохранением снимков в Executions.
	Orchestrator *orchestrator.Orchestrator

	// Publisher — публикация событий (nil отключает RabbitMQ).
	Publisher Publisher

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// New создаёт новый Manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	flows := cfg.Flows
	if flows == nil {
		flows = repo.NewFlowRepo()
	}

	executions := cfg.Executions
	if executions == nil {
		executions = repo.NewExecutionRepo()
	}

	validator := cfg.Validator
	if validator == nil {
		validator = engine.NewValidator(logger)
	}

	binder := cfg.Binder
	if binder == nil {
		binder = steps.DefaultRegistry()
	}

	orch := cfg.Orchestrator
	if orch == nil {
		orch = orchestrator.New(orchestrator.Config{
			Executor: worker.NewExecutor(worker.ExecutorConfig{Logger: logger, Metrics: cfg.Metrics}),
			Store:    executions,
			Logger:   logger,
			Metrics:  cfg.Metrics,
		})
	}

	return &Manager{
		flows:        flows,
		executions:   executions,
		validator:    validator,
		binder:       binder,
		orchestrator: orch,
		publisher:    cfg.Publisher,
		logger:       logger,
		metrics:      cfg.Metrics,
	}
}

// RegisterFlow валидирует определение, привязывает work и сохраняет flow.
//
// При ошибке ничего не сохраняется. Ошибки валидации — *engine.ValidationError,
// неизвестный тип work — steps.ErrUnknownWorkType, неверная конфигурация
// work — steps.ErrInvalidConfig.
func (m *Manager) RegisterFlow(raw map[string]any) (string, []engine.Warning, error) {
	result, err := m.validator.Validate(raw)
	if err != nil {
		m.validationFailed(err)
		return "", nil, err
	}

	flow := result.Flow
	if err := m.binder.Bind(flow); err != nil {
		m.metrics.ValidationFailed("work")
		return "", nil, fmt.Errorf("bind flow %s: %w", flow.ID, err)
	}
	flow.CreatedAt = time.Now().UTC()

	if err := m.flows.Save(context.Background(), flow); err != nil {
		return "", nil, fmt.Errorf("save flow: %w", err)
	}

	m.metrics.FlowRegistered()
	m.logger.Info("flow registered",
		"flow_id", flow.ID,
		"tasks", len(flow.Tasks),
		"conditions", len(flow.Conditions),
		"warnings", len(result.Warnings),
	)

	return flow.ID, result.Warnings, nil
}

func (m *Manager) validationFailed(err error) {
	section := "unknown"
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		section = ve.Section
	}
	m.metrics.ValidationFailed(section)
	m.logger.Info("flow rejected", "section", section, "error", err)
}

// ExecuteFlow синхронно выполняет зарегистрированный flow.
//
// execCtx — начальный контекст: nil или map с непустыми строковыми ключами,
// не больше 1 MiB в JSON. Неудачный run — не ошибка: он возвращается
// как execution со статусом failed.
func (m *Manager) ExecuteFlow(ctx context.Context, flowID string, execCtx any) (*domain.FlowExecution, error) {
	flow, seed, err := m.prepare(ctx, flowID, execCtx)
	if err != nil {
		return nil, err
	}

	exec := m.orchestrator.Run(ctx, flow, seed)
	m.publishFinished(ctx, exec)

	return exec, nil
}

// RequestExecution ставит запуск flow в очередь RabbitMQ и возвращает ID сообщения.
// Flow и контекст проверяются до публикации.
func (m *Manager) RequestExecution(ctx context.Context, flowID string, execCtx any) (string, error) {
	if m.publisher == nil {
		return "", ErrMessagingDisabled
	}

	_, seed, err := m.prepare(ctx, flowID, execCtx)
	if err != nil {
		return "", err
	}

	msgID, err := m.publisher.PublishExecutionRequested(ctx, mq.ExecutionRequestedPayload{
		FlowID:  flowID,
		Context: seed,
	})
	if err != nil {
		return "", fmt.Errorf("request execution: %w", err)
	}

	m.logger.Info("execution requested", "flow_id", flowID, "message_id", msgID)
	return msgID, nil
}

// prepare находит flow и проверяет начальный контекст.
func (m *Manager) prepare(ctx context.Context, flowID string, execCtx any) (*domain.Flow, map[string]any, error) {
	flow, err := m.flows.GetByID(ctx, flowID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get flow: %w", err)
	}

	seed, err := engine.ValidateContext(execCtx)
	if err != nil {
		return nil, nil, err
	}

	return flow, seed, nil
}

// publishFinished публикует execution.finished. Ошибка публикации
// только логируется: execution уже сохранён.
func (m *Manager) publishFinished(ctx context.Context, exec *domain.FlowExecution) {
	if m.publisher == nil {
		return
	}

	errText, _ := exec.Context[domain.ContextErrorKey].(string)
	payload := mq.ExecutionFinishedPayload{
		ExecutionID: exec.ExecutionID,
		FlowID:      exec.FlowID,
		Status:      string(exec.Status),
		Error:       errText,
		TaskOrder:   exec.TaskOrder,
		StartTime:   exec.StartTime,
		DurationMs:  exec.Duration().Milliseconds(),
	}
	if exec.EndTime != nil {
		payload.EndTime = *exec.EndTime
	}

	if err := m.publisher.PublishExecutionFinished(context.WithoutCancel(ctx), payload); err != nil {
		m.logger.Warn("failed to publish execution finished",
			"execution_id", exec.ExecutionID,
			"error", err,
		)
	}
}

// GetFlow возвращает зарегистрированный flow.
func (m *Manager) GetFlow(flowID string) (*domain.Flow, error) {
	flow, err := m.flows.GetByID(context.Background(), flowID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	return flow, err
}

// GetExecution возвращает снимок execution.
// Для выполняющегося run это последнее сохранённое состояние.
func (m *Manager) GetExecution(executionID string) (*domain.FlowExecution, error) {
	exec, err := m.executions.GetByID(context.Background(), executionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	return exec, err
}

// ListFlows возвращает все flows в порядке регистрации.
func (m *Manager) ListFlows(ctx context.Context) ([]*domain.Flow, error) {
	return m.flows.List(ctx)
}

// ListExecutions возвращает executions, новые первыми.
// Пустой flowID означает все flows.
func (m *Manager) ListExecutions(ctx context.Context, flowID string) ([]*domain.FlowExecution, error) {
	return m.executions.List(ctx, repo.ExecutionFilter{FlowID: flowID})
}

// Stats — счётчики для /health.
type Stats struct {
	Flows      int      `json:"flows"`
	Executions int      `json:"executions"`
	Active     int      `json:"active"`
	WorkTypes  []string `json:"work_types"`
}

// Stats возвращает текущие счётчики.
func (m *Manager) Stats() Stats {
	return Stats{
		Flows:      m.flows.Count(),
		Executions: m.executions.Count(),
		Active:     m.orchestrator.ActiveCount(),
		WorkTypes:  m.binder.Types(),
	}
}
