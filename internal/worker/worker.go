package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/flowmanager/internal/domain"
	"github.com/shaiso/flowmanager/internal/mq"
	"github.com/shaiso/flowmanager/internal/telemetry"
)

const defaultPrefetch = 5

// Runner запускает зарегистрированный flow.
// Реализуется flowmanager.Manager.
type Runner interface {
	ExecuteFlow(ctx context.Context, flowID string, execCtx any) (*domain.FlowExecution, error)
}

// Worker выполняет flows по запросам из очереди executions.requested.
//
// Worker не хранит состояния: execution сохраняет Runner, а итог
// публикуется как execution.finished. Несколько экземпляров
// могут потреблять из одной очереди.
type Worker struct {
	runner   Runner
	conn     *mq.Connection
	prefetch int

	logger     *slog.Logger
	metrics    *telemetry.Metrics
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Runner Runner
	Conn   *mq.Connection

	// Prefetch — сколько запросов брать из очереди заранее (default: 5).
	Prefetch int

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		runner:   cfg.Runner,
		conn:     cfg.Conn,
		prefetch: prefetch,
		logger:   logger.With("component", "worker"),
		metrics:  cfg.Metrics,
	}
}

// Start запускает consumer очереди executions.requested в отдельной горутине.
func (w *Worker) Start(ctx context.Context) error {
	if w.runner == nil {
		return ErrNoRunner
	}
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	router := mq.NewRouter().
		Handle(mq.MessageTypeExecutionRequested, w.handleExecutionRequested)

	consumer := mq.NewConsumer(w.conn, mq.ConsumerConfig{
		Queue:    mq.QueueExecutionsRequested,
		Handler:  w.observe(router.Dispatch),
		Prefetch: w.prefetch,
		Logger:   w.logger,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, mq.ErrConnectionClosed) {
			w.logger.Error("execution consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started", "prefetch", w.prefetch)
	return nil
}

// Stop останавливает Worker и ждёт завершения текущего сообщения.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// observe считает обработанные сообщения по типу и итогу.
func (w *Worker) observe(next mq.Handler) mq.Handler {
	return func(ctx context.Context, d *mq.Delivery) error {
		err := next(ctx, d)

		w.metrics.MessageConsumed(string(d.Message.Type), mq.Settle(err, d.Raw.Redelivered).String())

		return err
	}
}

// handleExecutionRequested запускает flow из запроса.
//
// Неудачный execution (status failed) — нормальный итог, сообщение
// подтверждается. Отклоняется только запрос, который нельзя выполнить:
// неизвестный flow или некорректный контекст.
func (w *Worker) handleExecutionRequested(ctx context.Context, d *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExecutionRequestedPayload](&d.Message)
	if err != nil {
		return err
	}
	if payload.FlowID == "" {
		return fmt.Errorf("%w: flow_id is required", mq.ErrBadPayload)
	}

	logger := telemetry.WithFlowID(w.logger, payload.FlowID).With("message_id", d.Message.ID)

	var execCtx any
	if payload.Context != nil {
		execCtx = payload.Context
	}

	exec, err := w.runner.ExecuteFlow(ctx, payload.FlowID, execCtx)
	if err != nil {
		logger.Warn("execution request rejected", "error", err)
		return fmt.Errorf("%w: %w", mq.ErrRejected, err)
	}

	logger.Info("requested execution finished",
		"execution_id", exec.ExecutionID,
		"status", exec.Status,
	)

	return nil
}
