// flowmanager — сервис регистрации и выполнения flows.
//
// Сервис:
//   - Принимает определения flows по HTTP и из FLOWS_DIR (.json/.hcl)
//   - Выполняет flows синхронно по запросу API
//   - Выполняет flows по cron-расписаниям
//   - При заданном RABBITMQ_URL публикует execution.finished
//     и принимает execution.requested для асинхронного запуска
//
// Всё состояние хранится в памяти процесса.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/flowmanager/internal/api"
	"github.com/shaiso/flowmanager/internal/config"
	"github.com/shaiso/flowmanager/internal/definition"
	"github.com/shaiso/flowmanager/internal/engine"
	"github.com/shaiso/flowmanager/internal/flowmanager"
	"github.com/shaiso/flowmanager/internal/mq"
	"github.com/shaiso/flowmanager/internal/orchestrator"
	"github.com/shaiso/flowmanager/internal/repo"
	"github.com/shaiso/flowmanager/internal/scheduler"
	"github.com/shaiso/flowmanager/internal/steps"
	"github.com/shaiso/flowmanager/internal/telemetry"
	"github.com/shaiso/flowmanager/internal/worker"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting flowmanager")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(registry)

	// Хранилища в памяти
	flowRepo := repo.NewFlowRepo()
	executionRepo := repo.NewExecutionRepo()
	scheduleRepo := repo.NewScheduleRepo()

	// Привязка работ к tasks
	binder := steps.DefaultRegistry()
	if cfg.DemoTasks {
		steps.RegisterDemo(binder, true)
	}

	// NOOP_TASK_DELAY=0 выключает задержку no-op tasks
	noopDelay := cfg.NoopTaskDelay
	if noopDelay == 0 {
		noopDelay = -1
	}

	orch := orchestrator.New(orchestrator.Config{
		Executor: worker.NewExecutor(worker.ExecutorConfig{
			NoopDelay: noopDelay,
			Logger:    logger,
			Metrics:   metrics,
		}),
		Store:    executionRepo,
		MaxSteps: cfg.MaxSteps,
		Logger:   logger,
		Metrics:  metrics,
	})

	// RabbitMQ (опционально)
	var mqConn *mq.Connection
	var publisher flowmanager.Publisher
	if cfg.RabbitMQURL != "" {
		mqConn, err = mq.Dial(mq.ConnectionConfig{URL: cfg.RabbitMQURL, Logger: logger})
		if err != nil {
			logger.Warn("RabbitMQ not available, messaging disabled", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			publisher = mq.NewPublisher(mqConn, logger)
		}
	}

	manager := flowmanager.New(flowmanager.Config{
		Flows:        flowRepo,
		Executions:   executionRepo,
		Validator:    engine.NewValidator(logger),
		Binder:       binder,
		Orchestrator: orch,
		Publisher:    publisher,
		Logger:       logger,
		Metrics:      metrics,
	})

	if cfg.FlowsDir != "" {
		loadFlows(manager, cfg.FlowsDir, logger)
	}

	// Consumer execution.requested
	var w *worker.Worker
	if publisher != nil {
		w = worker.New(worker.Config{
			Runner:  manager,
			Conn:    mqConn,
			Logger:  logger,
			Metrics: metrics,
		})
		if err := w.Start(ctx); err != nil {
			logger.Error("failed to start worker", "error", err)
			os.Exit(1)
		}
	}

	// Планировщик
	sched := scheduler.New(scheduler.Config{
		Schedules: scheduleRepo,
		Runner:    manager,
		Logger:    logger,
		Metrics:   metrics,
	})
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	// HTTP
	handler := api.NewHandler(api.Config{
		Manager:   manager,
		Scheduler: sched,
		Metrics:   metrics,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		rabbit := "disabled"
		switch {
		case mqConn == nil && cfg.RabbitMQURL != "":
			rabbit = "unavailable"
		case mqConn != nil:
			rabbit = "disconnected"
			if mqConn.Connected() {
				rabbit = "connected"
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s rabbitmq=%s", time.Since(startTime), rabbit)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if w != nil {
		w.Stop()
	}
	<-schedDone

	logger.Info("stopped", "active_runs", orch.ActiveCount())
}

// loadFlows регистрирует определения из каталога. Ошибочные определения
// пропускаются с записью в лог.
func loadFlows(manager *flowmanager.Manager, dir string, logger *slog.Logger) {
	sources, err := definition.LoadDir(dir)
	if err != nil {
		logger.Error("failed to load flows", "dir", dir, "error", err)
		return
	}

	for _, src := range sources {
		flowID, warnings, err := manager.RegisterFlow(src.Raw)
		if err != nil {
			logger.Error("flow rejected", "file", src.Path, "error", err)
			continue
		}
		logger.Info("flow loaded", "file", src.Path, "flow_id", flowID, "warnings", len(warnings))
	}
}
