package api

import (
	"log/slog"

	"github.com/shaiso/flowmanager/internal/flowmanager"
	"github.com/shaiso/flowmanager/internal/scheduler"
	"github.com/shaiso/flowmanager/internal/telemetry"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	manager   *flowmanager.Manager
	scheduler *scheduler.Scheduler
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Manager *flowmanager.Manager

	// Scheduler — опционально; без него маршруты /schedules отвечают 503.
	Scheduler *scheduler.Scheduler

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		manager:   cfg.Manager,
		scheduler: cfg.Scheduler,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}
