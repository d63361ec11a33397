package worker

import "errors"

// Ошибки воркера.
var (
	// ErrTaskCancelled — выполнение task прервано отменой контекста.
	ErrTaskCancelled = errors.New("task cancelled")

	// ErrWorkPanic — работа task запаниковала.
	ErrWorkPanic = errors.New("work panicked")

	// ErrNoRunner — Worker создан без Runner.
	ErrNoRunner = errors.New("worker has no runner")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
