package flowmanager

import "errors"

// Ошибки сервиса.
var (
	// ErrFlowNotFound — flow с таким ID не зарегистрирован.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrExecutionNotFound — execution с таким ID не найден.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrMessagingDisabled — асинхронный запуск недоступен без RabbitMQ.
	ErrMessagingDisabled = errors.New("messaging is disabled")
)
