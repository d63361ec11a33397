package steps

import "errors"

// Ошибки работ.
var (
	// ErrUnknownWorkType — тип работы не найден в реестре.
	ErrUnknownWorkType = errors.New("unknown work type")

	// ErrInvalidConfig — невалидная конфигурация работы.
	ErrInvalidConfig = errors.New("invalid work config")

	// ErrStepCancelled — выполнение работы отменено.
	ErrStepCancelled = errors.New("work execution cancelled")

	// ErrMissingInput — в контексте нет данных предыдущей task.
	ErrMissingInput = errors.New("missing input in context")
)
