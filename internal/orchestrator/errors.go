package orchestrator

import "errors"

// Ошибки оркестратора. Попадают в Context["error"] упавшего execution.
var (
	// ErrTaskNotFound — текущая task отсутствует во flow.
	ErrTaskNotFound = errors.New("task not found in flow")

	// ErrStepLimitExceeded — run превысил лимит шагов.
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	// ErrRunCancelled — контекст run отменён.
	ErrRunCancelled = errors.New("run cancelled")
)
