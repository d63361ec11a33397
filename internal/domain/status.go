package domain

// FlowStatus — статус выполнения flow.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
type FlowStatus string

const (
	// FlowStatusPending — execution создан, но ещё не начал выполняться.
	FlowStatusPending FlowStatus = "pending"

	// FlowStatusRunning — execution в процессе выполнения.
	FlowStatusRunning FlowStatus = "running"

	// FlowStatusCompleted — execution дошёл до end без фатальной ошибки.
	FlowStatusCompleted FlowStatus = "completed"

	// FlowStatusFailed — execution завершился с ошибкой.
	FlowStatusFailed FlowStatus = "failed"
)

// IsTerminal возвращает true, если статус финальный.
func (s FlowStatus) IsTerminal() bool {
	switch s {
	case FlowStatusCompleted, FlowStatusFailed:
		return true
	default:
		return false
	}
}

// TaskStatus — статус выполнения task.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCESS
//	                  ↘ FAILURE
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusFailure TaskStatus = "failure"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure
}

// Outcome — ожидаемый статус task, за которым следит condition.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Valid проверяет, что outcome — одно из допустимых значений.
func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// Matches возвращает true, если наблюдаемый статус task совпадает с outcome.
func (o Outcome) Matches(status TaskStatus) bool {
	switch o {
	case OutcomeSuccess:
		return status == TaskStatusSuccess
	case OutcomeFailure:
		return status == TaskStatusFailure
	default:
		return false
	}
}
