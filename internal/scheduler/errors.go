package scheduler

import "errors"

// Ошибки планировщика.
var (
	// ErrInvalidCron — cron-выражение не разбирается.
	ErrInvalidCron = errors.New("invalid cron expression")

	// ErrInvalidTimezone — неизвестный часовой пояс.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrScheduleNotFound — schedule с таким ID не найден.
	ErrScheduleNotFound = errors.New("schedule not found")
)
