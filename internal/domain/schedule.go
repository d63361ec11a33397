package domain

import (
	"maps"
	"time"
)

// Schedule — расписание периодического запуска flow.
//
// Scheduler проверяет NextDueAt и запускает execution, когда время подошло.
// Расписания живут в памяти процесса, как и flows.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID string `json:"id"`

	// FlowID — flow, который нужно запускать.
	FlowID string `json:"flow_id"`

	// CronExpr — cron-выражение (5 полей).
	// Примеры:
	//   "0 9 * * *"     — каждый день в 9:00
	//   "*/5 * * * *"   — каждые 5 минут
	CronExpr string `json:"cron_expr"`

	// Timezone — часовой пояс для вычисления времени. По умолчанию "UTC".
	Timezone string `json:"timezone"`

	// Context — начальный контекст, передаваемый в каждый execution.
	Context map[string]any `json:"context,omitempty"`

	// Enabled — флаг активности.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующего запуска.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastExecutionID — ID последнего созданного execution.
	LastExecutionID string `json:"last_execution_id,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled || s.NextDueAt == nil {
		return false
	}
	return !now.Before(*s.NextDueAt)
}

// RecordRun записывает информацию о запуске.
func (s *Schedule) RecordRun(executionID string, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	s.LastExecutionID = executionID
	s.NextDueAt = &nextDue
}

// Clone возвращает копию schedule.
func (s *Schedule) Clone() *Schedule {
	c := *s
	c.Context = maps.Clone(s.Context)
	if s.NextDueAt != nil {
		t := *s.NextDueAt
		c.NextDueAt = &t
	}
	if s.LastRunAt != nil {
		t := *s.LastRunAt
		c.LastRunAt = &t
	}
	return &c
}
