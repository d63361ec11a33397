package repo

import (
	"context"
	"sort"
	"time"

	"github.com/shaiso/flowmanager/internal/domain"
)

// ScheduleRepo — in-memory хранилище расписаний.
type ScheduleRepo struct {
	schedules *table[*domain.Schedule]
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo() *ScheduleRepo {
	return &ScheduleRepo{schedules: newTable[*domain.Schedule]()}
}

// Create создаёт schedule. Возвращает ErrAlreadyExists, если ID занят.
func (r *ScheduleRepo) Create(ctx context.Context, schedule *domain.Schedule) error {
	if !r.schedules.insert(schedule.ID, schedule.Clone()) {
		return ErrAlreadyExists
	}
	return nil
}

// GetByID возвращает schedule по ID.
func (r *ScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	s, ok := r.schedules.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// ScheduleFilter — фильтр для List.
type ScheduleFilter struct {
	FlowID  string
	Enabled *bool
	Limit   int
	Offset  int
}

// List возвращает schedules в порядке создания.
func (r *ScheduleRepo) List(ctx context.Context, filter ScheduleFilter) ([]*domain.Schedule, error) {
	rows := r.schedules.filter(func(s *domain.Schedule) bool {
		if filter.FlowID != "" && s.FlowID != filter.FlowID {
			return false
		}
		return filter.Enabled == nil || s.Enabled == *filter.Enabled
	})

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})

	return cloneSchedules(page(rows, filter.Limit, filter.Offset)), nil
}

// ListDue возвращает включённые schedules, чьё время наступило, ближайшие первыми.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Schedule, error) {
	rows := r.schedules.filter(func(s *domain.Schedule) bool {
		return s.IsDue(now)
	})

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].NextDueAt.Before(*rows[j].NextDueAt)
	})

	return cloneSchedules(page(rows, limit, 0)), nil
}

// Update заменяет существующий schedule.
func (r *ScheduleRepo) Update(ctx context.Context, schedule *domain.Schedule) error {
	c := schedule.Clone()
	if !r.schedules.update(schedule.ID, func(*domain.Schedule) *domain.Schedule { return c }) {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет schedule.
func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	if !r.schedules.delete(id) {
		return ErrNotFound
	}
	return nil
}

// SetEnabled включает или выключает schedule.
func (r *ScheduleRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	ok := r.schedules.update(id, func(s *domain.Schedule) *domain.Schedule {
		c := s.Clone()
		c.Enabled = enabled
		return c
	})
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Count возвращает количество schedules.
func (r *ScheduleRepo) Count() int {
	return r.schedules.len()
}

func cloneSchedules(rows []*domain.Schedule) []*domain.Schedule {
	out := make([]*domain.Schedule, len(rows))
	for i, s := range rows {
		out[i] = s.Clone()
	}
	return out
}
