package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/flowmanager/internal/domain"
)

// cronParser — парсер cron-выражений (5 полей и дескрипторы вида @hourly).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CalculateNextDue вычисляет следующее время выполнения schedule после from.
// Время считается в часовом поясе schedule, результат возвращается в UTC.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := loadLocation(sched.Timezone)
	if err != nil {
		return time.Time{}, err
	}

	spec, err := cronParser.Parse(sched.CronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidCron, sched.CronExpr, err)
	}

	return spec.Next(from.In(loc)).UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidCron, cronExpr, err)
	}
	return nil
}

// loadLocation загружает часовой пояс. Пустая строка означает UTC.
func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, tz, err)
	}
	return loc, nil
}
