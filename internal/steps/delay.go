package steps

import (
	"context"
	"fmt"
	"time"
)

const (
	// StepTypeDelay — тип работы задержки.
	StepTypeDelay = "delay"

	// Ключи конфигурации delay.
	configDuration    = "duration"
	configDurationSec = "duration_sec"
	configDurationMs  = "duration_ms"
)

// DelayStep ждёт заданное время и завершается успешно.
// Отмена контекста execution прерывает ожидание.
//
// Конфигурация (первый заданный ключ):
//
//	{"duration": "1m30s"}   // строка time.ParseDuration
//	{"duration_sec": 10}
//	{"duration_ms": 5000}
//
// Результат: {"duration_ms": <фактическая задержка>}.
type DelayStep struct{}

// NewDelayStep создаёт новый DelayStep.
func NewDelayStep() *DelayStep {
	return &DelayStep{}
}

// Type возвращает тип работы.
func (s *DelayStep) Type() string {
	return StepTypeDelay
}

// Execute ждёт длительность из конфигурации.
func (s *DelayStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	duration, err := parseDuration(req.Config)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, context.Cause(ctx))
	case <-timer.C:
	}

	return &Response{
		Outputs: map[string]any{"duration_ms": duration.Milliseconds()},
	}, nil
}

func parseDuration(config map[string]any) (time.Duration, error) {
	if raw := GetConfigString(config, configDuration); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("%w: %s: invalid duration %q", ErrInvalidConfig, StepTypeDelay, raw)
		}
		return d, nil
	}

	if sec := GetConfigInt(config, configDurationSec); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}
	if ms := GetConfigInt(config, configDurationMs); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("%w: %s: duration, duration_sec or duration_ms required",
		ErrInvalidConfig, StepTypeDelay)
}
