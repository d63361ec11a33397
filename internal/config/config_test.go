package config

import (
	"errors"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want :8080", cfg.Addr())
	}
	if cfg.NoopTaskDelay != DefaultNoopTaskDelay {
		t.Errorf("NoopTaskDelay = %v", cfg.NoopTaskDelay)
	}
	if cfg.MaxSteps != DefaultMaxSteps {
		t.Errorf("MaxSteps = %d", cfg.MaxSteps)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if !cfg.DemoTasks {
		t.Error("DemoTasks = false, want true")
	}
	if cfg.RabbitMQURL != "" {
		t.Errorf("RabbitMQURL = %q, want empty", cfg.RabbitMQURL)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"API_PORT":         "9090",
		"LOG_LEVEL":        "debug",
		"LOG_FORMAT":       "text",
		"RABBITMQ_URL":     "amqp://localhost/",
		"FLOWS_DIR":        "./flows",
		"NOOP_TASK_DELAY":  "0s",
		"MAX_STEPS":        "50",
		"SHUTDOWN_TIMEOUT": "3s",
		"DEMO_TASKS":       "false",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	want := Config{
		APIPort:         "9090",
		LogLevel:        "debug",
		LogFormat:       "text",
		RabbitMQURL:     "amqp://localhost/",
		FlowsDir:        "./flows",
		NoopTaskDelay:   0,
		MaxSteps:        50,
		ShutdownTimeout: 3 * time.Second,
		DemoTasks:       false,
	}
	if cfg != want {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"bad duration", map[string]string{"NOOP_TASK_DELAY": "soon"}},
		{"bad int", map[string]string{"MAX_STEPS": "many"}},
		{"non-positive steps", map[string]string{"MAX_STEPS": "0"}},
		{"bad bool", map[string]string{"DEMO_TASKS": "maybe"}},
		{"bad timeout", map[string]string{"SHUTDOWN_TIMEOUT": "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(env(tt.vars))
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("err = %v, want ErrInvalidValue", err)
			}
		})
	}
}
