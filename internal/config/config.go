// Package config читает настройки сервиса из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Значения по умолчанию.
const (
	DefaultAPIPort         = "8080"
	DefaultNoopTaskDelay   = 100 * time.Millisecond
	DefaultMaxSteps        = 1000
	DefaultShutdownTimeout = 10 * time.Second
)

// ErrInvalidValue — переменная окружения не разбирается в нужный тип.
var ErrInvalidValue = errors.New("invalid config value")

// Config — настройки cmd/flowmanager.
type Config struct {
	APIPort   string // API_PORT
	LogLevel  string // LOG_LEVEL
	LogFormat string // LOG_FORMAT

	// RabbitMQURL — пустая строка отключает обмен сообщениями.
	RabbitMQURL string // RABBITMQ_URL

	// FlowsDir — каталог с .json/.hcl определениями, загружаемыми при старте.
	FlowsDir string // FLOWS_DIR

	NoopTaskDelay   time.Duration // NOOP_TASK_DELAY
	MaxSteps        int           // MAX_STEPS
	ShutdownTimeout time.Duration // SHUTDOWN_TIMEOUT
	DemoTasks       bool          // DEMO_TASKS
}

// Addr возвращает адрес HTTP сервера.
func (c Config) Addr() string {
	return ":" + c.APIPort
}

// Load читает конфигурацию из окружения процесса.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom читает конфигурацию через lookup (для тестов).
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}

	cfg := Config{
		APIPort:         p.str("API_PORT", DefaultAPIPort),
		LogLevel:        p.str("LOG_LEVEL", ""),
		LogFormat:       p.str("LOG_FORMAT", ""),
		RabbitMQURL:     p.str("RABBITMQ_URL", ""),
		FlowsDir:        p.str("FLOWS_DIR", ""),
		NoopTaskDelay:   p.duration("NOOP_TASK_DELAY", DefaultNoopTaskDelay),
		MaxSteps:        p.int("MAX_STEPS", DefaultMaxSteps),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		DemoTasks:       p.bool("DEMO_TASKS", true),
	}

	if p.err == nil && cfg.MaxSteps <= 0 {
		p.err = fmt.Errorf("%w: MAX_STEPS must be positive, got %d", ErrInvalidValue, cfg.MaxSteps)
	}

	return cfg, p.err
}

// parser запоминает первую ошибку разбора.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, value, err)
	}
}
