package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer

	NewLogger(&buf, "info", "json").Info("hello", "flow_id", "f1")
	if !strings.Contains(buf.String(), `"flow_id":"f1"`) {
		t.Errorf("expected JSON output, got %s", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, "info", "text").Info("hello", "flow_id", "f1")
	if !strings.Contains(buf.String(), "flow_id=f1") {
		t.Errorf("expected text output, got %s", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, "warn", "json").Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	// Без логгера — глобальный
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.FlowRegistered()
	m.FlowRegistered()
	m.ExecutionFinished("completed", time.Second)
	m.TaskFinished("success", 10*time.Millisecond)

	if got := counterValue(t, reg, "flowmanager_flows_registered_total"); got != 2 {
		t.Errorf("expected 2 registered flows, got %v", got)
	}
	if got := counterValue(t, reg, "flowmanager_executions_total"); got != 1 {
		t.Errorf("expected 1 finished execution, got %v", got)
	}
}

// counterValue суммирует значения счётчика по всем меткам.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// Не должно паниковать
	m.FlowRegistered()
	m.ValidationFailed("task")
	m.ExecutionFinished("failed", time.Second)
	m.TaskFinished("failure", time.Second)
	m.HTTPRequest("GET", "200")
	m.MessageConsumed("execution.requested", "ack")
	m.ScheduledRun()
}
