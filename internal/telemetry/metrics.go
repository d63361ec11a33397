package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flowmanager"

// Metrics — метрики Prometheus для flowmanager.
//
// Все методы безопасны для nil-получателя: компоненты, собранные
// без метрик (например, в тестах), просто ничего не записывают.
type Metrics struct {
	flowsRegistered   prometheus.Counter
	validationErrors  *prometheus.CounterVec
	executions        *prometheus.CounterVec
	executionDuration prometheus.Histogram
	taskDuration      *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	messagesConsumed  *prometheus.CounterVec
	scheduledRuns     prometheus.Counter
}

// NewMetrics регистрирует метрики в reg.
// Если reg nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		flowsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_registered_total",
			Help:      "Total number of registered flows",
		}),
		validationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Total number of rejected flow definitions",
		}, []string{"section"}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Total number of finished executions by status",
		}, []string{"status"}),
		executionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Duration of flow executions",
			Buckets:   prometheus.DefBuckets,
		}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of task executions by status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "code"}),
		messagesConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mq_messages_consumed_total",
			Help:      "Total number of consumed messages by settlement (ack, requeue, dead_letter)",
		}, []string{"type", "result"}),
		scheduledRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_runs_total",
			Help:      "Total number of executions started by the scheduler",
		}),
	}
}

// FlowRegistered увеличивает счётчик зарегистрированных flows.
func (m *Metrics) FlowRegistered() {
	if m == nil {
		return
	}
	m.flowsRegistered.Inc()
}

// ValidationFailed учитывает отклонённое определение flow.
func (m *Metrics) ValidationFailed(section string) {
	if m == nil {
		return
	}
	m.validationErrors.WithLabelValues(section).Inc()
}

// ExecutionFinished учитывает завершённый execution.
func (m *Metrics) ExecutionFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(status).Inc()
	m.executionDuration.Observe(d.Seconds())
}

// TaskFinished учитывает длительность task.
func (m *Metrics) TaskFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(status).Observe(d.Seconds())
}

// HTTPRequest учитывает HTTP-запрос к API.
func (m *Metrics) HTTPRequest(method, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, code).Inc()
}

// MessageConsumed учитывает обработанное сообщение очереди.
func (m *Metrics) MessageConsumed(msgType, result string) {
	if m == nil {
		return
	}
	m.messagesConsumed.WithLabelValues(msgType, result).Inc()
}

// ScheduledRun учитывает запуск по расписанию.
func (m *Metrics) ScheduledRun() {
	if m == nil {
		return
	}
	m.scheduledRuns.Inc()
}
