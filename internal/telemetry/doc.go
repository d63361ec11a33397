// Package telemetry содержит логирование и метрики flowmanager.
//
// logging.go настраивает slog по LOG_LEVEL и LOG_FORMAT и добавляет
// к логгеру flow_id, execution_id и task.
//
// metrics.go регистрирует счётчики и гистограммы Prometheus в переданном
// Registerer. Методы *Metrics допускают nil-получатель, поэтому
// сервисы работают и без метрик (в тестах Metrics не передаётся).
package telemetry
