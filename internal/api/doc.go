// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (manager, scheduler, metrics, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (recovery, metrics, logging)
//   - response.go          — унифицированные JSON-ответы и отображение ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - flow_handler.go      — /health и /flows
//   - execution_handler.go — запуск и чтение executions
//   - schedule_handler.go  — /schedules
//
// Ошибки возвращаются в виде {"error": {"code", "message"}}:
//   - VALIDATION_ERROR, INVALID_CONTEXT, BAD_REQUEST — 400
//   - NOT_FOUND — 404
//   - SERVICE_UNAVAILABLE — 503 (RabbitMQ или планировщик выключены)
//   - INTERNAL_ERROR — 500
package api
