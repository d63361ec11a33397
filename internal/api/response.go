package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/flowmanager/internal/engine"
	"github.com/shaiso/flowmanager/internal/flowmanager"
	"github.com/shaiso/flowmanager/internal/repo"
	"github.com/shaiso/flowmanager/internal/scheduler"
	"github.com/shaiso/flowmanager/internal/steps"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidContext     ErrorCode = "INVALID_CONTEXT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	// Field — место ошибки валидации, например "condition[2].outcome".
	Field string `json:"field,omitempty"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// Accepted отправляет ответ о принятом асинхронном запросе (202).
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// NoContent отправляет ответ без тела (204).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// ServiceUnavailable отправляет ошибку 503.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// isContextError — ошибка проверки начального контекста execution.
func isContextError(err error) bool {
	return errors.Is(err, engine.ErrInvalidContext) ||
		errors.Is(err, engine.ErrInvalidContextKey) ||
		errors.Is(err, engine.ErrContextTooLarge)
}

// HandleError преобразует ошибку сервиса в HTTP ответ.
// Возвращает false, если err == nil.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	var ve *engine.ValidationError
	switch {
	case isContextError(err):
		Error(w, http.StatusBadRequest, ErrCodeInvalidContext, err.Error())

	case errors.As(err, &ve):
		JSON(w, http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    ErrCodeValidation,
				Message: ve.Message,
				Field:   ve.Location(),
			},
		})

	case errors.Is(err, steps.ErrUnknownWorkType), errors.Is(err, steps.ErrInvalidConfig):
		Error(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, scheduler.ErrInvalidCron), errors.Is(err, scheduler.ErrInvalidTimezone):
		BadRequest(w, err.Error())

	case errors.Is(err, flowmanager.ErrFlowNotFound):
		NotFound(w, "Flow not found")

	case errors.Is(err, flowmanager.ErrExecutionNotFound):
		NotFound(w, "Execution not found")

	case errors.Is(err, scheduler.ErrScheduleNotFound), errors.Is(err, repo.ErrNotFound):
		NotFound(w, "Schedule not found")

	case errors.Is(err, flowmanager.ErrMessagingDisabled):
		ServiceUnavailable(w, err.Error())

	default:
		InternalError(w, logger, err)
	}

	return true
}
