package engine

import (
	"errors"
	"strconv"
)

// Ошибки валидации определения flow.
var (
	// ErrMissingField — отсутствует обязательное поле.
	ErrMissingField = errors.New("missing required field")

	// ErrWrongType — поле имеет неверный тип или пустое значение.
	ErrWrongType = errors.New("field has wrong type")

	// ErrDuplicateTaskName — несколько tasks с одинаковым именем.
	ErrDuplicateTaskName = errors.New("duplicate task name")

	// ErrUnknownTask — ссылка на несуществующую task.
	ErrUnknownTask = errors.New("reference to unknown task")

	// ErrInvalidOutcome — outcome не равен success или failure.
	ErrInvalidOutcome = errors.New("invalid condition outcome")

	// ErrCycleDetected — в графе переходов есть цикл.
	ErrCycleDetected = errors.New("cycle detected")
)

// Ошибки проверки контекста execution.
var (
	// ErrInvalidContext — контекст не является map.
	ErrInvalidContext = errors.New("context must be a mapping")

	// ErrInvalidContextKey — ключ контекста не строка.
	ErrInvalidContextKey = errors.New("invalid context key")

	// ErrContextTooLarge — сериализованный контекст больше лимита.
	ErrContextTooLarge = errors.New("context too large")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Section string // "flow", "task", "condition" или "context"
	Index   int    // индекс элемента в списке, -1 если неприменимо
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Location возвращает позицию ошибки вида "condition[2].outcome".
func (e *ValidationError) Location() string {
	loc := e.Section
	if e.Index >= 0 {
		loc += "[" + strconv.Itoa(e.Index) + "]"
	}
	if e.Field != "" {
		if loc != "" {
			loc += "."
		}
		loc += e.Field
	}
	return loc
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(section string, index int, field, message string, err error) *ValidationError {
	return &ValidationError{
		Section: section,
		Index:   index,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
