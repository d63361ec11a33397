package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxContextSize — максимальный размер сериализованного контекста (1 MiB).
const MaxContextSize = 1 << 20

// ValidateContext проверяет начальный контекст execution и приводит его
// к map[string]any.
//
// Контекст должен быть map со строковыми ключами (пустая строка тоже ключ),
// а его компактное JSON-представление без HTML-экранирования
// не должно превышать MaxContextSize. nil допустим и означает пустой контекст.
func ValidateContext(raw any) (map[string]any, error) {
	var ctx map[string]any

	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		ctx = v
	case map[any]any:
		ctx = make(map[string]any, len(v))
		for key, val := range v {
			s, ok := key.(string)
			if !ok {
				return nil, NewValidationError("context", -1, "",
					fmt.Sprintf("context key must be a string, got %T", key), ErrInvalidContextKey)
			}
			ctx[s] = val
		}
	default:
		return nil, NewValidationError("context", -1, "",
			fmt.Sprintf("context must be a mapping, got %T", raw), ErrInvalidContext)
	}

	size, err := encodedSize(ctx)
	if err != nil {
		return nil, NewValidationError("context", -1, "",
			fmt.Sprintf("context is not serializable: %v", err), ErrInvalidContext)
	}
	if size > MaxContextSize {
		return nil, NewValidationError("context", -1, "",
			fmt.Sprintf("context too large: %d bytes (max %d)", size, MaxContextSize), ErrContextTooLarge)
	}

	return ctx, nil
}

// encodedSize — длина JSON без завершающего перевода строки.
func encodedSize(ctx map[string]any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ctx); err != nil {
		return 0, err
	}
	return len(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
