package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ParseContext собирает начальный контекст execution из файла
// и пар KEY=VALUE. Пары применяются поверх файла.
//
// VALUE разбирается как JSON (числа, true/false, объекты), иначе
// остаётся строкой: --context count=3 даёт число, --context name=bob — строку.
func ParseContext(pairs []string, file string) (map[string]any, error) {
	execCtx := make(map[string]any)

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read context file: %w", err)
		}
		if err := json.Unmarshal(data, &execCtx); err != nil {
			return nil, fmt.Errorf("context file %s must hold a JSON object: %w", file, err)
		}
	}

	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context format %q, expected KEY=VALUE", kv)
		}

		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		execCtx[key] = parsed
	}

	if len(execCtx) == 0 {
		return nil, nil
	}
	return execCtx, nil
}
