// Package definition загружает определения flows из файлов.
//
// Поддерживаются два формата:
//   - .json — {"flow": {...}}, как в теле POST /api/v1/flows
//   - .hcl  — блоки flow "<id>" { task "<name>" {...} condition "<name>" {...} }
//
// Оба формата приводятся к сырому map, который принимает engine.Validator.
package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Source — определение flow с файлом, из которого оно загружено.
type Source struct {
	Path string
	Raw  map[string]any
}

// Supported сообщает, поддерживается ли формат файла.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".hcl":
		return true
	default:
		return false
	}
}

// Parse разбирает источник по расширению filename.
func Parse(filename string, src []byte) ([]map[string]any, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ParseJSON(filename, src)
	case ".hcl":
		return ParseHCL(filename, src)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// ParseJSON разбирает .json источник. Обёртка {"flow_data": {...}}
// снимается так же, как в HTTP API.
func ParseJSON(filename string, src []byte) ([]map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, filename, err)
	}

	if wrapped, ok := raw["flow_data"].(map[string]any); ok {
		raw = wrapped
	}

	return []map[string]any{raw}, nil
}

// LoadFile читает и разбирает один файл.
func LoadFile(path string) ([]Source, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	defs, err := Parse(path, src)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, len(defs))
	for i, raw := range defs {
		sources[i] = Source{Path: path, Raw: raw}
	}
	return sources, nil
}

// LoadDir загружает все .json и .hcl файлы каталога (без рекурсии)
// в лексикографическом порядке имён.
func LoadDir(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)

	var sources []Source
	for _, p := range paths {
		loaded, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, loaded...)
	}

	return sources, nil
}
