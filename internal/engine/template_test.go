package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestRender_ContextValues(t *testing.T) {
	data := map[string]any{
		"name":  "test",
		"count": 42,
		"task1_result": map[string]any{
			"users": []any{
				map[string]any{"id": 1, "name": "John"},
				map[string]any{"id": 2, "name": "Jane"},
			},
		},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "string value",
			template: "Hello, {{ .name }}!",
			expected: "Hello, test!",
		},
		{
			name:     "number value",
			template: "Count: {{ .count }}",
			expected: "Count: 42",
		},
		{
			name:     "no template",
			template: "Plain text",
			expected: "Plain text",
		},
		{
			name:     "task result",
			template: "{{ len .task1_result.users }}",
			expected: "2",
		},
		{
			name:     "result func",
			template: `{{ (index (result "task1").users 1).name }}`,
			expected: "Jane",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_TemplateFunctions(t *testing.T) {
	data := map[string]any{
		"text": "Hello World",
		"list": []string{"a", "b", "c"},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"lower", "{{ lower .text }}", "hello world"},
		{"upper", "{{ upper .text }}", "HELLO WORLD"},
		{"contains", `{{ contains .text "World" }}`, "true"},
		{"hasPrefix", `{{ hasPrefix .text "Hello" }}`, "true"},
		{"default with value", `{{ default "fallback" .text }}`, "Hello World"},
		{"default with nil", `{{ default "fallback" .missing }}`, "fallback"},
		{"json", `{{ json .list }}`, `["a","b","c"]`},
		{"join", `{{ join "-" .list }}`, "a-b-c"},
		{"replace", `{{ replace .text "World" "Go" }}`, "Hello Go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_InvalidTemplate(t *testing.T) {
	// Некорректный синтаксис
	_, err := Render("{{ .Invalid syntax", nil)
	if err == nil {
		t.Fatal("expected error for invalid template")
	}
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
	if !strings.Contains(err.Error(), "template parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestRender_ExecError(t *testing.T) {
	// index за пределами слайса
	_, err := Render("{{ index .list 5 }}", map[string]any{"list": []any{1}})
	if !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender, got %v", err)
	}
}

func TestRenderValue_Nested(t *testing.T) {
	data := map[string]any{"host": "example.com", "id": 7}

	value := map[string]any{
		"url":   "https://{{ .host }}/users/{{ .id }}",
		"tags":  []any{"{{ .host }}", 1, true},
		"plain": 3.5,
		"headers": map[string]string{
			"X-Host": "{{ .host }}",
		},
	}

	rendered, err := RenderValue(value, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := rendered.(map[string]any)
	if m["url"] != "https://example.com/users/7" {
		t.Errorf("url = %v", m["url"])
	}
	tags := m["tags"].([]any)
	if tags[0] != "example.com" || tags[1] != 1 || tags[2] != true {
		t.Errorf("tags = %v", tags)
	}
	if m["plain"] != 3.5 {
		t.Errorf("plain = %v", m["plain"])
	}
	if m["headers"].(map[string]string)["X-Host"] != "example.com" {
		t.Errorf("headers = %v", m["headers"])
	}
}

func TestRenderConfig_Nil(t *testing.T) {
	cfg, err := RenderConfig(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || len(cfg) != 0 {
		t.Errorf("expected empty map, got %v", cfg)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", float64(42)},
		{"true", true},
		{"hello", "hello"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ParseValue(tt.in); got != tt.want {
			t.Errorf("ParseValue(%q) = %v (%T), want %v", tt.in, got, got, tt.want)
		}
	}

	obj, ok := ParseValue(`{"a": 1}`).(map[string]any)
	if !ok || obj["a"] != float64(1) {
		t.Errorf("expected parsed object, got %v", obj)
	}
}
