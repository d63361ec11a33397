package steps

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shaiso/flowmanager/internal/domain"
)

const (
	// StepTypeHTTP — тип HTTP работы.
	StepTypeHTTP = "http"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 << 20
)

// HTTPStep — работа HTTP запроса к внешнему сервису.
//
// Пример work у task, которая отправляет итог обработки:
//
//	"work": {
//	    "type": "http",
//	    "config": {
//	        "method": "POST",
//	        "url": "https://hooks.example.com/flows/{{ .flow_id }}",
//	        "headers": {"X-Run-User": "{{ .user }}"},
//	        "body": {"processed": "{{ .task2_result.processed_users }}"},
//	        "fail_on_status": true,
//	        "follow_redirects": false,
//	        "timeout_sec": 10
//	    }
//	}
//
// method, url, headers и body рендерятся по контексту execution перед
// каждым вызовом. follow_redirects, validate_ssl и timeout_sec задают
// HTTP клиент и читаются один раз, при привязке работы к task.
//
// Данные task: {"status_code": 201, "headers": {...}, "body": ...}, где body —
// разобранный JSON для application/json (и +json) ответов, иначе строка.
// Код >= 400 при fail_on_status (по умолчанию true) даёт *HTTPError.
type HTTPStep struct {
	mu      sync.Mutex
	clients map[httpClientOptions]*http.Client
}

// NewHTTPStep создаёт HTTPStep.
func NewHTTPStep() *HTTPStep {
	return &HTTPStep{clients: make(map[httpClientOptions]*http.Client)}
}

// Type возвращает тип работы.
func (s *HTTPStep) Type() string {
	return StepTypeHTTP
}

// BindTask проверяет конфигурацию task и собирает работу
// с готовым HTTP клиентом.
func (s *HTTPStep) BindTask(taskName string, config map[string]any) (domain.Work, error) {
	if GetConfigString(config, "url") == "" {
		return nil, fmt.Errorf("%w: %s: task %s: url is required", ErrInvalidConfig, StepTypeHTTP, taskName)
	}

	bound := &boundHTTPStep{client: s.clientFor(clientOptionsFrom(config))}
	return NewWork(bound, taskName, config), nil
}

// Execute выполняет запрос без предварительной привязки.
// Клиенты с одинаковыми настройками переиспользуются.
func (s *HTTPStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	return doHTTP(ctx, s.clientFor(clientOptionsFrom(req.Config)), req.Config)
}

func (s *HTTPStep) clientFor(opts httpClientOptions) *http.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[opts]; ok {
		return c
	}
	if s.clients == nil {
		s.clients = make(map[httpClientOptions]*http.Client)
	}
	c := opts.newClient()
	s.clients[opts] = c
	return c
}

// boundHTTPStep — HTTP работа одной task с зафиксированным клиентом.
type boundHTTPStep struct {
	client *http.Client
}

func (b *boundHTTPStep) Type() string {
	return StepTypeHTTP
}

func (b *boundHTTPStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	return doHTTP(ctx, b.client, req.Config)
}

// httpClientOptions — настройки клиента, не зависящие от контекста execution.
type httpClientOptions struct {
	followRedirects bool
	validateSSL     bool
	timeout         time.Duration
}

func clientOptionsFrom(config map[string]any) httpClientOptions {
	opts := httpClientOptions{
		followRedirects: GetConfigBool(config, "follow_redirects", true),
		validateSSL:     GetConfigBool(config, "validate_ssl", true),
		timeout:         defaultHTTPTimeout,
	}
	if sec := GetConfigInt(config, "timeout_sec"); sec > 0 {
		opts.timeout = time.Duration(sec) * time.Second
	}
	return opts
}

func (o httpClientOptions) newClient() *http.Client {
	client := &http.Client{
		Timeout: o.timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !o.validateSSL},
		},
	}
	if !o.followRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// httpCall — запрос, собранный из отрендеренной конфигурации.
type httpCall struct {
	method       string
	url          string
	headers      map[string]string
	body         any
	failOnStatus bool
}

func callFrom(config map[string]any) (*httpCall, error) {
	call := &httpCall{
		method:       strings.ToUpper(GetConfigString(config, "method")),
		url:          GetConfigString(config, "url"),
		headers:      GetConfigMapString(config, "headers"),
		body:         config["body"],
		failOnStatus: GetConfigBool(config, "fail_on_status", true),
	}
	if call.url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, StepTypeHTTP)
	}
	if call.method == "" {
		call.method = http.MethodGet
	}
	return call, nil
}

func (c *httpCall) request(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	contentType := ""

	switch v := c.body.(type) {
	case nil:
	case string:
		body = strings.NewReader(v)
		contentType = "text/plain; charset=utf-8"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func doHTTP(ctx context.Context, client *http.Client, config map[string]any) (*Response, error) {
	call, err := callFrom(config)
	if err != nil {
		return nil, err
	}

	req, err := call.request(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", StepTypeHTTP, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrStepCancelled, context.Cause(ctx))
		}
		return nil, fmt.Errorf("%s %s: %w", call.method, call.url, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if call.failOnStatus && resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
	}

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[key] = strings.Join(values, ", ")
	}

	return &Response{Outputs: map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}}, nil
}

// readBody читает тело ответа. JSON разбирается, остальное — строка.
func readBody(resp *http.Response) (any, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > maxResponseBody {
		return nil, fmt.Errorf("%s: response body exceeds %d bytes", StepTypeHTTP, maxResponseBody)
	}

	if isJSON(resp.Header.Get("Content-Type")) && len(data) > 0 {
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
	}
	return string(data), nil
}

func isJSON(contentType string) bool {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return media == "application/json" || strings.HasSuffix(media, "+json")
}

// HTTPError — ответ с кодом >= 400.
// Body — разобранный JSON или текст ответа.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       any
}

// Error реализует интерфейс error. Если JSON ответ содержит
// поле error или message, его текст попадает в сообщение.
func (e *HTTPError) Error() string {
	if obj, ok := e.Body.(map[string]any); ok {
		for _, key := range []string{"error", "message"} {
			if msg, ok := obj[key].(string); ok && msg != "" {
				return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
			}
		}
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// IsHTTPError проверяет, является ли ошибка HTTP ошибкой.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}
