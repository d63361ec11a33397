package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// Warning — предупреждение валидатора.
type Warning struct {
	Code    string `json:"code"`
	Task    string `json:"task"`
	Message string `json:"message"`
}

// RegisterFlowResponse — ответ на регистрацию flow.
type RegisterFlowResponse struct {
	FlowID   string    `json:"flow_id"`
	Message  string    `json:"message"`
	Warnings []Warning `json:"warnings"`
}

// TaskResponse — task в составе flow.
type TaskResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Bound       bool   `json:"bound"`
	Work        *struct {
		Type string `json:"type"`
	} `json:"work,omitempty"`
}

// ConditionResponse — condition в составе flow.
type ConditionResponse struct {
	Name              string `json:"name"`
	SourceTask        string `json:"source_task"`
	Outcome           string `json:"outcome"`
	TargetTaskSuccess string `json:"target_task_success"`
	TargetTaskFailure string `json:"target_task_failure"`
}

// FlowResponse — flow из API.
type FlowResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	StartTask  string              `json:"start_task"`
	Tasks      []TaskResponse      `json:"tasks"`
	Conditions []ConditionResponse `json:"conditions"`
	CreatedAt  string              `json:"created_at"`
}

// TaskResultResponse — результат task.
type TaskResultResponse struct {
	Task            string  `json:"task"`
	Status          string  `json:"status"`
	Data            any     `json:"data,omitempty"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
}

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ExecutionID string               `json:"execution_id"`
	FlowID      string               `json:"flow_id"`
	Status      string               `json:"status"`
	CurrentTask string               `json:"current_task,omitempty"`
	TaskResults []TaskResultResponse `json:"task_results"`
	StartTime   string               `json:"start_time"`
	EndTime     string               `json:"end_time,omitempty"`
	DurationMs  int64                `json:"duration_ms"`
	Context     map[string]any       `json:"context"`
}

// ExecutionRequestedResponse — ответ на асинхронный запуск.
type ExecutionRequestedResponse struct {
	FlowID    string `json:"flow_id"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID              string         `json:"id"`
	FlowID          string         `json:"flow_id"`
	CronExpr        string         `json:"cron_expr"`
	Timezone        string         `json:"timezone"`
	Enabled         bool           `json:"enabled"`
	NextDueAt       string         `json:"next_due_at,omitempty"`
	LastRunAt       string         `json:"last_run_at,omitempty"`
	LastExecutionID string         `json:"last_execution_id,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

// HealthResponse — ответ /health.
type HealthResponse struct {
	Status     string   `json:"status"`
	Flows      int      `json:"flows"`
	Executions int      `json:"executions"`
	Active     int      `json:"active"`
	WorkTypes  []string `json:"work_types"`
}

// --- Request types ---

// CreateExecutionRequest — запуск flow.
type CreateExecutionRequest struct {
	Context map[string]any `json:"context,omitempty"`
	Async   bool           `json:"async,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	CronExpr string         `json:"cron_expr"`
	Timezone string         `json:"timezone,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для flowmanager API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Health возвращает состояние сервиса.
func (c *Client) Health() (*HealthResponse, error) {
	resp, err := c.do(http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &health, nil
}

// --- Flows ---

// RegisterFlow регистрирует определение {"flow": {...}}.
func (c *Client) RegisterFlow(definition map[string]any) (*RegisterFlowResponse, error) {
	var resp RegisterFlowResponse
	err := c.post("/api/v1/flows", definition, &resp)
	return &resp, err
}

// ListFlows возвращает все flows.
func (c *Client) ListFlows() ([]FlowResponse, error) {
	var flows []FlowResponse
	err := c.list("/api/v1/flows", nil, &flows)
	return flows, err
}

// GetFlow возвращает flow по ID.
func (c *Client) GetFlow(id string) (*FlowResponse, error) {
	var flow FlowResponse
	err := c.get("/api/v1/flows/"+url.PathEscape(id), &flow)
	return &flow, err
}

// --- Executions ---

// ExecuteFlow синхронно выполняет flow и возвращает execution.
func (c *Client) ExecuteFlow(flowID string, execCtx map[string]any) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/flows/"+url.PathEscape(flowID)+"/executions",
		CreateExecutionRequest{Context: execCtx}, &exec)
	return &exec, err
}

// RequestExecution ставит запуск flow в очередь.
func (c *Client) RequestExecution(flowID string, execCtx map[string]any) (*ExecutionRequestedResponse, error) {
	var resp ExecutionRequestedResponse
	err := c.post("/api/v1/flows/"+url.PathEscape(flowID)+"/executions",
		CreateExecutionRequest{Context: execCtx, Async: true}, &resp)
	return &resp, err
}

// GetExecution возвращает execution по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+url.PathEscape(id), &exec)
	return &exec, err
}

// ListExecutions возвращает executions. Если flowID не пустой — фильтрует.
func (c *Client) ListExecutions(flowID string) ([]ExecutionResponse, error) {
	params := url.Values{}
	if flowID != "" {
		params.Set("flow_id", flowID)
	}

	var execs []ExecutionResponse
	err := c.list("/api/v1/executions", params, &execs)
	return execs, err
}

// --- Schedules ---

// ListSchedules возвращает schedules. Если flowID не пустой — фильтрует.
func (c *Client) ListSchedules(flowID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if flowID != "" {
		params.Set("flow_id", flowID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для flow.
func (c *Client) CreateSchedule(flowID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/flows/"+url.PathEscape(flowID)+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+url.PathEscape(id), &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + url.PathEscape(id))
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	if er.Error.Field != "" {
		return fmt.Errorf("%s: %s (%s)", er.Error.Code, er.Error.Message, er.Error.Field)
	}
	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
