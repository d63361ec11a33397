package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/flowmanager/internal/flowmanager"
	"github.com/shaiso/flowmanager/internal/orchestrator"
	"github.com/shaiso/flowmanager/internal/repo"
	"github.com/shaiso/flowmanager/internal/scheduler"
	"github.com/shaiso/flowmanager/internal/steps"
	"github.com/shaiso/flowmanager/internal/worker"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestServer собирает mux с менеджером без задержек.
// withScheduler=false оставляет маршруты /schedules без планировщика.
func newTestServer(t *testing.T, withScheduler bool) *http.ServeMux {
	t.Helper()

	executions := repo.NewExecutionRepo()
	binder := steps.DefaultRegistry()
	steps.RegisterDemo(binder, false)

	manager := flowmanager.New(flowmanager.Config{
		Executions: executions,
		Binder:     binder,
		Orchestrator: orchestrator.New(orchestrator.Config{
			Executor: worker.NewExecutor(worker.ExecutorConfig{NoopDelay: -1}),
			Store:    executions,
			Logger:   testLogger,
		}),
		Logger: testLogger,
	})

	cfg := Config{Manager: manager, Logger: testLogger}
	if withScheduler {
		cfg.Scheduler = scheduler.New(scheduler.Config{Runner: manager, Logger: testLogger})
	}

	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	detail, _ := decode(t, rec)["error"].(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

const demoFlow = `{
  "flow": {
    "id": "flow123",
    "name": "Data processing flow",
    "start_task": "task1",
    "tasks": [
      {"name": "task1", "description": "Fetch data"},
      {"name": "task2", "description": "Process data"},
      {"name": "task3", "description": "Store data"}
    ],
    "conditions": [
      {"name": "c1", "description": "after fetch", "source_task": "task1", "outcome": "success",
       "target_task_success": "task2", "target_task_failure": "end"},
      {"name": "c2", "description": "after process", "source_task": "task2", "outcome": "success",
       "target_task_success": "task3", "target_task_failure": "end"}
    ]
  }
}`

func registerDemo(t *testing.T, mux http.Handler) {
	t.Helper()

	rec := do(t, mux, http.MethodPost, "/api/v1/flows", demoFlow)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	mux := newTestServer(t, false)
	registerDemo(t, mux)

	rec := do(t, mux, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := decode(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["flows"] != float64(1) {
		t.Errorf("flows = %v, want 1", body["flows"])
	}
	if types, _ := body["work_types"].([]any); len(types) != 3 || types[0] != "delay" {
		t.Errorf("work_types = %v, want [delay http transform]", body["work_types"])
	}
}

func TestRegisterFlow(t *testing.T) {
	mux := newTestServer(t, false)

	rec := do(t, mux, http.MethodPost, "/api/v1/flows", demoFlow)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Пустой список предупреждений сериализуется как [], а не null
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"warnings":[]`)) {
		t.Errorf("body = %s, want empty warnings list", rec.Body.String())
	}

	data, _ := decode(t, rec)["data"].(map[string]any)
	if data["flow_id"] != "flow123" {
		t.Errorf("flow_id = %v, want flow123", data["flow_id"])
	}
	if data["message"] != "Flow registered successfully" {
		t.Errorf("message = %v", data["message"])
	}
}

func TestRegisterFlow_FlowDataWrapper(t *testing.T) {
	mux := newTestServer(t, false)

	rec := do(t, mux, http.MethodPost, "/api/v1/flows", `{"flow_data": `+demoFlow+`}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/flows/flow123", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	data, _ := decode(t, rec)["data"].(map[string]any)
	tasks, _ := data["tasks"].([]any)
	if len(tasks) != 3 {
		t.Errorf("tasks = %d, want 3", len(tasks))
	}
}

func TestRegisterFlow_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid json",
			body:       `{"flow":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(ErrCodeBadRequest),
		},
		{
			name:       "missing flow key",
			body:       `{"name": "x"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(ErrCodeValidation),
		},
		{
			name: "unknown start task",
			body: `{"flow": {"id": "f", "name": "f", "start_task": "nope",
				"tasks": [{"name": "a", "description": "a"}], "conditions": []}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(ErrCodeValidation),
		},
		{
			name: "unknown work type",
			body: `{"flow": {"id": "f", "name": "f", "start_task": "a",
				"tasks": [{"name": "a", "description": "a", "work": {"type": "teleport"}}], "conditions": []}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(ErrCodeValidation),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestServer(t, false)

			rec := do(t, mux, http.MethodPost, "/api/v1/flows", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestGetFlow_NotFound(t *testing.T) {
	mux := newTestServer(t, false)

	rec := do(t, mux, http.MethodGet, "/api/v1/flows/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := errorCode(t, rec); got != string(ErrCodeNotFound) {
		t.Errorf("code = %q", got)
	}
}

func TestListFlows(t *testing.T) {
	mux := newTestServer(t, false)

	rec := do(t, mux, http.MethodGet, "/api/v1/flows", "")
	if total := decode(t, rec)["total"]; total != float64(0) {
		t.Errorf("empty total = %v, want 0", total)
	}

	registerDemo(t, mux)

	rec = do(t, mux, http.MethodGet, "/api/v1/flows", "")
	if total := decode(t, rec)["total"]; total != float64(1) {
		t.Errorf("total = %v, want 1", total)
	}
}

func TestExecuteFlow(t *testing.T) {
	mux := newTestServer(t, false)
	registerDemo(t, mux)

	rec := do(t, mux, http.MethodPost, "/api/v1/flows/execute", `{"flow_id": "flow123", "context": {"user": "alice"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	data, _ := decode(t, rec)["data"].(map[string]any)
	if data["status"] != "completed" {
		t.Fatalf("status = %v, want completed", data["status"])
	}

	results, _ := data["task_results"].([]any)
	var order []string
	for _, r := range results {
		order = append(order, r.(map[string]any)["task"].(string))
	}
	if got := strings.Join(order, ","); got != "task1,task2,task3" {
		t.Errorf("order = %s", got)
	}

	execCtx, _ := data["context"].(map[string]any)
	if execCtx["user"] != "alice" {
		t.Errorf("context user = %v, want alice", execCtx["user"])
	}

	// Execution доступен по ID
	id, _ := data["execution_id"].(string)
	rec = do(t, mux, http.MethodGet, "/api/v1/executions/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get execution status = %d", rec.Code)
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/executions?flow_id=flow123", "")
	if total := decode(t, rec)["total"]; total != float64(1) {
		t.Errorf("executions total = %v, want 1", total)
	}
}

func TestExecuteFlow_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing flow_id",
			path:       "/api/v1/flows/execute",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(ErrCodeBadRequest),
		},
		{
			name:       "unknown flow",
			path:       "/api/v1/flows/execute",
			body:       `{"flow_id": "missing"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   string(ErrCodeNotFound),
		},
		{
			name:       "context is a list",
			path:       "/api/v1/flows/execute",
			body:       `{"flow_id": "flow123", "context": [1, 2]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(ErrCodeInvalidContext),
		},
		{
			name:       "context is a string",
			path:       "/api/v1/flows/flow123/executions",
			body:       `{"context": "text"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(ErrCodeInvalidContext),
		},
		{
			name:       "async without messaging",
			path:       "/api/v1/flows/flow123/executions",
			body:       `{"async": true}`,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   string(ErrCodeServiceUnavailable),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestServer(t, false)
			registerDemo(t, mux)

			rec := do(t, mux, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestCreateExecution_EmptyBody(t *testing.T) {
	mux := newTestServer(t, false)
	registerDemo(t, mux)

	rec := do(t, mux, http.MethodPost, "/api/v1/flows/flow123/executions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetExecution_NotFound(t *testing.T) {
	mux := newTestServer(t, false)

	rec := do(t, mux, http.MethodGet, "/api/v1/executions/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSchedules_Lifecycle(t *testing.T) {
	mux := newTestServer(t, true)
	registerDemo(t, mux)

	rec := do(t, mux, http.MethodPost, "/api/v1/flows/flow123/schedules", `{"cron_expr": "*/5 * * * *"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	data, _ := decode(t, rec)["data"].(map[string]any)
	id, _ := data["id"].(string)
	if id == "" {
		t.Fatal("schedule id is empty")
	}
	if data["timezone"] != "UTC" {
		t.Errorf("timezone = %v, want UTC", data["timezone"])
	}
	if data["next_due_at"] == nil {
		t.Error("next_due_at is not set")
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/schedules?flow_id=flow123", "")
	if total := decode(t, rec)["total"]; total != float64(1) {
		t.Errorf("total = %v, want 1", total)
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/schedules/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = do(t, mux, http.MethodDelete, "/api/v1/schedules/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/schedules/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateSchedule_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"missing cron", "/api/v1/flows/flow123/schedules", `{}`, http.StatusBadRequest},
		{"invalid cron", "/api/v1/flows/flow123/schedules", `{"cron_expr": "not a cron"}`, http.StatusBadRequest},
		{"unknown flow", "/api/v1/flows/missing/schedules", `{"cron_expr": "@hourly"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestServer(t, true)
			registerDemo(t, mux)

			rec := do(t, mux, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestSchedules_Disabled(t *testing.T) {
	mux := newTestServer(t, false)

	rec := do(t, mux, http.MethodGet, "/api/v1/schedules", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestMiddleware_CapturesStatus(t *testing.T) {
	var captured int
	capture := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			captured = rw.status
		})
	}

	h := Chain(capture, Metrics(nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "nope")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if captured != http.StatusNotFound {
		t.Errorf("captured status = %d, want 404", captured)
	}
}
