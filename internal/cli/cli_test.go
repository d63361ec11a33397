package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/shaiso/flowmanager/internal/api"
	"github.com/shaiso/flowmanager/internal/flowmanager"
	"github.com/shaiso/flowmanager/internal/orchestrator"
	"github.com/shaiso/flowmanager/internal/repo"
	"github.com/shaiso/flowmanager/internal/scheduler"
	"github.com/shaiso/flowmanager/internal/steps"
	"github.com/shaiso/flowmanager/internal/worker"
)

const demoHCL = `
flow "flow123" {
  name       = "Data processing flow"
  start_task = "task1"

  task "task1" {
    description = "Fetch data"
  }
  task "task2" {
    description = "Process data"
  }
  task "task3" {
    description = "Store data"
  }

  condition "after_fetch" {
    source_task         = "task1"
    outcome             = "success"
    target_task_success = "task2"
    target_task_failure = "end"
  }
  condition "after_process" {
    source_task         = "task2"
    outcome             = "success"
    target_task_success = "task3"
    target_task_failure = "end"
  }
}
`

// newTestAPI поднимает настоящий API с менеджером без задержек.
func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	executions := repo.NewExecutionRepo()
	binder := steps.DefaultRegistry()
	steps.RegisterDemo(binder, false)

	manager := flowmanager.New(flowmanager.Config{
		Executions: executions,
		Binder:     binder,
		Orchestrator: orchestrator.New(orchestrator.Config{
			Executor: worker.NewExecutor(worker.ExecutorConfig{NoopDelay: -1}),
			Store:    executions,
			Logger:   logger,
		}),
		Logger: logger,
	})

	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Manager:   manager,
		Scheduler: scheduler.New(scheduler.Config{Runner: manager, Logger: logger}),
		Logger:    logger,
	}).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run выполняет команду flowctl и возвращает stdout.
func run(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	clientFn := func() *Client { return NewClient(baseURL) }
	outputFn := func() *Output { return NewOutputTo(true, &stdout, io.Discard) }

	root := &cobra.Command{Use: "flowctl", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewFlowCmd(clientFn, outputFn),
		NewExecutionCmd(clientFn, outputFn),
		NewScheduleCmd(clientFn, outputFn),
		NewHealthCmd(clientFn, outputFn),
	)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), err
}

func TestParseContext(t *testing.T) {
	file := writeFile(t, "ctx.json", `{"user": "alice", "count": 1}`)

	tests := []struct {
		name    string
		pairs   []string
		file    string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", want: nil},
		{
			name:  "typed values",
			pairs: []string{"n=3", "ok=true", "name=bob", "list=[1,2]"},
			want:  map[string]any{"n": float64(3), "ok": true, "name": "bob", "list": []any{float64(1), float64(2)}},
		},
		{
			name:  "value with equals sign",
			pairs: []string{"expr=a=b"},
			want:  map[string]any{"expr": "a=b"},
		},
		{
			name:  "pairs override file",
			pairs: []string{"count=5"},
			file:  file,
			want:  map[string]any{"user": "alice", "count": float64(5)},
		},
		{name: "missing separator", pairs: []string{"novalue"}, wantErr: true},
		{name: "empty key", pairs: []string{"=1"}, wantErr: true},
		{name: "missing file", file: filepath.Join(t.TempDir(), "nope.json"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContext(tt.pairs, tt.file)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseContext() error = %v", err)
			}

			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(tt.want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("got %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestClient_RegisterAndExecute(t *testing.T) {
	srv := newTestAPI(t)
	client := NewClient(srv.URL)

	resp, err := client.RegisterFlow(map[string]any{
		"flow": map[string]any{
			"id":         "single",
			"name":       "Single",
			"start_task": "only",
			"tasks":      []any{map[string]any{"name": "only", "description": "Nothing"}},
			"conditions": []any{},
		},
	})
	if err != nil {
		t.Fatalf("RegisterFlow() error = %v", err)
	}
	if resp.FlowID != "single" {
		t.Errorf("FlowID = %q", resp.FlowID)
	}

	exec, err := client.ExecuteFlow("single", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("ExecuteFlow() error = %v", err)
	}
	if exec.Status != "completed" || len(exec.TaskResults) != 1 {
		t.Errorf("execution = %+v", exec)
	}
	if exec.TaskResults[0].Data != "Result from only" {
		t.Errorf("data = %v", exec.TaskResults[0].Data)
	}

	got, err := client.GetExecution(exec.ExecutionID)
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if got.ExecutionID != exec.ExecutionID {
		t.Errorf("GetExecution() id = %s", got.ExecutionID)
	}

	health, err := client.Health()
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Status != "healthy" || health.Flows != 1 || health.Executions != 1 {
		t.Errorf("health = %+v", health)
	}
	if len(health.WorkTypes) != 3 {
		t.Errorf("work types = %v, want 3", health.WorkTypes)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := newTestAPI(t)
	client := NewClient(srv.URL)

	_, err := client.GetFlow("missing")
	if err == nil || !strings.HasPrefix(err.Error(), "NOT_FOUND") {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}

	_, err = client.RequestExecution("missing", nil)
	if err == nil {
		t.Error("RequestExecution() expected error")
	}

	_, err = client.RegisterFlow(map[string]any{"flow": map[string]any{"id": "x"}})
	if err == nil || !strings.Contains(err.Error(), "VALIDATION_ERROR") {
		t.Errorf("err = %v, want VALIDATION_ERROR", err)
	}
}

func TestCommands_FlowLifecycle(t *testing.T) {
	srv := newTestAPI(t)
	file := writeFile(t, "demo.hcl", demoHCL)

	if _, err := run(t, srv.URL, "flow", "register", file); err != nil {
		t.Fatalf("flow register: %v", err)
	}

	out, err := run(t, srv.URL, "flow", "list")
	if err != nil {
		t.Fatalf("flow list: %v", err)
	}
	var flows []FlowResponse
	if err := json.Unmarshal([]byte(out), &flows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(flows) != 1 || flows[0].ID != "flow123" || len(flows[0].Tasks) != 3 {
		t.Errorf("flows = %+v", flows)
	}

	out, err = run(t, srv.URL, "flow", "execute", "flow123", "--context", "source=cli")
	if err != nil {
		t.Fatalf("flow execute: %v", err)
	}
	var exec ExecutionResponse
	if err := json.Unmarshal([]byte(out), &exec); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if exec.Status != "completed" || exec.Context["source"] != "cli" {
		t.Errorf("execution = %+v", exec)
	}

	if _, err := run(t, srv.URL, "execution", "get", exec.ExecutionID); err != nil {
		t.Errorf("execution get: %v", err)
	}
	if _, err := run(t, srv.URL, "flow", "get", "missing"); err == nil {
		t.Error("flow get missing: expected error")
	}
}

func TestCommands_Schedule(t *testing.T) {
	srv := newTestAPI(t)
	file := writeFile(t, "demo.hcl", demoHCL)

	if _, err := run(t, srv.URL, "flow", "register", file); err != nil {
		t.Fatalf("flow register: %v", err)
	}

	out, err := run(t, srv.URL, "schedule", "add", "flow123", "--cron", "@hourly")
	if err != nil {
		t.Fatalf("schedule add: %v", err)
	}
	var sched ScheduleResponse
	if err := json.Unmarshal([]byte(out), &sched); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if sched.ID == "" || sched.Timezone != "UTC" || !sched.Enabled {
		t.Errorf("schedule = %+v", sched)
	}

	if _, err := run(t, srv.URL, "schedule", "remove", sched.ID); err != nil {
		t.Fatalf("schedule remove: %v", err)
	}
	if _, err := run(t, srv.URL, "schedule", "show", sched.ID); err == nil {
		t.Error("schedule show after remove: expected error")
	}
}

func TestOutput_Table(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutputTo(false, &buf, io.Discard)

	out.Print([]string{"ID", "NAME"}, [][]string{{"f1", "first"}}, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want header, separator and row", lines)
	}
	if !strings.HasPrefix(lines[1], "--") || !strings.Contains(lines[2], "first") {
		t.Errorf("table = %q", buf.String())
	}
}
