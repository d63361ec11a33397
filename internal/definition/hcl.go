package definition

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// hclFile — верхний уровень .hcl файла: один или несколько блоков flow.
type hclFile struct {
	Flows []*hclFlow `hcl:"flow,block"`
}

type hclFlow struct {
	ID         string          `hcl:"id,label"`
	Name       string          `hcl:"name,optional"`
	StartTask  string          `hcl:"start_task,optional"`
	Tasks      []*hclTask      `hcl:"task,block"`
	Conditions []*hclCondition `hcl:"condition,block"`
}

// Description без значения не попадает в сырое определение,
// и валидатор сообщает о пропущенном поле.
type hclTask struct {
	Name        string   `hcl:"name,label"`
	Description *string  `hcl:"description,optional"`
	Work        *hclWork `hcl:"work,block"`
}

type hclWork struct {
	Type   string    `hcl:"type"`
	Config cty.Value `hcl:"config,optional"`
}

// Поля condition опциональны на уровне HCL: пропуски сообщает валидатор.
type hclCondition struct {
	Name              string `hcl:"name,label"`
	Description       string `hcl:"description,optional"`
	SourceTask        string `hcl:"source_task,optional"`
	Outcome           string `hcl:"outcome,optional"`
	TargetTaskSuccess string `hcl:"target_task_success,optional"`
	TargetTaskFailure string `hcl:"target_task_failure,optional"`
}

// ParseHCL разбирает .hcl источник и возвращает сырые определения
// в форме {"flow": {...}}.
func ParseHCL(filename string, src []byte) ([]map[string]any, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrParse, filename, diags.Error())
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrParse, filename, diags.Error())
	}

	defs := make([]map[string]any, 0, len(parsed.Flows))
	for _, f := range parsed.Flows {
		raw, err := f.toRaw()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: flow %q: %v", ErrParse, filename, f.ID, err)
		}
		defs = append(defs, raw)
	}

	return defs, nil
}

func (f *hclFlow) toRaw() (map[string]any, error) {
	tasks := make([]any, 0, len(f.Tasks))
	for _, t := range f.Tasks {
		task := map[string]any{"name": t.Name}
		if t.Description != nil {
			task["description"] = *t.Description
		}
		if t.Work != nil {
			work := map[string]any{"type": t.Work.Type}
			cfg, err := ctyToAny(t.Work.Config)
			if err != nil {
				return nil, fmt.Errorf("task %q work.config: %w", t.Name, err)
			}
			if cfg != nil {
				work["config"] = cfg
			}
			task["work"] = work
		}
		tasks = append(tasks, task)
	}

	conditions := make([]any, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		conditions = append(conditions, map[string]any{
			"name":                c.Name,
			"description":         c.Description,
			"source_task":         c.SourceTask,
			"outcome":             c.Outcome,
			"target_task_success": c.TargetTaskSuccess,
			"target_task_failure": c.TargetTaskFailure,
		})
	}

	return map[string]any{
		"flow": map[string]any{
			"id":         f.ID,
			"name":       f.Name,
			"start_task": f.StartTask,
			"tasks":      tasks,
			"conditions": conditions,
		},
	}, nil
}

// ctyToAny переводит cty значение в обычные Go типы через JSON.
// Отсутствующее или null значение даёт nil.
func ctyToAny(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	data, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
