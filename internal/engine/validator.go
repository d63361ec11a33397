package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/flowmanager/internal/domain"
)

// Коды предупреждений валидации.
const (
	// WarningUnreachableTask — task недостижима из start_task.
	WarningUnreachableTask = "unreachable_task"

	// WarningMultipleConditions — у task несколько исходящих conditions,
	// при выполнении используется только первая.
	WarningMultipleConditions = "multiple_conditions"
)

// Warning — нефатальное замечание валидатора.
// Не блокирует регистрацию flow.
type Warning struct {
	Code    string `json:"code"`
	Task    string `json:"task"`
	Message string `json:"message"`
}

// Result — результат успешной валидации.
type Result struct {
	Flow     *domain.Flow
	Warnings []Warning
}

// Validator — поэтапный валидатор определений flow.
//
// Этапы выполняются строго по порядку и прерываются на первой ошибке:
//  1. структура (обязательные поля верхнего уровня)
//  2. tasks (поля и уникальность имён)
//  3. conditions (поля, ссылки, outcome)
//  4. логика (start_task, циклы, достижимость)
type Validator struct {
	logger *slog.Logger
}

// NewValidator создаёт валидатор. Если logger nil, используется slog.Default().
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate проверяет сырое определение вида {"flow": {...}}
// и возвращает собранный domain.Flow.
//
// Work у tasks не привязывается: это делает вызывающий после валидации.
func (v *Validator) Validate(raw map[string]any) (*Result, error) {
	flowRaw, ok := raw["flow"]
	if !ok {
		return nil, NewValidationError("flow", -1, "flow", "Missing 'flow' key in flow definition", ErrMissingField)
	}
	info, ok := flowRaw.(map[string]any)
	if !ok {
		return nil, NewValidationError("flow", -1, "flow", "Field 'flow' must be an object", ErrWrongType)
	}

	// Этап 1: структура
	if err := validateStructure(info); err != nil {
		return nil, err
	}
	taskItems, _ := asList(info["tasks"])
	condItems, _ := asList(info["conditions"])

	// Этап 2: tasks
	tasks, err := validateTasks(taskItems)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.Name] = true
	}

	// Этап 3: conditions
	conditions, err := validateConditions(condItems, known)
	if err != nil {
		return nil, err
	}

	flow := &domain.Flow{
		ID:         info["id"].(string),
		Name:       info["name"].(string),
		StartTask:  info["start_task"].(string),
		Tasks:      tasks,
		Conditions: conditions,
	}

	// Этап 4: логика
	warnings, err := v.validateLogic(flow, known)
	if err != nil {
		return nil, err
	}

	return &Result{Flow: flow, Warnings: warnings}, nil
}

// validateStructure проверяет обязательные поля верхнего уровня.
func validateStructure(info map[string]any) error {
	for _, field := range []string{"id", "name", "start_task", "tasks", "conditions"} {
		if _, ok := info[field]; !ok {
			return NewValidationError("flow", -1, field,
				fmt.Sprintf("Missing required field: '%s'", field), ErrMissingField)
		}
	}

	for _, field := range []string{"id", "name", "start_task"} {
		if !isNonEmptyString(info[field]) {
			return NewValidationError("flow", -1, field,
				fmt.Sprintf("Field '%s' must be a non-empty string", field), ErrWrongType)
		}
	}

	if tasks, ok := asList(info["tasks"]); !ok || len(tasks) == 0 {
		return NewValidationError("flow", -1, "tasks", "Field 'tasks' must be a non-empty list", ErrWrongType)
	}

	if _, ok := asList(info["conditions"]); !ok {
		return NewValidationError("flow", -1, "conditions", "Field 'conditions' must be a list", ErrWrongType)
	}

	return nil
}

// validateTasks проверяет каждую task и уникальность имён.
func validateTasks(items []any) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(items))
	seen := make(map[string]bool, len(items))

	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, NewValidationError("task", i, "", fmt.Sprintf("Task %d must be an object", i), ErrWrongType)
		}

		_, hasName := obj["name"]
		_, hasDesc := obj["description"]
		if !hasName || !hasDesc {
			return nil, NewValidationError("task", i, "",
				fmt.Sprintf("Task %d must have 'name' and 'description' fields", i), ErrMissingField)
		}

		if !isNonEmptyString(obj["name"]) {
			return nil, NewValidationError("task", i, "name",
				fmt.Sprintf("Task %d 'name' must be a non-empty string", i), ErrWrongType)
		}
		desc, ok := obj["description"].(string)
		if !ok {
			return nil, NewValidationError("task", i, "description",
				fmt.Sprintf("Task %d 'description' must be a string", i), ErrWrongType)
		}

		name := obj["name"].(string)
		if seen[name] {
			return nil, NewValidationError("task", i, "name",
				fmt.Sprintf("Duplicate task name: '%s'", name), ErrDuplicateTaskName)
		}
		seen[name] = true

		task := domain.Task{Name: name, Description: desc}

		if rawWork, ok := obj["work"]; ok && rawWork != nil {
			spec, err := parseWorkSpec(i, rawWork)
			if err != nil {
				return nil, err
			}
			task.WorkSpec = spec
		}

		tasks = append(tasks, task)
	}

	return tasks, nil
}

// parseWorkSpec разбирает опциональное поле work у task.
func parseWorkSpec(index int, raw any) (*domain.WorkSpec, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, NewValidationError("task", index, "work",
			fmt.Sprintf("Task %d 'work' must be an object", index), ErrWrongType)
	}
	if !isNonEmptyString(obj["type"]) {
		return nil, NewValidationError("task", index, "work.type",
			fmt.Sprintf("Task %d 'work.type' must be a non-empty string", index), ErrWrongType)
	}

	spec := &domain.WorkSpec{Type: obj["type"].(string)}
	if cfg, ok := obj["config"]; ok && cfg != nil {
		m, ok := cfg.(map[string]any)
		if !ok {
			return nil, NewValidationError("task", index, "work.config",
				fmt.Sprintf("Task %d 'work.config' must be an object", index), ErrWrongType)
		}
		spec.Config = m
	}
	return spec, nil
}

// conditionFields — обязательные непустые строковые поля condition.
var conditionFields = []string{"name", "source_task", "outcome", "target_task_success", "target_task_failure"}

// validateConditions проверяет поля, ссылки и outcome каждой condition.
func validateConditions(items []any, known map[string]bool) ([]domain.Condition, error) {
	conditions := make([]domain.Condition, 0, len(items))

	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, NewValidationError("condition", i, "", fmt.Sprintf("Condition %d must be an object", i), ErrWrongType)
		}

		for _, field := range conditionFields {
			if _, ok := obj[field]; !ok {
				return nil, NewValidationError("condition", i, field,
					fmt.Sprintf("Condition %d missing field: '%s'", i, field), ErrMissingField)
			}
		}
		for _, field := range conditionFields {
			if !isNonEmptyString(obj[field]) {
				return nil, NewValidationError("condition", i, field,
					fmt.Sprintf("Condition %d field '%s' must be a non-empty string", i, field), ErrWrongType)
			}
		}

		desc, _ := obj["description"].(string)
		cond := domain.Condition{
			Name:              obj["name"].(string),
			Description:       desc,
			SourceTask:        obj["source_task"].(string),
			Outcome:           domain.Outcome(obj["outcome"].(string)),
			TargetTaskSuccess: obj["target_task_success"].(string),
			TargetTaskFailure: obj["target_task_failure"].(string),
		}

		if !known[cond.SourceTask] {
			return nil, NewValidationError("condition", i, "source_task",
				fmt.Sprintf("Condition %d uses unknown source_task: '%s'", i, cond.SourceTask), ErrUnknownTask)
		}

		if !cond.Outcome.Valid() {
			return nil, NewValidationError("condition", i, "outcome",
				fmt.Sprintf("Condition %d has invalid outcome: '%s' (expected 'success' or 'failure')", i, cond.Outcome),
				ErrInvalidOutcome)
		}

		targets := []struct{ field, value string }{
			{"target_task_success", cond.TargetTaskSuccess},
			{"target_task_failure", cond.TargetTaskFailure},
		}
		for _, target := range targets {
			if target.value != domain.EndTask && !known[target.value] {
				return nil, NewValidationError("condition", i, target.field,
					fmt.Sprintf("Condition %d uses unknown %s: '%s'", i, target.field, target.value), ErrUnknownTask)
			}
		}

		conditions = append(conditions, cond)
	}

	return conditions, nil
}

// validateLogic проверяет start_task, отсутствие циклов и достижимость.
func (v *Validator) validateLogic(flow *domain.Flow, known map[string]bool) ([]Warning, error) {
	if !known[flow.StartTask] {
		return nil, NewValidationError("flow", -1, "start_task",
			fmt.Sprintf("start_task '%s' not found in tasks", flow.StartTask), ErrUnknownTask)
	}

	graph := BuildGraph(flow)

	if cycle := graph.FindCycle(flow.StartTask); cycle != nil {
		return nil, NewValidationError("flow", -1, "conditions",
			fmt.Sprintf("Flow contains a cycle in task transitions: %s", strings.Join(cycle, " -> ")),
			ErrCycleDetected)
	}

	var warnings []Warning

	for _, name := range graph.Unreachable(flow.StartTask) {
		warnings = append(warnings, Warning{
			Code:    WarningUnreachableTask,
			Task:    name,
			Message: fmt.Sprintf("task '%s' is not reachable from start_task '%s'", name, flow.StartTask),
		})
	}

	counts := make(map[string]int)
	for _, cond := range flow.Conditions {
		counts[cond.SourceTask]++
	}
	for _, name := range graph.Tasks {
		if counts[name] > 1 {
			first, _ := flow.ConditionFor(name)
			warnings = append(warnings, Warning{
				Code: WarningMultipleConditions,
				Task: name,
				Message: fmt.Sprintf("task '%s' has %d conditions, only the first ('%s') is used",
					name, counts[name], first.Name),
			})
		}
	}

	for _, w := range warnings {
		v.logger.Warn("flow validation warning",
			"flow_id", flow.ID,
			"code", w.Code,
			"task", w.Task,
		)
	}

	return warnings, nil
}

// isNonEmptyString проверяет, что значение — строка с непробельным содержимым.
func isNonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

// asList приводит значение к []any.
// Поддерживает []any и []map[string]any (определения, собранные в коде).
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}
