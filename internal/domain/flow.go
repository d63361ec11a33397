package domain

import "time"

// EndTask — служебное имя цели перехода, завершающее выполнение flow.
const EndTask = "end"

// Flow — определение рабочего процесса.
//
// Flow — граф именованных tasks, связанных conditions.
// Создаётся только через валидацию (engine.Validator) и после регистрации
// не изменяется: выполнение читает flow, но никогда его не мутирует.
type Flow struct {
	// ID — уникальный идентификатор flow (задаётся в определении).
	ID string `json:"id"`

	// Name — человекочитаемое имя flow.
	Name string `json:"name"`

	// StartTask — имя task, с которой начинается выполнение.
	StartTask string `json:"start_task"`

	// Tasks — упорядоченный список tasks с уникальными именами.
	Tasks []Task `json:"tasks"`

	// Conditions — переходы между tasks.
	Conditions []Condition `json:"conditions"`

	// CreatedAt — время регистрации flow.
	CreatedAt time.Time `json:"created_at"`
}

// TaskByName возвращает task по имени.
func (f *Flow) TaskByName(name string) (*Task, bool) {
	for i := range f.Tasks {
		if f.Tasks[i].Name == name {
			return &f.Tasks[i], true
		}
	}
	return nil, false
}

// ConditionFor возвращает первую (в порядке объявления) condition,
// у которой SourceTask совпадает с name.
// Остальные conditions с тем же источником при выполнении не используются.
func (f *Flow) ConditionFor(name string) (*Condition, bool) {
	for i := range f.Conditions {
		if f.Conditions[i].SourceTask == name {
			return &f.Conditions[i], true
		}
	}
	return nil, false
}

// TaskNames возвращает имена tasks в порядке объявления.
func (f *Flow) TaskNames() []string {
	names := make([]string, len(f.Tasks))
	for i, t := range f.Tasks {
		names[i] = t.Name
	}
	return names
}

// Condition — направленный переход от SourceTask, охраняемый outcome.
//
// Если наблюдаемый статус task совпал с Outcome, следующим будет
// TargetTaskSuccess, иначе TargetTaskFailure. Обе цели — имя task или "end".
type Condition struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	SourceTask        string  `json:"source_task"`
	Outcome           Outcome `json:"outcome"`
	TargetTaskSuccess string  `json:"target_task_success"`
	TargetTaskFailure string  `json:"target_task_failure"`
}

// Targets возвращает цели перехода, кроме "end".
func (c *Condition) Targets() []string {
	targets := make([]string, 0, 2)
	for _, t := range []string{c.TargetTaskSuccess, c.TargetTaskFailure} {
		if t != EndTask {
			targets = append(targets, t)
		}
	}
	return targets
}
