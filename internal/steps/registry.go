package steps

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shaiso/flowmanager/internal/domain"
)

// keywordBinding — привязка работы к ключевому слову описания task.
type keywordBinding struct {
	keyword string
	work    domain.Work
}

// Registry — реестр работ.
//
// Хранит три вида привязок:
//   - типы встроенных работ (http, delay, transform) для task с полем work
//   - явные работы по имени task
//   - работы по ключевому слову в описании task (в порядке регистрации)
//
// Потокобезопасен.
type Registry struct {
	mu       sync.RWMutex
	steps    map[string]Step
	byName   map[string]domain.Work
	keywords []keywordBinding
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		steps:  make(map[string]Step),
		byName: make(map[string]domain.Work),
	}
}

// DefaultRegistry создаёт реестр со всеми встроенными типами работ.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(NewDelayStep())
	r.Register(NewHTTPStep())
	r.Register(NewTransformStep())

	return r
}

// Register регистрирует тип работы.
// Если тип уже существует, он будет перезаписан.
func (r *Registry) Register(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[step.Type()] = step
}

// Get возвращает тип работы.
// Возвращает ErrUnknownWorkType, если тип не найден.
func (r *Registry) Get(workType string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[workType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkType, workType)
	}

	return step, nil
}

// Types возвращает отсортированный список зарегистрированных типов работ.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.steps))
	for t := range r.steps {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// BindName привязывает работу к имени task.
func (r *Registry) BindName(taskName string, work domain.Work) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[taskName] = work
}

// BindKeyword привязывает работу к ключевому слову описания.
// Ключевые слова проверяются в порядке регистрации, без учёта регистра.
func (r *Registry) BindKeyword(keyword string, work domain.Work) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keywords = append(r.keywords, keywordBinding{
		keyword: strings.ToLower(keyword),
		work:    work,
	})
}

// Resolve находит работу для task.
//
// Порядок: явный WorkSpec → имя task → ключевое слово описания.
// Если ничего не найдено, возвращает nil (task без работы).
// Неизвестный тип в WorkSpec — ошибка ErrUnknownWorkType,
// неверная конфигурация типа с TaskBinder — ErrInvalidConfig.
func (r *Registry) Resolve(task *domain.Task) (domain.Work, error) {
	if task.WorkSpec != nil {
		step, err := r.Get(task.WorkSpec.Type)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", task.Name, err)
		}
		if binder, ok := step.(TaskBinder); ok {
			return binder.BindTask(task.Name, task.WorkSpec.Config)
		}
		return NewWork(step, task.Name, task.WorkSpec.Config), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if work, ok := r.byName[task.Name]; ok {
		return work, nil
	}

	desc := strings.ToLower(task.Description)
	for _, kb := range r.keywords {
		if strings.Contains(desc, kb.keyword) {
			return kb.work, nil
		}
	}

	return nil, nil
}

// Bind разрешает работы для всех tasks flow и сохраняет их в Task.Work.
// Вызывается один раз при регистрации; во время выполнения работы
// повторно не разрешаются.
func (r *Registry) Bind(flow *domain.Flow) error {
	for i := range flow.Tasks {
		work, err := r.Resolve(&flow.Tasks[i])
		if err != nil {
			return err
		}
		flow.Tasks[i].Work = work
	}
	return nil
}
