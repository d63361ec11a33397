// Package steps содержит работы, которые привязываются к tasks flow.
//
// # Обзор
//
// Работа (domain.Work) — исполняемое поведение task. Пакет даёт:
//   - встроенные типы работ (http, delay, transform), которые собираются
//     из поля work в определении task
//   - демонстрационные работы fetch/process/store, привязанные
//     к ключевым словам описания
//   - Registry, который разрешает работу для каждой task один раз
//     при регистрации flow
//
// # Интерфейс Step
//
// Встроенные типы реализуют интерфейс Step:
//
//	type Step interface {
//	    Type() string
//	    Execute(ctx context.Context, req *Request) (*Response, error)
//	}
//
// NewWork оборачивает Step и конфигурацию task в domain.Work.
// Step, реализующий TaskBinder (http), сам собирает работу при привязке
// и может отклонить конфигурацию с ErrInvalidConfig.
// Перед каждым вызовом конфигурация рендерится по контексту execution:
//
//	{
//	    "name": "notify",
//	    "description": "Send the result",
//	    "work": {
//	        "type": "http",
//	        "config": {
//	            "method": "POST",
//	            "url": "https://api.example.com/users/{{ .user_id }}",
//	            "body": {"count": "{{ .task2_result.processed_users }}"},
//	            "timeout_ms": 5000
//	        }
//	    }
//	}
//
// Outputs работы становятся данными TaskResult и попадают в контекст
// как "<task>_result".
//
// # Registry
//
//	registry := steps.DefaultRegistry()  // http, delay, transform
//	steps.RegisterDemo(registry, true)   // fetch, process, store
//	registry.BindName("task9", myWork)
//
//	if err := registry.Bind(flow); err != nil {
//	    // неизвестный тип работы или неверная конфигурация
//	}
//
// Порядок разрешения: поле work → имя task → ключевое слово описания.
// Task без привязки выполняется как no-op.
package steps
