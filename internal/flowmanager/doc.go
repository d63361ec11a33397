// Package flowmanager — сервисный слой: связывает валидатор, привязку work,
// оркестратор и хранилища.
//
//	m := flowmanager.New(flowmanager.Config{Logger: logger})
//
//	flowID, warnings, err := m.RegisterFlow(definition)
//	exec, err := m.ExecuteFlow(ctx, flowID, map[string]any{"user": "john"})
//
// Поток управления:
//  1. RegisterFlow: валидация → привязка work → сохранение flow
//  2. ExecuteFlow: поиск flow → проверка контекста → run → execution.finished
//
// Неудачный run возвращается как execution со статусом failed, а не как
// ошибка. Ошибки возвращаются только для отклонённых запросов:
// невалидное определение, неизвестный flow, некорректный контекст.
package flowmanager
