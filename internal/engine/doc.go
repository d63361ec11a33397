// Package engine содержит логику понимания flow без его выполнения.
//
// Включает:
//   - validator.go — поэтапная валидация определения flow
//   - graph.go     — граф переходов, поиск циклов и достижимость
//   - condition.go — вычисление следующей task по condition
//   - context.go   — проверка начального контекста execution
//   - template.go  — рендеринг Go templates ({{ .task1_result.users }})
//
// Engine ничего не хранит и не выполняет: результат его работы —
// провалидированный domain.Flow или ошибка с контекстом.
package engine
