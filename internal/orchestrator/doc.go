// Package orchestrator ведёт выполнение flows.
//
// Run проходит состояния pending → running → {completed, failed}:
//
//  1. Execution создаётся с новым uuid, статусом running и копией
//     контекста вызывающего.
//  2. Пока текущая task не "end": task выполняется через TaskExecutor,
//     результат сохраняется в task_results и в Context["<task>_result"],
//     первое условие с этой task как источником выбирает следующую.
//     Без условия следующая task — "end".
//  3. Неудача task с переходом в "end" завершает run статусом failed.
//     Иначе run завершается статусом completed.
//
// Отсутствующая task, превышение MaxSteps и отмена контекста тоже дают
// failed, а текст ошибки записывается в Context["error"]. EndTime
// выставляется на любом пути выхода.
package orchestrator
