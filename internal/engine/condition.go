package engine

import "github.com/shaiso/flowmanager/internal/domain"

// Evaluate вычисляет имя следующей task.
//
// Возвращает TargetTaskSuccess, когда наблюдаемый статус результата
// совпадает с Outcome condition (success/success или failure/failure),
// и TargetTaskFailure во всех остальных случаях.
// Функция чистая: один и тот же вход всегда даёт один и тот же ответ.
func Evaluate(cond domain.Condition, result domain.TaskResult) string {
	if cond.Outcome.Matches(result.Status) {
		return cond.TargetTaskSuccess
	}
	return cond.TargetTaskFailure
}
