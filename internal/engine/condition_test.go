package engine

import (
	"testing"

	"github.com/shaiso/flowmanager/internal/domain"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		outcome domain.Outcome
		status  domain.TaskStatus
		want    string
	}{
		{"success watched, success observed", domain.OutcomeSuccess, domain.TaskStatusSuccess, "on_success"},
		{"success watched, failure observed", domain.OutcomeSuccess, domain.TaskStatusFailure, "on_failure"},
		{"failure watched, failure observed", domain.OutcomeFailure, domain.TaskStatusFailure, "on_success"},
		{"failure watched, success observed", domain.OutcomeFailure, domain.TaskStatusSuccess, "on_failure"},
		{"unknown outcome", domain.Outcome("maybe"), domain.TaskStatusSuccess, "on_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := domain.Condition{
				SourceTask:        "t1",
				Outcome:           tt.outcome,
				TargetTaskSuccess: "on_success",
				TargetTaskFailure: "on_failure",
			}
			result := domain.TaskResult{Status: tt.status}

			got := Evaluate(cond, result)
			if got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}

			// Чистая функция: повторный вызов даёт тот же ответ
			if again := Evaluate(cond, result); again != got {
				t.Errorf("Evaluate() not deterministic: %q vs %q", got, again)
			}
		})
	}
}
