package orchestrator

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/shaiso/flowmanager/internal/domain"
)

// runState — состояние одного выполняющегося run.
//
// Создаётся в начале Run и удаляется из активных при выходе из него.
// Execution изменяет только горутина, ведущая run; остальные
// читают снимок через snapshot.
type runState struct {
	flow   *domain.Flow
	exec   *domain.FlowExecution
	logger *slog.Logger

	// steps — количество выполненных tasks.
	steps int

	mu sync.RWMutex
}

func newRunState(flow *domain.Flow, exec *domain.FlowExecution, logger *slog.Logger) *runState {
	return &runState{
		flow:   flow,
		exec:   exec,
		logger: logger,
	}
}

// update изменяет execution под блокировкой.
func (s *runState) update(fn func(exec *domain.FlowExecution)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.exec)
}

// snapshot возвращает копию execution.
func (s *runState) snapshot() *domain.FlowExecution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exec.Clone()
}

// activeRuns — реестр выполняющихся runs (executionID → state).
type activeRuns struct {
	runs map[string]*runState
	mu   sync.RWMutex
}

func newActiveRuns() *activeRuns {
	return &activeRuns{runs: make(map[string]*runState)}
}

func (a *activeRuns) add(id string, s *runState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs[id] = s
}

func (a *activeRuns) remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.runs, id)
}

func (a *activeRuns) count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.runs)
}

// snapshots возвращает снимки активных executions, отсортированные по ID.
func (a *activeRuns) snapshots() []*domain.FlowExecution {
	a.mu.RLock()
	states := make([]*runState, 0, len(a.runs))
	for _, s := range a.runs {
		states = append(states, s)
	}
	a.mu.RUnlock()

	out := make([]*domain.FlowExecution, 0, len(states))
	for _, s := range states {
		out = append(out, s.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExecutionID < out[j].ExecutionID
	})
	return out
}
