package engine

import (
	"sort"

	"github.com/shaiso/flowmanager/internal/domain"
)

// Graph — граф переходов между tasks.
//
// Рёбра строятся из conditions: для каждой condition добавляются
// её цели, кроме "end". Порядок рёбер соответствует порядку объявления.
type Graph struct {
	// Edges — исходящие переходы (task → следующие tasks).
	Edges map[string][]string

	// Tasks — все объявленные tasks в порядке объявления.
	Tasks []string
}

// BuildGraph строит граф переходов из flow.
func BuildGraph(flow *domain.Flow) *Graph {
	g := &Graph{
		Edges: make(map[string][]string),
		Tasks: flow.TaskNames(),
	}
	for i := range flow.Conditions {
		cond := &flow.Conditions[i]
		g.Edges[cond.SourceTask] = append(g.Edges[cond.SourceTask], cond.Targets()...)
	}
	return g
}

// frame — кадр явного стека обхода в глубину.
type frame struct {
	node string
	next int // индекс следующего ребра для обхода
}

// FindCycle ищет цикл, достижимый из start.
//
// Обход в глубину на явном стеке: onStack — узлы текущего пути,
// visited — полностью обработанные узлы. Первое обратное ребро
// прерывает обход. Возвращает путь цикла (первый и последний узел совпадают)
// или nil, если циклов нет.
func (g *Graph) FindCycle(start string) []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	stack := []frame{{node: start}}
	onStack[start] = true

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		edges := g.Edges[top.node]

		if top.next >= len(edges) {
			onStack[top.node] = false
			visited[top.node] = true
			stack = stack[:len(stack)-1]
			continue
		}

		next := edges[top.next]
		top.next++

		if onStack[next] {
			return cyclePath(stack, next)
		}
		if visited[next] {
			continue
		}

		onStack[next] = true
		stack = append(stack, frame{node: next})
	}

	return nil
}

// cyclePath восстанавливает путь цикла из стека обхода.
func cyclePath(stack []frame, back string) []string {
	path := make([]string, 0, len(stack)+1)
	inCycle := false
	for _, f := range stack {
		if f.node == back {
			inCycle = true
		}
		if inCycle {
			path = append(path, f.node)
		}
	}
	return append(path, back)
}

// Reachable возвращает множество tasks, достижимых из start (включая start).
func (g *Graph) Reachable(start string) map[string]bool {
	reachable := make(map[string]bool)
	stack := []string{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if reachable[current] {
			continue
		}
		reachable[current] = true
		stack = append(stack, g.Edges[current]...)
	}

	return reachable
}

// Unreachable возвращает отсортированные имена tasks, недостижимых из start.
func (g *Graph) Unreachable(start string) []string {
	reachable := g.Reachable(start)

	var result []string
	for _, name := range g.Tasks {
		if !reachable[name] {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}
