package repo

import "sync"

// table — потокобезопасная map записей по строковому ID.
// Репозитории хранят в ней копии и отдают наружу копии.
type table[T any] struct {
	rows map[string]T
	mu   sync.RWMutex
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) put(id string, row T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[id] = row
}

// insert добавляет запись, если ID ещё не занят.
func (t *table[T]) insert(id string, row T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; ok {
		return false
	}
	t.rows[id] = row
	return true
}

// update применяет fn к существующей записи.
func (t *table[T]) update(id string, fn func(T) T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return false
	}
	t.rows[id] = fn(row)
	return true
}

func (t *table[T]) delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// filter возвращает записи, для которых keep вернул true. Порядок не определён.
func (t *table[T]) filter(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// page применяет offset и limit. limit <= 0 означает без ограничения.
func page[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return rows[:0]
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
