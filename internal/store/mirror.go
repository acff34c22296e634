package store

import "sync"

// Mirror holds the latest value pushed for one topic. Each Set replaces the
// value wholesale.
type Mirror[T any] struct {
	mu  sync.RWMutex
	v   T
	set bool

	watchers
}

func NewMirror[T any](initial T) *Mirror[T] {
	return &Mirror[T]{v: initial}
}

func (m *Mirror[T]) Set(v T) {
	m.mu.Lock()
	m.v, m.set = v, true
	m.mu.Unlock()
	m.notify()
}

// Get returns the value and whether anything was ever Set.
func (m *Mirror[T]) Get() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v, m.set
}

// Value returns the current value.
func (m *Mirror[T]) Value() T {
	v, _ := m.Get()
	return v
}
