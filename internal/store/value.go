package store

import (
	"context"
	"sync"

	"github.com/stepherg/rayshell/internal/metrics"
)

// Value is a single server-held record, replaced wholesale by Load.
type Value[T any] struct {
	name    string
	fetch   func(context.Context) (T, error)
	metrics *metrics.Metrics

	mu      sync.RWMutex
	v       T
	loaded  bool
	pending int

	watchers
}

func NewValue[T any](name string, fetch func(context.Context) (T, error), m *metrics.Metrics) *Value[T] {
	return &Value[T]{name: name, fetch: fetch, metrics: m}
}

// Load fetches the record and replaces it on success.
func (s *Value[T]) Load(ctx context.Context) error {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
	s.notify()
	defer func() {
		s.mu.Lock()
		s.pending--
		s.mu.Unlock()
		s.notify()
	}()

	v, err := s.fetch(ctx)
	s.metrics.StoreLoaded(s.name, err)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.v, s.loaded = v, true
	s.mu.Unlock()
	return nil
}

// Mutate runs op and reloads once it succeeds.
func (s *Value[T]) Mutate(ctx context.Context, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}
	return s.Load(ctx)
}

// Get returns the record and whether a Load has ever succeeded.
func (s *Value[T]) Get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v, s.loaded
}

func (s *Value[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending > 0
}
