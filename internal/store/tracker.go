package store

import (
	"context"
	"sort"
	"sync"

	"github.com/stepherg/rayshell/internal/metrics"
)

// Tracker is the set of ids with an operation in flight. An id is added
// before the remote call and removed once it settles, whatever the outcome.
//
// Ids are a set: two overlapping operations on one id share the entry and the
// first to settle removes it.
type Tracker struct {
	name    string
	metrics *metrics.Metrics

	mu  sync.RWMutex
	ids map[string]struct{}

	watchers
}

// NewTracker returns an empty tracker; name labels its in-flight gauge.
func NewTracker(name string, m *metrics.Metrics) *Tracker {
	return &Tracker{name: name, metrics: m, ids: make(map[string]struct{})}
}

// Begin marks ids in flight and returns those that were not already.
func (t *Tracker) Begin(ids ...string) []string {
	t.mu.Lock()
	added := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := t.ids[id]; !ok {
			t.ids[id] = struct{}{}
			added = append(added, id)
		}
	}
	n := len(t.ids)
	t.mu.Unlock()
	t.metrics.SetInFlight(t.name, n)
	t.notify()
	return added
}

// End clears ids.
func (t *Tracker) End(ids ...string) {
	t.mu.Lock()
	for _, id := range ids {
		delete(t.ids, id)
	}
	n := len(t.ids)
	t.mu.Unlock()
	t.metrics.SetInFlight(t.name, n)
	t.notify()
}

// Track runs fn with id in flight.
func (t *Tracker) Track(ctx context.Context, id string, fn func(context.Context) error) error {
	t.Begin(id)
	defer t.End(id)
	return fn(ctx)
}

// TrackAll runs fn with every id in flight. Only the ids this call added
// are cleared afterwards.
func (t *Tracker) TrackAll(ctx context.Context, ids []string, fn func(context.Context) error) error {
	added := t.Begin(ids...)
	defer t.End(added...)
	return fn(ctx)
}

func (t *Tracker) InFlight(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.ids[id]
	return ok
}

// IDs returns the in-flight ids in sorted order.
func (t *Tracker) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}
