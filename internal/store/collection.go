package store

import (
	"context"
	"sync"

	"github.com/stepherg/rayshell/internal/metrics"
)

// ListFunc fetches a whole collection for filter.
type ListFunc[T, F any] func(ctx context.Context, filter F) ([]T, error)

// Collection is an ordered list of server-held records. It is replaced
// wholesale by Load and never patched in place.
type Collection[T, F any] struct {
	name    string
	list    ListFunc[T, F]
	metrics *metrics.Metrics

	// afterLoad runs under no lock after a successful Load, before watchers
	// are notified.
	afterLoad func(items []T)

	mu         sync.RWMutex
	items      []T
	pending    int
	lastFilter F

	watchers
}

// NewCollection returns an empty collection named name (used as the metrics
// label) that loads through list.
func NewCollection[T, F any](name string, list ListFunc[T, F], m *metrics.Metrics) *Collection[T, F] {
	return &Collection[T, F]{name: name, list: list, metrics: m, items: []T{}}
}

// Load fetches the collection for filter and replaces the items on success.
// The filter becomes the one later reloads use, whether or not the fetch
// succeeds. A nil result is stored as an empty list.
//
// Concurrent loads are not serialised; the last one to finish wins.
func (c *Collection[T, F]) Load(ctx context.Context, filter F) (err error) {
	c.mu.Lock()
	c.lastFilter = filter
	c.pending++
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
		c.notify()
	}()

	items, err := c.list(ctx, filter)
	c.metrics.StoreLoaded(c.name, err)
	if err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	if c.afterLoad != nil {
		c.afterLoad(items)
	}
	return nil
}

// Reload loads again with the last used filter.
func (c *Collection[T, F]) Reload(ctx context.Context) error {
	return c.Load(ctx, c.LastFilter())
}

// Mutate runs op and, when it succeeds, reloads with the last used filter.
// A failed op is returned as is and nothing is reloaded.
func (c *Collection[T, F]) Mutate(ctx context.Context, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}
	return c.Reload(ctx)
}

// Items returns a copy of the current list.
func (c *Collection[T, F]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the number of items.
func (c *Collection[T, F]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Loading reports whether any Load is in progress.
func (c *Collection[T, F]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending > 0
}

// LastFilter is the filter of the most recent Load.
func (c *Collection[T, F]) LastFilter() F {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFilter
}
