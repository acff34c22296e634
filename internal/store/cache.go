package store

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/stepherg/rayshell/internal/model"
)

// ResultCache keeps the last measurement per key. A batch overwrites the
// keys it carries and leaves every other entry alone; nothing is ever
// evicted.
type ResultCache[K comparable, V any] struct {
	keyOf   func(V) K
	entries *xsync.Map[K, V]

	watchers
}

// NewResultCache returns an empty cache keyed by keyOf.
func NewResultCache[K comparable, V any](keyOf func(V) K) *ResultCache[K, V] {
	return &ResultCache[K, V]{keyOf: keyOf, entries: xsync.NewMap[K, V]()}
}

// NewSpeedResults is the cache of speed test results by profile id.
func NewSpeedResults() *ResultCache[string, model.SpeedTestResult] {
	return NewResultCache(func(r model.SpeedTestResult) string { return r.ProfileID })
}

// ApplyBatch merges results into the cache.
func (c *ResultCache[K, V]) ApplyBatch(results []V) {
	if len(results) == 0 {
		return
	}
	for _, r := range results {
		c.entries.Store(c.keyOf(r), r)
	}
	c.notify()
}

func (c *ResultCache[K, V]) Get(key K) (V, bool) {
	return c.entries.Load(key)
}

// Snapshot copies the cache into a plain map.
func (c *ResultCache[K, V]) Snapshot() map[K]V {
	out := make(map[K]V, c.entries.Size())
	c.entries.Range(func(k K, v V) bool {
		out[k] = v
		return true
	})
	return out
}

func (c *ResultCache[K, V]) Len() int { return c.entries.Size() }
