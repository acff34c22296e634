// Package store holds the shell's client-side view of server-owned state:
// collections that reload after every mutation, the selection and filter
// controller, in-flight tracking, measurement caches and the log buffer.
//
// Every type is safe for concurrent use. Watch callbacks run on the
// goroutine that changed the state, after its lock is released.
package store

import "sync"

// CancelFunc removes a watcher. Calling it more than once is a no-op.
type CancelFunc func()

type watcher struct{ fn func() }

// watchers is the change notification list embedded by every store.
type watchers struct {
	mu   sync.Mutex
	list []*watcher
}

// Watch registers fn to be called after every state change.
func (w *watchers) Watch(fn func()) CancelFunc {
	if fn == nil {
		return func() {}
	}
	entry := &watcher{fn: fn}
	w.mu.Lock()
	w.list = append(w.list, entry)
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			for i, cur := range w.list {
				if cur == entry {
					w.list = append(w.list[:i:i], w.list[i+1:]...)
					return
				}
			}
		})
	}
}

func (w *watchers) notify() {
	w.mu.Lock()
	list := append([]*watcher(nil), w.list...)
	w.mu.Unlock()
	for _, entry := range list {
		entry.fn()
	}
}
