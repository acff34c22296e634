package events

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/stepherg/rayshell/internal/metrics"
)

// Handler receives the payload of one pushed event. Payloads coming off the
// wire are json.RawMessage; use Typed or Decode to get a concrete value.
type Handler func(payload any)

// CancelFunc removes a binding. Calling it more than once is a no-op.
type CancelFunc func()

func noop() {}

type binding struct {
	topic string
	fn    Handler
	live  atomic.Bool
}

// Registry routes pushed events to the handlers bound to their topic.
// It keeps no history: an event emitted while nobody is bound is dropped.
type Registry struct {
	mu     sync.RWMutex
	topics map[string][]*binding
	closed bool

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report failing handlers.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l.With().Str("component", "events").Logger() }
}

// WithMetrics records deliveries and handler failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New returns an empty registry. Create one at startup and Close it at shutdown.
func New(opts ...Option) *Registry {
	r := &Registry{topics: make(map[string][]*binding), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe binds fn to topic. Handlers of one topic run in registration
// order. The returned CancelFunc removes exactly this binding.
func (r *Registry) Subscribe(topic string, fn Handler) CancelFunc {
	if fn == nil {
		return noop
	}
	b := &binding{topic: topic, fn: fn}
	b.live.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return noop
	}
	r.topics[topic] = append(r.topics[topic], b)
	return func() { r.remove(b) }
}

func (r *Registry) remove(b *binding) {
	// Flip liveness first so an Emit already holding a snapshot skips it.
	if !b.live.Swap(false) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.topics[b.topic]
	for i, cur := range list {
		if cur == b {
			next := make([]*binding, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(r.topics, b.topic)
			} else {
				r.topics[b.topic] = next
			}
			return
		}
	}
}

// Emit delivers payload to every live handler of topic on the calling
// goroutine. A panicking handler does not stop delivery to the others.
func (r *Registry) Emit(topic string, payload any) {
	r.mu.RLock()
	list := r.topics[topic]
	r.mu.RUnlock()

	for _, b := range list {
		if !b.live.Load() {
			continue
		}
		r.invoke(b, payload)
	}
}

func (r *Registry) invoke(b *binding, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.HandlerFailed(b.topic)
			r.log.Error().
				Str("topic", b.topic).
				Str("panic", fmt.Sprint(rec)).
				Msg("event handler failed")
		}
	}()
	b.fn(payload)
	r.metrics.EventDelivered(b.topic)
}

// Count reports the live bindings for topic.
func (r *Registry) Count(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

// Close cancels every binding. Later Subscribe calls return a no-op cancel
// and Emit finds nothing to deliver to.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, list := range r.topics {
		for _, b := range list {
			b.live.Store(false)
		}
	}
	r.topics = make(map[string][]*binding)
}
