package events

import "sync"

// Scope ties bindings to one observer's lifetime. Binding a topic again in
// the same scope replaces the earlier binding, so an observer never holds two
// live handlers for one topic.
type Scope struct {
	reg *Registry

	mu      sync.Mutex
	cancels map[string]CancelFunc
	closed  bool
}

// Scope opens a new observer scope on r.
func (r *Registry) Scope() *Scope {
	return &Scope{reg: r, cancels: make(map[string]CancelFunc)}
}

// On binds fn to topic for the life of the scope.
func (s *Scope) On(topic string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.cancels[topic]; ok {
		prev()
	}
	s.cancels[topic] = s.reg.Subscribe(topic, fn)
}

// Off cancels the scope's binding for topic, if any.
func (s *Scope) Off(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[topic]; ok {
		cancel()
		delete(s.cancels, topic)
	}
}

// Close cancels every binding in the scope. Safe to call repeatedly.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for topic, cancel := range s.cancels {
		cancel()
		delete(s.cancels, topic)
	}
}
