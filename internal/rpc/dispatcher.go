package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Dispatcher processes JSON-RPC requests.
type Dispatcher interface {
	Handle(ctx context.Context, r *Request) *Response
}

// HandlerFunc serves one method. params is the raw params value.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Mux routes requests to handlers by method name.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewMux() *Mux { return &Mux{handlers: make(map[string]HandlerFunc)} }

// HandleFunc registers h for method, replacing any earlier handler.
func (m *Mux) HandleFunc(method string, h HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = h
}

// Methods lists the registered method names in order.
func (m *Mux) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Handle implements Dispatcher. Handler errors become JSON-RPC errors; an
// *Error returned by a handler is passed through unchanged.
func (m *Mux) Handle(ctx context.Context, r *Request) *Response {
	if r.Method == "" {
		return &Response{JSONRPC: Version, ID: r.ID, Error: &Error{Code: CodeInvalidRequest, Message: "invalid request"}}
	}
	m.mu.RLock()
	h, ok := m.handlers[r.Method]
	m.mu.RUnlock()
	if !ok {
		return &Response{JSONRPC: Version, ID: r.ID, Error: &Error{Code: CodeMethodNotFound, Message: "method not found", Data: r.Method}}
	}
	result, err := h(ctx, r.Params)
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			return &Response{JSONRPC: Version, ID: r.ID, Error: rpcErr}
		}
		return &Response{JSONRPC: Version, ID: r.ID, Error: &Error{Code: CodeServerError, Message: err.Error()}}
	}
	return &Response{JSONRPC: Version, ID: r.ID, Result: result}
}

// Params decodes positional params into the given pointers. Missing trailing
// params leave their targets untouched.
func Params(raw json.RawMessage, targets ...any) error {
	if len(targets) == 0 || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return &Error{Code: CodeInvalidParams, Message: "params must be an array", Data: err.Error()}
	}
	for i, target := range targets {
		if i >= len(items) {
			break
		}
		if err := json.Unmarshal(items[i], target); err != nil {
			return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("param %d", i), Data: err.Error()}
		}
	}
	return nil
}
