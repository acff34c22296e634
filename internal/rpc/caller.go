package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Caller issues one remote command and decodes its result into result, which
// may be nil when the command returns nothing.
type Caller interface {
	Call(ctx context.Context, method string, params any, result any) error
}

// Base error kinds, usable with errors.Is.
var (
	ErrTransport = errors.New("transport failure")
	ErrRemote    = errors.New("remote error")
	ErrDecode    = errors.New("decode failure")
	ErrClosed    = errors.New("connection closed")
)

// ErrorKind categorises a CallError.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindRemote    ErrorKind = "remote"
	KindDecode    ErrorKind = "decode"
	KindClosed    ErrorKind = "closed"
)

// CallError wraps any failure of a remote command with the method name.
type CallError struct {
	Kind   ErrorKind
	Method string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Is matches the base error of the kind as well as the wrapped error.
func (e *CallError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrRemote:
		return e.Kind == KindRemote
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrClosed:
		return e.Kind == KindClosed
	}
	return false
}

func newCallError(kind ErrorKind, method string, err error) *CallError {
	return &CallError{Kind: kind, Method: method, Err: err}
}

// TransportError reports that method never got an answer.
func TransportError(method string, err error) error {
	return newCallError(KindTransport, method, err)
}

// ClosedError reports that the connection went away while method was pending.
func ClosedError(method string, err error) error {
	if err == nil {
		err = ErrClosed
	}
	return newCallError(KindClosed, method, err)
}

// Settle turns a decoded response into the outcome of method: the remote
// error when there is one, otherwise result decoded into out.
func Settle(method string, m *Message, out any) error {
	if m.Error != nil {
		return newCallError(KindRemote, method, m.Error)
	}
	if out == nil || len(m.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Result, out); err != nil {
		return newCallError(KindDecode, method, err)
	}
	return nil
}
