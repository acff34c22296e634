// Package rpc is the JSON-RPC 2.0 framing shared by every transport that
// reaches the proxy core, plus the WRP bridge transport.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const Version = "2.0"

// Standard JSON-RPC error codes, plus the transport code used by bridges.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
	CodeTransport      = -32100
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error matches JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Notification is a server->client message without an ID. Method carries the
// push topic and Params its payload.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Message is the decoded shape of any inbound frame: a response when ID is
// set and Method empty, a notification when Method is set and ID empty.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsNotification reports whether m is an unsolicited push.
func (m *Message) IsNotification() bool {
	return m.Method != "" && len(m.ID) == 0
}

// IsResponse reports whether m answers a request.
func (m *Message) IsResponse() bool {
	return m.Method == "" && len(m.ID) > 0
}

// NewRequest builds a request with a fresh uuid id. params is encoded as is,
// so pass a slice for positional arguments.
func NewRequest(method string, params any) (*Request, error) {
	id, err := json.Marshal(uuid.NewString())
	if err != nil {
		return nil, err
	}
	r := &Request{JSONRPC: Version, ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params for %s: %w", method, err)
		}
		r.Params = raw
	}
	return r, nil
}

// ParseRequest decodes raw JSON into Request with basic validation.
func ParseRequest(raw []byte) (*Request, error) {
	var r Request
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if r.JSONRPC != Version {
		return nil, errors.New("unsupported jsonrpc version")
	}
	if r.Method == "" {
		return nil, errors.New("method required")
	}
	return &r, nil
}

// ParseMessage decodes any inbound frame.
func ParseMessage(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m.JSONRPC != Version {
		return nil, errors.New("unsupported jsonrpc version")
	}
	return &m, nil
}
