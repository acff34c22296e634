package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux() *Mux {
	m := NewMux()
	m.HandleFunc("echo", func(_ context.Context, params json.RawMessage) (any, error) {
		var s string
		if err := Params(params, &s); err != nil {
			return nil, err
		}
		return s, nil
	})
	m.HandleFunc("fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("boom")
	})
	return m
}

func TestMuxRoutes(t *testing.T) {
	m := newTestMux()
	resp := m.Handle(context.Background(), &Request{JSONRPC: Version, ID: json.RawMessage(`1`), Method: "echo", Params: json.RawMessage(`["hi"]`)})
	require.Nil(t, resp.Error)
	assert.Equal(t, "hi", resp.Result)
	assert.Equal(t, `1`, string(resp.ID))
	assert.Equal(t, []string{"echo", "fail"}, m.Methods())
}

func TestMuxErrors(t *testing.T) {
	m := newTestMux()
	cases := []struct {
		name string
		req  *Request
		code int
	}{
		{"empty method", &Request{JSONRPC: Version}, CodeInvalidRequest},
		{"unknown", &Request{JSONRPC: Version, Method: "nope"}, CodeMethodNotFound},
		{"handler error", &Request{JSONRPC: Version, Method: "fail"}, CodeServerError},
		{"bad params", &Request{JSONRPC: Version, Method: "echo", Params: json.RawMessage(`{"a":1}`)}, CodeInvalidParams},
		{"wrong param type", &Request{JSONRPC: Version, Method: "echo", Params: json.RawMessage(`[1]`)}, CodeInvalidParams},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := m.Handle(context.Background(), tc.req)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestParamsMissingTrailing(t *testing.T) {
	a, b := "keep", 7
	require.NoError(t, Params(json.RawMessage(`["x"]`), &a, &b))
	assert.Equal(t, "x", a)
	assert.Equal(t, 7, b)
	require.NoError(t, Params(nil, &a))
}
