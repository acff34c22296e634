package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wrp "github.com/xmidt-org/wrp-go/v3"
)

// scriptedWRP fails the first failures attempts and then answers with reply.
type scriptedWRP struct {
	failures int
	reply    func(m *wrp.Message) []byte
	seen     []*wrp.Message
}

func (s *scriptedWRP) Do(ctx context.Context, m *wrp.Message) (*wrp.Message, error) {
	s.seen = append(s.seen, m)
	if len(s.seen) <= s.failures {
		return nil, errors.New("network unreachable")
	}
	return &wrp.Message{Payload: s.reply(m), ContentType: "application/json"}, nil
}

func resultReply(result any) func(m *wrp.Message) []byte {
	return func(m *wrp.Message) []byte {
		var req Request
		_ = json.Unmarshal(m.Payload, &req)
		b, _ := json.Marshal(Response{JSONRPC: Version, ID: req.ID, Result: result})
		return b
	}
}

func TestWRPCallerFallback(t *testing.T) {
	f := &scriptedWRP{failures: 1, reply: func(m *wrp.Message) []byte {
		b, _ := json.Marshal(Response{JSONRPC: Version, ID: json.RawMessage(`"x"`), Result: map[string]any{"svc": m.ServiceName}})
		return b
	}}
	c := &WRPCaller{Client: f, Source: "src", Dest: "local:core", Services: []string{"primary", "secondary"}, Timeout: 100 * time.Millisecond}

	var out map[string]string
	require.NoError(t, c.Call(context.Background(), "get_profiles", []any{nil}, &out))
	assert.Equal(t, "secondary", out["svc"])
	require.Len(t, f.seen, 2)
	assert.Equal(t, "local:core/primary", f.seen[0].Destination)
	assert.Equal(t, "local:core/secondary", f.seen[1].Destination)
}

func TestWRPCallerEnvelope(t *testing.T) {
	f := &scriptedWRP{reply: resultReply(true)}
	c := &WRPCaller{Client: f, Source: "src", Dest: "local:core"}

	var ok bool
	require.NoError(t, c.Call(context.Background(), "start_core", nil, &ok))
	assert.True(t, ok)

	require.Len(t, f.seen, 1)
	m := f.seen[0]
	assert.Equal(t, wrp.SimpleRequestResponseMessageType, m.Type)
	assert.Equal(t, "local:core", m.Destination)
	var req Request
	require.NoError(t, json.Unmarshal(m.Payload, &req))
	assert.Equal(t, "start_core", req.Method)
	assert.Equal(t, `"`+m.TransactionUUID+`"`, string(req.ID))
}

func TestWRPCallerRemoteError(t *testing.T) {
	f := &scriptedWRP{reply: func(m *wrp.Message) []byte {
		b, _ := json.Marshal(Response{JSONRPC: Version, ID: json.RawMessage(`"x"`), Error: &Error{Code: CodeServerError, Message: "core not installed"}})
		return b
	}}
	c := &WRPCaller{Client: f, Services: []string{"a", "b"}}

	err := c.Call(context.Background(), "start_core", nil, nil)
	require.ErrorIs(t, err, ErrRemote)
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "core not installed", rpcErr.Message)
	assert.Len(t, f.seen, 1, "a remote error must not fall through to the next service")
}

func TestWRPCallerAllFail(t *testing.T) {
	f := &scriptedWRP{failures: 2}
	c := &WRPCaller{Client: f, Services: []string{"a", "b"}}
	err := c.Call(context.Background(), "get_config", nil, nil)
	require.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "a=network unreachable")
	assert.Contains(t, err.Error(), "b=network unreachable")
}

func TestWRPCallerRawPayload(t *testing.T) {
	f := &scriptedWRP{reply: func(*wrp.Message) []byte { return []byte(`42`) }}
	c := &WRPCaller{Client: f}
	var n int
	require.NoError(t, c.Call(context.Background(), "anything", nil, &n))
	assert.Equal(t, 42, n)
}

func TestWRPCallerNoClient(t *testing.T) {
	err := (&WRPCaller{}).Call(context.Background(), "x", nil, nil)
	assert.ErrorIs(t, err, ErrTransport)
}
