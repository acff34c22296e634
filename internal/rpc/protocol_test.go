package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	r1, err := NewRequest("delete_profiles", []any{[]string{"a", "b"}})
	require.NoError(t, err)
	r2, err := NewRequest("delete_profiles", nil)
	require.NoError(t, err)
	assert.NotEqual(t, string(r1.ID), string(r2.ID))
	assert.JSONEq(t, `[["a","b"]]`, string(r1.Params))
	assert.Nil(t, r2.Params)
}

func TestParseMessageKinds(t *testing.T) {
	m, err := ParseMessage([]byte(`{"jsonrpc":"2.0","method":"core:log","params":"line"}`))
	require.NoError(t, err)
	assert.True(t, m.IsNotification())
	assert.False(t, m.IsResponse())

	m, err = ParseMessage([]byte(`{"jsonrpc":"2.0","id":"1","result":true}`))
	require.NoError(t, err)
	assert.True(t, m.IsResponse())

	_, err = ParseMessage([]byte(`{"jsonrpc":"1.0","id":1}`))
	assert.Error(t, err)
	_, err = ParseRequest([]byte(`{"jsonrpc":"2.0","id":1}`))
	assert.Error(t, err)
}

func TestSettle(t *testing.T) {
	var out []string
	require.NoError(t, Settle("m", &Message{Result: json.RawMessage(`["a"]`)}, &out))
	assert.Equal(t, []string{"a"}, out)

	err := Settle("m", &Message{Result: json.RawMessage(`{}`)}, &out)
	assert.ErrorIs(t, err, ErrDecode)

	err = Settle("m", &Message{Error: &Error{Code: 1, Message: "x"}}, &out)
	assert.ErrorIs(t, err, ErrRemote)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "m remote")
}
