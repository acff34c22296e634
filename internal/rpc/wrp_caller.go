package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	wrp "github.com/xmidt-org/wrp-go/v3"
)

// WRPCaller is a Caller that wraps each JSON-RPC request in a WRP
// SimpleRequestResponse message. The request id becomes the
// TransactionUUID and the WRP payload carries the JSON request.
//
// When several service names are configured they are tried in order; a
// transport failure moves on to the next one, any decoded answer (success or
// JSON-RPC error) ends the call.
type WRPCaller struct {
	Client   WRPDoer
	Source   string        // e.g. "rayshell/client"
	Dest     string        // destination prefix, e.g. "local:core"
	Services []string      // candidate service names; empty means a single attempt with no service
	Timeout  time.Duration // per attempt; default 8s
}

// Call implements Caller.
func (w *WRPCaller) Call(ctx context.Context, method string, params any, result any) error {
	if w.Client == nil {
		return TransportError(method, errors.New("no wrp client configured"))
	}
	req, err := NewRequest(method, params)
	if err != nil {
		return TransportError(method, err)
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return TransportError(method, err)
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	services := w.Services
	if len(services) == 0 {
		services = []string{""}
	}

	var attempts []string
	var lastErr error
	for _, svc := range services {
		msg := &wrp.Message{
			Type:            wrp.SimpleRequestResponseMessageType,
			Source:          w.Source,
			Destination:     w.destination(svc),
			ServiceName:     svc,
			TransactionUUID: strings.Trim(string(req.ID), `"`),
			ContentType:     "application/json",
			Payload:         raw,
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		upstream, sendErr := w.Client.Do(attemptCtx, msg)
		cancel()
		if sendErr != nil {
			lastErr = sendErr
			attempts = append(attempts, fmt.Sprintf("%s=%v", nz(svc, "-"), sendErr))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		m, perr := ParseMessage(upstream.Payload)
		if perr != nil {
			// Not JSON-RPC: treat the raw payload as the result.
			m = &Message{JSONRPC: Version, ID: req.ID, Result: json.RawMessage(upstream.Payload)}
		}
		return Settle(method, m, result)
	}
	return TransportError(method, fmt.Errorf("attempts=[%s]: %w", strings.Join(attempts, " "), lastErr))
}

func (w *WRPCaller) destination(svc string) string {
	if svc == "" {
		return w.Dest
	}
	return strings.TrimRight(w.Dest, "/") + "/" + svc
}

// nz returns fallback if s is empty.
func nz(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
