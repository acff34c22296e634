package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	wrp "github.com/xmidt-org/wrp-go/v3"
)

// WRPDoer is the minimal interface needed from a WRP client.
type WRPDoer interface {
	Do(context.Context, *wrp.Message) (*wrp.Message, error)
}

// WRPClient POSTs msgpack encoded WRP messages to a bridge in front of the
// core and decodes the WRP reply.
type WRPClient struct {
	Client        *http.Client
	URL           string
	Authorization string // optional; bare credentials get a Basic prefix
}

// ErrBadStatus indicates a non-2xx response from the bridge.
var ErrBadStatus = errors.New("bridge returned non-2xx status")

// authHeader passes known schemes through and treats anything else as
// base64 basic credentials.
func authHeader(v string) string {
	auth := strings.TrimSpace(v)
	lower := strings.ToLower(auth)
	for _, scheme := range []string{"basic ", "bearer ", "digest "} {
		if strings.HasPrefix(lower, scheme) {
			return auth
		}
	}
	return "Basic " + auth
}

// Do sends a WRP message and decodes the WRP response.
func (wc *WRPClient) Do(ctx context.Context, m *wrp.Message) (*wrp.Message, error) {
	client := wc.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	buf := &bytes.Buffer{}
	if err := wrp.NewEncoder(buf, wrp.Msgpack).Encode(m); err != nil {
		return nil, fmt.Errorf("encode wrp: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.URL, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/msgpack")
	if wc.Authorization != "" {
		req.Header.Set("Authorization", authHeader(wc.Authorization))
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out wrp.Message
	if err := wrp.NewDecoder(resp.Body, wrp.Msgpack).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode wrp: %w", err)
	}
	return &out, nil
}
