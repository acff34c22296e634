// Package ws carries JSON-RPC 2.0 over a websocket: Session is the shell's
// side of the connection and Handler serves the same protocol for a core.
package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/rpc"
)

// Tunable timing constants (aligned with gorilla/websocket chat example pattern)
const (
	pongWait       = 75 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
)

// Handler upgrades HTTP to WebSocket, answers JSON-RPC requests through
// Dispatcher and pushes every event emitted on Events for the listed Topics
// to the peer as a notification.
type Handler struct {
	Upgrader   websocket.Upgrader
	Dispatcher rpc.Dispatcher
	Events     *events.Registry // optional
	Topics     []string         // topics forwarded from Events; defaults to events.Topics()
	Logger     zerolog.Logger
}

type conn struct {
	ws  *websocket.Conn
	mu  sync.Mutex
	log zerolog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("upgrade failed")
		return
	}
	cl := &conn{ws: c, log: h.Logger.With().Str("component", "ws").Str("peer", r.RemoteAddr).Logger()}
	go cl.run(h.Dispatcher, h.bind)
}

// bind forwards the configured topics to c until the returned func is called.
func (h *Handler) bind(c *conn) func() {
	if h.Events == nil {
		return func() {}
	}
	topics := h.Topics
	if len(topics) == 0 {
		topics = events.Topics()
	}
	sc := h.Events.Scope()
	for _, topic := range topics {
		topic := topic
		sc.On(topic, func(payload any) {
			c.writeJSON(rpc.Notification{JSONRPC: rpc.Version, Method: topic, Params: payload})
		})
	}
	return sc.Close
}

func (c *conn) run(d rpc.Dispatcher, bind func(*conn) func()) {
	defer c.ws.Close()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	unbind := bind(c)
	defer unbind()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ping loop (keepalive)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				err := c.ws.WriteMessage(websocket.PingMessage, nil)
				c.mu.Unlock()
				if err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		req, perr := rpc.ParseRequest(message)
		if perr != nil {
			c.writeJSON(rpc.Response{JSONRPC: rpc.Version, Error: &rpc.Error{Code: rpc.CodeInvalidRequest, Message: perr.Error()}})
			continue
		}
		// Requests are served concurrently so a slow command does not hold
		// up the read loop; responses are matched by id.
		go func(req *rpc.Request) {
			resp := d.Handle(ctx, req)
			if resp != nil && len(req.ID) > 0 {
				c.writeJSON(resp)
			}
		}(req)
	}
}

func (c *conn) writeJSON(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Refresh per-message write deadline to avoid stale timeout from prior ping when queue backs up.
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(v); err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() || errors.Is(err, os.ErrDeadlineExceeded) {
			c.log.Warn().Err(err).Msg("write deadline exceeded")
			return
		}
		c.log.Debug().Err(err).Msg("write error")
	}
}
