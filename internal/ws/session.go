package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/rpc"
)

// Emitter receives push notifications. *events.Registry satisfies it.
type Emitter interface {
	Emit(topic string, payload any)
}

var _ Emitter = (*events.Registry)(nil)

// SessionOptions tunes a Session.
type SessionOptions struct {
	Header      http.Header
	CallTimeout time.Duration // default 30s; zero context deadline falls back to it
	Logger      zerolog.Logger
	Dialer      *websocket.Dialer
}

// Session is a client connection to the core. It implements rpc.Caller and
// forwards every push notification to its Emitter from a single read loop,
// so events of a topic arrive in the order the core sent them.
type Session struct {
	conn    *websocket.Conn
	emitter Emitter
	log     zerolog.Logger
	timeout time.Duration

	wmu sync.Mutex // serialises writes

	mu      sync.Mutex
	pending map[string]chan *rpc.Message
	err     error

	done chan struct{}
}

var _ rpc.Caller = (*Session)(nil)

// Dial connects to url and starts the read and keepalive loops.
func Dial(ctx context.Context, url string, emitter Emitter, opts SessionOptions) (*Session, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Session{
		conn:    conn,
		emitter: emitter,
		log:     opts.Logger.With().Str("component", "ws").Str("url", url).Logger(),
		timeout: timeout,
		pending: make(map[string]chan *rpc.Message),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	go s.pingLoop()
	return s, nil
}

// Done is closed once the connection is gone.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports why the session ended, or nil while it is up.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close sends a close frame and tears the session down. Pending calls fail
// with rpc.ErrClosed.
func (s *Session) Close() error {
	s.wmu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.wmu.Unlock()
	err := s.conn.Close()
	<-s.done
	return err
}

// Call implements rpc.Caller.
func (s *Session) Call(ctx context.Context, method string, params any, result any) error {
	req, err := rpc.NewRequest(method, params)
	if err != nil {
		return rpc.TransportError(method, err)
	}
	key := string(req.ID)
	ch := make(chan *rpc.Message, 1)

	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return rpc.ClosedError(method, err)
	}
	s.pending[key] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
	}()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.write(req); err != nil {
		return rpc.TransportError(method, err)
	}
	select {
	case m := <-ch:
		return rpc.Settle(method, m, result)
	case <-s.done:
		return rpc.ClosedError(method, s.Err())
	case <-ctx.Done():
		return rpc.TransportError(method, ctx.Err())
	}
}

func (s *Session) write(v any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *Session) readLoop() {
	defer s.shutdown()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	// The core may ping us as well; answering resets our deadline too.
	s.conn.SetPingHandler(func(data string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.wmu.Lock()
		defer s.wmu.Unlock()
		return s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		m, err := rpc.ParseMessage(data)
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		switch {
		case m.IsNotification():
			if s.emitter != nil {
				s.emitter.Emit(m.Method, m.Params)
			}
		case len(m.ID) > 0:
			s.mu.Lock()
			ch, ok := s.pending[string(m.ID)]
			s.mu.Unlock()
			if !ok {
				s.log.Debug().RawJSON("id", m.ID).Msg("response for unknown request")
				continue
			}
			// A call takes one answer; duplicates must not stall the loop.
			select {
			case ch <- m:
			default:
				s.log.Debug().RawJSON("id", m.ID).Msg("dropping duplicate response")
			}
		}
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.wmu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.wmu.Unlock()
			if err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) setErr(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, net.ErrClosed) {
		err = rpc.ErrClosed
	}
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Session) shutdown() {
	s.mu.Lock()
	if s.err == nil {
		s.err = rpc.ErrClosed
	}
	s.mu.Unlock()
	_ = s.conn.Close()
	close(s.done)
	s.log.Debug().Err(s.Err()).Msg("session closed")
}
