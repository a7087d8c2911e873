package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/dmitrijs2005/medchat/internal/logging"
	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Emit while no connection is open.
var ErrNotConnected = errors.New("push channel not connected")

// ErrSocketClosed is returned by Connect after Close.
var ErrSocketClosed = errors.New("push channel closed")

const maxFrameSize = 1 << 20

// Emitter sends one event to the server.
type Emitter interface {
	Emit(ctx context.Context, event string, data any) error
}

// FrameHandler receives every inbound frame. It runs on the socket's read
// goroutine.
type FrameHandler func(event string, data json.RawMessage)

// SocketOptions tune a Socket. Zero values fall back to defaults.
type SocketOptions struct {
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	MaxRetries       int
	RetryDelay       time.Duration

	// Header is consulted on every dial, so a token installed after
	// construction is picked up by the next reconnect.
	Header func() http.Header
}

// DefaultSocketOptions returns the options used when none are given.
func DefaultSocketOptions() SocketOptions {
	return SocketOptions{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     25 * time.Second,
		MaxRetries:       3,
		RetryDelay:       time.Second,
	}
}

func (o SocketOptions) withDefaults() SocketOptions {
	d := DefaultSocketOptions()
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = d.HandshakeTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = d.ReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	return o
}

// Socket is a reconnecting WebSocket client speaking {"event","data"} frames.
type Socket struct {
	url    string
	opts   SocketOptions
	dialer *websocket.Dialer
	log    logging.Logger

	mu          sync.RWMutex
	conn        *websocket.Conn
	handler     FrameHandler
	onReconnect func()
	started     bool

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSocket returns an unconnected socket for url (ws:// or wss://).
func NewSocket(url string, opts SocketOptions, log logging.Logger) *Socket {
	opts = opts.withDefaults()
	return &Socket{
		url:  url,
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		log:    log,
		closed: make(chan struct{}),
	}
}

// OnFrame installs the inbound frame handler.
func (s *Socket) OnFrame(h FrameHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// OnReconnect installs fn, called after every successful reconnect. It is
// not called for the initial connection.
func (s *Socket) OnReconnect(fn func()) {
	s.mu.Lock()
	s.onReconnect = fn
	s.mu.Unlock()
}

// Connected reports whether a connection is currently open.
func (s *Socket) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// Connect dials the server, retrying a bounded number of times, and starts
// the read loop. The loop reconnects on its own until ctx is done or Close
// is called.
func (s *Socket) Connect(ctx context.Context) error {
	if s.isClosed() {
		return ErrSocketClosed
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	conn, err := s.connectWithRetry(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.started = true
	s.conn = conn
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, conn)
	return nil
}

// Emit sends event with data as its payload.
func (s *Socket) Emit(ctx context.Context, event string, data any) error {
	frame, err := common.NewFrame(event, data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(s.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// Close stops the read loop and closes the connection. It is safe to call
// more than once.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
		}
	})
	s.wg.Wait()
	return nil
}

func (s *Socket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Socket) run(ctx context.Context, conn *websocket.Conn) {
	defer s.wg.Done()
	for {
		err := s.serve(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()

		if s.isClosed() || ctx.Err() != nil {
			return
		}
		s.log.Warn(ctx, "push channel lost, reconnecting", "error", err)

		conn, err = s.reconnect(ctx)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		fn := s.onReconnect
		s.mu.Unlock()

		s.log.Info(ctx, "push channel reconnected")
		if fn != nil {
			fn()
		}
	}
}

// serve pumps frames from conn until it fails.
func (s *Socket) serve(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
		case <-s.closed:
		case <-stop:
			return
		}
		_ = conn.Close()
	}()
	go s.pingLoop(conn, stop)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))

		var f common.Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			s.log.Debug(ctx, "dropping malformed frame", "error", err)
			continue
		}

		s.mu.RLock()
		h := s.handler
		s.mu.RUnlock()
		if h != nil {
			h(f.Event, f.Data)
		}
	}
}

func (s *Socket) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.opts.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// reconnect keeps trying until a dial succeeds, ctx is done or the socket
// is closed.
func (s *Socket) reconnect(ctx context.Context) (*websocket.Conn, error) {
	for {
		conn, err := s.connectWithRetry(ctx)
		if err == nil {
			return conn, nil
		}
		if errors.Is(err, ErrSocketClosed) || ctx.Err() != nil {
			return nil, err
		}
		s.log.Warn(ctx, "push channel still unreachable", "error", err)
		if !s.sleep(ctx, s.opts.RetryDelay*time.Duration(s.opts.MaxRetries)) {
			return nil, ErrSocketClosed
		}
	}
}

func (s *Socket) connectWithRetry(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for i := 0; i < s.opts.MaxRetries; i++ {
		if s.isClosed() {
			return nil, ErrSocketClosed
		}
		conn, err := s.dial(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		s.log.Debug(ctx, "push channel dial failed", "attempt", i+1, "error", err)

		if i < s.opts.MaxRetries-1 {
			if !s.sleep(ctx, s.opts.RetryDelay*time.Duration(i+1)) {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, ErrSocketClosed
			}
		}
	}
	return nil, fmt.Errorf("connect %s after %d attempts: %w", s.url, s.opts.MaxRetries, lastErr)
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, error) {
	var header http.Header
	if s.opts.Header != nil {
		header = s.opts.Header()
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

// sleep waits for d. It reports false when interrupted by ctx or Close.
func (s *Socket) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.closed:
		return false
	}
}
