package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/dmitrijs2005/medchat/internal/logging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pushServer accepts WebSocket clients, records their frames and lets the
// test push frames or drop connections.
type pushServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []common.Frame
	auth     []string
	accepted chan struct{}
}

func newPushServer(t *testing.T) (*pushServer, string) {
	ps := &pushServer{t: t, accepted: make(chan struct{}, 8)}
	srv := httptest.NewServer(http.HandlerFunc(ps.serve))
	t.Cleanup(func() {
		ps.dropAll()
		srv.Close()
	})
	return ps, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func (ps *pushServer) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := ps.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ps.mu.Lock()
	ps.conns = append(ps.conns, conn)
	ps.auth = append(ps.auth, r.Header.Get("Authorization"))
	ps.mu.Unlock()
	ps.accepted <- struct{}{}

	for {
		var f common.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		ps.mu.Lock()
		ps.received = append(ps.received, f)
		ps.mu.Unlock()
	}
}

func (ps *pushServer) push(event string, data any) {
	f, err := common.NewFrame(event, data)
	require.NoError(ps.t, err)
	ps.mu.Lock()
	conn := ps.conns[len(ps.conns)-1]
	ps.mu.Unlock()
	require.NoError(ps.t, conn.WriteJSON(f))
}

func (ps *pushServer) dropAll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, c := range ps.conns {
		_ = c.Close()
	}
}

func (ps *pushServer) frames() []common.Frame {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]common.Frame(nil), ps.received...)
}

func waitAccepted(t *testing.T, ps *pushServer) {
	t.Helper()
	select {
	case <-ps.accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not accept a connection")
	}
}

func fastOptions() SocketOptions {
	return SocketOptions{RetryDelay: 10 * time.Millisecond, MaxRetries: 3}
}

func TestSocket_EmitBeforeConnect(t *testing.T) {
	s := NewSocket("ws://127.0.0.1:1/ws", fastOptions(), logging.NewDiscard())
	err := s.Emit(context.Background(), EventTyping, nil)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestSocket_EmitAndReceive(t *testing.T) {
	ps, url := newPushServer(t)

	opts := fastOptions()
	opts.Header = func() http.Header {
		h := http.Header{}
		h.Set("Authorization", "Bearer tok")
		return h
	}
	s := NewSocket(url, opts, logging.NewDiscard())

	got := make(chan common.Frame, 1)
	s.OnFrame(func(event string, data json.RawMessage) {
		got <- common.Frame{Event: event, Data: data}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Connect(ctx))
	defer s.Close()
	waitAccepted(t, ps)
	require.True(t, s.Connected())

	require.NoError(t, s.Emit(ctx, EventJoinRoom, common.RoomPayload{Room: "room:c1"}))
	require.Eventually(t, func() bool { return len(ps.frames()) == 1 }, 2*time.Second, 10*time.Millisecond)
	f := ps.frames()[0]
	assert.Equal(t, EventJoinRoom, f.Event)
	assert.JSONEq(t, `{"room":"room:c1"}`, string(f.Data))
	assert.Equal(t, []string{"Bearer tok"}, ps.auth)

	ps.push(EventNewMessage, map[string]any{"id": "m1"})
	select {
	case f := <-got:
		assert.Equal(t, EventNewMessage, f.Event)
		assert.JSONEq(t, `{"id":"m1"}`, string(f.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered")
	}
}

func TestSocket_ReconnectsAndCallsHook(t *testing.T) {
	ps, url := newPushServer(t)
	s := NewSocket(url, fastOptions(), logging.NewDiscard())

	reconnected := make(chan struct{}, 1)
	s.OnReconnect(func() { reconnected <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Connect(ctx))
	defer s.Close()
	waitAccepted(t, ps)

	ps.dropAll()
	waitAccepted(t, ps)
	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect hook not called")
	}

	require.NoError(t, s.Emit(ctx, EventTyping, common.TypingPayload{ConversationID: "c1", Sender: "patient"}))
	require.Eventually(t, func() bool { return len(ps.frames()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSocket_ConnectGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	srv.Close()

	s := NewSocket(url, fastOptions(), logging.NewDiscard())
	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.False(t, s.Connected())
}

func TestSocket_RejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewSocket("ws"+strings.TrimPrefix(srv.URL, "http"), SocketOptions{MaxRetries: 1}, logging.NewDiscard())
	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSocket_CloseIsIdempotent(t *testing.T) {
	ps, url := newPushServer(t)
	s := NewSocket(url, fastOptions(), logging.NewDiscard())
	require.NoError(t, s.Connect(context.Background()))
	waitAccepted(t, ps)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.Connected())
	require.ErrorIs(t, s.Connect(context.Background()), ErrSocketClosed)
}
