package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	readWait     = 60 * time.Second
	maxFrameSize = 64 << 10
)

// handleSocket upgrades to the push channel. The peer receives frames of
// the rooms it joins until either side closes the connection.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	p := newPeer(userFrom(r.Context()))
	s.hub.register(p)
	s.log.Debug(r.Context(), "socket connected", "user_id", p.user.ID)

	go s.writeLoop(conn, p)
	s.readLoop(conn, p)

	s.hub.unregister(p)
	s.log.Debug(context.Background(), "socket disconnected", "user_id", p.user.ID)
}

// readLoop handles client frames. Pings from the client keep the
// connection alive.
func (s *Server) readLoop(conn *websocket.Conn, p *peer) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		var f common.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.log.Debug(context.Background(), "malformed frame", "user_id", p.user.ID, "error", err)
			continue
		}
		s.handleFrame(p, f)
	}
}

// writeLoop drains the peer queue. A closed queue sends a close frame and
// ends the connection.
func (s *Server) writeLoop(conn *websocket.Conn, p *peer) {
	defer conn.Close()
	for b := range p.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug(context.Background(), "socket write failed", "user_id", p.user.ID, "error", err)
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (s *Server) handleFrame(p *peer, f common.Frame) {
	ctx := context.Background()
	switch f.Event {
	case common.EventJoinRoom, common.EventLeaveRoom:
		var rp common.RoomPayload
		if err := json.Unmarshal(f.Data, &rp); err != nil {
			s.log.Debug(ctx, "malformed room payload", "user_id", p.user.ID, "error", err)
			return
		}
		convID, ok := common.ConversationOfRoom(rp.Room)
		if !ok {
			s.log.Debug(ctx, "unknown room", "room", rp.Room)
			return
		}
		if f.Event == common.EventLeaveRoom {
			s.hub.leave(p, rp.Room)
			return
		}
		if !s.store.CanAccess(p.user, convID) {
			s.log.Warn(ctx, "join refused", "room", rp.Room, "user_id", p.user.ID)
			return
		}
		s.hub.join(p, rp.Room)

	case common.EventTyping:
		var tp common.TypingPayload
		if err := json.Unmarshal(f.Data, &tp); err != nil || tp.ConversationID == "" {
			return
		}
		room := common.RoomFor(tp.ConversationID)
		if !s.hub.member(p, room) {
			return
		}
		tp.Sender = p.user.Role
		s.hub.broadcast(room, common.EventTyping, tp, p)

	default:
		s.log.Debug(ctx, "unhandled frame", "event", f.Event)
	}
}
