package devserver

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/dmitrijs2005/medchat/internal/logging"
)

// peerBuffer is the number of frames queued per connection before the
// broadcaster starts dropping frames for it.
const peerBuffer = 32

// peer is one push-channel connection.
type peer struct {
	user User
	send chan []byte
}

func newPeer(u User) *peer {
	return &peer{user: u, send: make(chan []byte, peerBuffer)}
}

// Hub fans frames out to the peers that joined a room.
type Hub struct {
	log logging.Logger

	mu    sync.RWMutex
	rooms map[string]map[*peer]struct{}
	peers map[*peer]map[string]struct{}
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		log:   log.With("component", "hub"),
		rooms: make(map[string]map[*peer]struct{}),
		peers: make(map[*peer]map[string]struct{}),
	}
}

// register makes p eligible for rooms.
func (h *Hub) register(p *peer) {
	h.mu.Lock()
	h.peers[p] = make(map[string]struct{})
	h.mu.Unlock()
}

// unregister leaves every room of p and closes its queue.
func (h *Hub) unregister(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.peers[p]
	if !ok {
		return
	}
	for room := range rooms {
		h.leaveLocked(p, room)
	}
	delete(h.peers, p)
	close(p.send)
}

func (h *Hub) join(p *peer, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.peers[p]
	if !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*peer]struct{})
	}
	h.rooms[room][p] = struct{}{}
	rooms[room] = struct{}{}
	h.log.Debug(context.Background(), "joined", "room", room, "user_id", p.user.ID, "peers", len(h.rooms[room]))
}

func (h *Hub) leave(p *peer, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(p, room)
}

func (h *Hub) leaveLocked(p *peer, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, p)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.peers[p]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) member(p *peer, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][p]
	return ok
}

// Broadcast sends event to everyone in the room of conversationID.
func (h *Hub) Broadcast(conversationID, event string, data any) {
	h.broadcast(common.RoomFor(conversationID), event, data, nil)
}

// broadcast queues the frame for every member of room except skip. A
// member whose queue is full misses the frame.
func (h *Hub) broadcast(room, event string, data any, skip *peer) {
	f, err := common.NewFrame(event, data)
	if err != nil {
		h.log.Error(context.Background(), "encode frame", "event", event, "error", err)
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		h.log.Error(context.Background(), "encode frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.rooms[room] {
		if p == skip {
			continue
		}
		select {
		case p.send <- b:
		default:
			h.log.Warn(context.Background(), "peer queue full, dropping frame", "room", room, "event", event, "user_id", p.user.ID)
		}
	}
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()
	for _, p := range peers {
		h.unregister(p)
	}
}

// ClientCount returns the number of peers in the room of conversationID.
func (h *Hub) ClientCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[common.RoomFor(conversationID)])
}
