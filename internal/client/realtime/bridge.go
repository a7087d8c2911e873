package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/identity"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/state"
	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/dmitrijs2005/medchat/internal/logging"
	"github.com/dmitrijs2005/medchat/internal/textx"
)

// Push channel event names.
const (
	EventJoinRoom       = common.EventJoinRoom
	EventLeaveRoom      = common.EventLeaveRoom
	EventTyping         = common.EventTyping
	EventNewMessage     = common.EventNewMessage
	EventMessageDeleted = common.EventMessageDeleted
)

// DefaultTypingTimeout is how long the peer-typing flag survives without a
// fresh typing event.
const DefaultTypingTimeout = 3 * time.Second

const previewLen = 80

// Notifier surfaces a message outside the chat view. Both calls are best
// effort.
type Notifier interface {
	Notify(title, body string) error
	FlashTitle(text string) error
}

// Presence reports whether the user is looking at the chat.
type Presence interface {
	Focused() bool
}

type alwaysFocused struct{}

func (alwaysFocused) Focused() bool { return true }

// BridgeOption customizes a Bridge.
type BridgeOption func(*Bridge)

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) BridgeOption {
	return func(b *Bridge) { b.notifier = n }
}

// WithPresence sets the focus source. Without one the user is assumed to be
// focused.
func WithPresence(p Presence) BridgeOption {
	return func(b *Bridge) { b.presence = p }
}

// WithTypingTimeout overrides DefaultTypingTimeout.
func WithTypingTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.typingTimeout = d
		}
	}
}

// Bridge applies push events to the active conversation's message list and
// keeps room membership in step with it.
type Bridge struct {
	emitter  Emitter
	messages *state.Messages
	viewer   func() models.User
	log      logging.Logger
	notifier Notifier
	presence Presence
	now      func() time.Time

	typingTimeout time.Duration

	mu          sync.Mutex
	conv        models.Conversation
	joined      bool
	peerTyping  bool
	typingGen   uint64
	typingTimer *time.Timer
	onTyping    func(bool)
}

// NewBridge returns an unattached bridge emitting through e.
func NewBridge(e Emitter, messages *state.Messages, viewer func() models.User,
	log logging.Logger, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		emitter:       e,
		messages:      messages,
		viewer:        viewer,
		log:           log.With("component", "realtime"),
		presence:      alwaysFocused{},
		now:           time.Now,
		typingTimeout: DefaultTypingTimeout,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Attach joins conv's room, leaving the current one first. Attaching to the
// room already joined does nothing. The membership is recorded even when the
// emit fails, so Rejoin can restore it after a reconnect.
func (b *Bridge) Attach(ctx context.Context, conv models.Conversation) error {
	b.mu.Lock()
	if b.joined && b.conv.ID == conv.ID {
		b.conv = conv
		b.mu.Unlock()
		return nil
	}
	prev, wasJoined := b.conv, b.joined
	b.conv, b.joined = conv, true
	b.clearTypingLocked()
	b.mu.Unlock()

	if wasJoined {
		if err := b.emitter.Emit(ctx, EventLeaveRoom, common.RoomPayload{Room: prev.Room()}); err != nil {
			b.log.Debug(ctx, "leave room not sent", "room", prev.Room(), "error", err)
		}
	}
	if err := b.emitter.Emit(ctx, EventJoinRoom, common.RoomPayload{Room: conv.Room()}); err != nil {
		b.log.Warn(ctx, "join room not sent", "room", conv.Room(), "error", err)
		return err
	}
	b.log.Debug(ctx, "joined room", "room", conv.Room())
	return nil
}

// Detach leaves the current room. Detaching while unattached does nothing.
func (b *Bridge) Detach(ctx context.Context) error {
	b.mu.Lock()
	if !b.joined {
		b.mu.Unlock()
		return nil
	}
	prev := b.conv
	b.conv, b.joined = models.Conversation{}, false
	b.clearTypingLocked()
	b.mu.Unlock()

	if err := b.emitter.Emit(ctx, EventLeaveRoom, common.RoomPayload{Room: prev.Room()}); err != nil {
		b.log.Debug(ctx, "leave room not sent", "room", prev.Room(), "error", err)
		return err
	}
	return nil
}

// Rejoin re-sends join_room for the current room, if any. Socket calls it
// through OnReconnect.
func (b *Bridge) Rejoin(ctx context.Context) error {
	b.mu.Lock()
	conv, joined := b.conv, b.joined
	b.mu.Unlock()
	if !joined {
		return nil
	}
	return b.emitter.Emit(ctx, EventJoinRoom, common.RoomPayload{Room: conv.Room()})
}

// Attached returns the conversation whose room is joined.
func (b *Bridge) Attached() (models.Conversation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conv, b.joined
}

// SendTyping tells the room the local user is typing. It does nothing while
// unattached.
func (b *Bridge) SendTyping(ctx context.Context) error {
	b.mu.Lock()
	conv, joined := b.conv, b.joined
	b.mu.Unlock()
	if !joined {
		return nil
	}
	return b.emitter.Emit(ctx, EventTyping, common.TypingPayload{
		ConversationID: conv.ID,
		Sender:         string(b.viewer().ChatRole()),
	})
}

// PeerTyping reports whether the counterpart is typing.
func (b *Bridge) PeerTyping() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peerTyping
}

// OnPeerTyping installs fn, called whenever the peer-typing flag changes.
func (b *Bridge) OnPeerTyping(fn func(bool)) {
	b.mu.Lock()
	b.onTyping = fn
	b.mu.Unlock()
}

// HandleFrame decodes an inbound frame and dispatches it. It matches
// FrameHandler.
func (b *Bridge) HandleFrame(event string, data json.RawMessage) {
	var rec models.RawRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec); err != nil {
			b.log.Debug(context.Background(), "undecodable event payload", "event", event, "error", err)
			return
		}
	}
	b.Handle(event, rec)
}

// Handle dispatches one decoded event. Unknown events are ignored.
func (b *Bridge) Handle(event string, data models.RawRecord) {
	switch event {
	case EventNewMessage:
		b.handleNewMessage(data)
	case EventTyping:
		b.handleTyping(data)
	case EventMessageDeleted:
		b.handleDeleted(data)
	}
}

func (b *Bridge) handleNewMessage(data models.RawRecord) {
	rec := data
	if inner, ok := data.Record("message"); ok {
		rec = inner
		if _, has := rec.String(identity.ConversationIDKeys...); !has {
			if id, ok := data.String(identity.ConversationIDKeys...); ok {
				rec = cloneWith(rec, "conversation_id", id)
			}
		}
	}

	convID, _ := rec.String(identity.ConversationIDKeys...)

	b.mu.Lock()
	conv, joined := b.conv, b.joined
	b.mu.Unlock()

	user := b.viewer()
	if !joined || convID == "" || convID != conv.ID {
		if convID != "" {
			b.notify(rec, user)
		}
		return
	}

	m := identity.ToMessage(rec, conv, user, b.now)
	if m.ID == "" {
		b.log.Debug(context.Background(), "new message without id dropped", "conversation_id", convID)
		return
	}
	if !b.messages.Merge(m) {
		return
	}
	if m.Role != user.ChatRole() && !b.presence.Focused() {
		b.notify(rec, user)
	}
}

func (b *Bridge) handleTyping(data models.RawRecord) {
	convID, _ := data.String(identity.ConversationIDKeys...)
	label, _ := data.String("sender", "role")
	sender, ok := models.ParseRole(label)
	if ok && sender == b.viewer().ChatRole() {
		return
	}
	typing := true
	if v, ok := data.Bool("is_typing", "typing"); ok {
		typing = v
	}

	b.mu.Lock()
	if !b.joined || convID != b.conv.ID {
		b.mu.Unlock()
		return
	}
	if !typing {
		changed := b.clearTypingLocked()
		fn := b.onTyping
		b.mu.Unlock()
		if changed && fn != nil {
			fn(false)
		}
		return
	}

	b.typingGen++
	gen := b.typingGen
	if b.typingTimer != nil {
		b.typingTimer.Stop()
	}
	b.typingTimer = time.AfterFunc(b.typingTimeout, func() { b.expireTyping(gen) })
	changed := !b.peerTyping
	b.peerTyping = true
	fn := b.onTyping
	b.mu.Unlock()

	if changed && fn != nil {
		fn(true)
	}
}

func (b *Bridge) expireTyping(gen uint64) {
	b.mu.Lock()
	if gen != b.typingGen || !b.peerTyping {
		b.mu.Unlock()
		return
	}
	b.peerTyping = false
	b.typingTimer = nil
	fn := b.onTyping
	b.mu.Unlock()
	if fn != nil {
		fn(false)
	}
}

// clearTypingLocked drops the peer-typing flag and its timer. It reports
// whether the flag was set.
func (b *Bridge) clearTypingLocked() bool {
	b.typingGen++
	if b.typingTimer != nil {
		b.typingTimer.Stop()
		b.typingTimer = nil
	}
	was := b.peerTyping
	b.peerTyping = false
	return was
}

func (b *Bridge) handleDeleted(data models.RawRecord) {
	id, ok := data.String(identity.MessageIDKeys...)
	if !ok {
		return
	}
	if convID, ok := data.String(identity.ConversationIDKeys...); ok {
		b.mu.Lock()
		active := b.joined && convID == b.conv.ID
		b.mu.Unlock()
		if !active {
			return
		}
	}
	b.messages.Remove(id)
}

func (b *Bridge) notify(rec models.RawRecord, user models.User) {
	if b.notifier == nil {
		return
	}
	ctx := context.Background()
	text, _ := rec.String(identity.TextKeys...)
	title := "New message"
	label, _ := rec.String(identity.RoleKeys...)
	switch role, _ := models.ParseRole(label); role {
	case models.RoleDoctor:
		if user.Role != models.RoleDoctor {
			title = "New message from your doctor"
		}
	case models.RoleAI:
		title = "New reply from the assistant"
	}

	if err := b.notifier.Notify(title, preview(textx.Normalize(text))); err != nil {
		b.log.Debug(ctx, "notification failed", "error", err)
	}
	if err := b.notifier.FlashTitle(title); err != nil {
		b.log.Debug(ctx, "title flash failed", "error", err)
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen-1]) + "…"
}

func cloneWith(r models.RawRecord, key string, v any) models.RawRecord {
	out := make(models.RawRecord, len(r)+1)
	for k, val := range r {
		out[k] = val
	}
	out[key] = v
	return out
}
