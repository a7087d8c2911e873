package common

import (
	"encoding/json"
	"strings"
)

// Frame is one push-channel message: {"event": "...", "data": {...}}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame encodes data as the payload of event.
func NewFrame(event string, data any) (Frame, error) {
	if data == nil {
		return Frame{Event: event}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: b}, nil
}

// Room payloads of join_room and leave_room.
type RoomPayload struct {
	Room string `json:"room"`
}

// TypingPayload is sent by the client; the server relays it to the room.
type TypingPayload struct {
	ConversationID string `json:"conv_id"`
	Sender         string `json:"sender"`
	IsTyping       *bool  `json:"is_typing,omitempty"`
}

// MessageDeletedPayload announces a removed message.
type MessageDeletedPayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
}

// RoomFor builds the room name of a conversation.
func RoomFor(conversationID string) string {
	return RoomPrefix + conversationID
}

// ConversationOfRoom is the inverse of RoomFor. ok is false for names that
// are not conversation rooms.
func ConversationOfRoom(room string) (id string, ok bool) {
	id, ok = strings.CutPrefix(room, RoomPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
