package models

import (
	"time"

	"github.com/dmitrijs2005/medchat/internal/common"
)

// Conversation statuses known to the client.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Conversation is a thread between a patient and either a doctor or the AI
// assistant. DoctorID is empty for AI conversations.
type Conversation struct {
	ID        string
	Mode      Mode
	PatientID string
	DoctorID  string
	Title     string
	Status    string
	CreatedAt time.Time
}

// Archived reports whether the conversation was archived by its owner.
func (c Conversation) Archived() bool {
	return c.Status == StatusArchived
}

// Room is the push-channel room scoped to this conversation.
func (c Conversation) Room() string {
	return RoomFor(c.ID)
}

// RoomFor builds the room name for a conversation id.
func RoomFor(conversationID string) string {
	return common.RoomFor(conversationID)
}
