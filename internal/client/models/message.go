package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemporaryIDPrefix marks identifiers minted locally for optimistic entries.
// Server identifiers never carry it.
const TemporaryIDPrefix = "tmp-"

// Message is a single chat line as held by the client.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Text           string
	FileURL        string
	FileName       string
	FileType       string
	Timestamp      time.Time
}

// NewTemporaryID returns a fresh tmp-<nonce> identifier.
func NewTemporaryID() string {
	return TemporaryIDPrefix + uuid.NewString()
}

// IsTemporaryID reports whether id was minted locally.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TemporaryIDPrefix)
}

// Pending reports whether the message is an unconfirmed optimistic entry.
func (m Message) Pending() bool {
	return IsTemporaryID(m.ID)
}

// HasFile reports whether the message carries an attachment.
func (m Message) HasFile() bool {
	return m.FileURL != ""
}

// UploadedFile is the server's answer to a multipart upload.
type UploadedFile struct {
	URL  string `json:"url"`
	Type string `json:"file_type"`
	Name string `json:"file_name"`
}
