package client

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/models"
)

// Client is the request/response boundary of the messaging API.
type Client interface {
	// SetToken replaces the bearer token attached to every request.
	SetToken(token string)
	Ping(ctx context.Context) error
	Me(ctx context.Context) (models.RawRecord, error)

	ListConversations(ctx context.Context) ([]models.Conversation, error)
	// CreateConversation reports existing=true when the server answered
	// with a conversation that already existed.
	CreateConversation(ctx context.Context, req CreateConversationRequest) (conv models.Conversation, existing bool, err error)
	// GetConversation returns the conversation with its embedded messages.
	GetConversation(ctx context.Context, id string) (models.Conversation, []models.RawRecord, error)
	DeleteConversation(ctx context.Context, id string) error

	PostMessage(ctx context.Context, conversationID string, req PostMessageRequest) (models.RawRecord, error)
	ChatAI(ctx context.Context, req AIChatRequest) (AIChatResponse, error)
	DeleteMessage(ctx context.Context, id string) error

	UploadFile(ctx context.Context, name, contentType string, r io.Reader) (models.UploadedFile, error)
	ListDoctors(ctx context.Context) ([]models.RawRecord, error)

	Close() error
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	Mode     models.Mode `json:"mode"`
	DoctorID string      `json:"doctor_id,omitempty"`
	Title    string      `json:"title,omitempty"`
}

// PostMessageRequest is the body of POST /conversations/{id}/messages.
type PostMessageRequest struct {
	Content  string      `json:"content"`
	Role     models.Role `json:"role"`
	FileURL  string      `json:"file_url,omitempty"`
	FileName string      `json:"file_name,omitempty"`
	FileType string      `json:"file_type,omitempty"`
}

// AIChatRequest is the body of POST /ai/chat. ShareContext and
// ConsentGrantedAt are set only after the user agreed to share their
// medical context.
type AIChatRequest struct {
	ConversationID   string     `json:"conversation_id"`
	Content          string     `json:"content"`
	ShareContext     bool       `json:"share_context,omitempty"`
	ConsentGrantedAt *time.Time `json:"consent_granted_at,omitempty"`
}

// AIChatResponse is one AI turn. UserMessageID is the server id given to
// the user's message, when the server reports it.
type AIChatResponse struct {
	UserMessageID string
	Reply         models.RawRecord
}
