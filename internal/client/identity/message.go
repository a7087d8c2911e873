package identity

import (
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/textx"
)

// Ordered extraction rules for message fields.
var (
	MessageIDKeys      = []string{"id", "message_id", "_id"}
	ConversationIDKeys = []string{"conversation_id", "conv_id", "conversationId"}
	TextKeys           = []string{"content", "text", "message", "body"}
	TimestampKeys      = []string{"timestamp", "created_at", "createdAt", "sent_at"}
	FileURLKeys        = []string{"file_url", "fileUrl", "attachment_url"}
	FileNameKeys       = []string{"file_name", "fileName", "attachment_name"}
	FileTypeKeys       = []string{"file_type", "fileType", "mime_type"}
)

// ToMessage converts a raw server record into a Message: the author is
// resolved, the text normalized and the timestamp parsed. A missing
// timestamp falls back to now; a missing conversation id falls back to
// conv.ID.
func ToMessage(raw models.RawRecord, conv models.Conversation, user models.User, now func() time.Time) models.Message {
	id, _ := raw.String(MessageIDKeys...)
	convID, ok := raw.String(ConversationIDKeys...)
	if !ok {
		convID = conv.ID
	}
	text, _ := raw.String(TextKeys...)
	ts, ok := raw.Time(TimestampKeys...)
	if !ok {
		ts = now().UTC()
	}
	fileURL, _ := raw.String(FileURLKeys...)
	fileName, _ := raw.String(FileNameKeys...)
	fileType, _ := raw.String(FileTypeKeys...)

	return models.Message{
		ID:             id,
		ConversationID: convID,
		Role:           Resolve(raw, conv, user),
		Text:           textx.Normalize(text),
		FileURL:        fileURL,
		FileName:       fileName,
		FileType:       fileType,
		Timestamp:      ts,
	}
}

// ToMessages maps a history payload. Records without an id are skipped;
// they cannot be reconciled or deleted.
func ToMessages(raws []models.RawRecord, conv models.Conversation, user models.User, now func() time.Time) []models.Message {
	out := make([]models.Message, 0, len(raws))
	for _, r := range raws {
		m := ToMessage(r, conv, user, now)
		if m.ID == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
