package client

import (
	"github.com/dmitrijs2005/medchat/internal/client/models"
)

// Ordered extraction rules for conversation fields.
var (
	conversationIDKeys      = []string{"id", "conversation_id", "_id"}
	conversationModeKeys    = []string{"mode", "type", "chat_type"}
	conversationPatientKeys = []string{"patient_id", "patientId"}
	conversationDoctorKeys  = []string{"doctor_id", "doctorId"}
	conversationTitleKeys   = []string{"title", "name"}
	conversationStatusKeys  = []string{"status", "state"}
	conversationCreatedKeys = []string{"created_at", "createdAt", "timestamp"}
	conversationMsgsKeys    = []string{"messages", "history"}
)

// ConversationFromRaw decodes a conversation record. A record without an
// explicit mode is an AI conversation unless it names a doctor.
func ConversationFromRaw(r models.RawRecord) models.Conversation {
	c := models.Conversation{}
	c.ID, _ = r.String(conversationIDKeys...)
	c.PatientID, _ = r.String(conversationPatientKeys...)
	c.DoctorID, _ = r.String(conversationDoctorKeys...)
	c.Title, _ = r.String(conversationTitleKeys...)
	c.Status, _ = r.String(conversationStatusKeys...)
	if c.Status == "" {
		c.Status = models.StatusActive
	}
	c.CreatedAt, _ = r.Time(conversationCreatedKeys...)

	label, _ := r.String(conversationModeKeys...)
	if mode, ok := models.ParseMode(label); ok {
		c.Mode = mode
	} else if c.DoctorID != "" {
		c.Mode = models.ModeDoctor
	} else {
		c.Mode = models.ModeAI
	}
	return c
}

func conversationMessages(r models.RawRecord) []models.RawRecord {
	for _, k := range conversationMsgsKeys {
		if msgs := r.Records(k); msgs != nil {
			return msgs
		}
	}
	return nil
}

// createResponse accepts both {"conversation": {...}, "existing": true}
// and a bare conversation object.
func createResponse(r models.RawRecord) (models.Conversation, bool) {
	existing, _ := r.Bool("existing", "already_exists")
	if inner, ok := r.Record("conversation"); ok {
		return ConversationFromRaw(inner), existing
	}
	return ConversationFromRaw(r), existing
}

// aiResponse accepts {"user_message_id": ..., "reply": {...}} and the
// variants that nest the user message or name the reply differently.
func aiResponse(r models.RawRecord) AIChatResponse {
	var resp AIChatResponse
	resp.UserMessageID, _ = r.String("user_message_id")
	if resp.UserMessageID == "" {
		if um, ok := r.Record("user_message"); ok {
			resp.UserMessageID, _ = um.String("id", "message_id")
		}
	}
	for _, k := range []string{"reply", "ai_message", "assistant_message", "message"} {
		if rec, ok := r.Record(k); ok {
			resp.Reply = rec
			break
		}
	}
	return resp
}
