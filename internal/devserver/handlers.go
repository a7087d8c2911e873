package devserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
)

// overloadTrigger makes /ai/chat answer as an overloaded model, so clients
// can exercise their retry hint.
const overloadTrigger = "/overload"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &payload); err != nil || payload.Username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}
	u, err := s.store.UserByName(payload.Username)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	token, err := s.IssueToken(u.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token not issued")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, userFrom(r.Context()))
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs := s.store.Conversations(userFrom(r.Context()))
	if convs == nil {
		convs = []Conversation{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mode     string `json:"mode"`
		DoctorID string `json:"doctor_id"`
		Title    string `json:"title"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, existing, err := s.store.CreateConversation(userFrom(r.Context()), payload.Mode, payload.DoctorID, payload.Title)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	respondJSON(w, status, map[string]any{"conversation": c, "existing": existing})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	c, msgs, err := s.store.Conversation(userFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversation": c, "messages": msgs})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteConversation(userFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	var payload struct {
		Content  string `json:"content"`
		FileURL  string `json:"file_url"`
		FileName string `json:"file_name"`
		FileType string `json:"file_type"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	convID := chi.URLParam(r, "id")
	c, _, err := s.store.Conversation(u, convID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if c.Mode != ModeDoctor {
		respondError(w, http.StatusUnprocessableEntity, "use /ai/chat for assistant conversations")
		return
	}

	m, err := s.store.AddMessage(u, Message{
		ConversationID: convID,
		Role:           u.Role,
		SenderID:       u.ID,
		Content:        payload.Content,
		FileURL:        payload.FileURL,
		FileName:       payload.FileName,
		FileType:       payload.FileType,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	s.hub.Broadcast(convID, common.EventNewMessage, m)
	respondJSON(w, http.StatusCreated, map[string]any{"message": m})
}

func (s *Server) handleAIChat(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	var payload struct {
		ConversationID   string     `json:"conversation_id"`
		Content          string     `json:"content"`
		ShareContext     bool       `json:"share_context"`
		ConsentGrantedAt *time.Time `json:"consent_granted_at"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, _, err := s.store.Conversation(u, payload.ConversationID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if c.Mode != ModeAI {
		respondError(w, http.StatusUnprocessableEntity, "not an assistant conversation")
		return
	}
	if strings.TrimSpace(payload.Content) == overloadTrigger {
		respondCode(w, http.StatusServiceUnavailable, common.CodeAIOverloaded, "assistant is overloaded")
		return
	}

	mine, err := s.store.AddMessage(u, Message{
		ConversationID: c.ID,
		Role:           u.Role,
		SenderID:       u.ID,
		Content:        payload.Content,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	s.hub.Broadcast(c.ID, common.EventNewMessage, mine)

	reply, err := s.store.AddMessage(u, Message{
		ConversationID: c.ID,
		Role:           RoleAssistant,
		Content:        assistantReply(payload.Content, payload.ShareContext && payload.ConsentGrantedAt != nil),
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	s.hub.Broadcast(c.ID, common.EventNewMessage, reply)

	respondJSON(w, http.StatusOK, map[string]any{"user_message_id": mine.ID, "reply": reply})
}

// assistantReply echoes the question back. withRecords marks replies that
// were allowed to read the patient's medical context.
func assistantReply(question string, withRecords bool) string {
	reply := fmt.Sprintf("You asked: %q. This is a development server, please consult a doctor for real advice.", strings.TrimSpace(question))
	if withRecords {
		reply = "I have taken your medical records into account. " + reply
	}
	return reply
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.DeleteMessage(userFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	s.hub.Broadcast(m.ConversationID, common.EventMessageDeleted, common.MessageDeletedPayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.config.MaxUploadSize
	// Leave room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondCode(w, http.StatusRequestEntityTooLarge, common.CodeFileTooLarge, "file is too large")
			return
		}
		respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read file")
		return
	}
	if int64(len(data)) > limit {
		respondCode(w, http.StatusRequestEntityTooLarge, common.CodeFileTooLarge, "file is too large")
		return
	}

	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	contentType, _, _ = strings.Cut(contentType, ";")

	stored := s.store.SaveFile(hdr.Filename, contentType, data)
	s.log.Debug(r.Context(), "file stored", "file_id", stored.ID, "name", stored.Name, "size", len(data))
	respondJSON(w, http.StatusCreated, map[string]string{
		"url":       "/uploads/" + stored.ID,
		"file_name": stored.Name,
		"file_type": stored.Type,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.File(chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", f.Type)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.Name))
	_, _ = w.Write(f.Data)
}

func (s *Server) handleDoctors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"doctors": s.store.Doctors()})
}
