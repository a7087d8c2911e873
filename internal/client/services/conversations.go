package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/state"
	"github.com/dmitrijs2005/medchat/internal/logging"
)

// HistoryLoader replaces the message list with the history of conv. It must
// leave the list untouched on error.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, conv models.Conversation) error
}

// ConversationService is the conversation directory.
//
// On any network failure the local list, the active selection and the
// message list are left as they were.
type ConversationService interface {
	// List fetches all conversations and keeps those of mode, in server order.
	List(ctx context.Context, mode models.Mode) ([]models.Conversation, error)
	// Create opens a conversation of mode, reusing an existing one when the
	// patient already has an AI conversation or a live conversation with
	// doctor. reused reports whether no new conversation was made.
	Create(ctx context.Context, mode models.Mode, doctor *models.Doctor) (conv models.Conversation, reused bool, err error)
	// Select activates a conversation of the local list and loads its history.
	Select(ctx context.Context, id string) (models.Conversation, error)
	// Remove deletes a conversation; when it was active, the selection and
	// the message list are cleared.
	Remove(ctx context.Context, id string) error
}

type conversationService struct {
	client   client.Client
	convs    *state.Conversations
	messages *state.Messages
	history  HistoryLoader
	viewer   func() models.User
	log      logging.Logger
}

// NewConversationService wires the directory. viewer returns the signed-in
// user at call time.
func NewConversationService(c client.Client, convs *state.Conversations, messages *state.Messages,
	history HistoryLoader, viewer func() models.User, log logging.Logger) ConversationService {
	return &conversationService{
		client:   c,
		convs:    convs,
		messages: messages,
		history:  history,
		viewer:   viewer,
		log:      log.With("component", "directory"),
	}
}

func (s *conversationService) List(ctx context.Context, mode models.Mode) ([]models.Conversation, error) {
	all, err := s.client.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	filtered := make([]models.Conversation, 0, len(all))
	for _, c := range all {
		if c.Mode == mode {
			filtered = append(filtered, c)
		}
	}

	prevActive := s.convs.ActiveID()
	s.convs.Replace(filtered)
	if prevActive != "" && s.convs.ActiveID() == "" {
		s.messages.Reset()
	}
	s.log.Debug(ctx, "conversations listed", "mode", mode, "total", len(all), "kept", len(filtered))
	return filtered, nil
}

func (s *conversationService) Create(ctx context.Context, mode models.Mode, doctor *models.Doctor) (models.Conversation, bool, error) {
	if mode == models.ModeDoctor && (doctor == nil || doctor.ID == "") {
		return models.Conversation{}, false, fmt.Errorf("%w: a doctor must be selected", ErrValidation)
	}

	if existing, ok := s.reusable(mode, doctor); ok {
		if err := s.activate(ctx, existing); err != nil {
			return models.Conversation{}, false, err
		}
		s.log.Info(ctx, "reusing conversation", "conversation_id", existing.ID, "mode", mode)
		return existing, true, nil
	}

	req := client.CreateConversationRequest{Mode: mode}
	if doctor != nil && mode == models.ModeDoctor {
		req.DoctorID = doctor.ID
		req.Title = doctor.Name
	}
	conv, existing, err := s.client.CreateConversation(ctx, req)
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("create conversation: %w", err)
	}
	if conv.Mode == "" {
		conv.Mode = mode
	}

	if existing {
		// Another client created it first; adopt the server's copy.
		_, listed := s.convs.Get(conv.ID)
		if !listed {
			s.convs.Prepend(conv)
		}
		if err := s.activate(ctx, conv); err != nil {
			if !listed {
				s.convs.Remove(conv.ID)
			}
			return models.Conversation{}, false, err
		}
		s.log.Info(ctx, "adopted existing conversation", "conversation_id", conv.ID, "mode", mode)
		return conv, true, nil
	}

	s.convs.Prepend(conv)
	s.convs.SetActive(conv.ID)
	s.messages.Reset()
	s.log.Info(ctx, "conversation created", "conversation_id", conv.ID, "mode", mode)
	return conv, false, nil
}

// reusable applies the local dedup rules.
func (s *conversationService) reusable(mode models.Mode, doctor *models.Doctor) (models.Conversation, bool) {
	switch mode {
	case models.ModeAI:
		if !s.viewer().IsPatient() {
			return models.Conversation{}, false
		}
		return s.convs.FindAI()
	case models.ModeDoctor:
		return s.convs.FindWithDoctor(doctor.ID)
	}
	return models.Conversation{}, false
}

func (s *conversationService) Select(ctx context.Context, id string) (models.Conversation, error) {
	conv, ok := s.convs.Get(id)
	if !ok {
		return models.Conversation{}, fmt.Errorf("conversation %s: %w", id, client.ErrNotFound)
	}
	if err := s.activate(ctx, conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// activate selects conv and loads its history, restoring the previous
// selection when loading fails.
func (s *conversationService) activate(ctx context.Context, conv models.Conversation) error {
	prev := s.convs.ActiveID()
	s.convs.SetActive(conv.ID)
	if err := s.history.LoadHistory(ctx, conv); err != nil {
		if prev == "" {
			s.convs.ClearActive()
		} else {
			s.convs.SetActive(prev)
		}
		return err
	}
	return nil
}

func (s *conversationService) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrNoConversation
	}
	if err := s.client.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if s.convs.Remove(id) {
		s.messages.Reset()
	}
	s.log.Info(ctx, "conversation removed", "conversation_id", id)
	return nil
}
