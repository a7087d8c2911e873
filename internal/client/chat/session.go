// Package chat coordinates the client services for one signed-in user: the
// chat mode, the active conversation and its push room, and the consent
// question in front of AI sends.
package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/medchat/internal/client/consent"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/services"
	"github.com/dmitrijs2005/medchat/internal/client/state"
	"github.com/dmitrijs2005/medchat/internal/logging"
)

// ErrConsentPending is returned for a submit made while the consent question
// is still open.
var ErrConsentPending = fmt.Errorf("%w: waiting for a consent answer", services.ErrValidation)

// ErrNoDoctor is returned when a doctor conversation is requested before a
// doctor was picked.
var ErrNoDoctor = fmt.Errorf("%w: pick a doctor first", services.ErrValidation)

// Prompter asks the user whether the AI may use their medical context.
type Prompter interface {
	AskConsent(ctx context.Context, conv models.Conversation) (bool, error)
}

// Room is the push-channel membership of the active conversation.
type Room interface {
	Attach(ctx context.Context, conv models.Conversation) error
	Detach(ctx context.Context) error
	SendTyping(ctx context.Context) error
}

// Outcome reports what a submit did. Restored is the text handed back to the
// input when it was not sent after a consent question.
type Outcome struct {
	Sent     models.Message
	Restored string
	Asked    bool
	Declined bool
}

// Deps bundles what a Session drives.
type Deps struct {
	Conversations services.ConversationService
	Messages      services.MessageService
	Doctors       services.DoctorService
	ConvState     *state.Conversations
	MsgState      *state.Messages
	Gate          *consent.Gate
	Room          Room
	Prompter      Prompter
	Log           logging.Logger
}

// Option customizes a Session.
type Option func(*Session)

// WithModeHook installs fn, called after every mode change. A failing hook
// is logged.
func WithModeHook(fn func(ctx context.Context, mode models.Mode) error) Option {
	return func(s *Session) { s.onMode = fn }
}

// Session is the chat surface of one signed-in user.
type Session struct {
	d      Deps
	log    logging.Logger
	onMode func(ctx context.Context, mode models.Mode) error

	mu       sync.Mutex
	mode     models.Mode
	roomConv string
}

// NewSession starts a session in mode.
func NewSession(d Deps, mode models.Mode, opts ...Option) *Session {
	if mode == "" {
		mode = models.ModeAI
	}
	s := &Session{d: d, log: d.Log.With("component", "session"), mode: mode}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Mode returns the current chat mode.
func (s *Session) Mode() models.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Active returns the active conversation.
func (s *Session) Active() (models.Conversation, bool) {
	return s.d.ConvState.Active()
}

// SetMode switches the chat mode. The active conversation is dropped, its
// messages discarded, consent forgotten and the room left before the
// directory of the new mode is fetched.
func (s *Session) SetMode(ctx context.Context, mode models.Mode) ([]models.Conversation, error) {
	s.mu.Lock()
	if s.mode == mode {
		s.mu.Unlock()
		return s.Refresh(ctx)
	}
	s.mode = mode
	s.mu.Unlock()

	s.d.ConvState.ClearActive()
	s.d.MsgState.Reset()
	s.d.Gate.Reset()
	s.syncRoom(ctx)

	if s.onMode != nil {
		if err := s.onMode(ctx, mode); err != nil {
			s.log.Warn(ctx, "mode not saved", "mode", mode, "error", err)
		}
	}
	s.log.Info(ctx, "mode changed", "mode", mode)
	return s.Refresh(ctx)
}

// Refresh reloads the directory of the current mode.
func (s *Session) Refresh(ctx context.Context) ([]models.Conversation, error) {
	list, err := s.d.Conversations.List(ctx, s.Mode())
	s.syncRoom(ctx)
	return list, err
}

// New opens a conversation in the current mode, reusing an existing one where
// the directory rules say so. Doctor mode uses the picked doctor.
func (s *Session) New(ctx context.Context) (models.Conversation, bool, error) {
	mode := s.Mode()
	var doctor *models.Doctor
	if mode == models.ModeDoctor {
		d, ok := s.d.Doctors.Selected()
		if !ok {
			return models.Conversation{}, false, ErrNoDoctor
		}
		doctor = &d
	}
	conv, reused, err := s.d.Conversations.Create(ctx, mode, doctor)
	s.syncRoom(ctx)
	return conv, reused, err
}

// Open activates a listed conversation and loads its history.
func (s *Session) Open(ctx context.Context, id string) (models.Conversation, error) {
	conv, err := s.d.Conversations.Select(ctx, id)
	s.syncRoom(ctx)
	return conv, err
}

// CloseConversation deletes a conversation.
func (s *Session) CloseConversation(ctx context.Context, id string) error {
	err := s.d.Conversations.Remove(ctx, id)
	s.syncRoom(ctx)
	return err
}

// LoadDoctors opens the doctor selector with a fresh directory.
func (s *Session) LoadDoctors(ctx context.Context) ([]models.Doctor, error) {
	s.d.Doctors.Open()
	return s.d.Doctors.Load(ctx)
}

// PickDoctor remembers d for the next doctor conversation.
func (s *Session) PickDoctor(d models.Doctor) {
	s.d.Doctors.Select(d)
}

// Reset drops every piece of per-user state, as on sign-out.
func (s *Session) Reset(ctx context.Context) {
	s.d.ConvState.Replace(nil)
	s.d.ConvState.ClearActive()
	s.d.MsgState.Reset()
	s.d.Gate.Reset()
	s.syncRoom(ctx)
}

// Submit sends text into the active conversation. The first send into an
// empty AI conversation asks for consent: on grant the text goes out with
// context sharing, on decline it is handed back in Outcome.Restored.
func (s *Session) Submit(ctx context.Context, text string) (Outcome, error) {
	conv, ok := s.d.ConvState.Active()
	if !ok {
		return Outcome{}, services.ErrNoConversation
	}

	if s.d.Gate.State() == consent.Pending {
		return Outcome{}, ErrConsentPending
	}
	if s.d.Gate.Required(conv, s.d.MsgState.Len()) {
		return s.submitWithConsent(ctx, conv, text)
	}

	sent, err := s.d.Messages.Send(ctx, conv, text, s.d.Gate.Decision(conv.ID))
	return Outcome{Sent: sent}, err
}

func (s *Session) submitWithConsent(ctx context.Context, conv models.Conversation, text string) (Outcome, error) {
	if !s.d.Gate.Begin(conv.ID, text) {
		return Outcome{}, ErrConsentPending
	}

	granted, err := s.d.Prompter.AskConsent(ctx, conv)
	if err != nil || !granted {
		held, _ := s.d.Gate.Decline()
		out := Outcome{Restored: held, Asked: true, Declined: true}
		if err != nil {
			return out, fmt.Errorf("consent prompt: %w", err)
		}
		s.log.Info(ctx, "context sharing declined", "conversation_id", conv.ID)
		return out, nil
	}

	held, d, _ := s.d.Gate.Grant()
	s.log.Info(ctx, "context sharing granted", "conversation_id", conv.ID)
	sent, err := s.d.Messages.Send(ctx, conv, held, d)
	if err != nil {
		return Outcome{Restored: held, Asked: true}, err
	}
	return Outcome{Sent: sent, Asked: true}, nil
}

// SubmitFile sends an attachment with an optional caption.
func (s *Session) SubmitFile(ctx context.Context, text string, file *services.Attachment) (models.Message, error) {
	conv, ok := s.d.ConvState.Active()
	if !ok {
		return models.Message{}, services.ErrNoConversation
	}
	return s.d.Messages.SendWithFile(ctx, conv, text, file)
}

// Delete asks the server to delete a message.
func (s *Session) Delete(ctx context.Context, id string) error {
	return s.d.Messages.DeleteMessage(ctx, id)
}

// Typing tells the counterpart the user is typing.
func (s *Session) Typing(ctx context.Context) error {
	return s.d.Room.SendTyping(ctx)
}

// History returns the active conversation's messages in display order.
func (s *Session) History() []models.Message {
	return s.d.MsgState.Snapshot()
}

// syncRoom puts the push room in step with the active conversation and
// forgets consent when the conversation changed. Room errors are logged; the
// socket re-joins on reconnect.
func (s *Session) syncRoom(ctx context.Context) {
	active, ok := s.d.ConvState.Active()

	s.mu.Lock()
	changed := active.ID != s.roomConv
	s.roomConv = active.ID
	s.mu.Unlock()

	if !changed {
		return
	}
	s.d.Gate.Reset()

	var err error
	if ok {
		err = s.d.Room.Attach(ctx, active)
	} else {
		err = s.d.Room.Detach(ctx)
	}
	if err != nil {
		s.log.Debug(ctx, "room sync incomplete", "conversation_id", active.ID, "error", err)
	}
}
