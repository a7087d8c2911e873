package services

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/consent"
	"github.com/dmitrijs2005/medchat/internal/client/identity"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/state"
	"github.com/dmitrijs2005/medchat/internal/logging"
	"github.com/dmitrijs2005/medchat/internal/textx"
	"github.com/google/uuid"
)

// DefaultSendTimeout bounds a send when none is configured.
const DefaultSendTimeout = 30 * time.Second

// Viewport is the rendering hook fired after a history load.
type Viewport interface {
	ScrollToLatest()
}

// Attachment is a file to upload with a message.
type Attachment struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// MessageService is the message channel of the active conversation.
//
// At most one send, plain or with a file, is in flight at a time.
type MessageService interface {
	HistoryLoader
	// Send posts text into conv. For AI conversations d carries the consent
	// decision. The returned message is the confirmed copy of the user's
	// message.
	Send(ctx context.Context, conv models.Conversation, text string, d consent.Decision) (models.Message, error)
	// SendWithFile uploads file, then sends text with the file attached. An
	// empty text gets a caption naming the file.
	SendWithFile(ctx context.Context, conv models.Conversation, text string, file *Attachment) (models.Message, error)
	// DeleteMessage asks the server to delete id. The local copy disappears
	// when the message_deleted event arrives.
	DeleteMessage(ctx context.Context, id string) error
	// InFlight reports whether a send is outstanding.
	InFlight() bool
	SetViewport(v Viewport)
}

type messageService struct {
	client   client.Client
	messages *state.Messages
	viewer   func() models.User
	log      logging.Logger
	timeout  time.Duration
	now      func() time.Time

	inflight atomic.Bool
	viewport atomic.Pointer[Viewport]
}

// NewMessageService wires the message channel. A non-positive timeout means
// DefaultSendTimeout.
func NewMessageService(c client.Client, messages *state.Messages, viewer func() models.User,
	timeout time.Duration, log logging.Logger) MessageService {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &messageService{
		client:   c,
		messages: messages,
		viewer:   viewer,
		log:      log.With("component", "messages"),
		timeout:  timeout,
		now:      time.Now,
	}
}

func (s *messageService) SetViewport(v Viewport) {
	if v == nil {
		s.viewport.Store(nil)
		return
	}
	s.viewport.Store(&v)
}

func (s *messageService) InFlight() bool {
	return s.inflight.Load()
}

func (s *messageService) LoadHistory(ctx context.Context, conv models.Conversation) error {
	if conv.ID == "" {
		return ErrNoConversation
	}
	fetched, raws, err := s.client.GetConversation(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	conv = fillConversation(conv, fetched)

	msgs := identity.ToMessages(raws, conv, s.viewer(), s.now)
	s.messages.Replace(msgs)
	s.log.Debug(ctx, "history loaded", "conversation_id", conv.ID, "messages", len(msgs))

	if vp := s.viewport.Load(); vp != nil {
		(*vp).ScrollToLatest()
	}
	return nil
}

// fillConversation completes the locally known conversation with the
// participant ids of the fetched copy; resolution depends on them.
func fillConversation(local, fetched models.Conversation) models.Conversation {
	if local.PatientID == "" {
		local.PatientID = fetched.PatientID
	}
	if local.DoctorID == "" {
		local.DoctorID = fetched.DoctorID
	}
	if local.Mode == "" {
		local.Mode = fetched.Mode
	}
	return local
}

func (s *messageService) Send(ctx context.Context, conv models.Conversation, text string, d consent.Decision) (models.Message, error) {
	text = textx.Outbound(text)
	if conv.ID == "" {
		return models.Message{}, ErrNoConversation
	}
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if !s.inflight.CompareAndSwap(false, true) {
		return models.Message{}, ErrSendInFlight
	}
	defer s.inflight.Store(false)

	return s.deliver(ctx, conv, text, nil, d)
}

func (s *messageService) SendWithFile(ctx context.Context, conv models.Conversation, text string, file *Attachment) (models.Message, error) {
	if file == nil {
		return s.Send(ctx, conv, text, consent.Decision{})
	}
	text = textx.Outbound(text)
	if conv.ID == "" {
		return models.Message{}, ErrNoConversation
	}
	if conv.Mode == models.ModeAI {
		return models.Message{}, ErrAttachmentInAI
	}
	if !s.inflight.CompareAndSwap(false, true) {
		return models.Message{}, ErrSendInFlight
	}
	defer s.inflight.Store(false)

	upCtx, cancel := context.WithTimeout(ctx, s.timeout)
	uploaded, err := s.client.UploadFile(upCtx, file.Name, file.ContentType, file.Body)
	cancel()
	if err != nil {
		s.log.Warn(ctx, "upload failed", "conversation_id", conv.ID, "file", file.Name, "error", err)
		return models.Message{}, fmt.Errorf("upload %s: %w", file.Name, err)
	}
	if uploaded.Name == "" {
		uploaded.Name = file.Name
	}
	if text == "" {
		text = textx.Caption(uploaded.Name)
	}
	return s.deliver(ctx, conv, text, &uploaded, consent.Decision{})
}

// deliver runs the optimistic protocol: append a temporary entry, call the
// endpoint of the conversation's mode, then reconcile or roll back.
func (s *messageService) deliver(ctx context.Context, conv models.Conversation, text string,
	file *models.UploadedFile, d consent.Decision) (models.Message, error) {
	user := s.viewer()
	tmp := models.Message{
		ID:             models.NewTemporaryID(),
		ConversationID: conv.ID,
		Role:           user.ChatRole(),
		Text:           textx.Normalize(text),
		Timestamp:      s.now().UTC(),
	}
	if file != nil {
		tmp.FileURL, tmp.FileName, tmp.FileType = file.URL, file.Name, file.Type
	}
	s.messages.AppendPending(tmp)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if conv.Mode == models.ModeAI {
		return s.deliverAI(ctx, conv, user, tmp, d)
	}
	return s.deliverDirect(ctx, conv, user, tmp)
}

func (s *messageService) deliverDirect(ctx context.Context, conv models.Conversation, user models.User,
	tmp models.Message) (models.Message, error) {
	raw, err := s.client.PostMessage(ctx, conv.ID, client.PostMessageRequest{
		Content:  tmp.Text,
		Role:     tmp.Role,
		FileURL:  tmp.FileURL,
		FileName: tmp.FileName,
		FileType: tmp.FileType,
	})
	if err != nil {
		return s.rollback(ctx, tmp, err)
	}

	confirmed := identity.ToMessage(raw, conv, user, s.now)
	if confirmed.ID == "" {
		// The push channel will deliver the stored copy.
		s.messages.Remove(tmp.ID)
		return models.Message{}, fmt.Errorf("send message: %w", client.ErrBadResponse)
	}
	confirmed = keepLocalFields(confirmed, tmp)

	if !s.messages.Confirm(tmp.ID, confirmed) {
		s.log.Debug(ctx, "dropping late confirmation", "conversation_id", conv.ID, "message_id", confirmed.ID)
	}
	return confirmed, nil
}

func (s *messageService) deliverAI(ctx context.Context, conv models.Conversation, user models.User,
	tmp models.Message, d consent.Decision) (models.Message, error) {
	req := client.AIChatRequest{ConversationID: conv.ID, Content: tmp.Text}
	if d.ShareContext {
		at := d.GrantedAt
		req.ShareContext = true
		req.ConsentGrantedAt = &at
	}
	resp, err := s.client.ChatAI(ctx, req)
	if err != nil {
		return s.rollback(ctx, tmp, err)
	}

	mine := tmp
	if resp.UserMessageID != "" {
		mine.ID = resp.UserMessageID
	}
	if !s.messages.Retarget(tmp.ID, resp.UserMessageID) {
		s.log.Debug(ctx, "dropping late ai reply", "conversation_id", conv.ID)
		return mine, nil
	}

	reply := identity.ToMessage(resp.Reply, conv, user, s.now)
	if reply.ID == "" || reply.ID == mine.ID || models.IsTemporaryID(reply.ID) {
		reply.ID = "reply-" + uuid.NewString()
	}
	s.messages.Merge(reply)
	return mine, nil
}

// rollback discards the optimistic entry and classifies err.
func (s *messageService) rollback(ctx context.Context, tmp models.Message, err error) (models.Message, error) {
	s.messages.Remove(tmp.ID)
	s.log.Warn(ctx, "send failed", "conversation_id", tmp.ConversationID, "retryable", client.IsRetryable(err), "error", err)
	return models.Message{}, fmt.Errorf("send message: %w", err)
}

func keepLocalFields(confirmed, tmp models.Message) models.Message {
	if confirmed.FileURL == "" {
		confirmed.FileURL, confirmed.FileName, confirmed.FileType = tmp.FileURL, tmp.FileName, tmp.FileType
	}
	if confirmed.Text == "" && !confirmed.HasFile() {
		confirmed.Text = tmp.Text
	}
	return confirmed
}

func (s *messageService) DeleteMessage(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: message id is empty", ErrValidation)
	}
	if models.IsTemporaryID(id) {
		return ErrUnconfirmed
	}
	if err := s.client.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	s.log.Debug(ctx, "delete requested", "message_id", id)
	return nil
}
