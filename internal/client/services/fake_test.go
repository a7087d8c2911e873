package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/logging"
)

// fakeClient implements client.Client for unit tests. Methods not set up
// by a test panic through the embedded nil interface.
type fakeClient struct {
	client.Client

	mu sync.Mutex

	listConvs []models.Conversation
	listErr   error

	createFn    func(req client.CreateConversationRequest) (models.Conversation, bool, error)
	createCalls int

	getConv models.Conversation
	getMsgs []models.RawRecord
	getErr  error

	deleteConvErr error
	deletedConvs  []string

	postFn    func(ctx context.Context, convID string, req client.PostMessageRequest) (models.RawRecord, error)
	postCalls int
	posted    []client.PostMessageRequest

	aiFn    func(ctx context.Context, req client.AIChatRequest) (client.AIChatResponse, error)
	aiCalls int
	aiReqs  []client.AIChatRequest

	uploadFn    func(name, contentType string, body []byte) (models.UploadedFile, error)
	uploadCalls int

	deleteMsgErr error
	deletedMsgs  []string

	doctors    []models.RawRecord
	doctorsErr error
}

func (f *fakeClient) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	return f.listConvs, f.listErr
}

func (f *fakeClient) CreateConversation(ctx context.Context, req client.CreateConversationRequest) (models.Conversation, bool, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	return f.createFn(req)
}

func (f *fakeClient) GetConversation(ctx context.Context, id string) (models.Conversation, []models.RawRecord, error) {
	if f.getErr != nil {
		return models.Conversation{}, nil, f.getErr
	}
	conv := f.getConv
	if conv.ID == "" {
		conv.ID = id
	}
	return conv, f.getMsgs, nil
}

func (f *fakeClient) DeleteConversation(ctx context.Context, id string) error {
	if f.deleteConvErr != nil {
		return f.deleteConvErr
	}
	f.deletedConvs = append(f.deletedConvs, id)
	return nil
}

func (f *fakeClient) PostMessage(ctx context.Context, convID string, req client.PostMessageRequest) (models.RawRecord, error) {
	f.mu.Lock()
	f.postCalls++
	f.posted = append(f.posted, req)
	fn := f.postFn
	f.mu.Unlock()
	return fn(ctx, convID, req)
}

func (f *fakeClient) ChatAI(ctx context.Context, req client.AIChatRequest) (client.AIChatResponse, error) {
	f.mu.Lock()
	f.aiCalls++
	f.aiReqs = append(f.aiReqs, req)
	fn := f.aiFn
	f.mu.Unlock()
	return fn(ctx, req)
}

func (f *fakeClient) UploadFile(ctx context.Context, name, contentType string, r io.Reader) (models.UploadedFile, error) {
	f.mu.Lock()
	f.uploadCalls++
	f.mu.Unlock()
	b, err := io.ReadAll(r)
	if err != nil {
		return models.UploadedFile{}, err
	}
	return f.uploadFn(name, contentType, b)
}

func (f *fakeClient) DeleteMessage(ctx context.Context, id string) error {
	if f.deleteMsgErr != nil {
		return f.deleteMsgErr
	}
	f.deletedMsgs = append(f.deletedMsgs, id)
	return nil
}

func (f *fakeClient) ListDoctors(ctx context.Context) ([]models.RawRecord, error) {
	return f.doctors, f.doctorsErr
}

// fakeHistory records LoadHistory calls.
type fakeHistory struct {
	err    error
	loaded []string
}

func (h *fakeHistory) LoadHistory(ctx context.Context, conv models.Conversation) error {
	if h.err != nil {
		return h.err
	}
	h.loaded = append(h.loaded, conv.ID)
	return nil
}

var (
	patient = models.User{ID: "u1", PatientID: "p1", Role: models.RolePatient, Name: "Ann"}
	doctor  = models.User{ID: "d1", Role: models.RoleDoctor, Name: "Dr. Bob"}
)

func viewerOf(u models.User) func() models.User {
	return func() models.User { return u }
}

func discard() logging.Logger {
	return logging.NewDiscard()
}

var fixedNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
