package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/config"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/realtime"
	"github.com/dmitrijs2005/medchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medchat/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements apiClient. Methods a test does not set up panic
// through the embedded nil interface.
type fakeAPI struct {
	client.Client

	mu      sync.Mutex
	token   string
	me      models.RawRecord
	meErr   error
	convs   []models.Conversation
	created models.Conversation
	history []models.RawRecord
	aiReqs  []client.AIChatRequest
	posted  []client.PostMessageRequest
	uploads []string
	doctors []models.RawRecord
	pingErr error
}

func (f *fakeAPI) SetToken(t string) {
	f.mu.Lock()
	f.token = t
	f.mu.Unlock()
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) Header() http.Header { return http.Header{} }
func (f *fakeAPI) Close() error        { return nil }

func (f *fakeAPI) Ping(context.Context) error { return f.pingErr }

func (f *fakeAPI) Me(context.Context) (models.RawRecord, error) { return f.me, f.meErr }

func (f *fakeAPI) ListConversations(context.Context) ([]models.Conversation, error) {
	return f.convs, nil
}

func (f *fakeAPI) CreateConversation(_ context.Context, req client.CreateConversationRequest) (models.Conversation, bool, error) {
	c := f.created
	c.Mode = req.Mode
	c.DoctorID = req.DoctorID
	return c, false, nil
}

func (f *fakeAPI) GetConversation(_ context.Context, id string) (models.Conversation, []models.RawRecord, error) {
	return models.Conversation{ID: id}, f.history, nil
}

func (f *fakeAPI) ChatAI(_ context.Context, req client.AIChatRequest) (client.AIChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aiReqs = append(f.aiReqs, req)
	return client.AIChatResponse{
		UserMessageID: "u1",
		Reply:         models.RawRecord{"id": "r1", "role": "assistant", "content": "Drink water."},
	}, nil
}

func (f *fakeAPI) PostMessage(_ context.Context, convID string, req client.PostMessageRequest) (models.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, req)
	return models.RawRecord{"id": "m9", "conversation_id": convID, "content": req.Content, "role": string(req.Role),
		"file_url": req.FileURL, "file_name": req.FileName}, nil
}

func (f *fakeAPI) UploadFile(_ context.Context, name, contentType string, r io.Reader) (models.UploadedFile, error) {
	b, _ := io.ReadAll(r)
	f.mu.Lock()
	f.uploads = append(f.uploads, name+":"+contentType+":"+string(b))
	f.mu.Unlock()
	return models.UploadedFile{URL: "/uploads/" + name, Name: name, Type: contentType}, nil
}

func (f *fakeAPI) ListDoctors(context.Context) ([]models.RawRecord, error) {
	return f.doctors, nil
}

type fakeSessions struct {
	mu    sync.Mutex
	sess  metadata.Session
	ok    bool
	modes []models.Mode
}

func (f *fakeSessions) Save(_ context.Context, s metadata.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess, f.ok = s, true
	return nil
}

func (f *fakeSessions) SaveMode(_ context.Context, m models.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, m)
	f.sess.Mode = m
	return nil
}

func (f *fakeSessions) Load(context.Context) (metadata.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess, f.ok, nil
}

func (f *fakeSessions) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess, f.ok = metadata.Session{}, false
	return nil
}

type fakeSocket struct {
	mu         sync.Mutex
	connectErr error
	connected  bool
	closed     bool
	events     []string
	handler    realtime.FrameHandler
}

func (f *fakeSocket) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = f.connectErr == nil
	return f.connectErr
}

func (f *fakeSocket) Emit(_ context.Context, event string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSocket) OnFrame(h realtime.FrameHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeSocket) OnReconnect(func()) {}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type harness struct {
	app      *App
	api      *fakeAPI
	sessions *fakeSessions
	socket   *fakeSocket
	out      *bytes.Buffer
	printed  *[]string
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	h := &harness{
		api:      &fakeAPI{created: models.Conversation{ID: "c1", PatientID: "p1"}},
		sessions: &fakeSessions{},
		socket:   &fakeSocket{},
		out:      &bytes.Buffer{},
		printed:  silencePrint(t),
	}
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SendTimeout = time.Second
	cfg.MaxUploadSize = 64

	h.app = newApp(cfg, h.api, h.sessions, func() pushSocket { return h.socket },
		logging.NewDiscard(), rdr(input), h.out)
	return h
}

func (h *harness) login(t *testing.T, user models.User) {
	t.Helper()
	h.app.mu.Lock()
	h.app.user = user
	h.app.mu.Unlock()
	h.app.connect(context.Background())
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func stubToken(t *testing.T, token string) {
	t.Helper()
	orig := getToken
	getToken = func(_ *bufio.Reader, _ io.Writer) (string, error) { return token, nil }
	t.Cleanup(func() { getToken = orig })
}
