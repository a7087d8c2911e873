package devserver_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/auth"
	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/consent"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/realtime"
	"github.com/dmitrijs2005/medchat/internal/client/services"
	"github.com/dmitrijs2005/medchat/internal/client/state"
	"github.com/dmitrijs2005/medchat/internal/devserver"
	"github.com/dmitrijs2005/medchat/internal/devserver/config"
	"github.com/dmitrijs2005/medchat/internal/logging"
	"github.com/dmitrijs2005/medchat/internal/netx"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// participant is one logged-in client wired the way the CLI wires it.
type participant struct {
	user     models.User
	api      *client.HTTPClient
	messages *state.Messages
	channel  services.MessageService
	bridge   *realtime.Bridge
	socket   *realtime.Socket
}

func startServer(t *testing.T) (*devserver.Server, string) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "integration"

	srv, err := devserver.New(cfg, logging.NewDiscard())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})
	return srv, ts.URL + "/api"
}

func join(t *testing.T, srv *devserver.Server, apiURL, username string) *participant {
	t.Helper()
	ctx := context.Background()
	log := logging.NewDiscard()

	tok, err := srv.IssueToken(username)
	require.NoError(t, err)
	user, err := auth.UserFromToken(tok)
	require.NoError(t, err)

	api := client.NewHTTPClient(apiURL)
	api.SetToken(tok)
	require.NoError(t, api.Ping(ctx))

	wsURL, err := netx.SocketURL(apiURL)
	require.NoError(t, err)
	opts := realtime.DefaultSocketOptions()
	opts.Header = api.Header
	socket := realtime.NewSocket(wsURL, opts, log)

	viewer := func() models.User { return user }
	messages := state.NewMessages()
	bridge := realtime.NewBridge(socket, messages, viewer, log, realtime.WithTypingTimeout(time.Second))
	socket.OnFrame(bridge.HandleFrame)
	socket.OnReconnect(func() { _ = bridge.Rejoin(ctx) })
	require.NoError(t, socket.Connect(ctx))
	t.Cleanup(func() { _ = socket.Close() })

	return &participant{
		user:     user,
		api:      api,
		messages: messages,
		channel:  services.NewMessageService(api, messages, viewer, 5*time.Second, log),
		bridge:   bridge,
		socket:   socket,
	}
}

func TestDoctorConversationOverPushChannel(t *testing.T) {
	srv, apiURL := startServer(t)
	ctx := context.Background()
	ann := join(t, srv, apiURL, "ann")
	house := join(t, srv, apiURL, "house")

	conv, existing, err := ann.api.CreateConversation(ctx, client.CreateConversationRequest{
		Mode: models.ModeDoctor, DoctorID: "d-house",
	})
	require.NoError(t, err)
	require.False(t, existing)

	require.NoError(t, ann.bridge.Attach(ctx, conv))
	require.NoError(t, house.bridge.Attach(ctx, conv))
	require.Eventually(t, func() bool { return srv.Hub().ClientCount(conv.ID) == 2 }, waitFor, tick)

	sent, err := house.channel.Send(ctx, conv, "  How are you feeling today?  ", consent.Decision{})
	require.NoError(t, err)
	require.Equal(t, models.RoleDoctor, sent.Role)

	// The patient sees the message once, through the push channel.
	require.Eventually(t, func() bool { return ann.messages.Has(sent.ID) }, waitFor, tick)
	got, _ := ann.messages.Get(sent.ID)
	require.Equal(t, models.RoleDoctor, got.Role)
	require.Equal(t, "How are you feeling today?", got.Text)

	// The sender's own echo merges with the confirmed copy.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, house.messages.Len())
	require.Zero(t, house.messages.PendingCount())

	require.NoError(t, ann.bridge.SendTyping(ctx))
	require.Eventually(t, house.bridge.PeerTyping, waitFor, tick)
	require.False(t, ann.bridge.PeerTyping())

	require.NoError(t, house.channel.DeleteMessage(ctx, sent.ID))
	require.Eventually(t, func() bool { return ann.messages.Len() == 0 && house.messages.Len() == 0 }, waitFor, tick)
}

func TestAIConversationConverges(t *testing.T) {
	srv, apiURL := startServer(t)
	ctx := context.Background()
	ann := join(t, srv, apiURL, "ann")

	conv, _, err := ann.api.CreateConversation(ctx, client.CreateConversationRequest{Mode: models.ModeAI})
	require.NoError(t, err)
	_, existing, err := ann.api.CreateConversation(ctx, client.CreateConversationRequest{Mode: models.ModeAI})
	require.NoError(t, err)
	require.True(t, existing)

	require.NoError(t, ann.bridge.Attach(ctx, conv))
	require.Eventually(t, func() bool { return srv.Hub().ClientCount(conv.ID) == 1 }, waitFor, tick)

	mine, err := ann.channel.Send(ctx, conv, "I have a headache", consent.Decision{ShareContext: true, GrantedAt: time.Now()})
	require.NoError(t, err)
	require.False(t, mine.Pending())

	// HTTP reconciliation and push both deliver the pair; one copy of each remains.
	time.Sleep(100 * time.Millisecond)
	snap := ann.messages.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, mine.ID, snap[0].ID)
	require.Equal(t, models.RolePatient, snap[0].Role)
	require.Equal(t, models.RoleAI, snap[1].Role)
	require.Contains(t, snap[1].Text, "medical records")

	_, err = ann.channel.Send(ctx, conv, "/overload", consent.Decision{})
	require.ErrorIs(t, err, client.ErrAIOverloaded)
	require.Equal(t, 2, ann.messages.Len())
}

func TestJoinRefusedForStrangers(t *testing.T) {
	srv, apiURL := startServer(t)
	ctx := context.Background()
	ann := join(t, srv, apiURL, "ann")
	ben := join(t, srv, apiURL, "ben")

	conv, _, err := ann.api.CreateConversation(ctx, client.CreateConversationRequest{
		Mode: models.ModeDoctor, DoctorID: "d-grey",
	})
	require.NoError(t, err)

	require.NoError(t, ann.bridge.Attach(ctx, conv))
	require.NoError(t, ben.bridge.Attach(ctx, conv))
	require.Eventually(t, func() bool { return srv.Hub().ClientCount(conv.ID) == 1 }, waitFor, tick)

	_, err = ann.channel.Send(ctx, conv, "private", consent.Decision{})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, ben.messages.Len())

	_, _, err = ben.api.GetConversation(ctx, conv.ID)
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestUploadThroughClient(t *testing.T) {
	srv, apiURL := startServer(t)
	ctx := context.Background()
	ann := join(t, srv, apiURL, "ann")

	conv, _, err := ann.api.CreateConversation(ctx, client.CreateConversationRequest{
		Mode: models.ModeDoctor, DoctorID: "d-house",
	})
	require.NoError(t, err)

	m, err := ann.channel.SendWithFile(ctx, conv, "", &services.Attachment{
		Name: "results.txt", ContentType: "text/plain", Body: strings.NewReader("all normal"),
	})
	require.NoError(t, err)
	require.True(t, m.HasFile())
	require.Equal(t, "results.txt", m.FileName)
	require.Contains(t, m.FileURL, "/uploads/")
}
