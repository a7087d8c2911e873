package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/chat"
	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/config"
	"github.com/dmitrijs2005/medchat/internal/client/consent"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/client/realtime"
	"github.com/dmitrijs2005/medchat/internal/client/repositories"
	"github.com/dmitrijs2005/medchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medchat/internal/client/services"
	"github.com/dmitrijs2005/medchat/internal/client/state"
	"github.com/dmitrijs2005/medchat/internal/logging"
	"github.com/dmitrijs2005/medchat/internal/netx"
)

// idleWindow is how long after the last command the user counts as watching
// the chat.
const idleWindow = 2 * time.Minute

const onlineCheckInterval = 30 * time.Second

// apiClient is the HTTP surface the CLI needs beyond client.Client.
type apiClient interface {
	client.Client
	Header() http.Header
}

// sessionStore persists the signed-in session between runs.
type sessionStore interface {
	Save(ctx context.Context, sess metadata.Session) error
	SaveMode(ctx context.Context, mode models.Mode) error
	Load(ctx context.Context) (metadata.Session, bool, error)
	Clear(ctx context.Context) error
}

// pushSocket is the realtime connection of one signed-in session.
type pushSocket interface {
	realtime.Emitter
	Connect(ctx context.Context) error
	OnFrame(h realtime.FrameHandler)
	OnReconnect(fn func())
	Close() error
}

type App struct {
	config    *config.Config
	api       apiClient
	sessions  sessionStore
	newSocket func() pushSocket
	closers   []io.Closer
	log       logging.Logger

	convs    *state.Conversations
	messages *state.Messages
	bridge   *realtime.Bridge
	session  *chat.Session
	presence *idlePresence

	mu      sync.RWMutex
	online  bool
	user    models.User
	socket  pushSocket
	listed  []models.Conversation
	doctors []models.Doctor

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local database and wires the API client, the push
// channel and the chat services.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	repos, err := repositories.InitDatabase(ctx, c.DBPath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	socketURL := c.SocketURL
	if socketURL == "" {
		socketURL, err = netx.SocketURL(c.APIURL)
		if err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("derive push channel url: %w", err)
		}
	}

	api := client.NewHTTPClient(c.APIURL)
	newSocket := func() pushSocket {
		return realtime.NewSocket(socketURL, realtime.SocketOptions{Header: api.Header}, l)
	}

	a := newApp(c, api, repos.Sessions, newSocket, l, bufio.NewReader(os.Stdin), os.Stdout)
	a.closers = append(a.closers, repos)
	return a, nil
}

// newApp assembles an App from its collaborators.
func newApp(c *config.Config, api apiClient, sessions sessionStore, newSocket func() pushSocket,
	l logging.Logger, reader *bufio.Reader, out io.Writer) *App {
	a := &App{
		config:    c,
		api:       api,
		sessions:  sessions,
		newSocket: newSocket,
		log:       l,
		convs:     state.NewConversations(),
		messages:  state.NewMessages(),
		presence:  newIdlePresence(idleWindow),
		online:    true,
		reader:    reader,
		out:       out,
	}

	msgSvc := services.NewMessageService(api, a.messages, a.viewer, c.SendTimeout, l)
	a.bridge = realtime.NewBridge(a, a.messages, a.viewer, l,
		realtime.WithNotifier(newTerminalNotifier(out)),
		realtime.WithPresence(a.presence),
	)
	a.session = chat.NewSession(chat.Deps{
		Conversations: services.NewConversationService(api, a.convs, a.messages, msgSvc, a.viewer, l),
		Messages:      msgSvc,
		Doctors:       services.NewDoctorService(api, l),
		ConvState:     a.convs,
		MsgState:      a.messages,
		Gate:          consent.NewGate(),
		Room:          a.bridge,
		Prompter:      a,
		Log:           l,
	}, models.ModeAI, chat.WithModeHook(a.sessions.SaveMode))

	a.messages.Observe(a.render)
	a.bridge.OnPeerTyping(func(typing bool) {
		if typing {
			printlnFn("... typing")
		}
	})
	return a
}

func (a *App) viewer() models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

func (a *App) isLoggedIn() bool {
	return a.viewer().ID != ""
}

// Emit forwards to the push channel of the current session.
func (a *App) Emit(ctx context.Context, event string, data any) error {
	a.mu.RLock()
	s := a.socket
	a.mu.RUnlock()
	if s == nil {
		return realtime.ErrNotConnected
	}
	return s.Emit(ctx, event, data)
}

// AskConsent implements chat.Prompter.
func (a *App) AskConsent(ctx context.Context, conv models.Conversation) (bool, error) {
	return getYesNo(a.reader,
		"The assistant can read your medical records to give better answers. Share them in this conversation?",
		a.out)
}

// connect opens a push channel for the signed-in user. A failure leaves the
// CLI usable without live updates.
func (a *App) connect(ctx context.Context) {
	s := a.newSocket()
	s.OnFrame(a.bridge.HandleFrame)
	s.OnReconnect(func() {
		if err := a.bridge.Rejoin(ctx); err != nil {
			a.log.Warn(ctx, "rejoin failed", "error", err)
		}
	})
	if err := s.Connect(ctx); err != nil {
		log.Printf("Live updates unavailable: %s", err.Error())
		return
	}
	a.mu.Lock()
	a.socket = s
	a.mu.Unlock()
}

func (a *App) disconnect() {
	a.mu.Lock()
	s := a.socket
	a.socket = nil
	a.mu.Unlock()
	if s != nil {
		_ = s.Close()
	}
}

// Run restores a saved session, then serves the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.shutdown()

	log.Println("Welcome to medchat (type 'help' for commands)")
	a.restore(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// StartOnlineStatusWatcher pings the API every interval and reports when it
// becomes unreachable or comes back.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.api.Ping(pingCtx)
			cancel()
			a.setOnline(err == nil)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) setOnline(online bool) {
	a.mu.Lock()
	changed := a.online != online
	a.online = online
	a.mu.Unlock()
	if !changed {
		return
	}
	if online {
		log.Printf("Server reachable again")
	} else {
		log.Printf("Server unreachable, messages cannot be sent right now")
	}
}

func (a *App) shutdown() {
	a.disconnect()
	_ = a.api.Close()
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *App) getStatus() string {
	u := a.viewer()
	if u.ID == "" {
		return ""
	}
	s := u.Name
	if s == "" {
		s = u.ID
	}
	s += " " + string(a.session.Mode())
	if conv, ok := a.session.Active(); ok {
		s += " #" + conv.ID
	}
	return fmt.Sprintf("(%s)", s)
}
