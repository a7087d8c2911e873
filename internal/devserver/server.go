package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/dmitrijs2005/medchat/internal/devserver/auth"
	"github.com/dmitrijs2005/medchat/internal/devserver/config"
	"github.com/dmitrijs2005/medchat/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const shutdownTimeout = 5 * time.Second

type ctxKey string

const userKey ctxKey = "user"

// Server serves the API under /api and uploaded files under /uploads.
type Server struct {
	config   *config.Config
	store    *Store
	hub      *Hub
	log      logging.Logger
	secret   []byte
	upgrader websocket.Upgrader
}

// New builds a Server. An empty secret key is replaced by a random one.
func New(cfg *config.Config, log logging.Logger) (*Server, error) {
	secret := cfg.SecretKey
	if secret == "" {
		var err error
		if secret, err = common.MakeRandHexString(32); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}
	return &Server{
		config: cfg,
		store:  NewStore(),
		hub:    NewHub(log),
		log:    log,
		secret: []byte(secret),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

func (s *Server) Store() *Store { return s.store }

func (s *Server) Hub() *Hub { return s.hub }

// IssueToken signs a token for the demo account username.
func (s *Server) IssueToken(username string) (string, error) {
	u, err := s.store.UserByName(username)
	if err != nil {
		return "", err
	}
	return auth.GenerateToken(identityOf(u), s.secret, s.config.TokenValidityDuration)
}

// Handler wires the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Post("/login", s.handleLogin)

		api.Group(func(p chi.Router) {
			p.Use(s.authenticate)

			p.Get("/me", s.handleMe)
			p.Get("/ws", s.handleSocket)

			p.Get("/conversations", s.handleListConversations)
			p.Post("/conversations", s.handleCreateConversation)
			p.Get("/conversations/{id}", s.handleGetConversation)
			p.Delete("/conversations/{id}", s.handleDeleteConversation)
			p.Post("/conversations/{id}/messages", s.handlePostMessage)

			p.Post("/ai/chat", s.handleAIChat)
			p.Delete("/messages/{id}", s.handleDeleteMessage)
			p.Post("/files", s.handleUpload)
			p.Get("/doctors", s.handleDoctors)
		})
	})
	r.Get("/uploads/{id}", s.handleDownload)

	return r
}

// Run serves until ctx is done, then disconnects the push channel and
// shuts the HTTP server down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping server...")
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.log.Info(ctx, "Starting server", "address", s.config.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// authenticate resolves the bearer token into the request user.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := common.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing token")
			return
		}
		id, err := auth.ParseToken(token, s.secret)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		u, err := s.store.User(id.ID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

func userFrom(ctx context.Context) User {
	u, _ := ctx.Value(userKey).(User)
	return u
}

func identityOf(u User) auth.Identity {
	return auth.Identity{ID: u.ID, PatientID: u.PatientID, Role: u.Role, Name: u.Name}
}
