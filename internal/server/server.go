package server

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/davie-sparq/bizot/internal/auth"
	"github.com/davie-sparq/bizot/internal/database"
	"github.com/davie-sparq/bizot/internal/handlers"
	mw "github.com/davie-sparq/bizot/internal/middleware"
	ws "github.com/davie-sparq/bizot/internal/websocket"
)

type Server struct {
	Router *chi.Mux
	DB     *database.DB
	Auth   *auth.Service
	WSHub  *ws.Hub
}

type Config struct {
	DB         *database.DB
	Auth       *auth.Service
	Engine     handlers.ChatEngine
	LLMTimeout time.Duration
	FrontendFS fs.FS
	Port       int
}

func New(cfg Config) *Server {
	s := &Server{
		Router: chi.NewRouter(),
		DB:     cfg.DB,
		Auth:   cfg.Auth,
		WSHub:  ws.NewHub(cfg.Auth, cfg.Port),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.Engine, cfg.LLMTimeout)
	s.setupFrontend(cfg.FrontendFS)

	return s
}

func (s *Server) setupMiddleware() {
	s.Router.Use(chiMiddleware.RealIP)
	s.Router.Use(mw.RequestID)
	s.Router.Use(mw.SecurityHeaders)
	s.Router.Use(mw.Logger)
	s.Router.Use(mw.CORS)
	s.Router.Use(chiMiddleware.Recoverer)
}

func (s *Server) setupRoutes(engine handlers.ChatEngine, llmTimeout time.Duration) {
	broadcast := func(msgType string, payload interface{}) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		s.WSHub.Broadcast(ws.Message{Type: msgType, Payload: data})
	}
	toAgent := func(agentID, msgType string, payload interface{}) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		s.WSHub.BroadcastToAgent(agentID, ws.Message{Type: msgType, Payload: data})
	}

	authHandler := handlers.NewAuthHandler(s.DB, s.Auth)
	agentsHandler := handlers.NewAgentsHandler(s.DB, broadcast)
	chatHandler := handlers.NewChatHandler(s.DB, engine, llmTimeout, broadcast, toAgent)
	logsHandler := handlers.NewLogsHandler(s.DB)

	s.Router.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Route("/setup", func(r chi.Router) {
			r.With(mw.RateLimit(5, time.Minute)).Get("/status", authHandler.SetupStatus)
			r.With(mw.RateLimit(5, time.Minute)).Post("/init", authHandler.Setup)
		})
		r.With(mw.RateLimit(10, time.Minute)).Post("/auth/login", authHandler.Login)

		// Visitor chat is public: the widget runs on the business's site
		// without an owner session.
		r.With(mw.RateLimit(30, time.Minute)).Post("/agents/{id}/chat", chatHandler.Chat)

		// WebSocket (auth handled internally)
		r.Get("/ws", s.WSHub.HandleWS)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(s.Auth))

			r.Post("/auth/logout", authHandler.Logout)
			r.Post("/auth/change-password", authHandler.ChangePassword)
			r.Get("/auth/me", authHandler.Me)

			r.Get("/tools", agentsHandler.Tools)

			r.Route("/agents", func(r chi.Router) {
				r.Get("/", agentsHandler.List)
				r.Post("/", agentsHandler.Create)
				r.Get("/{id}", agentsHandler.Get)
				r.Put("/{id}", agentsHandler.Update)
				r.Delete("/{id}", agentsHandler.Delete)
				r.Post("/{id}/knowledge", agentsHandler.AppendKnowledge)
				r.Get("/{id}/bookings", agentsHandler.ListBookings)
				r.Get("/{id}/sessions", chatHandler.ListSessions)
				r.Post("/{id}/sessions", chatHandler.CreateSession)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/{sessionID}/messages", chatHandler.ListMessages)
				r.Delete("/{sessionID}", chatHandler.DeleteSession)
			})

			r.Get("/logs", logsHandler.List)
		})
	})
}

func (s *Server) setupFrontend(frontendFS fs.FS) {
	if frontendFS == nil {
		return
	}
	fileServer := http.FileServer(http.FS(frontendFS))

	s.Router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// If the request is for an API route, return 404
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}

		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}

		f, err := frontendFS.Open(strings.TrimPrefix(path, "/"))
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		// SPA fallback: serve index.html for all other routes
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
