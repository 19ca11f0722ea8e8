// Package web is the view bridge: it serves slice snapshots and accepts view
// intents over HTTP, and pushes every change to connected views over a
// WebSocket.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Config holds server configuration
type Config struct {
	Port        int
	CORSOrigins []string
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *Config
	listener   net.Listener
	hub        *Hub // WebSocket Hub
}

// NewServer creates a new HTTP server. hub may be nil, in which case /ws is
// not served.
func NewServer(cfg *Config, hub *Hub) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		config: cfg,
		hub:    hub,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	// WebSocket
	if s.hub != nil {
		s.router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(s.hub, w, r)
		})
	}

	// Health endpoint
	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok","version":"dev"}`)); err != nil {
			_ = err // Client disconnected
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Create listener
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.httpServer.Serve(listener)
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// BaseURL returns the server's base URL
func (s *Server) BaseURL() string {
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}

// RegisterJobsHandler registers job listing state and actions
func (s *Server) RegisterJobsHandler(handler interface{}) {
	type jobsHandler interface {
		State(w http.ResponseWriter, r *http.Request)
		Filter(w http.ResponseWriter, r *http.Request)
		ApplyFilter(w http.ResponseWriter, r *http.Request)
		Search(w http.ResponseWriter, r *http.Request)
		LoadMore(w http.ResponseWriter, r *http.Request)
		ToggleBookmark(w http.ResponseWriter, r *http.Request)
		Details(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(jobsHandler); ok {
		s.router.Get("/api/state/jobs", h.State)
		s.router.Get("/api/state/filter", h.Filter)
		s.router.Post("/api/actions/filter", h.ApplyFilter)
		s.router.Post("/api/actions/jobs/search", h.Search)
		s.router.Post("/api/actions/jobs/more", h.LoadMore)
		s.router.Post("/api/actions/jobs/{id}/bookmark", h.ToggleBookmark)
		s.router.Get("/api/actions/jobs/{id}", h.Details)
	}
}

// RegisterApplicationsHandler registers application state and actions
func (s *Server) RegisterApplicationsHandler(handler interface{}) {
	type applicationsHandler interface {
		State(w http.ResponseWriter, r *http.Request)
		CompanyState(w http.ResponseWriter, r *http.Request)
		Refresh(w http.ResponseWriter, r *http.Request)
		UpdateStatus(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(applicationsHandler); ok {
		s.router.Get("/api/state/applications", h.State)
		s.router.Get("/api/state/company", h.CompanyState)
		s.router.Post("/api/actions/applications/refresh", h.Refresh)
		s.router.Put("/api/actions/applications/{id}/status", h.UpdateStatus)
	}
}

// RegisterAuthHandler registers auth state and actions
func (s *Server) RegisterAuthHandler(handler interface{}) {
	type authHandler interface {
		GetStatus(w http.ResponseWriter, r *http.Request)
		Login(w http.ResponseWriter, r *http.Request)
		Logout(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(authHandler); ok {
		s.router.Get("/api/state/auth", h.GetStatus)
		s.router.Post("/api/actions/login", h.Login)
		s.router.Post("/api/actions/logout", h.Logout)
	}
}

// Router returns the underlying Chi router for external route mounting.
func (s *Server) Router() *chi.Mux {
	return s.router
}
