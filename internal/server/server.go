// Package server provides the HTTP surface: REST endpoints over the
// registry provider, the chat endpoint, and health checks.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/cvrgpt/internal/cache"
	"github.com/sells-group/cvrgpt/internal/chat"
	"github.com/sells-group/cvrgpt/internal/config"
	"github.com/sells-group/cvrgpt/internal/events"
	"github.com/sells-group/cvrgpt/internal/provider"
)

// Server wires the HTTP routes to their dependencies. All collaborators are
// passed in explicitly; the package keeps no globals.
type Server struct {
	provider provider.Provider
	events   events.Provider
	chat     *chat.Orchestrator
	store    cache.Store
	cfg      config.ServerConfig

	router *chi.Mux
	http   *http.Server
}

// New assembles the server. store may be nil when no durable cache backend
// is configured; readiness then checks only the provider.
func New(p provider.Provider, ev events.Provider, orch *chat.Orchestrator, store cache.Store, cfg config.ServerConfig) *Server {
	s := &Server{
		provider: p,
		events:   ev,
		chat:     orch,
		store:    store,
		cfg:      cfg,
	}
	s.router = s.routes()
	return s
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "If-None-Match"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	maxAge := time.Duration(s.cfg.CacheMaxAgeSecs) * time.Second

	r.Route("/v1", func(r chi.Router) {
		r.Use(apiKeyAuth(s.cfg.APIKeys))
		r.Use(perKeyThrottle(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

		r.Group(func(r chi.Router) {
			r.Use(etag(maxAge))
			r.Get("/search", s.handleSearch)
			r.Get("/company/{cvr}", s.handleCompany)
			r.Get("/filings/{cvr}", s.handleFilings)
			r.Get("/accounts/latest/{cvr}", s.handleAccounts)
			r.Get("/compare/{cvr}", s.handleCompare)
			r.Get("/events", s.handleEvents)
		})

		r.Get("/compare/{cvr}/export", s.handleCompareExport)
		r.Post("/chat", s.handleChat)
		r.Get("/chat/{thread_id}/export", s.handleChatExport)
	})

	return r
}

// Start runs the server until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http server listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownSecs)*time.Second)
	defer cancel()
	zap.L().Info("http server draining")
	return s.http.Shutdown(shutdownCtx)
}
