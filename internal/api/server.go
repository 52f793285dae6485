// Package api exposes the viewer session service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakfit/coursecast/internal/config"
	"github.com/oakfit/coursecast/internal/log"
	"github.com/oakfit/coursecast/internal/viewer"
)

// Server is the HTTP front of the viewer session service.
type Server struct {
	cfg       config.Config
	viewerCfg viewer.Config
	registry  *viewer.Registry

	// openSession is swappable in tests.
	openSession openFunc

	httpSrv *http.Server
}

type openFunc func(ctx context.Context, cfg viewer.Config, userID, courseID string, startNow bool) (*viewer.Session, error)

// New builds the server around an existing registry and per-session wiring.
func New(cfg config.Config, viewerCfg viewer.Config, registry *viewer.Registry) *Server {
	s := &Server{
		cfg:       cfg,
		viewerCfg: viewerCfg,
		registry:  registry,
	}
	s.openSession = s.defaultOpen
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Router assembles the middleware stack and routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(log.Middleware())
	if s.cfg.RateLimit.Enabled {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit.RPS, time.Second))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/viewer", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/select", s.handleSelect)
			r.Post("/start", s.handleStart)
			r.Post("/events", s.handleEvent)
		})
	})

	return r
}

// requestIDMiddleware assigns a UUID per request unless the client brought
// its own, and exposes it back as a response header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		ctx := log.ContextWithRequestID(r.Context(), rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.cfg.Version,
		"sessions": s.registry.Len(),
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := log.WithComponent("api")

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.cfg.ListenAddr).Msg("http server listening")
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed, forcing close")
		return s.httpSrv.Close()
	}
	logger.Info().Msg("http server stopped")
	return nil
}
