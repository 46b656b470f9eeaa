// Package http exposes the inbound receiver: the endpoint the push provider
// calls back with raw message payloads, plus a small ops surface.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pushgate/internal/coordinator"
	"pushgate/internal/platform"
	"pushgate/internal/presenter"
	"pushgate/pkg/logx"
)

const defaultAddr = "127.0.0.1:8087"

// maxBody bounds inbound payloads; push providers cap messages far below this.
const maxBody = 256 << 10

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Server struct {
	cfg         Config
	coordinator *coordinator.Service
	registry    platform.Registry
	presenter   *presenter.Service
	log         logx.Logger

	mu  sync.Mutex
	srv *stdhttp.Server
}

func NewServer(cfg Config, coord *coordinator.Service, registry platform.Registry, pres *presenter.Service, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	return &Server{cfg: cfg, coordinator: coord, registry: registry, presenter: pres, log: log}
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/push", s.handlePush)
		r.Post("/shown", s.handleShown)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// handlePush accepts any body, including unparsable ones: a malformed payload
// degrades to a generic notification downstream, it is never rejected here.
func (s *Server) handlePush(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.log.Warn("push body read failed", logx.Err(err))
		writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "dropped"})
		return
	}
	if !s.coordinator.HandlePush(body) {
		writeJSON(w, stdhttp.StatusServiceUnavailable, map[string]string{"status": "stopped"})
		return
	}
	writeJSON(w, stdhttp.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleShown(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req struct {
		DestinationURL string `json:"destinationUrl"`
	}
	// Same degrade-over-reject policy as push: an unreadable confirmation
	// just becomes a destination-less one, which is a no-op downstream.
	_ = json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req)
	if !s.coordinator.HandleShown(req.DestinationURL) {
		writeJSON(w, stdhttp.StatusServiceUnavailable, map[string]string{"status": "stopped"})
		return
	}
	writeJSON(w, stdhttp.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleNotifications(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	recs, err := s.registry.Notifications(r.Context())
	if err != nil {
		writeJSON(w, stdhttp.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	type item struct {
		ID             string    `json:"id"`
		Tag            string    `json:"tag"`
		DestinationURL string    `json:"destination_url,omitempty"`
		CreatedAt      time.Time `json:"created_at"`
	}
	out := make([]item, 0, len(recs))
	for _, rec := range recs {
		if rec == nil || rec.Closed() {
			continue
		}
		out = append(out, item{ID: rec.ID, Tag: rec.Tag, DestinationURL: rec.DestinationURL, CreatedAt: rec.CreatedAt})
	}
	writeJSON(w, stdhttp.StatusOK, out)
}

func (s *Server) handleHistory(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	writeJSON(w, stdhttp.StatusOK, s.presenter.Snapshot())
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return nil
	}
	srv := &stdhttp.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.srv = srv
	s.mu.Unlock()

	s.log.Info("http receiver listening", logx.String("addr", s.cfg.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			s.log.Error("http receiver failed", logx.Err(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
