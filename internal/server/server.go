// Package server exposes the session's operational HTTP surface: Prometheus
// metrics, a liveness probe, and the latest comparison as JSON.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/stockpilot/papertrade/internal/harness"
	"github.com/stockpilot/papertrade/internal/metrics"
)

// Server wraps the HTTP listener for one session.
type Server struct {
	srv *http.Server
	h   *harness.Harness
}

// New builds the router and server. Nothing listens until Start.
func New(addr string, reg *metrics.Registry, h *harness.Harness) *Server {
	s := &Server{h: h}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg.Prometheus(), promhttp.HandlerOpts{}))
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start listens until the server is shut down. http.ErrServerClosed is the
// normal exit and is not reported as an error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"session_id": s.h.SessionID(),
		"tick_count": s.h.TickCount(),
		"timestamp":  time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	comp, ok := s.h.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": s.h.SessionID(),
			"tick_count": s.h.TickCount(),
			"comparison": nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, comp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
