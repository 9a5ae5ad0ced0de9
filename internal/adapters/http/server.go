// Package http exposes a weft engine over HTTP: runs, the flow graph and
// Prometheus metrics.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/ports"
)

// Server serves one engine and the flow it executes.
type Server struct {
	Engine   ports.Engine
	Flow     *dsl.Flow
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger

	mu   sync.RWMutex
	last domain.History
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	Start string         `json:"start,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// RunResponse is the body returned by POST /runs.
type RunResponse struct {
	RunID    string   `json:"run_id"`
	Frames   []string `json:"frames"`
	Response any      `json:"response,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// NewHandler creates a new HTTP handler for the server.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/graph", s.getGraph)
	r.Post("/runs", s.postRun)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	var overlay *graph.GraphOverlay
	if len(last) > 0 {
		overlay = graph.OverlayOf(last)
	}
	out, err := graph.GenerateMermaid(s.Flow, overlay)
	if err != nil {
		s.Logger.Error("failed to render graph", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) postRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	var start any
	if req.Start != "" {
		start = req.Start
	}
	res, err := s.Engine.Run(r.Context(), start, req.Input)

	resp := RunResponse{RunID: res.RunID, Frames: res.History.Types()}
	if len(res.History) > 0 {
		s.mu.Lock()
		s.last = res.History
		s.mu.Unlock()
	}
	if err != nil {
		s.Logger.Warn("run failed", "run_id", res.RunID, "error", err)
		resp.Error = err.Error()
		writeJSON(w, statusOf(err), resp)
		return
	}
	resp.Response = res.Response
	writeJSON(w, http.StatusOK, resp)
}

func statusOf(err error) int {
	var cancelled *domain.CancelledError
	switch {
	case errors.Is(err, domain.ErrDefinition):
		return http.StatusBadRequest
	case errors.As(err, &cancelled):
		return http.StatusRequestTimeout
	}
	return http.StatusUnprocessableEntity
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
