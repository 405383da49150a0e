// Package server exposes the orchestrator over HTTP. Routing is chi-based
// and every response body is JSON. The handler set is intentionally small:
// open a session, post a message, read state and trace, health and metrics.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/logging"
	"github.com/caseflow-io/caseflow/orchestrator"
)

// Options configure the HTTP server.
type Options struct {
	Logger logging.Logger
}

// Server wires the orchestrator into an http.Handler.
type Server struct {
	orch   *orchestrator.Orchestrator
	logger logging.Logger
}

// New creates a Server.
func New(orch *orchestrator.Orchestrator, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{orch: orch, logger: opts.Logger}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/{sessionID}", s.handleGetSession)
		r.Get("/{sessionID}/trace", s.handleGetTrace)
		r.Post("/{sessionID}/messages", s.handlePostMessage)
	})
	return r
}

type createSessionRequest struct {
	Customer core.Customer `json:"customer"`
}

type postMessageRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Customer.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "customer.id is required"})
		return
	}

	sess, err := s.orch.StartSession(r.Context(), req.Customer)
	if err != nil {
		s.logger.Error("session create failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create session"})
		return
	}
	sessionsOpened.Inc()
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"trace":      sess.Trace,
	})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	start := time.Now()
	reply, err := s.orch.Advance(r.Context(), chi.URLParam(r, "sessionID"), req.Text)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	turnDuration.Observe(time.Since(start).Seconds())
	turnsTotal.WithLabelValues(string(reply.Status)).Inc()
	if reply.Escalation != nil {
		escalationsTotal.Inc()
	}
	writeJSON(w, http.StatusOK, reply)
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
