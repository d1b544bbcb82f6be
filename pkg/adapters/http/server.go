package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/proofreader"
	"github.com/aretw0/proofreader/internal/logging"
	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/aretw0/proofreader/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Engine is the subset of proofreader.Engine served over HTTP.
type Engine interface {
	Submit(ctx context.Context, sessionID, text string) (*domain.Session, error)
	Reset(ctx context.Context, sessionID string) (*domain.Session, error)
	Start(ctx context.Context, sessionID string) (*domain.Session, error)
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	Sessions(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
	Subscribe(obs func(*domain.SessionDiff)) (cancel func())
}

var _ Engine = (*proofreader.Engine)(nil)

// Server routes HTTP requests to the Engine and fans session diffs out to SSE clients.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics     http.Handler
	logger      *slog.Logger
	unsubscribe func()
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler exposes h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a Server subscribed to engine diffs. Call Close to unsubscribe.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	s.unsubscribe = engine.Subscribe(func(diff *domain.SessionDiff) {
		payload, err := json.Marshal(diff)
		if err != nil {
			s.logger.Error("Failed to encode session diff", "session_id", diff.SessionID, "err", err)
			return
		}
		s.Streams.Broadcast(diff.SessionID, string(payload))
	})
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Handler()
}

// Close stops forwarding engine diffs.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Use(requireSessionID)
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/messages", s.PostMessage)
			r.Post("/reset", s.ResetSession)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !domain.ValidSessionID(chi.URLParam(r, "sessionID")) {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSessionRequest is the optional body of POST /sessions.
type CreateSessionRequest struct {
	ID string `json:"id,omitempty"`
}

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is returned for every non-2xx status.
// Session is set when a model failure was recorded in the transcript.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Session *domain.Session `json:"session,omitempty"`
}

// ListSessionsResponse is the body of GET /sessions.
type ListSessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			s.logger.Warn("CreateSession: Invalid request body", "err", err)
			return
		}
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}
	if !domain.ValidSessionID(body.ID) {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := s.Engine.Start(r.Context(), body.ID)
	if err != nil {
		s.fail(w, "CreateSession", body.ID, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Sessions(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", "", err, nil)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ListSessionsResponse{Sessions: ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session, err := s.Engine.Session(r.Context(), id)
	if err != nil {
		s.fail(w, "GetSession", id, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.Engine.Delete(r.Context(), id); err != nil {
		s.fail(w, "DeleteSession", id, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostMessage handles POST /sessions/{id}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("PostMessage: Invalid request body", "session_id", id, "err", err)
		return
	}

	text, err := runner.SanitizeInput(body.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
		s.logger.Warn("PostMessage: Input rejected", "session_id", id, "err", err, "size", len(body.Text))
		return
	}

	session, err := s.Engine.Submit(r.Context(), id, text)
	if err != nil {
		s.fail(w, "PostMessage", id, err, session)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ResetSession handles POST /sessions/{id}/reset.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session, err := s.Engine.Reset(r.Context(), id)
	if err != nil {
		s.fail(w, "ResetSession", id, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "proofreader-http",
		"version": proofreader.Version,
	})
}

// fail maps engine errors to status codes.
func (s *Server) fail(w http.ResponseWriter, op, sessionID string, err error, session *domain.Session) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrExternalService):
		s.logger.Warn(op+": Model call failed", "session_id", sessionID, "err", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error(), Session: session})
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		s.logger.Debug(op+": Request canceled", "session_id", sessionID)
	default:
		s.logger.Error(op+" failed", "session_id", sessionID, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
// The optional watch query parameter (comma separated: transcript, mode)
// filters which diffs are delivered.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.logger.Info("SSE: Subscribing to session updates", "session_id", sessionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !matchesWatch(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func matchesWatch(msg string, watchList []string) bool {
	var diff domain.SessionDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "transcript":
			if len(diff.Appended) > 0 || diff.Reset {
				return true
			}
		case "mode":
			if diff.Mode != nil {
				return true
			}
		}
	}
	return false
}
