package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/yurt/internal/logging"
	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/ports"
	"github.com/aretw0/yurt/pkg/session"
	"github.com/go-chi/chi/v5"
)

// Server exposes the request's session as a small JSON API.
type Server struct {
	Manager *session.Manager
	Logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// SessionView is the JSON representation of a session.
type SessionView struct {
	ID        string         `json:"id"`
	New       bool           `json:"new"`
	State     string         `json:"state"`
	Variables map[string]any `json:"variables"`
}

// NewHandler creates the router:
//
//	GET    /health                 store health
//	GET    /session                id and variables
//	DELETE /session                destroy the session
//	POST   /session/invalidate     move to a fresh, empty session
//	GET    /session/{key}          one variable
//	PUT    /session/{key}          set a variable from the JSON body
//	DELETE /session/{key}          remove a variable
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Manager: mgr,
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(Trace{Header: RequestIDHeader, Logger: s.Logger}.Wrap)

	r.Get("/health", s.Health)
	r.Route("/session", func(r chi.Router) {
		r.Use(mgr.Middleware)
		r.Get("/", s.GetSession)
		r.Delete("/", s.DestroySession)
		r.Post("/invalidate", s.InvalidateSession)
		r.Get("/{key}", s.GetVariable)
		r.Put("/{key}", s.PutVariable)
		r.Delete("/{key}", s.DeleteVariable)
	})
	return r
}

// Health pings the store when it supports it.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Manager.Store().(ports.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.Logger.Warn("Health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetSession handles GET /session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	rec := s.record(w, r)
	if rec == nil {
		return
	}
	vars, err := rec.Values(r.Context())
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, view(rec, vars))
}

// DestroySession handles DELETE /session.
func (s *Server) DestroySession(w http.ResponseWriter, r *http.Request) {
	rec := s.record(w, r)
	if rec == nil {
		return
	}
	if err := rec.Destroy(r.Context()); err != nil {
		s.fail(w, "DestroySession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvalidateSession handles POST /session/invalidate.
func (s *Server) InvalidateSession(w http.ResponseWriter, r *http.Request) {
	rec := s.record(w, r)
	if rec == nil {
		return
	}
	if err := rec.Invalidate(r.Context()); err != nil {
		s.fail(w, "InvalidateSession", err)
		return
	}
	writeJSON(w, http.StatusOK, view(rec, map[string]any{}))
}

// GetVariable handles GET /session/{key}.
func (s *Server) GetVariable(w http.ResponseWriter, r *http.Request) {
	rec := s.record(w, r)
	if rec == nil {
		return
	}
	key := chi.URLParam(r, "key")
	v, ok, err := rec.Get(r.Context(), key)
	if err != nil {
		s.fail(w, "GetVariable", err)
		return
	}
	if !ok {
		http.Error(w, "Variable not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PutVariable handles PUT /session/{key}.
func (s *Server) PutVariable(w http.ResponseWriter, r *http.Request) {
	rec := s.record(w, r)
	if rec == nil {
		return
	}
	var value any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("PutVariable: Invalid request body", "err", err)
		return
	}
	if err := rec.Set(r.Context(), chi.URLParam(r, "key"), value); err != nil {
		s.fail(w, "PutVariable", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteVariable handles DELETE /session/{key}.
func (s *Server) DeleteVariable(w http.ResponseWriter, r *http.Request) {
	rec := s.record(w, r)
	if rec == nil {
		return
	}
	if err := rec.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.fail(w, "DeleteVariable", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) *session.Record {
	rec, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "No session in request context", http.StatusInternalServerError)
		s.Logger.Error("Session middleware is not installed", "path", r.URL.Path)
		return nil
	}
	return rec
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	}
	http.Error(w, http.StatusText(status), status)
	s.Logger.Error(op+" failed", "err", err)
}

func view(rec *session.Record, vars map[string]any) SessionView {
	return SessionView{
		ID:        rec.ID(),
		New:       rec.IsNew(),
		State:     rec.State().String(),
		Variables: vars,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}
