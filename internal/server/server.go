// Package server exposes the analyst over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FAL1989/consultorio-jung/internal/analyst"
	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/knowledge"
	"github.com/FAL1989/consultorio-jung/internal/llm"
	"github.com/FAL1989/consultorio-jung/internal/logging"
	"github.com/FAL1989/consultorio-jung/internal/memory"
)

// maxAudioBytes bounds uploads to /api/transcribe.
const maxAudioBytes = 25 << 20

// Pinger reports whether the vector store is reachable.
type Pinger interface {
	TestConnection(ctx context.Context) error
}

// Options wires the server to its collaborators. Transcriber and Health may
// be nil; the matching endpoints then answer 503.
type Options struct {
	Analyst     *analyst.Analyst
	Sessions    *memory.Sessions
	Store       *knowledge.Store
	Transcriber llm.Transcriber
	Health      Pinger
	RequireAuth bool
	Logger      *slog.Logger
}

type Server struct {
	analyst     *analyst.Analyst
	sessions    *memory.Sessions
	store       *knowledge.Store
	transcriber llm.Transcriber
	health      Pinger
	requireAuth bool
	logger      *slog.Logger
	now         func() time.Time
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = memory.NewSessions(memory.DefaultWindow, 0, 0)
	}
	return &Server{
		analyst:     opts.Analyst,
		sessions:    sessions,
		store:       opts.Store,
		transcriber: opts.Transcriber,
		health:      opts.Health,
		requireAuth: opts.RequireAuth,
		logger:      logger,
		now:         time.Now,
	}
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/chat/stream", s.auth(http.HandlerFunc(s.handleChatStream)))
	mux.Handle("POST /api/chat", s.auth(http.HandlerFunc(s.handleChat)))
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/concepts/explain", s.handleExplain)
	mux.HandleFunc("POST /api/archetypes/analyze", s.handleArchetype)
	mux.HandleFunc("POST /api/guidance", s.handleGuidance)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/startup-check", s.handleStartupCheck)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return logging.Middleware(s.logger, mux)
}

// auth only checks that a Bearer token is present; the token itself is not verified.
func (s *Server) auth(next http.Handler) http.Handler {
	if !s.requireAuth {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")) == "" {
			writeError(w, http.StatusUnauthorized, "Token inválido")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// conversation resolves the analyst bound to a conversation id.
func (s *Server) conversation(id string) (string, *analyst.Analyst) {
	id, mem := s.sessions.Get(id)
	return id, s.analyst.WithMemory(mem)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		cfgErr   *domain.ConfigurationError
		embErr   *domain.EmbeddingError
		retErr   *domain.RetrievalError
		modelErr *domain.ModelInvocationError
		trErr    *domain.TranscriptionError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &embErr), errors.As(err, &retErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &modelErr), errors.As(err, &trErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.logger.ErrorContext(r.Context(), op+" failed",
		"request_id", logging.RequestID(r.Context()), "status", status, "error", err)
	writeError(w, status, err.Error())
}
