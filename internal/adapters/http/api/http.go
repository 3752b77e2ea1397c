// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/internal/domain/types"
	"github.com/okian/stylist/pkg/logger"
)

// Default request limits.
const (
	DefaultMaxUploadBytes = 10 << 20
	maxJSONBodyBytes      = 64 << 10
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Quiz() []quiz.Question

	CreateSession(ctx context.Context) (types.SessionView, error)
	Session(ctx context.Context, id string) (types.SessionView, error)
	DeleteSession(ctx context.Context, id string) error

	Answer(ctx context.Context, id string, question int, answer string) (types.SessionView, error)
	ResetQuiz(ctx context.Context, id string) (types.SessionView, error)
	Profile(ctx context.Context, id string) (quiz.Profile, error)

	AddItem(ctx context.Context, id string, up types.Upload) (types.ItemView, bool, error)
	Relabel(ctx context.Context, id, itemID string, category model.Category) (types.ItemView, error)
	RemoveItem(ctx context.Context, id, itemID string) (types.SessionView, error)

	GenerateOutfit(ctx context.Context, id string) (types.OutfitView, error)
	Preview(ctx context.Context, id string) (model.Preview, error)
}

// Option configures a Server.
type Option func(*Server)

// WithUploadRate limits item uploads to perSec with the given burst.
// A non-positive rate disables limiting.
func WithUploadRate(perSec float64, burst int) Option {
	return func(s *Server) {
		if perSec <= 0 {
			s.uploadLimiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.uploadLimiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithMaxUploadBytes caps the size of an upload request body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps           Dependencies
	validate       *validator.Validate
	uploadLimiter  *rate.Limiter
	maxUploadBytes int64
	logger         logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         logger.Nop(),
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)
	route("GET /quiz", "quiz", s.handleQuiz)

	route("POST /sessions", "sessions", s.handleCreateSession)
	route("GET /sessions/{id}", "session", s.handleGetSession)
	route("DELETE /sessions/{id}", "session", s.handleDeleteSession)

	route("PUT /sessions/{id}/quiz/{question}", "answer", s.handleAnswer)
	route("DELETE /sessions/{id}/quiz", "quiz_reset", s.handleResetQuiz)
	route("GET /sessions/{id}/profile", "profile", s.handleProfile)

	route("POST /sessions/{id}/items", "items", RateLimitMiddleware(s.handleAddItem, s.uploadLimiter))
	route("PATCH /sessions/{id}/items/{item}", "item", s.handleRelabel)
	route("DELETE /sessions/{id}/items/{item}", "item", s.handleRemoveItem)

	route("POST /sessions/{id}/outfit", "outfit", s.handleGenerateOutfit)
	route("GET /sessions/{id}/outfit/preview", "preview", s.handlePreview)
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   msg,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

// fail writes err and logs it when the server is at fault.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("code", code),
			logger.String("request_id", RequestID(r.Context())),
			logger.Error(err),
		)
	}
	writeError(w, Wrap(op, err))
}

// decodeJSON reads a bounded JSON body into v and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
