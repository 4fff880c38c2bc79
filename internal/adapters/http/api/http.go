// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/betpool/internal/domain/types"
	"github.com/okian/betpool/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	BetDependencies
	QuestionDependencies
	EventDependencies
	UserDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	logger logger.Logger

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	betsHandler      *BetsHandler
	questionsHandler *QuestionsHandler
	eventsHandler    *EventsHandler
	usersHandler     *UsersHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger used for internal failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.betsHandler = NewBetsHandler(deps, s.logger)
	s.questionsHandler = NewQuestionsHandler(deps, s.logger)
	s.eventsHandler = NewEventsHandler(deps, s.logger)
	s.usersHandler = NewUsersHandler(deps, s.logger)
	return s
}

func orNop(l logger.Logger) logger.Logger {
	if l == nil {
		return logger.Nop()
	}
	return l
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /bets", MetricsMiddleware(s.betsHandler.HandlePlaceBet, "bets"))

	mux.HandleFunc("POST /questions/{id}/lock", MetricsMiddleware(s.questionsHandler.HandleLock, "questions_lock"))
	mux.HandleFunc("POST /questions/{id}/resolve", MetricsMiddleware(s.questionsHandler.HandleResolve, "questions_resolve"))
	mux.HandleFunc("POST /questions/{id}/void", MetricsMiddleware(s.questionsHandler.HandleVoid, "questions_void"))

	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandleCreate, "events_create"))
	mux.HandleFunc("POST /events/join", MetricsMiddleware(s.eventsHandler.HandleJoin, "events_join"))
	mux.HandleFunc("GET /events/{id}", MetricsMiddleware(s.eventsHandler.HandleGet, "events_get"))
	// /events/code/{code} and /events/{id}/summary overlap, so one route
	// serves both.
	mux.HandleFunc("GET /events/{id}/{sub}", MetricsMiddleware(s.eventsHandler.HandleSubresource, "events_sub"))

	mux.HandleFunc("POST /users", MetricsMiddleware(s.usersHandler.HandleRegister, "users_create"))
	mux.HandleFunc("GET /users/{id}", MetricsMiddleware(s.usersHandler.HandleGet, "users_get"))
	mux.HandleFunc("GET /users/{id}/stats", MetricsMiddleware(s.usersHandler.HandleStats, "users_stats"))
	mux.HandleFunc("GET /users/{id}/bets", MetricsMiddleware(s.usersHandler.HandleBets, "users_bets"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Bound   string `json:"bound,omitempty"`
}

// answerValue accepts an answer as a JSON string or as a bare number or
// boolean, keeping the literal text.
type answerValue string

func (a *answerValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = answerValue(s)
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		return errors.New("answer must be a string, number or boolean")
	}
	if string(raw) == "null" {
		*a = ""
		return nil
	}
	*a = answerValue(strings.TrimSpace(string(raw)))
	return nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps a rejection kind to its HTTP status.
func statusFor(kind types.Kind) int {
	switch kind {
	case types.KindQuestionClosed, types.KindAlreadyResolved, types.KindDuplicate:
		return http.StatusConflict
	case types.KindInvalidAmount, types.KindInvalidAnswer, types.KindInvalidRequest:
		return http.StatusUnprocessableEntity
	case types.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders a rejection with its field detail. Anything else
// is an internal fault: logged, and reported without its cause.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	var e *types.Error
	if errors.As(err, &e) {
		writeJSON(w, statusFor(e.Kind), errorResponse{
			Code:    string(e.Kind),
			Message: e.Message,
			Field:   e.Field,
			Bound:   e.Bound,
		})
		return
	}
	if kind := types.KindOf(err); kind != "" {
		writeJSON(w, statusFor(kind), errorResponse{Code: string(kind), Message: err.Error()})
		return
	}

	log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
}
