package api

import (
	"context"
	"net/http"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/pkg/logger"
)

// IdempotencyKeyHeader carries the client's retry key for POST /bets.
const IdempotencyKeyHeader = "Idempotency-Key"

// BetDependencies defines the interface for bet placement.
type BetDependencies interface {
	PlaceBetOnce(ctx context.Context, key, eventID, questionID, userID, answer string, amount money.Money) (model.Bet, error)
}

// placeBetRequest mirrors the OpenAPI schema for POST /bets.
type placeBetRequest struct {
	EventID     string      `json:"event_id"`
	QuestionID  string      `json:"question_id"`
	UserID      string      `json:"user_id"`
	Answer      answerValue `json:"answer"`
	AmountCents int64       `json:"amount_cents"`
}

type betResponse struct {
	Bet model.Bet `json:"bet"`
}

// BetsHandler handles bet requests.
type BetsHandler struct {
	deps BetDependencies
	log  logger.Logger
}

// NewBetsHandler creates a new bets handler.
func NewBetsHandler(deps BetDependencies, log logger.Logger) *BetsHandler {
	return &BetsHandler{deps: deps, log: orNop(log)}
}

// HandlePlaceBet handles POST /bets requests.
func (h *BetsHandler) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	const op = "api.place_bet"
	var req placeBetRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	bet, err := h.deps.PlaceBetOnce(r.Context(), r.Header.Get(IdempotencyKeyHeader),
		req.EventID, req.QuestionID, req.UserID, string(req.Answer), money.FromCents(req.AmountCents))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, betResponse{Bet: bet})
}
