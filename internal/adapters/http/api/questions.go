package api

import (
	"context"
	"net/http"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/payout"
	"github.com/okian/betpool/pkg/logger"
)

// QuestionDependencies defines the interface for question transitions.
type QuestionDependencies interface {
	LockQuestion(ctx context.Context, questionID string) (model.Question, error)
	ResolveQuestion(ctx context.Context, questionID, answer string) (payout.Report, error)
	VoidQuestion(ctx context.Context, questionID string) (payout.VoidReport, error)
}

type resolveRequest struct {
	Answer answerValue `json:"answer"`
}

// QuestionsHandler handles question lifecycle requests.
type QuestionsHandler struct {
	deps QuestionDependencies
	log  logger.Logger
}

// NewQuestionsHandler creates a new questions handler.
func NewQuestionsHandler(deps QuestionDependencies, log logger.Logger) *QuestionsHandler {
	return &QuestionsHandler{deps: deps, log: orNop(log)}
}

// HandleLock handles POST /questions/{id}/lock requests.
func (h *QuestionsHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	const op = "api.lock_question"
	q, err := h.deps.LockQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleResolve handles POST /questions/{id}/resolve requests.
func (h *QuestionsHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve_question"
	var req resolveRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	report, err := h.deps.ResolveQuestion(r.Context(), r.PathValue("id"), string(req.Answer))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleVoid handles POST /questions/{id}/void requests.
func (h *QuestionsHandler) HandleVoid(w http.ResponseWriter, r *http.Request) {
	const op = "api.void_question"
	report, err := h.deps.VoidQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
