package api

import (
	"context"
	"net/http"

	service "github.com/okian/betpool/internal/app"
	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/stats"
	"github.com/okian/betpool/pkg/logger"
)

// UserDependencies defines the interface for user profiles and rollups.
type UserDependencies interface {
	RegisterUser(ctx context.Context, req service.NewUser) (model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetStats(ctx context.Context, userID string) (stats.EventStats, error)
	UserBets(ctx context.Context, userID string) ([]service.UserBet, error)
}

type userBetsResponse struct {
	UserID string            `json:"user_id"`
	Bets   []service.UserBet `json:"bets"`
}

// UsersHandler handles user requests.
type UsersHandler struct {
	deps UserDependencies
	log  logger.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies, log logger.Logger) *UsersHandler {
	return &UsersHandler{deps: deps, log: orNop(log)}
}

// HandleRegister handles POST /users requests.
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_user"
	var req service.NewUser
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	u, err := h.deps.RegisterUser(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// HandleGet handles GET /users/{id} requests.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	u, err := h.deps.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleStats handles GET /users/{id}/stats requests.
func (h *UsersHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_stats"
	st, err := h.deps.GetStats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleBets handles GET /users/{id}/bets requests.
func (h *UsersHandler) HandleBets(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_bets"
	userID := r.PathValue("id")
	bets, err := h.deps.UserBets(r.Context(), userID)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	if bets == nil {
		bets = []service.UserBet{}
	}
	writeJSON(w, http.StatusOK, userBetsResponse{UserID: userID, Bets: bets})
}
