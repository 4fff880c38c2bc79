package api

import (
	"context"
	"net/http"

	service "github.com/okian/betpool/internal/app"
	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/stats"
	"github.com/okian/betpool/pkg/logger"
)

// EventDependencies defines the interface for event operations.
type EventDependencies interface {
	CreateEvent(ctx context.Context, req service.NewEvent) (model.Event, error)
	GetEvent(ctx context.Context, eventID string) (model.EventView, error)
	EventByCode(ctx context.Context, code string) (model.EventView, error)
	JoinEvent(ctx context.Context, code, userID string) (model.Event, error)
	EventSummary(ctx context.Context, eventID string) (stats.EventSummary, error)
}

type joinRequest struct {
	EventCode string `json:"event_code"`
	UserID    string `json:"user_id"`
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
	log  logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, log: orNop(log)}
}

// HandleCreate handles POST /events requests.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req service.NewEvent
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := h.deps.CreateEvent(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleGet handles GET /events/{id} requests.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	v, err := h.deps.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleSubresource handles GET /events/code/{code} and
// GET /events/{id}/summary requests.
func (h *EventsHandler) HandleSubresource(w http.ResponseWriter, r *http.Request) {
	id, sub := r.PathValue("id"), r.PathValue("sub")
	switch {
	case id == "code":
		h.handleByCode(w, r, sub)
	case sub == "summary":
		h.handleSummary(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *EventsHandler) handleByCode(w http.ResponseWriter, r *http.Request, code string) {
	const op = "api.event_by_code"
	v, err := h.deps.EventByCode(r.Context(), code)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *EventsHandler) handleSummary(w http.ResponseWriter, r *http.Request, eventID string) {
	const op = "api.event_summary"
	sum, err := h.deps.EventSummary(r.Context(), eventID)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleJoin handles POST /events/join requests.
func (h *EventsHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.join_event"
	var req joinRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := h.deps.JoinEvent(r.Context(), req.EventCode, req.UserID)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
