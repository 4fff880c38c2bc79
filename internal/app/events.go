package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/betpool/internal/domain/ledger"
	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/question"
	"github.com/okian/betpool/internal/domain/types"
	"github.com/okian/betpool/pkg/logger"
	"github.com/okian/betpool/pkg/metrics"
)

// Join codes avoid 0/O and 1/I. The alphabet has 32 symbols so a random
// byte masked to five bits picks uniformly.
const (
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts = 16
)

var minAllowedBet = money.FromDollars(1)

// NewUser is a profile registration request.
type NewUser struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	VenmoHandle string `json:"venmo_handle" validate:"omitempty,max=64"`
	PaypalEmail string `json:"paypal_email" validate:"omitempty,email"`
}

// NewQuestion is a question inside a NewEvent.
type NewQuestion struct {
	Text    string             `json:"text" validate:"required"`
	Type    model.QuestionType `json:"type" validate:"required"`
	Options []string           `json:"options"`
	Cutoff  time.Time          `json:"cutoff_time" validate:"required"`
}

// NewEvent is an event creation request. Zero MinBet and MaxBet select the
// service's default bounds.
type NewEvent struct {
	HostID      string        `json:"host_id" validate:"required"`
	Title       string        `json:"title" validate:"required,min=3,max=200"`
	Description string        `json:"description" validate:"required,min=10,max=2000"`
	Date        time.Time     `json:"date" validate:"required"`
	MinBet      money.Money   `json:"min_bet_cents" validate:"gte=0"`
	MaxBet      money.Money   `json:"max_bet_cents" validate:"gte=0"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,max=50,dive"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// invalidRequest turns the first validation failure into an InvalidRequest.
func invalidRequest(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.Wrap(types.KindInvalidRequest, op, err)
	}

	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "email":
		msg = field + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			msg = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		} else {
			msg = fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
	case "max":
		if fe.Kind() == reflect.String {
			msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		} else {
			msg = fmt.Sprintf("%s allows at most %s entries", field, fe.Param())
		}
	default:
		msg = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}

	return types.New(types.KindInvalidRequest, op, msg).WithField(field, fe.Param())
}

// RegisterUser stores a payout profile.
func (s *Service) RegisterUser(ctx context.Context, req NewUser) (model.User, error) {
	const op = "service.register_user"

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.VenmoHandle = strings.TrimSpace(req.VenmoHandle)
	req.PaypalEmail = strings.TrimSpace(req.PaypalEmail)
	if err := s.validate.Struct(req); err != nil {
		return model.User{}, invalidRequest(op, err)
	}

	u := model.User{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Email:       req.Email,
		VenmoHandle: req.VenmoHandle,
		PaypalEmail: req.PaypalEmail,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.persist("save_user", func() error { return s.store.SaveUser(ctx, u) }); err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	s.users[u.ID] = u
	count := len(s.users)
	s.mu.Unlock()

	metrics.UpdateTotalUsers(count)
	s.logger.Info(ctx, "user registered", logger.String("user_id", u.ID))
	return u, nil
}

// GetUser returns a registered profile.
func (s *Service) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return model.User{}, types.NotFound("service.get_user", "user", id)
	}
	return u, nil
}

// CreateEvent validates and stores an event with its questions and assigns
// it a join code.
func (s *Service) CreateEvent(ctx context.Context, req NewEvent) (model.Event, error) {
	const op = "service.create_event"

	req.HostID = strings.TrimSpace(req.HostID)
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.MinBet == 0 && req.MaxBet == 0 {
		req.MinBet, req.MaxBet = s.defaultBounds.Min, s.defaultBounds.Max
	}
	if err := s.validate.Struct(req); err != nil {
		return model.Event{}, invalidRequest(op, err)
	}
	if req.MinBet < minAllowedBet {
		return model.Event{}, types.New(types.KindInvalidRequest, op, "minimum bet must be at least "+minAllowedBet.String()).
			WithField("min_bet_cents", minAllowedBet.String())
	}
	if req.MaxBet < req.MinBet {
		return model.Event{}, types.New(types.KindInvalidRequest, op, "maximum bet must not be below the minimum bet").
			WithField("max_bet_cents", req.MinBet.String())
	}

	now := s.clock.Now()
	ev := model.Event{
		ID:           uuid.NewString(),
		HostID:       req.HostID,
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date.UTC(),
		MinBet:       req.MinBet,
		MaxBet:       req.MaxBet,
		QuestionIDs:  make([]string, 0, len(req.Questions)),
		Participants: []string{},
		CreatedAt:    now,
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, nq := range req.Questions {
		def := question.Definition{
			Text:    strings.TrimSpace(nq.Text),
			Type:    nq.Type,
			Options: nq.Options,
			Cutoff:  nq.Cutoff.UTC(),
		}
		options, err := question.ValidateDefinition(def, ev.Date)
		if err != nil {
			return model.Event{}, atQuestion(err, i)
		}
		q := model.Question{
			ID:        uuid.NewString(),
			EventID:   ev.ID,
			Text:      def.Text,
			Type:      def.Type,
			Options:   options,
			Cutoff:    def.Cutoff,
			Status:    model.QuestionOpen,
			CreatedAt: now,
		}
		questions = append(questions, q)
		ev.QuestionIDs = append(ev.QuestionIDs, q.ID)
	}

	code, err := s.reserveCode()
	if err != nil {
		return model.Event{}, err
	}
	ev.Code = code

	if err := s.persist("save_event", func() error { return s.store.SaveEvent(ctx, ev, questions) }); err != nil {
		s.mu.Lock()
		delete(s.byCode, code)
		s.mu.Unlock()
		return model.Event{}, err
	}

	s.mu.Lock()
	s.events[ev.ID] = &eventState{event: ev.Clone(), bounds: ev.Bounds()}
	s.eventOrder = append(s.eventOrder, ev.ID)
	s.byCode[code] = ev.ID
	for _, q := range questions {
		s.questions[q.ID] = &questionState{q: q, ledger: ledger.New(q.ID)}
	}
	count := len(s.events)
	s.mu.Unlock()

	metrics.UpdateTotalEvents(count)
	s.logger.Info(ctx, "event created",
		logger.String("event_id", ev.ID),
		logger.String("code", code),
		logger.Int("questions", len(questions)),
	)
	s.emit(ctx, model.MessageEventCreated, ev.ID, ev)

	return ev, nil
}

// atQuestion qualifies a question validation error with the question's
// position in the request.
func atQuestion(err error, i int) error {
	var e *types.Error
	if !errors.As(err, &e) {
		return err
	}
	out := *e
	out.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
	return &out
}

// reserveCode picks an unused join code and holds it until the event is
// stored or the creation fails.
func (s *Service) reserveCode() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < maxCodeAttempts; i++ {
		code, err := randomCode(s.codeLength)
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		if _, taken := s.byCode[code]; !taken {
			s.byCode[code] = ""
			return code, nil
		}
	}
	return "", fmt.Errorf("generate join code: no free code after %d attempts", maxCodeAttempts)
}

func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[b&31]
	}
	return string(buf), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// lookupEvent looks up an event by id.
func (s *Service) lookupEvent(op, id string) (*eventState, error) {
	s.mu.RLock()
	es, ok := s.events[id]
	s.mu.RUnlock()
	if !ok {
		return nil, types.NotFound(op, "event", id)
	}
	return es, nil
}

// lookupCode looks up an event by join code.
func (s *Service) lookupCode(op, code string) (*eventState, error) {
	code = normalizeCode(code)
	s.mu.RLock()
	es, ok := s.events[s.byCode[code]]
	s.mu.RUnlock()
	if !ok {
		return nil, types.New(types.KindNotFound, op, "no event with code "+code).WithField("event_code", "")
	}
	return es, nil
}

// lookupQuestion looks up a question by id.
func (s *Service) lookupQuestion(op, id string) (*questionState, error) {
	s.mu.RLock()
	qs, ok := s.questions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, types.NotFound(op, "question", id)
	}
	return qs, nil
}

// JoinEvent adds userID to the event's participants.
func (s *Service) JoinEvent(ctx context.Context, code, userID string) (model.Event, error) {
	const op = "service.join_event"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Event{}, types.New(types.KindInvalidRequest, op, "user_id is required").WithField("user_id", "")
	}
	es, err := s.lookupCode(op, code)
	if err != nil {
		return model.Event{}, err
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	if err := s.addParticipantLocked(ctx, es, userID); err != nil {
		return model.Event{}, err
	}
	return es.event.Clone(), nil
}

// addParticipantLocked records userID as a participant. es.mu must be held.
func (s *Service) addParticipantLocked(ctx context.Context, es *eventState, userID string) error {
	if es.event.HasParticipant(userID) {
		return nil
	}
	eventID := es.event.ID
	if err := s.persist("add_participant", func() error { return s.store.AddParticipant(ctx, eventID, userID) }); err != nil {
		return err
	}
	es.event.Participants = append(es.event.Participants, userID)
	return nil
}
