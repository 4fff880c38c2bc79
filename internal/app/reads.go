package service

import (
	"context"
	"strings"
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/question"
	"github.com/okian/betpool/internal/domain/stats"
)

// eventStates returns every event in creation order.
func (s *Service) eventStates() []*eventState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*eventState, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		if es, ok := s.events[id]; ok {
			out = append(out, es)
		}
	}
	return out
}

func (s *Service) eventCopy(es *eventState) model.Event {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.event.Clone()
}

// view snapshots an event with its questions and bets. Each question is
// copied under its own lock, reconciled to now.
func (s *Service) view(es *eventState, now time.Time) model.EventView {
	ev := s.eventCopy(es)
	v := model.EventView{Event: ev, Questions: make([]model.QuestionView, 0, len(ev.QuestionIDs))}

	for _, qid := range ev.QuestionIDs {
		qs, err := s.lookupQuestion("service.view", qid)
		if err != nil {
			continue
		}
		qs.mu.Lock()
		question.Apply(&qs.q, now)
		qv := model.QuestionView{Question: qs.q.Clone(), Bets: qs.ledger.Snapshot()}
		qs.mu.Unlock()
		v.Questions = append(v.Questions, qv)
	}
	v.Status = stats.Status(v, now)
	return v
}

// GetEvent returns an event with its questions and bets.
func (s *Service) GetEvent(_ context.Context, eventID string) (model.EventView, error) {
	es, err := s.lookupEvent("service.get_event", eventID)
	if err != nil {
		return model.EventView{}, err
	}
	return s.view(es, s.clock.Now()), nil
}

// EventByCode returns the event with the given join code. Codes are matched
// case-insensitively.
func (s *Service) EventByCode(_ context.Context, code string) (model.EventView, error) {
	es, err := s.lookupCode("service.event_by_code", code)
	if err != nil {
		return model.EventView{}, err
	}
	return s.view(es, s.clock.Now()), nil
}

// EventSummary rolls up pools and statuses for one event.
func (s *Service) EventSummary(_ context.Context, eventID string) (stats.EventSummary, error) {
	es, err := s.lookupEvent("service.event_summary", eventID)
	if err != nil {
		return stats.EventSummary{}, err
	}
	now := s.clock.Now()
	return stats.ForEvent(s.view(es, now), now), nil
}

// GetStats aggregates userID's bets across every event. An unknown user
// has empty stats.
func (s *Service) GetStats(_ context.Context, userID string) (stats.EventStats, error) {
	userID = strings.TrimSpace(userID)
	now := s.clock.Now()

	states := s.eventStates()
	views := make([]model.EventView, 0, len(states))
	for _, es := range states {
		views = append(views, s.view(es, now))
	}
	return stats.ForUser(userID, views), nil
}
