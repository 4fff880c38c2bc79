package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/betpool/internal/domain/model"
)

// MemoryStore keeps state in process memory. It is the default store and the
// one used by tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]model.User
	userOrder []string
	events    map[string]model.Event
	evOrder   []string
	questions map[string]model.Question
	qOrder    []string
	bets      map[string]model.Bet
	betOrder  []string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]model.User),
		events:    make(map[string]model.Event),
		questions: make(map[string]model.Question),
		bets:      make(map[string]model.Bet),
	}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Users:     make([]model.User, 0, len(s.userOrder)),
		Events:    make([]model.Event, 0, len(s.evOrder)),
		Questions: make([]model.Question, 0, len(s.qOrder)),
		Bets:      make([]model.Bet, 0, len(s.betOrder)),
	}
	for _, id := range s.userOrder {
		snap.Users = append(snap.Users, s.users[id])
	}
	for _, id := range s.evOrder {
		e := s.events[id]
		snap.Events = append(snap.Events, e.Clone())
	}
	for _, id := range s.qOrder {
		q := s.questions[id]
		snap.Questions = append(snap.Questions, q.Clone())
	}
	for _, id := range s.betOrder {
		snap.Bets = append(snap.Bets, s.bets[id])
	}
	return snap, nil
}

// SaveUser implements Store.
func (s *MemoryStore) SaveUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("%w: user %s", ErrConflict, u.ID)
	}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

// SaveEvent implements Store.
func (s *MemoryStore) SaveEvent(_ context.Context, e model.Event, questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return fmt.Errorf("%w: event %s", ErrConflict, e.ID)
	}
	for _, q := range questions {
		if _, ok := s.questions[q.ID]; ok {
			return fmt.Errorf("%w: question %s", ErrConflict, q.ID)
		}
	}

	s.events[e.ID] = e.Clone()
	s.evOrder = append(s.evOrder, e.ID)
	for _, q := range questions {
		s.questions[q.ID] = q.Clone()
		s.qOrder = append(s.qOrder, q.ID)
	}
	return nil
}

// AddParticipant implements Store.
func (s *MemoryStore) AddParticipant(_ context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	if e.HasParticipant(userID) {
		return nil
	}
	e = e.Clone()
	e.Participants = append(e.Participants, userID)
	s.events[eventID] = e
	return nil
}

// AppendBet implements Store.
func (s *MemoryStore) AppendBet(_ context.Context, b model.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[b.QuestionID]; !ok {
		return fmt.Errorf("%w: question %s", ErrNotFound, b.QuestionID)
	}
	if _, ok := s.bets[b.ID]; ok {
		return fmt.Errorf("%w: bet %s", ErrConflict, b.ID)
	}
	s.bets[b.ID] = b
	s.betOrder = append(s.betOrder, b.ID)
	return nil
}

// SaveQuestionStatus implements Store.
func (s *MemoryStore) SaveQuestionStatus(_ context.Context, q model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[q.ID]; !ok {
		return fmt.Errorf("%w: question %s", ErrNotFound, q.ID)
	}
	s.questions[q.ID] = q.Clone()
	return nil
}

// SaveSettlement implements Store.
func (s *MemoryStore) SaveSettlement(_ context.Context, q model.Question, bets []model.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[q.ID]; !ok {
		return fmt.Errorf("%w: question %s", ErrNotFound, q.ID)
	}
	for _, b := range bets {
		if _, ok := s.bets[b.ID]; !ok {
			return fmt.Errorf("%w: bet %s", ErrNotFound, b.ID)
		}
	}

	s.questions[q.ID] = q.Clone()
	for _, b := range bets {
		s.bets[b.ID] = b
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
