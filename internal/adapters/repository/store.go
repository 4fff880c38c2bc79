// Package repository defines the settlement store interface and its in-memory
// implementation.
package repository

import (
	"context"

	"github.com/okian/betpool/internal/domain/model"
)

// Snapshot is the full persisted state, as loaded on start.
type Snapshot struct {
	Users     []model.User
	Events    []model.Event
	Questions []model.Question // ordered by event, then display position
	Bets      []model.Bet      // ordered by placement
}

// Store persists users, events, questions and bets. Every write is durable
// once it returns nil.
type Store interface {
	// Load returns everything persisted so far.
	Load(ctx context.Context) (Snapshot, error)

	// SaveUser inserts a new user. Returns ErrConflict if the id exists.
	SaveUser(ctx context.Context, u model.User) error

	// SaveEvent inserts an event together with its questions in one step.
	SaveEvent(ctx context.Context, e model.Event, questions []model.Question) error

	// AddParticipant appends userID to the event's participants; repeats are no-ops.
	AddParticipant(ctx context.Context, eventID, userID string) error

	// AppendBet adds an accepted bet to the end of its question's ledger.
	AppendBet(ctx context.Context, b model.Bet) error

	// SaveQuestionStatus stores a non-terminal status change such as a lock.
	SaveQuestionStatus(ctx context.Context, q model.Question) error

	// SaveSettlement stores a terminal question and the final state of all of
	// its bets atomically. Either everything is written or nothing is.
	SaveSettlement(ctx context.Context, q model.Question, bets []model.Bet) error

	// Close releases any resources held by the store.
	Close() error
}
