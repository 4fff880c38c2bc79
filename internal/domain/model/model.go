// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/betpool/internal/domain/money"
)

// QuestionType is the closed set of answer shapes a question accepts.
type QuestionType string

// Question types.
const (
	TypeYesNo          QuestionType = "yes_no"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeNumeric        QuestionType = "numeric"
	TypeFreeText       QuestionType = "free_text"
)

// Valid reports whether t is one of the known types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeYesNo, TypeMultipleChoice, TypeNumeric, TypeFreeText:
		return true
	}
	return false
}

// QuestionStatus is a question's lifecycle state.
type QuestionStatus string

// Question lifecycle states.
const (
	QuestionOpen     QuestionStatus = "open"
	QuestionLocked   QuestionStatus = "locked"
	QuestionResolved QuestionStatus = "resolved"
	QuestionVoided   QuestionStatus = "voided"
)

// Terminal reports whether no transition may leave s.
func (s QuestionStatus) Terminal() bool {
	return s == QuestionResolved || s == QuestionVoided
}

// BetStatus is a bet's settlement state.
type BetStatus string

// Bet states.
const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
	BetVoided  BetStatus = "voided"
)

// Decided reports whether the bet counts toward a win rate.
func (s BetStatus) Decided() bool { return s == BetWon || s == BetLost }

// EventStatus is derived from question states and the clock, never stored.
type EventStatus string

// Event states.
const (
	EventUpcoming  EventStatus = "upcoming"
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
)

// User is a participant profile. Identity is opaque to the engine; payment
// handles only tell winners where to collect outside the app.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	VenmoHandle string    `json:"venmo_handle,omitempty"`
	PaypalEmail string    `json:"paypal_email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Bounds are an event's per-bet stake limits, inclusive on both ends.
type Bounds struct {
	Min money.Money `json:"min_bet_cents"`
	Max money.Money `json:"max_bet_cents"`
}

// Event is a host's social event. It owns its questions, referenced here in
// display order.
type Event struct {
	ID           string      `json:"id"`
	HostID       string      `json:"host_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Date         time.Time   `json:"date"`
	Code         string      `json:"event_code"`
	MinBet       money.Money `json:"min_bet_cents"`
	MaxBet       money.Money `json:"max_bet_cents"`
	QuestionIDs  []string    `json:"question_ids"`
	Participants []string    `json:"participants"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Bounds returns the event's stake limits.
func (e *Event) Bounds() Bounds { return Bounds{Min: e.MinBet, Max: e.MaxBet} }

// HasParticipant reports whether userID joined or bet on the event.
func (e *Event) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (e *Event) Clone() Event {
	c := *e
	c.QuestionIDs = append([]string(nil), e.QuestionIDs...)
	c.Participants = append([]string(nil), e.Participants...)
	return c
}

// Question is a prediction prompt on an event.
type Question struct {
	ID            string         `json:"id"`
	EventID       string         `json:"event_id"`
	Text          string         `json:"text"`
	Type          QuestionType   `json:"type"`
	Options       []string       `json:"options,omitempty"`
	Cutoff        time.Time      `json:"cutoff_time"`
	Status        QuestionStatus `json:"status"`
	CorrectAnswer string         `json:"correct_answer,omitempty"`
	ResolvedAt    time.Time      `json:"resolved_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Clone returns a deep copy.
func (q *Question) Clone() Question {
	c := *q
	c.Options = append([]string(nil), q.Options...)
	return c
}

// Bet is a stake on an answer. Everything but Status and Payout is fixed at
// acceptance.
type Bet struct {
	ID         string      `json:"id"`
	EventID    string      `json:"event_id"`
	QuestionID string      `json:"question_id"`
	UserID     string      `json:"user_id"`
	Answer     string      `json:"answer"`
	Amount     money.Money `json:"amount_cents"`
	Status     BetStatus   `json:"status"`
	Payout     money.Money `json:"payout_cents"`
	CreatedAt  time.Time   `json:"created_at"`
}

// QuestionView is a consistent copy of a question and its ledger.
type QuestionView struct {
	Question Question `json:"question"`
	Bets     []Bet    `json:"bets"`
}

// EventView is a consistent copy of an event with all of its questions.
// Status is derived at the time the view was taken.
type EventView struct {
	Event     Event          `json:"event"`
	Status    EventStatus    `json:"status"`
	Questions []QuestionView `json:"questions"`
}
