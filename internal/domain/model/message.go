package model

import "time"

// Message types emitted to the settlement feed.
const (
	MessageBetPlaced        = "bet.placed"
	MessageQuestionLocked   = "question.locked"
	MessageQuestionResolved = "question.resolved"
	MessageQuestionVoided   = "question.voided"
	MessageEventCreated     = "event.created"
)

// Message is one entry of the settlement feed. Key groups messages that must
// stay ordered, the question id for settlement traffic.
type Message struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Key     string    `json:"key"`
	Payload []byte    `json:"payload"`
	At      time.Time `json:"at"`
}
