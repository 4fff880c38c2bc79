package payout

import (
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
)

// Refund is a stake owed back to its bettor after a void.
type Refund struct {
	BetID  string      `json:"bet_id"`
	UserID string      `json:"user_id"`
	Amount money.Money `json:"amount_cents"`
}

// VoidReport acknowledges a voided question and lists what is refundable.
type VoidReport struct {
	QuestionID string      `json:"question_id"`
	Refundable money.Money `json:"refundable_cents"`
	Refunds    []Refund    `json:"refunds"`
	VoidedAt   time.Time   `json:"voided_at"`
}

// Refunds reports every stake in bets as refundable.
func Refunds(questionID string, bets []model.Bet) VoidReport {
	r := VoidReport{QuestionID: questionID, Refunds: make([]Refund, 0, len(bets))}
	for _, b := range bets {
		r.Refunds = append(r.Refunds, Refund{BetID: b.ID, UserID: b.UserID, Amount: b.Amount})
		r.Refundable += b.Amount
	}
	return r
}
