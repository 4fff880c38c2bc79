// Package ledger keeps the append-only record of bets on one question.
//
// A Ledger is not safe for concurrent use. The owner serializes Place,
// Settle and Void with the question's resolution so no bet can land
// between the snapshot a payout is computed from and the status change.
package ledger

import (
	"fmt"
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/question"
	"github.com/okian/betpool/internal/domain/types"
)

// Placement is a bet as submitted.
type Placement struct {
	ID      string
	EventID string
	UserID  string
	Answer  string
	Amount  money.Money
	At      time.Time
}

// Ledger is the bet arena for one question. Bets are never removed.
type Ledger struct {
	questionID string
	bets       []model.Bet
	total      money.Money
}

// New returns an empty ledger for questionID.
func New(questionID string) *Ledger {
	return &Ledger{questionID: questionID}
}

// Restore rebuilds a ledger from persisted bets in placement order.
func Restore(questionID string, bets []model.Bet) (*Ledger, error) {
	l := New(questionID)
	for _, b := range bets {
		if b.QuestionID != questionID {
			return nil, fmt.Errorf("%w: bet %s belongs to question %s", ErrForeignBet, b.ID, b.QuestionID)
		}
		total, err := l.total.Add(b.Amount)
		if err != nil {
			return nil, err
		}
		l.total = total
		l.bets = append(l.bets, b)
	}
	return l, nil
}

// QuestionID returns the owning question's id.
func (l *Ledger) QuestionID() string { return l.questionID }

// Place validates p against the question state at p.At, the event's stake
// bounds and the question's answer rules, then appends a pending bet.
// Checks run in that order; the first failure is returned and nothing is
// appended.
func (l *Ledger) Place(q *model.Question, bounds model.Bounds, p Placement) (model.Bet, error) {
	bet, err := l.Check(q, bounds, p)
	if err != nil {
		return model.Bet{}, err
	}
	if err := l.Append(bet); err != nil {
		return model.Bet{}, err
	}
	return bet, nil
}

// Check runs Place's validation and returns the bet Place would append,
// leaving the ledger untouched. Callers that persist before committing use
// Check, then Append once the write succeeded.
func (l *Ledger) Check(q *model.Question, bounds model.Bounds, p Placement) (model.Bet, error) {
	const op = "ledger.place"

	if q.ID != l.questionID {
		return model.Bet{}, fmt.Errorf("%w: question %s on ledger %s", ErrForeignBet, q.ID, l.questionID)
	}
	if err := question.AcceptsBets(q, p.At); err != nil {
		return model.Bet{}, err
	}
	if p.Amount < bounds.Min {
		return model.Bet{}, types.New(types.KindInvalidAmount, op,
			fmt.Sprintf("amount %s is below the minimum bet", p.Amount)).
			WithField("min_bet", bounds.Min.String())
	}
	if p.Amount > bounds.Max {
		return model.Bet{}, types.New(types.KindInvalidAmount, op,
			fmt.Sprintf("amount %s is above the maximum bet", p.Amount)).
			WithField("max_bet", bounds.Max.String())
	}
	answer, err := question.Normalize(q.Type, q.Options, p.Answer)
	if err != nil {
		return model.Bet{}, err
	}
	if _, err := l.total.Add(p.Amount); err != nil {
		return model.Bet{}, types.Wrap(types.KindInvalidAmount, op, err).WithField("amount", "")
	}

	return model.Bet{
		ID:         p.ID,
		EventID:    p.EventID,
		QuestionID: l.questionID,
		UserID:     p.UserID,
		Answer:     answer,
		Amount:     p.Amount,
		Status:     model.BetPending,
		CreatedAt:  p.At,
	}, nil
}

// Append adds an already checked bet.
func (l *Ledger) Append(bet model.Bet) error {
	if bet.QuestionID != l.questionID {
		return fmt.Errorf("%w: bet %s belongs to question %s", ErrForeignBet, bet.ID, bet.QuestionID)
	}
	total, err := l.total.Add(bet.Amount)
	if err != nil {
		return err
	}
	l.bets = append(l.bets, bet)
	l.total = total
	return nil
}

// Snapshot returns a copy of every bet in placement order.
func (l *Ledger) Snapshot() []model.Bet {
	out := make([]model.Bet, len(l.bets))
	copy(out, l.bets)
	return out
}

// Len returns the number of bets.
func (l *Ledger) Len() int { return len(l.bets) }

// Total returns the sum of all amounts ever accepted.
func (l *Ledger) Total() money.Money { return l.total }

// ByUser returns copies of userID's bets in placement order.
func (l *Ledger) ByUser(userID string) []model.Bet {
	var out []model.Bet
	for _, b := range l.bets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out
}

// Settle replaces bet statuses and payouts with those in settled, which must
// be the ledger's bets in the same order with every other field unchanged.
// Either every bet is updated or none is.
func (l *Ledger) Settle(settled []model.Bet) error {
	if len(settled) != len(l.bets) {
		return fmt.Errorf("%w: %d bets for a ledger of %d", ErrSettlementMismatch, len(settled), len(l.bets))
	}
	for i := range settled {
		cur, next := l.bets[i], settled[i]
		next.Status, next.Payout = cur.Status, cur.Payout
		if next != cur {
			return fmt.Errorf("%w: bet %s changed beyond status", ErrSettlementMismatch, cur.ID)
		}
		if cur.Status != model.BetPending {
			return fmt.Errorf("%w: bet %s", ErrAlreadySettled, cur.ID)
		}
	}
	for i := range settled {
		l.bets[i].Status = settled[i].Status
		l.bets[i].Payout = settled[i].Payout
	}
	return nil
}

// Voided returns the ledger's bets marked voided without modifying the
// ledger, for callers that commit after persisting.
func (l *Ledger) Voided() []model.Bet {
	out := l.Snapshot()
	for i := range out {
		out[i].Status = model.BetVoided
		out[i].Payout = 0
	}
	return out
}
