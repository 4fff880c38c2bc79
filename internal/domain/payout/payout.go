// Package payout computes pari-mutuel settlements.
//
// Losing stakes fund the winners in proportion to their own stakes and
// nothing is withheld. Every function here is pure: the same ledger snapshot
// and answer always produce the same report.
package payout

import (
	"fmt"
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/question"
)

// Entry is one bet's outcome.
type Entry struct {
	BetID  string          `json:"bet_id"`
	UserID string          `json:"user_id"`
	Answer string          `json:"answer"`
	Amount money.Money     `json:"amount_cents"`
	Status model.BetStatus `json:"status"`
	Payout money.Money     `json:"payout_cents"`
}

// Report is the settlement of a resolved question.
//
// Paid() + Residue == TotalPool whenever WinningPool > 0. When nobody
// picked the correct answer the whole pool is Unclaimed and nothing is paid;
// what happens to it is the caller's decision.
type Report struct {
	QuestionID    string      `json:"question_id"`
	CorrectAnswer string      `json:"correct_answer"`
	TotalPool     money.Money `json:"total_pool_cents"`
	WinningPool   money.Money `json:"winning_pool_cents"`
	LosingPool    money.Money `json:"losing_pool_cents"`
	Residue       money.Money `json:"rounding_residue_cents"`
	Unclaimed     money.Money `json:"unclaimed_cents"`
	Entries       []Entry     `json:"entries"`
	ResolvedAt    time.Time   `json:"resolved_at"`
}

// UserPayout totals one user's winning bets.
type UserPayout struct {
	UserID string      `json:"user_id"`
	Staked money.Money `json:"staked_cents"`
	Payout money.Money `json:"payout_cents"`
}

// Calculate settles bets against correctAnswer. Voided bets are left voided
// and excluded from both pools.
func Calculate(questionID string, qtype model.QuestionType, bets []model.Bet, correctAnswer string) (Report, error) {
	r := Report{
		QuestionID:    questionID,
		CorrectAnswer: correctAnswer,
		Entries:       make([]Entry, len(bets)),
	}

	winning := make([]bool, len(bets))
	for i, b := range bets {
		r.Entries[i] = Entry{BetID: b.ID, UserID: b.UserID, Answer: b.Answer, Amount: b.Amount}
		if b.Status == model.BetVoided {
			r.Entries[i].Status = model.BetVoided
			continue
		}

		var err error
		if r.TotalPool, err = r.TotalPool.Add(b.Amount); err != nil {
			return Report{}, fmt.Errorf("total pool: %w", err)
		}
		if question.Equal(qtype, b.Answer, correctAnswer) {
			winning[i] = true
			if r.WinningPool, err = r.WinningPool.Add(b.Amount); err != nil {
				return Report{}, fmt.Errorf("winning pool: %w", err)
			}
		}
	}
	var err error
	if r.LosingPool, err = r.TotalPool.Sub(r.WinningPool); err != nil {
		return Report{}, fmt.Errorf("losing pool: %w", err)
	}

	if r.WinningPool == 0 {
		for i := range r.Entries {
			if r.Entries[i].Status != model.BetVoided {
				r.Entries[i].Status = model.BetLost
			}
		}
		r.Unclaimed = r.TotalPool
		return r, nil
	}

	distributed := money.Zero
	for i := range r.Entries {
		e := &r.Entries[i]
		if e.Status == model.BetVoided {
			continue
		}
		if !winning[i] {
			e.Status = model.BetLost
			continue
		}
		share, err := money.MulDiv(e.Amount, r.LosingPool, r.WinningPool)
		if err != nil {
			return Report{}, fmt.Errorf("share for bet %s: %w", e.BetID, err)
		}
		e.Status = model.BetWon
		e.Payout = e.Amount + share
		distributed += share
	}
	if r.Residue, err = r.LosingPool.Sub(distributed); err != nil {
		return Report{}, fmt.Errorf("residue: %w", err)
	}
	return r, nil
}

// Paid returns the sum of all payouts.
func (r Report) Paid() money.Money {
	var total money.Money
	for _, e := range r.Entries {
		total += e.Payout
	}
	return total
}

// WinningBets returns the number of bets that won.
func (r Report) WinningBets() int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == model.BetWon {
			n++
		}
	}
	return n
}

// Winners totals payouts per user in order of each user's first winning bet.
func (r Report) Winners() []UserPayout {
	var out []UserPayout
	index := make(map[string]int)
	for _, e := range r.Entries {
		if e.Status != model.BetWon {
			continue
		}
		i, ok := index[e.UserID]
		if !ok {
			i = len(out)
			index[e.UserID] = i
			out = append(out, UserPayout{UserID: e.UserID})
		}
		out[i].Staked += e.Amount
		out[i].Payout += e.Payout
	}
	return out
}

// Apply copies each entry's status and payout onto the matching bet. bets
// must be the snapshot the report was calculated from.
func (r Report) Apply(bets []model.Bet) ([]model.Bet, error) {
	if len(bets) != len(r.Entries) {
		return nil, fmt.Errorf("%w: %d bets, %d entries", ErrSnapshotMismatch, len(bets), len(r.Entries))
	}
	out := make([]model.Bet, len(bets))
	for i, b := range bets {
		if b.ID != r.Entries[i].BetID {
			return nil, fmt.Errorf("%w: bet %s at entry %s", ErrSnapshotMismatch, b.ID, r.Entries[i].BetID)
		}
		b.Status = r.Entries[i].Status
		b.Payout = r.Entries[i].Payout
		out[i] = b
	}
	return out, nil
}

// Potential returns what bet would pay if its answer turned out correct,
// given the pool in bets. A bet not yet in bets is counted as if placed.
func Potential(qtype model.QuestionType, bets []model.Bet, bet model.Bet) (money.Money, error) {
	pool := bets
	found := false
	for _, b := range bets {
		if b.ID == bet.ID {
			found = true
			break
		}
	}
	if !found {
		pool = append(append(make([]model.Bet, 0, len(bets)+1), bets...), bet)
	}
	r, err := Calculate(bet.QuestionID, qtype, pool, bet.Answer)
	if err != nil {
		return 0, err
	}
	for _, e := range r.Entries {
		if e.BetID == bet.ID {
			return e.Payout, nil
		}
	}
	return 0, nil
}
