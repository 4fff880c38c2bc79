// Package stats derives read-only rollups from events, questions and bets.
//
// Nothing here is stored. Every figure is recomputed from the ledger on
// each call so it can never drift from the bets it summarizes.
package stats

import (
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/question"
)

// EventStats summarizes one user's betting history.
type EventStats struct {
	UserID        string      `json:"user_id"`
	TotalEvents   int         `json:"total_events"`
	TotalBets     int         `json:"total_bets"`
	TotalWinnings money.Money `json:"total_winnings_cents"`
	WinRate       float64     `json:"win_rate"`
	TotalStaked   money.Money `json:"total_staked_cents"`
	Won           int         `json:"won"`
	Lost          int         `json:"lost"`
	Pending       int         `json:"pending"`
	Voided        int         `json:"voided"`
}

// ForUser aggregates userID's bets across views. TotalEvents counts events
// with at least one of the user's bets; TotalWinnings is the net gain
// (payout minus stake) over won bets; WinRate is won/(won+lost), 0 when the
// user has no decided bets.
func ForUser(userID string, views []model.EventView) EventStats {
	s := EventStats{UserID: userID}
	for _, v := range views {
		betOnEvent := false
		for _, qv := range v.Questions {
			for _, b := range qv.Bets {
				if b.UserID != userID {
					continue
				}
				betOnEvent = true
				s.TotalBets++
				s.TotalStaked += b.Amount
				switch b.Status {
				case model.BetWon:
					s.Won++
					s.TotalWinnings += b.Payout - b.Amount
				case model.BetLost:
					s.Lost++
				case model.BetPending:
					s.Pending++
				case model.BetVoided:
					s.Voided++
				}
			}
		}
		if betOnEvent {
			s.TotalEvents++
		}
	}
	if decided := s.Won + s.Lost; decided > 0 {
		s.WinRate = float64(s.Won) / float64(decided)
	}
	return s
}

// Status derives an event's status at now. An event is completed once every
// question is resolved or voided and its date has passed, active once its
// date has passed while any question still awaits an answer, and upcoming
// before its date.
func Status(v model.EventView, now time.Time) model.EventStatus {
	if now.Before(v.Event.Date) {
		return model.EventUpcoming
	}
	for i := range v.Questions {
		if !question.Reconcile(&v.Questions[i].Question, now).Terminal() {
			return model.EventActive
		}
	}
	return model.EventCompleted
}
