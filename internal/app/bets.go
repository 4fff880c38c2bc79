package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/betpool/internal/domain/ledger"
	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/payout"
	"github.com/okian/betpool/internal/domain/question"
	"github.com/okian/betpool/internal/domain/types"
	"github.com/okian/betpool/pkg/logger"
	"github.com/okian/betpool/pkg/metrics"
)

// UserBet is a bet with the context needed to show it on its own.
type UserBet struct {
	model.Bet
	EventTitle     string               `json:"event_title"`
	QuestionText   string               `json:"question_text"`
	QuestionStatus model.QuestionStatus `json:"question_status"`
	// PotentialPayout is what a pending bet would pay if its answer won,
	// given the pool at the time of the read.
	PotentialPayout money.Money `json:"potential_payout_cents,omitempty"`
}

// PlaceBet accepts a stake on a question once the question's state, the
// event's bounds and the answer rules all allow it. The bet is durable
// before it is returned.
func (s *Service) PlaceBet(ctx context.Context, eventID, questionID, userID, answer string, amount money.Money) (model.Bet, error) {
	const op = "service.place_bet"

	bet, err := s.placeBet(ctx, op, eventID, questionID, userID, answer, amount)
	if err != nil {
		if kind := types.KindOf(err); kind != "" {
			metrics.RecordBetRejected(string(kind))
			s.logger.Debug(ctx, "bet rejected",
				logger.String("question_id", questionID),
				logger.String("user_id", userID),
				logger.String("kind", string(kind)),
			)
		} else {
			s.logger.Error(ctx, "bet failed",
				logger.String("question_id", questionID),
				logger.String("user_id", userID),
				logger.Error(err),
			)
		}
		return model.Bet{}, err
	}
	return bet, nil
}

func (s *Service) placeBet(ctx context.Context, op, eventID, questionID, userID, answer string, amount money.Money) (model.Bet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Bet{}, types.New(types.KindInvalidRequest, op, "user_id is required").WithField("user_id", "")
	}
	es, err := s.lookupEvent(op, eventID)
	if err != nil {
		return model.Bet{}, err
	}
	qs, err := s.lookupQuestion(op, questionID)
	if err != nil {
		return model.Bet{}, err
	}

	bet, err := s.appendBet(ctx, es, qs, ledger.Placement{
		ID:      uuid.NewString(),
		EventID: eventID,
		UserID:  userID,
		Answer:  answer,
		Amount:  amount,
	})
	if err != nil {
		return model.Bet{}, err
	}

	es.mu.Lock()
	if err := s.addParticipantLocked(ctx, es, userID); err != nil {
		s.logger.Warn(ctx, "bet accepted but participant not recorded",
			logger.String("event_id", eventID),
			logger.String("user_id", userID),
			logger.Error(err),
		)
	}
	es.mu.Unlock()

	metrics.RecordBetPlaced(bet.Amount.Cents())
	s.logger.Info(ctx, "bet placed",
		logger.String("bet_id", bet.ID),
		logger.String("question_id", bet.QuestionID),
		logger.String("user_id", bet.UserID),
		logger.Int64("amount_cents", bet.Amount.Cents()),
	)
	return bet, nil
}

// appendBet runs the question's critical section for one placement.
func (s *Service) appendBet(ctx context.Context, es *eventState, qs *questionState, p ledger.Placement) (model.Bet, error) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	if qs.q.EventID != p.EventID {
		return model.Bet{}, types.New(types.KindNotFound, "service.place_bet",
			"question "+qs.q.ID+" is not part of event "+p.EventID).WithField("question_id", "")
	}

	p.At = s.clock.Now()
	question.Apply(&qs.q, p.At)
	bet, err := qs.ledger.Check(&qs.q, es.bounds, p)
	if err != nil {
		return model.Bet{}, err
	}
	if err := s.persist("append_bet", func() error { return s.store.AppendBet(ctx, bet) }); err != nil {
		return model.Bet{}, err
	}
	if err := qs.ledger.Append(bet); err != nil {
		return model.Bet{}, fmt.Errorf("commit bet %s: %w", bet.ID, err)
	}

	s.emit(ctx, model.MessageBetPlaced, bet.QuestionID, bet)
	return bet, nil
}

// PlaceBetOnce is PlaceBet guarded by an idempotency key. A key already
// used for an accepted bet fails with a Duplicate error carrying that bet's
// id as its bound; a key still in flight fails with a Duplicate error and no
// bound. A failed placement releases the key.
func (s *Service) PlaceBetOnce(ctx context.Context, key, eventID, questionID, userID, answer string, amount money.Money) (model.Bet, error) {
	const op = "service.place_bet_once"

	key = strings.TrimSpace(key)
	if key == "" {
		return s.PlaceBet(ctx, eventID, questionID, userID, answer, amount)
	}

	betID, seen, err := s.deduper.SeenAndRecord(ctx, key)
	if err != nil {
		return model.Bet{}, fmt.Errorf("idempotency check: %w", err)
	}
	if seen {
		metrics.RecordIdempotentReplay()
		if betID == "" {
			return model.Bet{}, types.New(types.KindDuplicate, op, "a request with this idempotency key is in progress").
				WithField("idempotency_key", "")
		}
		return model.Bet{}, types.New(types.KindDuplicate, op, "idempotency key already used for bet "+betID).
			WithField("idempotency_key", betID)
	}

	bet, err := s.PlaceBet(ctx, eventID, questionID, userID, answer, amount)
	if err != nil {
		if uerr := s.deduper.Unrecord(ctx, key); uerr != nil {
			s.logger.Warn(ctx, "failed to release idempotency key", logger.String("key", key), logger.Error(uerr))
		}
		return model.Bet{}, err
	}
	if err := s.deduper.Record(ctx, key, bet.ID); err != nil {
		s.logger.Warn(ctx, "failed to record idempotency key", logger.String("key", key), logger.Error(err))
	}
	return bet, nil
}

// UserBets returns every bet userID placed, in event creation order then
// placement order.
func (s *Service) UserBets(ctx context.Context, userID string) ([]UserBet, error) {
	now := s.clock.Now()
	var out []UserBet

	for _, es := range s.eventStates() {
		ev := s.eventCopy(es)
		for _, qid := range ev.QuestionIDs {
			qs, err := s.lookupQuestion("service.user_bets", qid)
			if err != nil {
				continue
			}

			qs.mu.Lock()
			question.Apply(&qs.q, now)
			q := qs.q.Clone()
			mine := qs.ledger.ByUser(userID)
			var pool []model.Bet
			if len(mine) > 0 {
				pool = qs.ledger.Snapshot()
			}
			qs.mu.Unlock()

			for _, b := range mine {
				ub := UserBet{Bet: b, EventTitle: ev.Title, QuestionText: q.Text, QuestionStatus: q.Status}
				if b.Status == model.BetPending {
					if potential, err := payout.Potential(q.Type, pool, b); err == nil {
						ub.PotentialPayout = potential
					}
				}
				out = append(out, ub)
			}
		}
	}

	s.logger.Debug(ctx, "user bets listed", logger.String("user_id", userID), logger.Int("bets", len(out)))
	return out, nil
}
