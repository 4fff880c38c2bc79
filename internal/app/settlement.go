package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/payout"
	"github.com/okian/betpool/internal/domain/question"
	"github.com/okian/betpool/pkg/logger"
	"github.com/okian/betpool/pkg/metrics"
)

// LockQuestion closes a question to new bets ahead of its cutoff. Locking a
// question that is already locked is a no-op.
func (s *Service) LockQuestion(ctx context.Context, questionID string) (model.Question, error) {
	qs, err := s.lookupQuestion("service.lock_question", questionID)
	if err != nil {
		return model.Question{}, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	before := qs.q.Status
	next := qs.q.Clone()
	if err := question.Lock(&next, s.clock.Now()); err != nil {
		return model.Question{}, err
	}
	if before == model.QuestionLocked {
		return next, nil
	}

	if err := s.persist("save_question_status", func() error { return s.store.SaveQuestionStatus(ctx, next) }); err != nil {
		return model.Question{}, err
	}
	qs.q = next

	s.logger.Info(ctx, "question locked", logger.String("question_id", questionID))
	s.emit(ctx, model.MessageQuestionLocked, questionID, next)
	return next.Clone(), nil
}

// ResolveQuestion declares the correct answer and settles every bet. The
// settlement is computed on a copy and stored in one write; memory changes
// only after the write succeeded.
func (s *Service) ResolveQuestion(ctx context.Context, questionID, answer string) (payout.Report, error) {
	start := time.Now()

	qs, err := s.lookupQuestion("service.resolve_question", questionID)
	if err != nil {
		return payout.Report{}, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	now := s.clock.Now()
	next := qs.q.Clone()
	if err := question.Resolve(&next, answer, now); err != nil {
		return payout.Report{}, err
	}

	snapshot := qs.ledger.Snapshot()
	report, err := payout.Calculate(next.ID, next.Type, snapshot, next.CorrectAnswer)
	if err != nil {
		return payout.Report{}, fmt.Errorf("calculate payouts for %s: %w", questionID, err)
	}
	report.ResolvedAt = now

	settled, err := report.Apply(snapshot)
	if err != nil {
		return payout.Report{}, fmt.Errorf("apply payouts for %s: %w", questionID, err)
	}
	if err := s.persist("save_settlement", func() error { return s.store.SaveSettlement(ctx, next, settled) }); err != nil {
		return payout.Report{}, err
	}
	if err := qs.ledger.Settle(settled); err != nil {
		s.logger.Error(ctx, "settlement stored but not applied in memory",
			logger.String("question_id", questionID),
			logger.Error(err),
		)
		return payout.Report{}, fmt.Errorf("commit settlement for %s: %w", questionID, err)
	}
	qs.q = next

	latency := float64(time.Since(start).Nanoseconds()) / 1e6
	metrics.RecordResolution(report.Paid().Cents(), report.Residue.Cents(), report.Unclaimed.Cents(), latency)
	s.logger.Info(ctx, "question resolved",
		logger.String("question_id", questionID),
		logger.String("answer", next.CorrectAnswer),
		logger.Int("bets", len(settled)),
		logger.Int("winning_bets", report.WinningBets()),
		logger.Int64("pool_cents", report.TotalPool.Cents()),
		logger.Int64("residue_cents", report.Residue.Cents()),
		logger.Int64("unclaimed_cents", report.Unclaimed.Cents()),
	)
	s.emit(ctx, model.MessageQuestionResolved, questionID, report)

	return report, nil
}

// VoidQuestion cancels a question and marks every bet voided. Stakes are
// reported as refundable.
func (s *Service) VoidQuestion(ctx context.Context, questionID string) (payout.VoidReport, error) {
	start := time.Now()

	qs, err := s.lookupQuestion("service.void_question", questionID)
	if err != nil {
		return payout.VoidReport{}, err
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	now := s.clock.Now()
	next := qs.q.Clone()
	if err := question.Void(&next, now); err != nil {
		return payout.VoidReport{}, err
	}

	report := payout.Refunds(questionID, qs.ledger.Snapshot())
	report.VoidedAt = now
	voided := qs.ledger.Voided()

	if err := s.persist("save_settlement", func() error { return s.store.SaveSettlement(ctx, next, voided) }); err != nil {
		return payout.VoidReport{}, err
	}
	if err := qs.ledger.Settle(voided); err != nil {
		s.logger.Error(ctx, "void stored but not applied in memory",
			logger.String("question_id", questionID),
			logger.Error(err),
		)
		return payout.VoidReport{}, fmt.Errorf("commit void for %s: %w", questionID, err)
	}
	qs.q = next

	metrics.RecordVoid(report.Refundable.Cents(), float64(time.Since(start).Nanoseconds())/1e6)
	s.logger.Info(ctx, "question voided",
		logger.String("question_id", questionID),
		logger.Int("bets", len(voided)),
		logger.Int64("refundable_cents", report.Refundable.Cents()),
	)
	s.emit(ctx, model.MessageQuestionVoided, questionID, report)

	return report, nil
}
