// Package question implements the question lifecycle:
//
//	open -> locked -> resolved
//	open -> locked -> voided
//	open -> voided
//
// Locking is lazy. Nothing schedules it; every operation first reconciles
// the stored status against the clock, so an open question whose cutoff
// has passed behaves as locked from that instant on.
//
// The functions here mutate the *model.Question they are handed and are not
// safe for concurrent use; callers serialize access per question.
package question

import (
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/types"
)

// Reconcile returns the status q has at now without modifying it.
func Reconcile(q *model.Question, now time.Time) model.QuestionStatus {
	if q.Status == model.QuestionOpen && !now.Before(q.Cutoff) {
		return model.QuestionLocked
	}
	return q.Status
}

// Apply stores the reconciled status and returns it.
func Apply(q *model.Question, now time.Time) model.QuestionStatus {
	q.Status = Reconcile(q, now)
	return q.Status
}

// AcceptsBets returns QuestionClosed unless q is open at now.
func AcceptsBets(q *model.Question, now time.Time) error {
	const op = "question.accepts_bets"
	switch Apply(q, now) {
	case model.QuestionOpen:
		return nil
	case model.QuestionLocked:
		if !now.Before(q.Cutoff) {
			return types.New(types.KindQuestionClosed, op, "betting closed at cutoff").
				WithField("cutoff_time", q.Cutoff.UTC().Format(time.RFC3339))
		}
		return types.New(types.KindQuestionClosed, op, "question is locked").WithField("status", string(q.Status))
	default:
		return types.New(types.KindQuestionClosed, op, "question is "+string(q.Status)).WithField("status", string(q.Status))
	}
}

// Lock closes q to new bets. Locking a locked question is a no-op.
func Lock(q *model.Question, now time.Time) error {
	if err := ensureLive(q, now, "question.lock"); err != nil {
		return err
	}
	q.Status = model.QuestionLocked
	return nil
}

// Resolve declares the correct answer. An open question is locked first.
// On error q is left as it was apart from lazy reconciliation.
func Resolve(q *model.Question, answer string, now time.Time) error {
	if err := ensureLive(q, now, "question.resolve"); err != nil {
		return err
	}
	canonical, err := Normalize(q.Type, q.Options, answer)
	if err != nil {
		return err
	}
	q.Status = model.QuestionResolved
	q.CorrectAnswer = canonical
	q.ResolvedAt = now
	return nil
}

// Void cancels q from any non-terminal state.
func Void(q *model.Question, now time.Time) error {
	if err := ensureLive(q, now, "question.void"); err != nil {
		return err
	}
	q.Status = model.QuestionVoided
	q.CorrectAnswer = ""
	q.ResolvedAt = now
	return nil
}

func ensureLive(q *model.Question, now time.Time, op string) error {
	if status := Apply(q, now); status.Terminal() {
		return types.New(types.KindAlreadyResolved, op, "question is already "+string(status)).
			WithField("status", string(status))
	}
	return nil
}
