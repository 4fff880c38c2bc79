package stats

import (
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/question"
)

// QuestionSummary is one question's pool at a point in time.
type QuestionSummary struct {
	QuestionID    string                 `json:"question_id"`
	Text          string                 `json:"text"`
	Type          model.QuestionType     `json:"type"`
	Status        model.QuestionStatus   `json:"status"`
	CorrectAnswer string                 `json:"correct_answer,omitempty"`
	Bets          int                    `json:"bets"`
	Pool          money.Money            `json:"pool_cents"`
	PoolByAnswer  map[string]money.Money `json:"pool_by_answer_cents"`
}

// EventSummary is an event-level rollup.
type EventSummary struct {
	EventID      string            `json:"event_id"`
	Title        string            `json:"title"`
	Code         string            `json:"event_code"`
	Status       model.EventStatus `json:"status"`
	Participants int               `json:"participants"`
	TotalBets    int               `json:"total_bets"`
	TotalPool    money.Money       `json:"total_pool_cents"`
	Questions    []QuestionSummary `json:"questions"`
}

// ForEvent summarizes v at now. Pools exclude voided bets.
func ForEvent(v model.EventView, now time.Time) EventSummary {
	s := EventSummary{
		EventID:      v.Event.ID,
		Title:        v.Event.Title,
		Code:         v.Event.Code,
		Status:       Status(v, now),
		Participants: len(v.Event.Participants),
		Questions:    make([]QuestionSummary, 0, len(v.Questions)),
	}
	for i := range v.Questions {
		qv := &v.Questions[i]
		qs := QuestionSummary{
			QuestionID:    qv.Question.ID,
			Text:          qv.Question.Text,
			Type:          qv.Question.Type,
			Status:        question.Reconcile(&qv.Question, now),
			CorrectAnswer: qv.Question.CorrectAnswer,
			Bets:          len(qv.Bets),
			PoolByAnswer:  make(map[string]money.Money),
		}
		for _, b := range qv.Bets {
			if b.Status == model.BetVoided {
				continue
			}
			qs.Pool += b.Amount
			qs.PoolByAnswer[answerKey(qs.PoolByAnswer, qv.Question.Type, b.Answer)] += b.Amount
		}
		s.TotalBets += qs.Bets
		s.TotalPool += qs.Pool
		s.Questions = append(s.Questions, qs)
	}
	return s
}

// answerKey returns the existing pool key equal to answer, so "3" and "3.0"
// share a bucket, or answer itself.
func answerKey(pools map[string]money.Money, qtype model.QuestionType, answer string) string {
	if _, ok := pools[answer]; ok {
		return answer
	}
	for k := range pools {
		if question.Equal(qtype, k, answer) {
			return k
		}
	}
	return answer
}
