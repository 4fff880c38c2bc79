package stats_test

import (
	"testing"
	"time"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

var eventDate = time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

func view(id string, questions ...model.QuestionView) model.EventView {
	return model.EventView{
		Event:     model.Event{ID: id, Title: "Wedding", Code: "WEDDING1", Date: eventDate, Participants: []string{"A", "B"}},
		Questions: questions,
	}
}

func qv(id string, status model.QuestionStatus, bets ...model.Bet) model.QuestionView {
	return model.QuestionView{
		Question: model.Question{ID: id, Type: model.TypeYesNo, Status: status, Cutoff: eventDate.Add(-30 * time.Minute)},
		Bets:     bets,
	}
}

func b(user, answer string, dollars int64, status model.BetStatus, payoutDollars int64) model.Bet {
	return model.Bet{UserID: user, Answer: answer, Amount: money.FromDollars(dollars), Status: status, Payout: money.FromDollars(payoutDollars)}
}

func TestForUser(t *testing.T) {
	Convey("Given a user with no bets", t, func() {
		s := stats.ForUser("nobody", []model.EventView{view("e1", qv("q1", model.QuestionOpen, b("A", "yes", 10, model.BetPending, 0)))})

		Convey("Then every figure is zero and win rate is exactly 0", func() {
			So(s.TotalEvents, ShouldEqual, 0)
			So(s.TotalBets, ShouldEqual, 0)
			So(s.TotalWinnings, ShouldEqual, money.Zero)
			So(s.WinRate, ShouldEqual, 0.0)
		})
	})

	Convey("Given a user with only pending and voided bets", t, func() {
		s := stats.ForUser("A", []model.EventView{view("e1",
			qv("q1", model.QuestionOpen, b("A", "yes", 10, model.BetPending, 0)),
			qv("q2", model.QuestionVoided, b("A", "no", 10, model.BetVoided, 0)),
		)})

		So(s.TotalBets, ShouldEqual, 2)
		So(s.Pending, ShouldEqual, 1)
		So(s.Voided, ShouldEqual, 1)
		So(s.WinRate, ShouldEqual, 0.0)
	})

	Convey("Given a user across two events", t, func() {
		views := []model.EventView{
			view("e1",
				qv("q1", model.QuestionResolved, b("A", "yes", 20, model.BetWon, 40), b("B", "no", 30, model.BetLost, 0)),
				qv("q2", model.QuestionResolved, b("A", "no", 10, model.BetLost, 0)),
			),
			view("e2",
				qv("q3", model.QuestionResolved, b("A", "yes", 15, model.BetWon, 25)),
				qv("q4", model.QuestionOpen, b("A", "yes", 5, model.BetPending, 0)),
			),
			view("e3", qv("q5", model.QuestionOpen, b("B", "yes", 5, model.BetPending, 0))),
		}
		s := stats.ForUser("A", views)

		Convey("Then the rollup counts events, bets and net winnings", func() {
			So(s.TotalEvents, ShouldEqual, 2)
			So(s.TotalBets, ShouldEqual, 4)
			So(s.TotalStaked, ShouldEqual, money.FromDollars(50))
			So(s.TotalWinnings, ShouldEqual, money.FromDollars(30))
			So(s.Won, ShouldEqual, 2)
			So(s.Lost, ShouldEqual, 1)
			So(s.Pending, ShouldEqual, 1)
			So(s.WinRate, ShouldAlmostEqual, 2.0/3.0, 1e-9)
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("Given an event with one open question", t, func() {
		v := view("e1", qv("q1", model.QuestionOpen))

		Convey("Then it is upcoming before its date", func() {
			So(stats.Status(v, eventDate.Add(-time.Hour)), ShouldEqual, model.EventUpcoming)
		})

		Convey("Then it is active once the date passes with the question unanswered", func() {
			So(stats.Status(v, eventDate), ShouldEqual, model.EventActive)
		})
	})

	Convey("Given an event whose questions are all settled", t, func() {
		v := view("e1", qv("q1", model.QuestionResolved), qv("q2", model.QuestionVoided))

		Convey("Then it is still upcoming before its date", func() {
			So(stats.Status(v, eventDate.Add(-time.Minute)), ShouldEqual, model.EventUpcoming)
		})

		Convey("Then it is completed after its date", func() {
			So(stats.Status(v, eventDate.Add(time.Minute)), ShouldEqual, model.EventCompleted)
		})
	})
}

func TestForEvent(t *testing.T) {
	Convey("Given an event with bets on two questions", t, func() {
		v := view("e1",
			qv("q1", model.QuestionOpen,
				b("A", "yes", 20, model.BetPending, 0),
				b("B", "no", 30, model.BetPending, 0),
				b("C", "yes", 10, model.BetPending, 0)),
			qv("q2", model.QuestionVoided, b("A", "no", 10, model.BetVoided, 0)),
		)
		s := stats.ForEvent(v, eventDate.Add(-2*time.Hour))

		Convey("Then pools are split by answer and voided stakes excluded", func() {
			So(s.Status, ShouldEqual, model.EventUpcoming)
			So(s.Participants, ShouldEqual, 2)
			So(s.TotalBets, ShouldEqual, 4)
			So(s.TotalPool, ShouldEqual, money.FromDollars(60))
			So(s.Questions, ShouldHaveLength, 2)
			So(s.Questions[0].PoolByAnswer["yes"], ShouldEqual, money.FromDollars(30))
			So(s.Questions[0].PoolByAnswer["no"], ShouldEqual, money.FromDollars(30))
			So(s.Questions[1].Pool, ShouldEqual, money.Zero)
		})

		Convey("Then question status is reconciled against the clock", func() {
			late := stats.ForEvent(v, eventDate)
			So(late.Questions[0].Status, ShouldEqual, model.QuestionLocked)
		})
	})
}

func TestForEventNumericPools(t *testing.T) {
	Convey("Given numeric bets spelled differently", t, func() {
		q := qv("q1", model.QuestionOpen,
			b("A", "3", 10, model.BetPending, 0),
			b("B", "3.0", 15, model.BetPending, 0),
			b("C", "9007199254740993", 5, model.BetPending, 0),
			b("D", "9007199254740992", 5, model.BetPending, 0))
		q.Question.Type = model.TypeNumeric
		s := stats.ForEvent(view("e1", q), eventDate.Add(-2*time.Hour))

		Convey("Then equal values share a pool and distinct ones do not", func() {
			pools := s.Questions[0].PoolByAnswer
			So(pools, ShouldHaveLength, 3)
			So(pools["3"], ShouldEqual, money.FromDollars(25))
			So(pools["9007199254740993"], ShouldEqual, money.FromDollars(5))
			So(pools["9007199254740992"], ShouldEqual, money.FromDollars(5))
		})
	})
}
