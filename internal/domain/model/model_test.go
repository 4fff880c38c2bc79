package model_test

import (
	"testing"

	model "github.com/okian/betpool/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestQuestionType(t *testing.T) {
	convey.Convey("Given question types", t, func() {
		convey.So(model.TypeYesNo.Valid(), convey.ShouldBeTrue)
		convey.So(model.TypeMultipleChoice.Valid(), convey.ShouldBeTrue)
		convey.So(model.TypeNumeric.Valid(), convey.ShouldBeTrue)
		convey.So(model.TypeFreeText.Valid(), convey.ShouldBeTrue)
		convey.So(model.QuestionType("ranking").Valid(), convey.ShouldBeFalse)
		convey.So(model.QuestionType("").Valid(), convey.ShouldBeFalse)
	})
}

func TestStatuses(t *testing.T) {
	convey.Convey("Given question statuses", t, func() {
		convey.So(model.QuestionOpen.Terminal(), convey.ShouldBeFalse)
		convey.So(model.QuestionLocked.Terminal(), convey.ShouldBeFalse)
		convey.So(model.QuestionResolved.Terminal(), convey.ShouldBeTrue)
		convey.So(model.QuestionVoided.Terminal(), convey.ShouldBeTrue)
	})

	convey.Convey("Given bet statuses", t, func() {
		convey.So(model.BetWon.Decided(), convey.ShouldBeTrue)
		convey.So(model.BetLost.Decided(), convey.ShouldBeTrue)
		convey.So(model.BetPending.Decided(), convey.ShouldBeFalse)
		convey.So(model.BetVoided.Decided(), convey.ShouldBeFalse)
	})
}

func TestClone(t *testing.T) {
	convey.Convey("Given an event with participants", t, func() {
		e := model.Event{ID: "e1", QuestionIDs: []string{"q1"}, Participants: []string{"alice"}}

		convey.Convey("When the clone is modified", func() {
			c := e.Clone()
			c.Participants[0] = "mallory"
			c.QuestionIDs = append(c.QuestionIDs, "q2")

			convey.Convey("Then the original is untouched", func() {
				convey.So(e.Participants[0], convey.ShouldEqual, "alice")
				convey.So(e.QuestionIDs, convey.ShouldHaveLength, 1)
				convey.So(e.HasParticipant("alice"), convey.ShouldBeTrue)
				convey.So(e.HasParticipant("mallory"), convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given a multiple choice question", t, func() {
		q := model.Question{ID: "q1", Options: []string{"a", "b"}}
		c := q.Clone()
		c.Options[0] = "z"
		convey.So(q.Options[0], convey.ShouldEqual, "a")
	})
}
