package clock_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/betpool/internal/domain/clock"
)

func TestManual(t *testing.T) {
	Convey("Given a manual clock", t, func() {
		base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
		c := clock.NewManual(base)

		So(c.Now().Equal(base), ShouldBeTrue)

		Convey("Advance moves it forward", func() {
			c.Advance(90 * time.Minute)
			So(c.Now().Equal(base.Add(90*time.Minute)), ShouldBeTrue)
		})

		Convey("Set moves it anywhere", func() {
			earlier := base.Add(-time.Hour)
			c.Set(earlier)
			So(c.Now().Equal(earlier), ShouldBeTrue)
		})
	})
}

func TestSystem(t *testing.T) {
	Convey("The system clock reports UTC", t, func() {
		So(clock.System{}.Now().Location(), ShouldEqual, time.UTC)
	})
}
