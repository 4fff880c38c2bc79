package dedupe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/betpool/internal/domain/clock"
	dedupe "github.com/okian/betpool/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a key is new", func() {
			value, seen, err := d.SeenAndRecord(ctx, "key-1")

			Convey("Then it is claimed", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldBeFalse)
				So(value, ShouldBeEmpty)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And it is seen again while in flight", func() {
				value, seen, err := d.SeenAndRecord(ctx, "key-1")
				So(err, ShouldBeNil)
				So(seen, ShouldBeTrue)
				So(value, ShouldBeEmpty)
			})

			Convey("And its result is recorded", func() {
				So(d.Record(ctx, "key-1", "bet-42"), ShouldBeNil)
				value, seen, _ := d.SeenAndRecord(ctx, "key-1")
				So(seen, ShouldBeTrue)
				So(value, ShouldEqual, "bet-42")
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And it is unrecorded", func() {
				So(d.Unrecord(ctx, "key-1"), ShouldBeNil)
				So(d.Size(), ShouldEqual, 0)
				_, seen, _ := d.SeenAndRecord(ctx, "key-1")
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When recording an unknown key", func() {
			So(errors.Is(d.Record(ctx, "nope", "x"), dedupe.ErrUnknownKey), ShouldBeTrue)
		})

		Convey("When unrecording an unknown key", func() {
			So(d.Unrecord(ctx, "nope"), ShouldBeNil)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		_, _, _ = d.SeenAndRecord(ctx, "a")
		_, _, _ = d.SeenAndRecord(ctx, "b")
		_, _, _ = d.SeenAndRecord(ctx, "c")

		Convey("Then the oldest key is evicted", func() {
			So(d.Size(), ShouldEqual, 2)
			_, seenC, _ := d.SeenAndRecord(ctx, "c")
			So(seenC, ShouldBeTrue)
			_, seenA, _ := d.SeenAndRecord(ctx, "a")
			So(seenA, ShouldBeFalse)
		})
	})

	Convey("Given a deduper with a TTL", t, func() {
		clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		d := dedupe.NewInMemoryDeduper(dedupe.WithTTL(time.Minute), dedupe.WithClock(clk))
		_, _, _ = d.SeenAndRecord(ctx, "a")

		Convey("Then keys are remembered inside the TTL", func() {
			clk.Advance(59 * time.Second)
			_, seen, _ := d.SeenAndRecord(ctx, "a")
			So(seen, ShouldBeTrue)
		})

		Convey("Then keys are forgotten after the TTL", func() {
			clk.Advance(time.Minute)
			_, seen, _ := d.SeenAndRecord(ctx, "a")
			So(seen, ShouldBeFalse)
			So(d.Size(), ShouldEqual, 1)
		})
	})

	Convey("Given concurrent claims on one key", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		var wg sync.WaitGroup
		var mu sync.Mutex
		claims := 0

		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, seen, _ := d.SeenAndRecord(ctx, "shared"); !seen {
					mu.Lock()
					claims++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one caller wins", func() {
			So(claims, ShouldEqual, 1)
		})
	})
}
