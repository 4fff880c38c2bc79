package testevents_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/betpool/internal/adapters/http/api"
	"github.com/okian/betpool/internal/adapters/mq/publisher"
	service "github.com/okian/betpool/internal/app"
	"github.com/okian/betpool/internal/testevents"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	svc := service.New(service.WithPublisher(publisher.Discard{}))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running betpool service", t, func() {
		srv := newBackend(t)
		out := filepath.Join(t.TempDir(), "bets", "generated.json")

		cfg := &testevents.Config{
			BaseURL:     srv.URL,
			NumUsers:    5,
			NumBets:     40,
			Workers:     4,
			Timeout:     5 * time.Second,
			MinBetCents: 500,
			MaxBetCents: 2_000,
			OutputFile:  out,
		}

		convey.Convey("When a load run completes", func() {
			stats, err := testevents.Run(context.Background(), cfg)

			convey.Convey("Then the pool settles and every count adds up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.BetsGenerated, convey.ShouldEqual, 40)
				convey.So(stats.BetsSubmitted, convey.ShouldEqual, 40)
				convey.So(stats.BetsRejected, convey.ShouldEqual, 40/testevents.InvalidEvery)
				convey.So(stats.BetsAccepted, convey.ShouldEqual, 40-40/testevents.InvalidEvery)
				convey.So(stats.BetsFailed, convey.ShouldEqual, 0)
				convey.So(stats.Replays, convey.ShouldEqual, testevents.MaxReplays)
				convey.So(stats.ReplaysRejected, convey.ShouldEqual, testevents.MaxReplays)
				convey.So(stats.UsersChecked, convey.ShouldEqual, 5)
			})

			convey.Convey("And the generated bets are written to the output file", func() {
				data, err := os.ReadFile(out)
				convey.So(err, convey.ShouldBeNil)
				var bets []testevents.Bet
				convey.So(json.Unmarshal(data, &bets), convey.ShouldBeNil)
				convey.So(len(bets), convey.ShouldEqual, 40)
			})
		})
	})
}

func TestParseStake(t *testing.T) {
	convey.Convey("Given stake flags in dollars", t, func() {
		for _, tc := range []struct {
			in   string
			want int64
		}{{"5", 500}, {"5.5", 550}, {"$100.00", 10_000}, {" 0.99 ", 99}} {
			got, err := testevents.ParseStake(tc.in)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, tc.want)
		}

		convey.Convey("Then malformed and non-positive amounts are refused", func() {
			for _, bad := range []string{"", "five", "5.001", "0", "-5"} {
				_, err := testevents.ParseStake(bad)
				convey.So(err, convey.ShouldNotBeNil)
			}
		})
	})
}

func TestRunValidation(t *testing.T) {
	convey.Convey("Given invalid run settings", t, func() {
		base := testevents.Config{
			BaseURL:     "http://localhost:1",
			NumUsers:    1,
			NumBets:     1,
			Workers:     1,
			MinBetCents: 500,
			MaxBetCents: 1_000,
		}

		cases := []struct {
			name   string
			mutate func(*testevents.Config)
		}{
			{"no url", func(c *testevents.Config) { c.BaseURL = "" }},
			{"no workers", func(c *testevents.Config) { c.Workers = 0 }},
			{"a tiny minimum", func(c *testevents.Config) { c.MinBetCents = 50 }},
			{"no whole dollar", func(c *testevents.Config) { c.MinBetCents, c.MaxBetCents = 501, 599 }},
		}
		for _, tc := range cases {
			convey.Convey("When there is "+tc.name+" the run is refused", func() {
				cfg := base
				tc.mutate(&cfg)
				_, err := testevents.Run(context.Background(), &cfg)
				convey.So(err, convey.ShouldNotBeNil)
			})
		}
	})

	convey.Convey("Given an unreachable service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		cfg := &testevents.Config{BaseURL: srv.URL, NumUsers: 1, NumBets: 1, Workers: 1, Timeout: time.Second, MinBetCents: 500, MaxBetCents: 1_000}
		_, err := testevents.Run(context.Background(), cfg)

		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "health check")
	})
}
