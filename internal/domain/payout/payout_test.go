package payout_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/internal/domain/payout"
	. "github.com/smartystreets/goconvey/convey"
)

func bet(id, user, answer string, dollars int64) model.Bet {
	return model.Bet{ID: id, QuestionID: "q1", UserID: user, Answer: answer, Amount: money.FromDollars(dollars), Status: model.BetPending}
}

func TestCalculate(t *testing.T) {
	Convey("Given A yes $20, B no $30, C yes $10", t, func() {
		bets := []model.Bet{bet("a", "A", "yes", 20), bet("b", "B", "no", 30), bet("c", "C", "yes", 10)}

		Convey("When resolved yes", func() {
			r, err := payout.Calculate("q1", model.TypeYesNo, bets, "yes")
			So(err, ShouldBeNil)

			Convey("Then A gets $40, C gets $20, B loses and nothing is left over", func() {
				So(r.TotalPool, ShouldEqual, money.FromDollars(60))
				So(r.WinningPool, ShouldEqual, money.FromDollars(30))
				So(r.LosingPool, ShouldEqual, money.FromDollars(30))
				So(r.Entries[0].Status, ShouldEqual, model.BetWon)
				So(r.Entries[0].Payout, ShouldEqual, money.FromDollars(40))
				So(r.Entries[1].Status, ShouldEqual, model.BetLost)
				So(r.Entries[1].Payout, ShouldEqual, money.Zero)
				So(r.Entries[2].Status, ShouldEqual, model.BetWon)
				So(r.Entries[2].Payout, ShouldEqual, money.FromDollars(20))
				So(r.Residue, ShouldEqual, money.Zero)
				So(r.Unclaimed, ShouldEqual, money.Zero)
				So(r.Paid(), ShouldEqual, money.FromDollars(60))
				So(r.WinningBets(), ShouldEqual, 2)
			})

			Convey("Then the input snapshot is untouched", func() {
				So(bets[0].Status, ShouldEqual, model.BetPending)
			})
		})

		Convey("When resolved no", func() {
			r, err := payout.Calculate("q1", model.TypeYesNo, bets, "no")
			So(err, ShouldBeNil)
			So(r.Entries[1].Payout, ShouldEqual, money.FromDollars(60))
			So(r.Paid(), ShouldEqual, r.TotalPool)
		})
	})

	Convey("Given shares that do not divide evenly", t, func() {
		bets := []model.Bet{
			{ID: "a", UserID: "A", Answer: "red", Amount: 100, Status: model.BetPending},
			{ID: "b", UserID: "B", Answer: "red", Amount: 100, Status: model.BetPending},
			{ID: "c", UserID: "C", Answer: "red", Amount: 100, Status: model.BetPending},
			{ID: "d", UserID: "D", Answer: "blue", Amount: 100, Status: model.BetPending},
		}

		r, err := payout.Calculate("q1", model.TypeMultipleChoice, bets, "Red")
		So(err, ShouldBeNil)

		Convey("Then each winner floors and the residue is reported", func() {
			for _, e := range r.Entries[:3] {
				So(e.Payout, ShouldEqual, money.Money(133))
			}
			So(r.Residue, ShouldEqual, money.Money(1))
			So(r.Paid()+r.Residue, ShouldEqual, r.TotalPool)
		})
	})

	Convey("Given nobody picked the correct answer", t, func() {
		bets := []model.Bet{bet("a", "A", "yes", 20), bet("b", "B", "yes", 30)}
		r, err := payout.Calculate("q1", model.TypeYesNo, bets, "no")
		So(err, ShouldBeNil)

		Convey("Then every bet is lost and the pool is unclaimed", func() {
			for _, e := range r.Entries {
				So(e.Status, ShouldEqual, model.BetLost)
				So(e.Payout, ShouldEqual, money.Zero)
			}
			So(r.WinningPool, ShouldEqual, money.Zero)
			So(r.Unclaimed, ShouldEqual, money.FromDollars(50))
			So(r.Paid(), ShouldEqual, money.Zero)
			So(r.Winners(), ShouldBeEmpty)
		})
	})

	Convey("Given an empty ledger", t, func() {
		r, err := payout.Calculate("q1", model.TypeYesNo, nil, "yes")
		So(err, ShouldBeNil)
		So(r.TotalPool, ShouldEqual, money.Zero)
		So(r.Unclaimed, ShouldEqual, money.Zero)
		So(r.Entries, ShouldBeEmpty)
	})

	Convey("Given a voided bet in the snapshot", t, func() {
		voided := bet("v", "V", "yes", 50)
		voided.Status = model.BetVoided
		bets := []model.Bet{bet("a", "A", "yes", 20), voided, bet("b", "B", "no", 20)}

		r, err := payout.Calculate("q1", model.TypeYesNo, bets, "yes")
		So(err, ShouldBeNil)
		So(r.TotalPool, ShouldEqual, money.FromDollars(40))
		So(r.Entries[1].Status, ShouldEqual, model.BetVoided)
		So(r.Entries[0].Payout, ShouldEqual, money.FromDollars(40))
	})

	Convey("Given numeric answers in different spellings", t, func() {
		bets := []model.Bet{
			{ID: "a", UserID: "A", Answer: "3", Amount: 500, Status: model.BetPending},
			{ID: "b", UserID: "B", Answer: "4", Amount: 500, Status: model.BetPending},
		}
		r, err := payout.Calculate("q1", model.TypeNumeric, bets, "3.0")
		So(err, ShouldBeNil)
		So(r.Entries[0].Status, ShouldEqual, model.BetWon)
		So(r.Entries[0].Payout, ShouldEqual, money.Money(1000))
	})

	Convey("Given numeric answers that differ past float64 precision", t, func() {
		bets := []model.Bet{
			{ID: "a", UserID: "alice", Answer: "9007199254740993", Amount: 500, Status: model.BetPending},
			{ID: "b", UserID: "bob", Answer: "9007199254740992", Amount: 500, Status: model.BetPending},
		}
		r, err := payout.Calculate("q1", model.TypeNumeric, bets, "9007199254740992")
		So(err, ShouldBeNil)
		So(r.Entries[0].Status, ShouldEqual, model.BetLost)
		So(r.Entries[0].Payout, ShouldEqual, money.Money(0))
		So(r.Entries[1].Status, ShouldEqual, model.BetWon)
		So(r.Entries[1].Payout, ShouldEqual, money.Money(1000))
	})

	Convey("Given stakes whose product overflows 64 bits", t, func() {
		huge := money.Money(1 << 61)
		bets := []model.Bet{
			{ID: "a", UserID: "A", Answer: "yes", Amount: huge, Status: model.BetPending},
			{ID: "b", UserID: "B", Answer: "no", Amount: huge, Status: model.BetPending},
		}
		r, err := payout.Calculate("q1", model.TypeYesNo, bets, "yes")
		So(err, ShouldBeNil)
		So(r.Entries[0].Payout, ShouldEqual, 2*huge)
	})

	Convey("Given a pool that overflows int64", t, func() {
		huge := money.Money(1 << 62)
		bets := []model.Bet{
			{ID: "a", Answer: "yes", Amount: huge, Status: model.BetPending},
			{ID: "b", Answer: "no", Amount: huge, Status: model.BetPending},
		}
		_, err := payout.Calculate("q1", model.TypeYesNo, bets, "yes")
		So(errors.Is(err, money.ErrOverflow), ShouldBeTrue)
	})
}

func TestConservation(t *testing.T) {
	Convey("Given randomly generated ledgers", t, func() {
		rng := rand.New(rand.NewSource(7))
		answers := []string{"a", "b", "c"}

		for round := 0; round < 200; round++ {
			n := 1 + rng.Intn(25)
			bets := make([]model.Bet, n)
			for i := range bets {
				bets[i] = model.Bet{
					ID:     fmt.Sprintf("b%d", i),
					UserID: fmt.Sprintf("u%d", rng.Intn(5)),
					Answer: answers[rng.Intn(len(answers))],
					Amount: money.Money(500 + rng.Int63n(9501)),
					Status: model.BetPending,
				}
			}
			correct := answers[rng.Intn(len(answers))]

			r, err := payout.Calculate("q1", model.TypeMultipleChoice, bets, correct)
			So(err, ShouldBeNil)

			if r.WinningPool == 0 {
				So(r.Paid(), ShouldEqual, money.Zero)
				So(r.Unclaimed, ShouldEqual, r.TotalPool)
				continue
			}
			So(r.Paid()+r.Residue, ShouldEqual, r.TotalPool)
			So(r.Residue >= 0, ShouldBeTrue)
			So(int(r.Residue), ShouldBeLessThan, r.WinningBets())

			again, err := payout.Calculate("q1", model.TypeMultipleChoice, bets, correct)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, r)
		}
	})
}

func TestReportHelpers(t *testing.T) {
	Convey("Given a report where one user won twice", t, func() {
		bets := []model.Bet{bet("a1", "A", "yes", 20), bet("b", "B", "no", 30), bet("a2", "A", "yes", 10)}
		r, err := payout.Calculate("q1", model.TypeYesNo, bets, "yes")
		So(err, ShouldBeNil)

		Convey("Then winners are totalled per user", func() {
			w := r.Winners()
			So(w, ShouldHaveLength, 1)
			So(w[0].UserID, ShouldEqual, "A")
			So(w[0].Staked, ShouldEqual, money.FromDollars(30))
			So(w[0].Payout, ShouldEqual, money.FromDollars(60))
		})

		Convey("Then Apply writes outcomes onto the snapshot", func() {
			settled, err := r.Apply(bets)
			So(err, ShouldBeNil)
			So(settled[0].Status, ShouldEqual, model.BetWon)
			So(settled[0].Payout, ShouldEqual, money.FromDollars(40))
			So(settled[1].Status, ShouldEqual, model.BetLost)
			So(bets[0].Status, ShouldEqual, model.BetPending)
		})

		Convey("Then Apply refuses a different snapshot", func() {
			_, err := r.Apply(bets[:2])
			So(errors.Is(err, payout.ErrSnapshotMismatch), ShouldBeTrue)

			swapped := []model.Bet{bets[1], bets[0], bets[2]}
			_, err = r.Apply(swapped)
			So(errors.Is(err, payout.ErrSnapshotMismatch), ShouldBeTrue)
		})
	})
}

func TestPotential(t *testing.T) {
	Convey("Given the A/B/C pool", t, func() {
		bets := []model.Bet{bet("a", "A", "yes", 20), bet("b", "B", "no", 30), bet("c", "C", "yes", 10)}

		Convey("Then an existing bet's potential matches its payout if right", func() {
			p, err := payout.Potential(model.TypeYesNo, bets, bets[0])
			So(err, ShouldBeNil)
			So(p, ShouldEqual, money.FromDollars(40))

			p, err = payout.Potential(model.TypeYesNo, bets, bets[1])
			So(err, ShouldBeNil)
			So(p, ShouldEqual, money.FromDollars(60))
		})

		Convey("Then a prospective bet is counted in the pool", func() {
			p, err := payout.Potential(model.TypeYesNo, bets, bet("d", "D", "no", 30))
			So(err, ShouldBeNil)
			So(p, ShouldEqual, money.FromDollars(45))
			So(bets, ShouldHaveLength, 3)
		})
	})
}

func TestRefunds(t *testing.T) {
	Convey("Given bets on a voided question", t, func() {
		bets := []model.Bet{bet("a", "A", "yes", 20), bet("b", "B", "no", 30)}
		r := payout.Refunds("q1", bets)

		So(r.QuestionID, ShouldEqual, "q1")
		So(r.Refundable, ShouldEqual, money.FromDollars(50))
		So(r.Refunds, ShouldHaveLength, 2)
		So(r.Refunds[1].UserID, ShouldEqual, "B")
		So(r.Refunds[1].Amount, ShouldEqual, money.FromDollars(30))
	})

	Convey("Given no bets", t, func() {
		r := payout.Refunds("q1", nil)
		So(r.Refundable, ShouldEqual, money.Zero)
		So(r.Refunds, ShouldBeEmpty)
	})
}
