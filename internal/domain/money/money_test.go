package money_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/betpool/internal/domain/money"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given decimal amount strings", t, func() {
		cases := map[string]money.Money{
			"12":      1200,
			"12.5":    1250,
			"12.05":   1205,
			"$100":    10000,
			" 0.99 ":  99,
			".75":     75,
			"-3.07":   -307,
			"-$0.05":  -5,
			"0":       0,
			"1000000": 100_000_000,
		}

		Convey("Then each parses to exact cents", func() {
			for in, want := range cases {
				got, err := money.Parse(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Then malformed inputs are rejected", func() {
			for _, in := range []string{"", "$", "1.234", "1.", "abc", "1,00", "--1", "1e3"} {
				_, err := money.Parse(in)
				So(errors.Is(err, money.ErrParse), ShouldBeTrue)
			}
		})

		Convey("Then amounts past int64 overflow", func() {
			_, err := money.Parse("92233720368547758.08")
			So(errors.Is(err, money.ErrOverflow), ShouldBeTrue)
		})
	})
}

func TestString(t *testing.T) {
	Convey("Given amounts in cents", t, func() {
		So(money.FromCents(1234).String(), ShouldEqual, "$12.34")
		So(money.FromCents(5).String(), ShouldEqual, "$0.05")
		So(money.FromCents(-5).String(), ShouldEqual, "-$0.05")
		So(money.FromDollars(100).String(), ShouldEqual, "$100.00")
		So(money.Money(math.MinInt64).String(), ShouldEqual, "-$92233720368547758.08")
	})
}

func TestArithmetic(t *testing.T) {
	Convey("Given the overflow-checked operations", t, func() {
		Convey("When adding within range", func() {
			sum, err := money.FromDollars(20).Add(money.FromDollars(30))
			So(err, ShouldBeNil)
			So(sum, ShouldEqual, money.FromDollars(50))
		})

		Convey("When adding past MaxInt64", func() {
			_, err := money.Money(math.MaxInt64).Add(1)
			So(errors.Is(err, money.ErrOverflow), ShouldBeTrue)
		})

		Convey("When subtracting past MinInt64", func() {
			_, err := money.Money(math.MinInt64 + 1).Sub(2)
			So(errors.Is(err, money.ErrOverflow), ShouldBeTrue)
		})

		Convey("When subtracting within range", func() {
			d, err := money.Money(6000).Sub(4500)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, money.Money(1500))
		})

		Convey("When MulDiv floors the quotient", func() {
			q, err := money.MulDiv(10, 10, 3)
			So(err, ShouldBeNil)
			So(q, ShouldEqual, money.Money(33))
		})

		Convey("When MulDiv needs more than 64 bits for the product", func() {
			big := money.Money(math.MaxInt64 / 2)
			q, err := money.MulDiv(big, 8, 16)
			So(err, ShouldBeNil)
			So(q, ShouldEqual, big/2)
		})

		Convey("When MulDiv gets a negative operand", func() {
			_, err := money.MulDiv(-1, 2, 3)
			So(errors.Is(err, money.ErrNegative), ShouldBeTrue)
		})
	})
}
