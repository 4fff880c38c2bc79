// Package money implements fixed-point currency amounts.
//
// Amounts are integer minor units (cents) of a single currency. Nothing in
// this package converts through binary floating point.
package money

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Currency is the only currency the engine tracks.
const Currency = "USD"

const (
	centsPerUnit   = 100
	fractionDigits = 2
)

// Money is an amount in cents.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromCents builds an amount from minor units.
func FromCents(cents int64) Money { return Money(cents) }

// FromDollars builds an amount from whole major units.
func FromDollars(dollars int64) Money { return Money(dollars * centsPerUnit) }

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return int64(m) }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m < 0 }

// Add returns m+o, failing with ErrOverflow instead of wrapping.
func (m Money) Add(o Money) (Money, error) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, m, o)
	}
	return sum, nil
}

// Sub returns m-o, failing with ErrOverflow instead of wrapping.
func (m Money) Sub(o Money) (Money, error) {
	if o == math.MinInt64 {
		return 0, fmt.Errorf("%w: %d - %d", ErrOverflow, m, o)
	}
	return m.Add(-o)
}

// MulDiv returns floor(a*b/c) for non-negative a, b and positive c. The
// product is computed in 128 bits so it never overflows on the way.
func MulDiv(a, b, c Money) (Money, error) {
	if a < 0 || b < 0 || c <= 0 {
		return 0, fmt.Errorf("%w: muldiv(%d, %d, %d)", ErrNegative, a, b, c)
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(c) {
		return 0, fmt.Errorf("%w: muldiv(%d, %d, %d)", ErrOverflow, a, b, c)
	}
	q, _ := bits.Div64(hi, lo, uint64(c))
	if q > math.MaxInt64 {
		return 0, fmt.Errorf("%w: muldiv(%d, %d, %d)", ErrOverflow, a, b, c)
	}
	return Money(q), nil
}

// String formats the amount for display, e.g. "$12.34" or "-$0.05".
func (m Money) String() string {
	sign := ""
	u := uint64(m)
	if m < 0 {
		sign = "-"
		u = uint64(-(m + 1)) + 1
	}
	return fmt.Sprintf("%s$%d.%02d", sign, u/centsPerUnit, u%centsPerUnit)
}

// Parse reads a decimal amount such as "12", "12.5", "$12.50" or "-3.07".
// At most two fraction digits are accepted.
func Parse(s string) (Money, error) {
	raw := strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = raw[1:]
	}
	raw = strings.TrimPrefix(raw, "$")
	if raw == "" {
		return 0, fmt.Errorf("%w: %q", ErrParse, s)
	}

	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > fractionDigits) {
		return 0, fmt.Errorf("%w: %q", ErrParse, s)
	}
	for len(frac) < fractionDigits {
		frac += "0"
	}

	units, err := strconv.ParseUint(whole, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParse, s)
	}
	cents, err := strconv.ParseUint(frac, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParse, s)
	}
	if units > (math.MaxInt64-cents)/centsPerUnit {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}

	total := Money(units*centsPerUnit + cents)
	if neg {
		total = -total
	}
	return total, nil
}

// MustParse is Parse for constants.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}
