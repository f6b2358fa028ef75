// Package money holds the rounding and formatting rules shared by every
// monetary field: two fractional digits, half-up rounding, minor units for
// the payment provider.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const places = 2

var hundred = decimal.NewFromInt(100)

// Round quantizes d to two fractional digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(places)
}

// ToCents converts d to minor units after rounding to two places.
func ToCents(d decimal.Decimal) int64 {
	return Round(d).Mul(hundred).IntPart()
}

// FromCents converts minor units back into a two-place amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -places)
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(places)
}

// HasValidScale reports whether d carries at most two fractional digits.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(places))
}

// Parse reads a decimal string and rejects more than two fractional digits.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: parse %q: %w", s, err)
	}
	if !HasValidScale(d) {
		return decimal.Zero, fmt.Errorf("money: %q has more than %d decimal places", s, places)
	}
	return d, nil
}
