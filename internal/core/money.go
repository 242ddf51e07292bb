// Package core provides amount parsing and rounding utilities.
//
// Amounts are whole currency units. Fractional input coming from percentage
// math or user entry is rounded half-up before it is stored.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RoundAmount rounds a computed value to whole currency units, half away
// from zero.
//
// Examples:
//   RoundAmount(1649.5) -> 1650
//   RoundAmount(1649.49) -> 1649
func RoundAmount(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// ParseAmount converts user input to a whole non-negative amount.
//
// Both dot (12.5) and comma (12,5) separators are accepted. Empty input,
// negative values and non-numeric strings return ErrInvalidAmount.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	r := d.Round(0)
	if r.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, ErrInvalidAmount
	}
	return r.IntPart(), nil
}

// PercentOf returns round(amount * pct / 100) using decimal arithmetic so
// that values like 5500 * 30% land on the exact integer.
func PercentOf(amount int64, pct float64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
