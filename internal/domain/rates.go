package domain

import "github.com/shopspring/decimal"

// Tolerance is the money comparison tolerance used by every balancing and
// conservation check.
var Tolerance = decimal.NewFromFloat(0.01)

// validGSTRates is the closed GST slab set.
var validGSTRates = []decimal.Decimal{
	decimal.Zero,
	decimal.NewFromFloat(0.05),
	decimal.NewFromFloat(0.12),
	decimal.NewFromFloat(0.18),
	decimal.NewFromFloat(0.28),
}

// ValidGSTRate reports whether rate is one of {0, 0.05, 0.12, 0.18, 0.28}.
func ValidGSTRate(rate decimal.Decimal) bool {
	for _, r := range validGSTRates {
		if rate.Equal(r) {
			return true
		}
	}
	return false
}

// RatePercent renders a rate as its integer percentage, "18" for 0.18 and
// "0" for the zero rate. Used by the batch and export file-name contracts.
func RatePercent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).Round(0).String()
}
