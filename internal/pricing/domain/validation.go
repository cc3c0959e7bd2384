package domain

import "github.com/shopspring/decimal"

// MaxPercentScale is the number of fractional digits a commission percentage
// may carry; it matches the numeric(7,4) column.
const MaxPercentScale = 4

var hundred = decimal.NewFromInt(100)

// ValidateSplit checks that both percentages lie in [0, 100], carry at most
// MaxPercentScale decimals and sum to exactly 100.
func ValidateSplit(provider, admin decimal.Decimal) error {
	for _, pct := range []decimal.Decimal{provider, admin} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return ErrInvalidCommission
		}
		if -pct.Exponent() > MaxPercentScale && !pct.Equal(pct.Round(MaxPercentScale)) {
			return ErrCommissionScaleTooLarge
		}
	}
	if !provider.Add(admin).Equal(hundred) {
		return ErrCommissionSumMismatch
	}
	return nil
}
