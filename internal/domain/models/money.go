package models

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits every quantity is kept at.
const Scale int32 = 8

// ValidateQuantity checks that v is strictly positive and fits Scale.
func ValidateQuantity(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return InvalidField(field, "must be greater than zero, got %s", v.String())
	}
	if !v.Equal(v.Truncate(Scale)) {
		return InvalidField(field, "at most %d decimal places allowed, got %s", Scale, v.String())
	}
	return nil
}

// CounterAmount is amount*rate rounded half-up to Scale.
func CounterAmount(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(Scale)
}
