package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balances holds one amount per currency, indexed by Currency.
type Balances [len(Currencies)]decimal.Decimal

// NewBalances builds Balances from an stb and a gnr amount.
func NewBalances(stb, gnr decimal.Decimal) Balances {
	var b Balances
	b[CurrencySTB] = stb
	b[CurrencyGNR] = gnr
	return b
}

func (b Balances) Get(c Currency) decimal.Decimal {
	return b[c]
}

// Add returns a copy of b with delta applied to c.
func (b Balances) Add(c Currency, delta decimal.Decimal) Balances {
	b[c] = b[c].Add(delta)
	return b
}

// Equal compares amounts numerically.
func (b Balances) Equal(o Balances) bool {
	for _, c := range Currencies {
		if !b[c].Equal(o[c]) {
			return false
		}
	}
	return true
}

// Validate rejects negative or over-precise initial balances.
func (b Balances) Validate() error {
	for _, c := range Currencies {
		v := b[c]
		if v.IsNegative() {
			return InvalidField(c.String(), "balance cannot be negative, got %s", v.String())
		}
		if !v.Equal(v.Truncate(Scale)) {
			return InvalidField(c.String(), "at most %d decimal places allowed, got %s", Scale, v.String())
		}
	}
	return nil
}

// Account is a holder of both currencies.
type Account struct {
	ID        string
	Balances  Balances
	CreatedAt time.Time
	UpdatedAt time.Time
}
