package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is derived from whether a counterparty is recorded.
type TradeStatus string

const (
	StatusPending TradeStatus = "pending"
	StatusSettled TradeStatus = "settled"
)

// StatusFilter selects trades by status when listing.
type StatusFilter string

const (
	FilterAll     StatusFilter = "all"
	FilterPending StatusFilter = "pending"
	FilterSettled StatusFilter = "settled"
)

// ParseStatusFilter maps an empty string to FilterAll. "approved" is accepted as settled.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "pending":
		return FilterPending, nil
	case "settled", "approved":
		return FilterSettled, nil
	default:
		return "", InvalidField("status", "%q is not one of all, pending, settled", s)
	}
}

// Matches reports whether t passes the filter.
func (f StatusFilter) Matches(t *Trade) bool {
	switch f {
	case FilterPending:
		return !t.IsSettled()
	case FilterSettled:
		return t.IsSettled()
	default:
		return true
	}
}

// Leg is a quantity of one currency moving in or out of an account.
type Leg struct {
	Currency Currency
	Amount   decimal.Decimal
}

// Trade is an escrowed exchange proposal.
//
// Counterparty is empty while the trade is pending and set exactly once on
// settlement. Every other field is fixed at creation.
type Trade struct {
	ID           string
	Proposer     string
	Counterparty string
	Direction    Direction
	BaseCurrency Currency
	Amount       decimal.Decimal
	Rate         decimal.Decimal
	CreatedAt    time.Time
	SettledAt    *time.Time
}

func (t *Trade) IsSettled() bool {
	return t.Counterparty != ""
}

func (t *Trade) Status() TradeStatus {
	if t.IsSettled() {
		return StatusSettled
	}
	return StatusPending
}

// CounterAmount is the amount of the non-base currency the trade exchanges.
func (t *Trade) CounterAmount() decimal.Decimal {
	return CounterAmount(t.Amount, t.Rate)
}

// Legs returns what the proposer gives up and what it receives.
//
// The base leg is Amount of BaseCurrency and the counter leg is CounterAmount
// of the other currency. A buyer gives the counter leg for the base leg, a
// seller the reverse. The gives leg is reserved on open and paid to the
// counterparty on settle; the receives leg is what the counterparty contributes.
func (t *Trade) Legs() (gives, receives Leg) {
	base := Leg{Currency: t.BaseCurrency, Amount: t.Amount}
	counter := Leg{Currency: t.BaseCurrency.Other(), Amount: t.CounterAmount()}
	if t.Direction == DirectionBuy {
		return counter, base
	}
	return base, counter
}

// Reservation is the leg debited from the proposer when the trade opens.
func (t *Trade) Reservation() Leg {
	gives, _ := t.Legs()
	return gives
}

// Contribution is the leg the counterparty pays on settlement.
func (t *Trade) Contribution() Leg {
	_, receives := t.Legs()
	return receives
}
