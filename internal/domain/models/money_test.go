package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateQuantity(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"1", true},
		{"0.00000001", true},
		{"12.50000000", true},
		{"0", false},
		{"-3", false},
		{"0.000000001", false},
	}
	for _, c := range cases {
		err := ValidateQuantity("amount", dec(c.in))
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", c.in, err)
		}
		if !c.ok && !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%s: expected invalid argument, got %v", c.in, err)
		}
	}
}

func TestCounterAmountRounding(t *testing.T) {
	cases := []struct{ amount, rate, want string }{
		{"10", "0.5", "5"},
		{"0.00000001", "0.5", "0.00000001"},
		{"0.00000001", "0.4", "0"},
		{"3", "0.33333333", "0.99999999"},
	}
	for _, c := range cases {
		if got := CounterAmount(dec(c.amount), dec(c.rate)); !got.Equal(dec(c.want)) {
			t.Fatalf("CounterAmount(%s, %s) = %s, want %s", c.amount, c.rate, got, c.want)
		}
	}
}

func TestBalances(t *testing.T) {
	b := NewBalances(decimal.NewFromInt(100), decimal.NewFromInt(50))
	next := b.Add(CurrencyGNR, decimal.NewFromInt(-5))
	if !b.Get(CurrencyGNR).Equal(decimal.NewFromInt(50)) {
		t.Fatalf("Add must not mutate the receiver")
	}
	if !next.Get(CurrencyGNR).Equal(decimal.NewFromInt(45)) {
		t.Fatalf("unexpected gnr %s", next.Get(CurrencyGNR))
	}
	if b.Equal(next) {
		t.Fatalf("balances should differ")
	}
	if err := NewBalances(decimal.NewFromInt(-1), decimal.Zero).Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative balance should be rejected, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	if ErrorKind(nil) != "ok" {
		t.Fatalf("nil should be ok")
	}
	if ErrorKind(InvalidField("rate", "bad")) != "invalid_argument" {
		t.Fatalf("validation error should map to invalid_argument")
	}
	if ErrorKind(errors.New("boom")) != "internal" {
		t.Fatalf("unknown error should map to internal")
	}
}
