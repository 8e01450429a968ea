package models

import (
	"fmt"
	"strings"
)

// Currency is one of the two internal currencies.
type Currency uint8

const (
	CurrencySTB Currency = iota
	CurrencyGNR
)

// Currencies lists every currency in index order.
var Currencies = [...]Currency{CurrencySTB, CurrencyGNR}

func (c Currency) String() string {
	switch c {
	case CurrencySTB:
		return "stb"
	case CurrencyGNR:
		return "gnr"
	default:
		return fmt.Sprintf("currency(%d)", uint8(c))
	}
}

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	return c == CurrencySTB || c == CurrencyGNR
}

// Other returns the opposite currency.
func (c Currency) Other() Currency {
	if c == CurrencySTB {
		return CurrencyGNR
	}
	return CurrencySTB
}

// ParseCurrency accepts "stb" or "gnr", case-insensitively.
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stb":
		return CurrencySTB, nil
	case "gnr":
		return CurrencyGNR, nil
	default:
		return 0, InvalidField("currency", "%q is not one of stb, gnr", s)
	}
}

func (c Currency) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, InvalidField("currency", "unknown value %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Currency) UnmarshalText(b []byte) error {
	v, err := ParseCurrency(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
