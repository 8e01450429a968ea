package models

import (
	"fmt"
	"strings"
)

// Direction is the proposer's side of a trade relative to its base currency.
type Direction uint8

const (
	DirectionBuy Direction = iota
	DirectionSell
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// ParseDirection accepts buy/purchase and sell/sale.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "purchase":
		return DirectionBuy, nil
	case "sell", "sale":
		return DirectionSell, nil
	default:
		return 0, InvalidField("direction", "%q is not one of buy, sell", s)
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, InvalidField("direction", "unknown value %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
