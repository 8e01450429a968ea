package dto

import (
	"time"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
)

// OpenTradeRequest is the body of POST /api/v1/trades.
//
// Amount and rate accept JSON numbers or strings; strings keep full precision.
type OpenTradeRequest struct {
	Direction string          `json:"direction" binding:"required" example:"buy"`
	Currency  string          `json:"currency" binding:"required" example:"stb"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"10"`
	Rate      decimal.Decimal `json:"rate" swaggertype:"string" example:"0.5"`
}

// LegResponse is one side of a trade: a currency and a quantity.
type LegResponse struct {
	Currency models.Currency `json:"currency" swaggertype:"string" example:"gnr"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string" example:"5"`
}

// TradeResponse describes a trade. Gives and Receives are seen from the proposer.
type TradeResponse struct {
	ID           string             `json:"id" example:"3f1c2a9e-8a53-4a64-9b3e-0d6f7f6c1a10"`
	Proposer     string             `json:"proposer" example:"alice"`
	Counterparty string             `json:"counterparty,omitempty" example:"bob"`
	Direction    models.Direction   `json:"direction" swaggertype:"string" example:"buy"`
	Currency     models.Currency    `json:"currency" swaggertype:"string" example:"stb"`
	Amount       decimal.Decimal    `json:"amount" swaggertype:"string" example:"10"`
	Rate         decimal.Decimal    `json:"rate" swaggertype:"string" example:"0.5"`
	Status       models.TradeStatus `json:"status" swaggertype:"string" example:"pending"`
	Gives        LegResponse        `json:"gives"`
	Receives     LegResponse        `json:"receives"`
	CreatedAt    time.Time          `json:"created_at"`
	SettledAt    *time.Time         `json:"settled_at,omitempty"`
}

type TradeListResponse struct {
	Trades []TradeResponse `json:"trades"`
	Count  int             `json:"count" example:"1"`
}

func NewTradeResponse(t *models.Trade) TradeResponse {
	gives, receives := t.Legs()
	return TradeResponse{
		ID:           t.ID,
		Proposer:     t.Proposer,
		Counterparty: t.Counterparty,
		Direction:    t.Direction,
		Currency:     t.BaseCurrency,
		Amount:       t.Amount,
		Rate:         t.Rate,
		Status:       t.Status(),
		Gives:        LegResponse(gives),
		Receives:     LegResponse(receives),
		CreatedAt:    t.CreatedAt,
		SettledAt:    t.SettledAt,
	}
}

func NewTradeListResponse(trades []*models.Trade) TradeListResponse {
	out := TradeListResponse{Trades: make([]TradeResponse, 0, len(trades)), Count: len(trades)}
	for _, t := range trades {
		out.Trades = append(out.Trades, NewTradeResponse(t))
	}
	return out
}

// TradeSettledEvent is the payload delivered to notification sinks.
type TradeSettledEvent struct {
	Event      string        `json:"event" example:"trade.settled"`
	OccurredAt time.Time     `json:"occurred_at"`
	Trade      TradeResponse `json:"trade"`
}

const EventTradeSettled = "trade.settled"

func NewTradeSettledEvent(t models.Trade) TradeSettledEvent {
	ev := TradeSettledEvent{Event: EventTradeSettled, Trade: NewTradeResponse(&t)}
	if t.SettledAt != nil {
		ev.OccurredAt = *t.SettledAt
	} else {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev
}
