package notify

import (
	"context"

	"github.com/guttosm/escrowd/internal/domain/dto"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/rs/zerolog"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{log: logger.Component("notify.log")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, ev dto.TradeSettledEvent) error {
	s.log.Info().
		Str("event", ev.Event).
		Str("trade_id", ev.Trade.ID).
		Str("proposer", ev.Trade.Proposer).
		Str("counterparty", ev.Trade.Counterparty).
		Stringer("direction", ev.Trade.Direction).
		Stringer("currency", ev.Trade.Currency).
		Str("amount", ev.Trade.Amount.String()).
		Str("rate", ev.Trade.Rate.String()).
		Time("settled_at", ev.OccurredAt).
		Msg("trade settled")
	return nil
}
