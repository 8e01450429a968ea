// Package ledger implements the escrow state machine: open reserves the
// proposer's side, settle exchanges both sides with a counterparty, cancel
// returns the reservation.
//
// Every transition runs inside storage.RepoManager.RunTransaction. The debit
// that can fail always comes before the credits that cannot, and the trade
// record is claimed with a conditional write, so at most one settle or cancel
// wins for a given trade.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/guttosm/escrowd/internal/metrics"
	"github.com/guttosm/escrowd/internal/storage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notifier is told about every settled trade after the settlement committed.
// Implementations must not block.
type Notifier interface {
	TradeSettled(ctx context.Context, t models.Trade)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) TradeSettled(context.Context, models.Trade) {}

// Option configures a Ledger.
type Option func(*Ledger)

func WithNotifier(n Notifier) Option {
	return func(l *Ledger) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithClock overrides the source of CreatedAt and SettledAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides the trade id generator (uuid v4 by default).
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

func WithLogger(lg zerolog.Logger) Option {
	return func(l *Ledger) { l.log = lg }
}

// Ledger is safe for concurrent use.
type Ledger struct {
	repos    storage.RepoManager
	notifier Notifier
	now      func() time.Time
	newID    func() string
	log      zerolog.Logger
	locks    *keyedMutex
}

func New(repos storage.RepoManager, opts ...Option) *Ledger {
	l := &Ledger{
		repos:    repos,
		notifier: NopNotifier{},
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:    uuid.NewString,
		log:      logger.Component("ledger"),
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OpenRequest describes a trade to propose.
type OpenRequest struct {
	Proposer  string
	Direction models.Direction
	Base      models.Currency
	Amount    decimal.Decimal
	Rate      decimal.Decimal
}

// Validate checks the request without touching any balance.
func (r OpenRequest) Validate() error {
	if strings.TrimSpace(r.Proposer) == "" {
		return models.InvalidField("proposer", "required")
	}
	if !r.Direction.Valid() {
		return models.InvalidField("direction", "unknown value %d", uint8(r.Direction))
	}
	if !r.Base.Valid() {
		return models.InvalidField("currency", "unknown value %d", uint8(r.Base))
	}
	if err := models.ValidateQuantity("amount", r.Amount); err != nil {
		return err
	}
	if err := models.ValidateQuantity("rate", r.Rate); err != nil {
		return err
	}
	if !models.CounterAmount(r.Amount, r.Rate).IsPositive() {
		return models.InvalidField("amount", "%s at rate %s rounds to zero %s", r.Amount, r.Rate, r.Base.Other())
	}
	return nil
}

// Open debits the proposer's reservation and records a pending trade.
func (l *Ledger) Open(ctx context.Context, req OpenRequest) (trade *models.Trade, err error) {
	defer l.observe("open", time.Now(), &err, func(e *zerolog.Event) {
		e.Str("proposer", req.Proposer).Stringer("direction", req.Direction)
	})

	if err := req.Validate(); err != nil {
		return nil, err
	}

	t := &models.Trade{
		ID:           l.newID(),
		Proposer:     req.Proposer,
		Direction:    req.Direction,
		BaseCurrency: req.Base,
		Amount:       req.Amount,
		Rate:         req.Rate,
		CreatedAt:    l.now(),
	}
	reserve := t.Reservation()

	err = l.repos.RunTransaction(ctx, func(ctx context.Context) error {
		if err := l.repos.Balances().Adjust(ctx, t.Proposer, reserve.Currency, reserve.Amount.Neg()); err != nil {
			return fmt.Errorf("reserve %s %s: %w", reserve.Amount, reserve.Currency, err)
		}
		return l.repos.Trades().Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Purchase opens a BUY: the proposer pays the other currency to receive amount of base.
func (l *Ledger) Purchase(ctx context.Context, proposer string, base models.Currency, amount, rate decimal.Decimal) (*models.Trade, error) {
	return l.Open(ctx, OpenRequest{Proposer: proposer, Direction: models.DirectionBuy, Base: base, Amount: amount, Rate: rate})
}

// Sale opens a SELL: the proposer gives amount of base to receive the other currency.
func (l *Ledger) Sale(ctx context.Context, proposer string, base models.Currency, amount, rate decimal.Decimal) (*models.Trade, error) {
	return l.Open(ctx, OpenRequest{Proposer: proposer, Direction: models.DirectionSell, Base: base, Amount: amount, Rate: rate})
}

// Settle matches a pending trade with counterparty and exchanges both legs.
// The counterparty's debit is the only step that can fail on funds.
func (l *Ledger) Settle(ctx context.Context, tradeID, counterparty string) (trade *models.Trade, err error) {
	defer l.observe("settle", time.Now(), &err, func(e *zerolog.Event) {
		e.Str("trade_id", tradeID).Str("counterparty", counterparty)
	})

	if strings.TrimSpace(counterparty) == "" {
		return nil, models.InvalidField("counterparty", "required")
	}

	unlock, err := l.locks.Lock(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = l.repos.RunTransaction(ctx, func(ctx context.Context) error {
		t, err := l.repos.Trades().FindByID(ctx, tradeID)
		if err != nil {
			return err
		}
		if t.IsSettled() {
			return fmt.Errorf("%w: %s", models.ErrAlreadySettled, t.ID)
		}
		if counterparty == t.Proposer {
			return fmt.Errorf("%w: %s proposed %s", models.ErrSelfTrade, counterparty, t.ID)
		}

		payout, contribution := t.Legs()
		bs := l.repos.Balances()
		if err := bs.Adjust(ctx, counterparty, contribution.Currency, contribution.Amount.Neg()); err != nil {
			return fmt.Errorf("collect %s %s: %w", contribution.Amount, contribution.Currency, err)
		}
		if err := bs.Adjust(ctx, t.Proposer, contribution.Currency, contribution.Amount); err != nil {
			return fmt.Errorf("credit proposer: %w", err)
		}
		if err := bs.Adjust(ctx, counterparty, payout.Currency, payout.Amount); err != nil {
			return fmt.Errorf("credit counterparty: %w", err)
		}

		at := l.now()
		if err := l.repos.Trades().MarkSettled(ctx, t.ID, counterparty, at); err != nil {
			return err
		}
		t.Counterparty = counterparty
		t.SettledAt = &at
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.notifier.TradeSettled(ctx, *trade)
	return trade, nil
}

// Cancel deletes a pending trade and returns the reservation to its proposer.
func (l *Ledger) Cancel(ctx context.Context, tradeID string) (trade *models.Trade, err error) {
	defer l.observe("cancel", time.Now(), &err, func(e *zerolog.Event) {
		e.Str("trade_id", tradeID)
	})

	unlock, err := l.locks.Lock(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = l.repos.RunTransaction(ctx, func(ctx context.Context) error {
		t, err := l.repos.Trades().FindByID(ctx, tradeID)
		if err != nil {
			return err
		}
		if t.IsSettled() {
			return fmt.Errorf("%w: %s", models.ErrCannotCancelSettled, t.ID)
		}
		if err := l.repos.Trades().Delete(ctx, t.ID); err != nil {
			return err
		}
		reserve := t.Reservation()
		if err := l.repos.Balances().Adjust(ctx, t.Proposer, reserve.Currency, reserve.Amount); err != nil {
			return fmt.Errorf("release reservation: %w", err)
		}
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

func (l *Ledger) Trade(ctx context.Context, id string) (*models.Trade, error) {
	return l.repos.Trades().FindByID(ctx, id)
}

// Trades lists the trades accountID proposed, newest first.
func (l *Ledger) Trades(ctx context.Context, accountID string, filter models.StatusFilter) ([]*models.Trade, error) {
	return l.repos.Trades().ListByAccount(ctx, accountID, filter)
}

func (l *Ledger) Account(ctx context.Context, id string) (*models.Account, error) {
	return l.repos.Balances().GetAccount(ctx, id)
}

// OpenAccount creates an account holding the given starting balances.
func (l *Ledger) OpenAccount(ctx context.Context, id string, balances models.Balances) (*models.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.InvalidField("account", "required")
	}
	if err := balances.Validate(); err != nil {
		return nil, err
	}
	now := l.now()
	acc := &models.Account{ID: id, Balances: balances, CreatedAt: now, UpdatedAt: now}
	if err := l.repos.Balances().CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	l.log.Info().Str("account", id).Msg("account opened")
	return acc, nil
}

// observe records the outcome of a transition once it returns.
func (l *Ledger) observe(op string, start time.Time, errp *error, fields func(*zerolog.Event)) {
	err := *errp
	kind := models.ErrorKind(err)
	metrics.ObserveTransition(op, kind, time.Since(start))

	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = l.log.Debug()
	case kind == "internal" && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded):
		ev = l.log.Error().Err(err)
	default:
		ev = l.log.Warn().Err(err)
	}
	fields(ev)
	ev.Str("op", op).Str("outcome", kind).Msg("transition")
}
