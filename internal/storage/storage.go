package storage

import (
	"context"
	"time"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
)

// BalanceStore owns account balances. Adjust is the only way a balance changes.
type BalanceStore interface {
	// CreateAccount fails with models.ErrAccountExists if the id is taken.
	CreateAccount(ctx context.Context, acc *models.Account) error
	// GetAccount fails with models.ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	// Adjust applies balance[c] += delta atomically. A negative delta that
	// would leave the balance below zero fails with models.ErrInsufficientFunds
	// and changes nothing.
	Adjust(ctx context.Context, id string, c models.Currency, delta decimal.Decimal) error
}

// TradeRepository persists trades.
type TradeRepository interface {
	Save(ctx context.Context, t *models.Trade) error
	// FindByID fails with models.ErrTradeNotFound.
	FindByID(ctx context.Context, id string) (*models.Trade, error)
	// MarkSettled records the counterparty only if the trade is still pending,
	// failing with models.ErrAlreadySettled otherwise.
	MarkSettled(ctx context.Context, id, counterparty string, at time.Time) error
	// Delete removes a pending trade, failing with models.ErrCannotCancelSettled
	// if it has been settled.
	Delete(ctx context.Context, id string) error
	// ListByAccount returns the trades the account proposed, newest first.
	ListByAccount(ctx context.Context, accountID string, filter models.StatusFilter) ([]*models.Trade, error)
}

// RepoManager groups the stores of one backend.
//
// RunTransaction executes fn so that its writes commit together or not at all.
// The transaction travels inside the context handed to fn; store calls made
// with that context join it.
type RepoManager interface {
	Balances() BalanceStore
	Trades() TradeRepository
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
	Close() error
}
