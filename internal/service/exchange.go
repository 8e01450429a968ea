package service

import (
	"context"
	"fmt"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/ledger"
	"github.com/shopspring/decimal"
)

// ExchangeService is the application boundary used by the HTTP layer and the
// CLI. The acting account is passed explicitly on every call.
type ExchangeService interface {
	Open(ctx context.Context, actor string, dir models.Direction, base models.Currency, amount, rate decimal.Decimal) (*models.Trade, error)
	Settle(ctx context.Context, actor, tradeID string) (*models.Trade, error)
	Cancel(ctx context.Context, actor, tradeID string) (*models.Trade, error)
	Get(ctx context.Context, tradeID string) (*models.Trade, error)
	ListTrades(ctx context.Context, actor string, filter models.StatusFilter) ([]*models.Trade, error)
	Balances(ctx context.Context, actor string) (*models.Account, error)
	CreateAccount(ctx context.Context, accountID string, balances models.Balances) (*models.Account, error)
}

type exchangeService struct {
	ledger *ledger.Ledger
}

func NewExchangeService(l *ledger.Ledger) ExchangeService {
	return &exchangeService{ledger: l}
}

func (s *exchangeService) Open(ctx context.Context, actor string, dir models.Direction, base models.Currency, amount, rate decimal.Decimal) (*models.Trade, error) {
	return s.ledger.Open(ctx, ledger.OpenRequest{
		Proposer:  actor,
		Direction: dir,
		Base:      base,
		Amount:    amount,
		Rate:      rate,
	})
}

// Settle accepts tradeID on behalf of actor.
func (s *exchangeService) Settle(ctx context.Context, actor, tradeID string) (*models.Trade, error) {
	return s.ledger.Settle(ctx, tradeID, actor)
}

// Cancel withdraws a pending trade. Only its proposer may cancel it.
func (s *exchangeService) Cancel(ctx context.Context, actor, tradeID string) (*models.Trade, error) {
	t, err := s.ledger.Trade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if t.Proposer != actor {
		return nil, fmt.Errorf("%w: %s did not propose %s", models.ErrNotTradeOwner, actor, tradeID)
	}
	return s.ledger.Cancel(ctx, tradeID)
}

func (s *exchangeService) Get(ctx context.Context, tradeID string) (*models.Trade, error) {
	return s.ledger.Trade(ctx, tradeID)
}

func (s *exchangeService) ListTrades(ctx context.Context, actor string, filter models.StatusFilter) ([]*models.Trade, error) {
	return s.ledger.Trades(ctx, actor, filter)
}

func (s *exchangeService) Balances(ctx context.Context, actor string) (*models.Account, error) {
	return s.ledger.Account(ctx, actor)
}

func (s *exchangeService) CreateAccount(ctx context.Context, accountID string, balances models.Balances) (*models.Account, error) {
	return s.ledger.OpenAccount(ctx, accountID, balances)
}
