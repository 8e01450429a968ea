// Package memory is a process-local storage backend.
//
// It has no rollback: RunTransaction only runs fn. Callers serialize
// transitions on the same trade, which keeps every conditional write in a
// transition infallible once the first debit has succeeded.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/storage"
	"github.com/shopspring/decimal"
)

type account struct {
	mu sync.Mutex
	models.Account
}

// Store implements storage.RepoManager with maps.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*account
	trades   map[string]*models.Trade
	// byProposer indexes trade ids per proposing account.
	byProposer map[string]map[string]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts:   make(map[string]*account),
		trades:     make(map[string]*models.Trade),
		byProposer: make(map[string]map[string]struct{}),
	}
}

var _ storage.RepoManager = (*Store)(nil)

func (s *Store) Balances() storage.BalanceStore  { return balances{s} }
func (s *Store) Trades() storage.TradeRepository { return trades{s} }
func (s *Store) Ping(context.Context) error      { return nil }
func (s *Store) Close() error                    { return nil }

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

type balances struct{ s *Store }

func (b balances) CreateAccount(_ context.Context, acc *models.Account) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if _, ok := b.s.accounts[acc.ID]; ok {
		return fmt.Errorf("%w: %s", models.ErrAccountExists, acc.ID)
	}
	b.s.accounts[acc.ID] = &account{Account: *acc}
	return nil
}

func (b balances) lookup(id string) (*account, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	acc, ok := b.s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAccountNotFound, id)
	}
	return acc, nil
}

func (b balances) GetAccount(_ context.Context, id string) (*models.Account, error) {
	acc, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	out := acc.Account
	return &out, nil
}

func (b balances) Adjust(_ context.Context, id string, c models.Currency, delta decimal.Decimal) error {
	acc, err := b.lookup(id)
	if err != nil {
		return err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	next := acc.Balances.Get(c).Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: account %s has %s %s, needs %s",
			models.ErrInsufficientFunds, id, acc.Balances.Get(c), c, delta.Neg())
	}
	acc.Balances = acc.Balances.Add(c, delta)
	acc.UpdatedAt = time.Now().UTC()
	return nil
}

type trades struct{ s *Store }

func clone(t *models.Trade) *models.Trade {
	out := *t
	if t.SettledAt != nil {
		at := *t.SettledAt
		out.SettledAt = &at
	}
	return &out
}

func (r trades) Save(_ context.Context, t *models.Trade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.trades[t.ID]; ok {
		return fmt.Errorf("trade %s already stored", t.ID)
	}
	r.s.trades[t.ID] = clone(t)
	ids, ok := r.s.byProposer[t.Proposer]
	if !ok {
		ids = make(map[string]struct{})
		r.s.byProposer[t.Proposer] = ids
	}
	ids[t.ID] = struct{}{}
	return nil
}

func (r trades) FindByID(_ context.Context, id string) (*models.Trade, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrTradeNotFound, id)
	}
	return clone(t), nil
}

func (r trades) MarkSettled(_ context.Context, id, counterparty string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.trades[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrTradeNotFound, id)
	}
	if t.IsSettled() {
		return fmt.Errorf("%w: %s", models.ErrAlreadySettled, id)
	}
	t.Counterparty = counterparty
	t.SettledAt = &at
	return nil
}

func (r trades) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.trades[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrTradeNotFound, id)
	}
	if t.IsSettled() {
		return fmt.Errorf("%w: %s", models.ErrCannotCancelSettled, id)
	}
	delete(r.s.trades, id)
	delete(r.s.byProposer[t.Proposer], id)
	return nil
}

func (r trades) ListByAccount(_ context.Context, accountID string, filter models.StatusFilter) ([]*models.Trade, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*models.Trade, 0, len(r.s.byProposer[accountID]))
	for id := range r.s.byProposer[accountID] {
		t := r.s.trades[id]
		if filter.Matches(t) {
			out = append(out, clone(t))
		}
	}
	slices.SortFunc(out, newestFirst)
	return out, nil
}

func newestFirst(a, b *models.Trade) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}
