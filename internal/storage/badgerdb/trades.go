package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/timshannon/badgerhold/v4"
)

type tradeRecord struct {
	ID           string
	Proposer     string `badgerhold:"index"`
	Counterparty string
	Direction    models.Direction
	BaseCurrency models.Currency
	Amount       decimal.Decimal
	Rate         decimal.Decimal
	CreatedAt    time.Time
	SettledAt    *time.Time
}

func newTradeRecord(t *models.Trade) tradeRecord {
	return tradeRecord{
		ID:           t.ID,
		Proposer:     t.Proposer,
		Counterparty: t.Counterparty,
		Direction:    t.Direction,
		BaseCurrency: t.BaseCurrency,
		Amount:       t.Amount,
		Rate:         t.Rate,
		CreatedAt:    t.CreatedAt,
		SettledAt:    t.SettledAt,
	}
}

func (r *tradeRecord) toModel() *models.Trade {
	return &models.Trade{
		ID:           r.ID,
		Proposer:     r.Proposer,
		Counterparty: r.Counterparty,
		Direction:    r.Direction,
		BaseCurrency: r.BaseCurrency,
		Amount:       r.Amount,
		Rate:         r.Rate,
		CreatedAt:    r.CreatedAt,
		SettledAt:    r.SettledAt,
	}
}

type tradesRepository struct {
	m *Manager
}

func (r *tradesRepository) get(txn *badger.Txn, id string) (*tradeRecord, error) {
	var rec tradeRecord
	err := r.m.store.TxGet(txn, id, &rec)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrTradeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return &rec, nil
}

func (r *tradesRepository) Save(ctx context.Context, t *models.Trade) error {
	return r.m.withTxn(ctx, func(txn *badger.Txn) error {
		if err := r.m.store.TxInsert(txn, t.ID, newTradeRecord(t)); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
		return nil
	})
}

func (r *tradesRepository) FindByID(ctx context.Context, id string) (*models.Trade, error) {
	var out *models.Trade
	err := r.m.withTxn(ctx, func(txn *badger.Txn) error {
		rec, err := r.get(txn, id)
		if err != nil {
			return err
		}
		out = rec.toModel()
		return nil
	})
	return out, err
}

func (r *tradesRepository) MarkSettled(ctx context.Context, id, counterparty string, at time.Time) error {
	return r.m.withTxn(ctx, func(txn *badger.Txn) error {
		rec, err := r.get(txn, id)
		if err != nil {
			return err
		}
		if rec.Counterparty != "" {
			return fmt.Errorf("%w: %s", models.ErrAlreadySettled, id)
		}
		rec.Counterparty = counterparty
		rec.SettledAt = &at
		return r.m.store.TxUpdate(txn, id, *rec)
	})
}

func (r *tradesRepository) Delete(ctx context.Context, id string) error {
	return r.m.withTxn(ctx, func(txn *badger.Txn) error {
		rec, err := r.get(txn, id)
		if err != nil {
			return err
		}
		if rec.Counterparty != "" {
			return fmt.Errorf("%w: %s", models.ErrCannotCancelSettled, id)
		}
		return r.m.store.TxDelete(txn, id, tradeRecord{})
	})
}

func (r *tradesRepository) ListByAccount(ctx context.Context, accountID string, filter models.StatusFilter) ([]*models.Trade, error) {
	var recs []tradeRecord
	err := r.m.withTxn(ctx, func(txn *badger.Txn) error {
		return r.m.store.TxFind(txn, &recs, badgerhold.Where("Proposer").Eq(accountID).Index("Proposer"))
	})
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	out := make([]*models.Trade, 0, len(recs))
	for i := range recs {
		t := recs[i].toModel()
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *models.Trade) int {
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
	})
	return out, nil
}
