package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/timshannon/badgerhold/v4"
)

type accountRecord struct {
	ID        string
	STB       decimal.Decimal
	GNR       decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *accountRecord) toModel() *models.Account {
	return &models.Account{
		ID:        r.ID,
		Balances:  models.NewBalances(r.STB, r.GNR),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *accountRecord) balance(c models.Currency) *decimal.Decimal {
	if c == models.CurrencySTB {
		return &r.STB
	}
	return &r.GNR
}

type accountsRepository struct {
	m *Manager
}

func (r *accountsRepository) get(txn *badger.Txn, id string) (*accountRecord, error) {
	var rec accountRecord
	err := r.m.store.TxGet(txn, id, &rec)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &rec, nil
}

func (r *accountsRepository) CreateAccount(ctx context.Context, acc *models.Account) error {
	rec := accountRecord{
		ID:        acc.ID,
		STB:       acc.Balances.Get(models.CurrencySTB),
		GNR:       acc.Balances.Get(models.CurrencyGNR),
		CreatedAt: acc.CreatedAt,
		UpdatedAt: acc.UpdatedAt,
	}
	return r.m.withTxn(ctx, func(txn *badger.Txn) error {
		err := r.m.store.TxInsert(txn, acc.ID, rec)
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: %s", models.ErrAccountExists, acc.ID)
		}
		return err
	})
}

func (r *accountsRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var out *models.Account
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

func (r *accountsRepository) Adjust(ctx context.Context, id string, c models.Currency, delta decimal.Decimal) error {
	if !c.Valid() {
		return models.InvalidField("currency", "unknown value %d", uint8(c))
	}
	return r.m.withTxn(ctx, func(txn *badger.Txn) error {
		rec, err := r.get(txn, id)
		if err != nil {
			return err
		}
		bal := rec.balance(c)
		next := bal.Add(delta)
		if next.IsNegative() {
			return fmt.Errorf("%w: account %s has %s %s, needs %s",
				models.ErrInsufficientFunds, id, bal.String(), c, delta.Neg())
		}
		*bal = next
		rec.UpdatedAt = time.Now().UTC()
		return r.m.store.TxUpdate(txn, id, *rec)
	})
}
