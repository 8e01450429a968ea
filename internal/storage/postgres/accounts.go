package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
)

type accountsRepository struct {
	m *Manager
}

// balanceColumn maps a currency to its column. Never built from user input.
func balanceColumn(c models.Currency) (string, error) {
	switch c {
	case models.CurrencySTB:
		return "stb", nil
	case models.CurrencyGNR:
		return "gnr", nil
	default:
		return "", models.InvalidField("currency", "unknown value %d", uint8(c))
	}
}

func (r *accountsRepository) CreateAccount(ctx context.Context, acc *models.Account) error {
	_, err := r.m.conn(ctx).ExecContext(ctx, `
		INSERT INTO accounts (id, stb, gnr, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		acc.ID,
		acc.Balances.Get(models.CurrencySTB),
		acc.Balances.Get(models.CurrencyGNR),
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	switch errCode(err) {
	case "":
	case uniqueViolation:
		return fmt.Errorf("%w: %s", models.ErrAccountExists, acc.ID)
	case checkViolation:
		return models.InvalidField("balance", "cannot be negative")
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *accountsRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var acc models.Account
	var stb, gnr decimal.Decimal
	err := r.m.conn(ctx).QueryRowContext(ctx,
		`SELECT id, stb, gnr, created_at, updated_at FROM accounts WHERE id = $1`, id,
	).Scan(&acc.ID, &stb, &gnr, &acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	acc.Balances = models.NewBalances(stb, gnr)
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.UpdatedAt = acc.UpdatedAt.UTC()
	return &acc, nil
}

// Adjust is a single conditional UPDATE; the row lock it takes serializes
// concurrent adjustments of the same account.
func (r *accountsRepository) Adjust(ctx context.Context, id string, c models.Currency, delta decimal.Decimal) error {
	col, err := balanceColumn(c)
	if err != nil {
		return err
	}

	q := r.m.conn(ctx)
	res, err := q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE accounts
		SET %[1]s = %[1]s + $1::numeric, updated_at = NOW()
		WHERE id = $2 AND %[1]s + $1::numeric >= 0`, col),
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("adjust %s: %w", col, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust %s rows: %w", col, err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", models.ErrAccountNotFound, id)
	}
	return fmt.Errorf("%w: account %s cannot cover %s %s", models.ErrInsufficientFunds, id, delta.Neg(), c)
}
