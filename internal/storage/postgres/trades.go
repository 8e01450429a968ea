package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/escrowd/internal/domain/models"
)

const tradeColumns = `id, proposer_id, counterparty_id, direction, base_currency, amount, rate, created_at, settled_at`

type tradesRepository struct {
	m *Manager
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	var (
		t               models.Trade
		counterparty    sql.NullString
		direction, base string
		settledAt       sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Proposer, &counterparty, &direction, &base, &t.Amount, &t.Rate, &t.CreatedAt, &settledAt); err != nil {
		return nil, err
	}
	var err error
	if t.Direction, err = models.ParseDirection(direction); err != nil {
		return nil, fmt.Errorf("trade %s: %w", t.ID, err)
	}
	if t.BaseCurrency, err = models.ParseCurrency(base); err != nil {
		return nil, fmt.Errorf("trade %s: %w", t.ID, err)
	}
	t.Counterparty = counterparty.String
	t.CreatedAt = t.CreatedAt.UTC()
	if settledAt.Valid {
		at := settledAt.Time.UTC()
		t.SettledAt = &at
	}
	return &t, nil
}

func (r *tradesRepository) Save(ctx context.Context, t *models.Trade) error {
	_, err := r.m.conn(ctx).ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID,
		t.Proposer,
		sql.NullString{String: t.Counterparty, Valid: t.Counterparty != ""},
		t.Direction.String(),
		t.BaseCurrency.String(),
		t.Amount,
		t.Rate,
		t.CreatedAt,
		t.SettledAt,
	)
	if errCode(err) == foreignKeyViolation {
		return fmt.Errorf("%w: %s", models.ErrAccountNotFound, t.Proposer)
	}
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (r *tradesRepository) FindByID(ctx context.Context, id string) (*models.Trade, error) {
	t, err := scanTrade(r.m.conn(ctx).QueryRowContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) || errCode(err) == invalidTextRepr {
		return nil, fmt.Errorf("%w: %s", models.ErrTradeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select trade: %w", err)
	}
	return t, nil
}

// exists distinguishes a missing trade from one that failed a pending-only
// condition.
func (r *tradesRepository) exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.m.conn(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM trades WHERE id = $1)`, id).Scan(&ok)
	if errCode(err) == invalidTextRepr {
		return false, nil
	}
	return ok, err
}

func (r *tradesRepository) MarkSettled(ctx context.Context, id, counterparty string, at time.Time) error {
	res, err := r.m.conn(ctx).ExecContext(ctx, `
		UPDATE trades
		SET counterparty_id = $2, settled_at = $3
		WHERE id = $1 AND counterparty_id IS NULL`,
		id, counterparty, at,
	)
	switch errCode(err) {
	case "":
	case invalidTextRepr:
		return fmt.Errorf("%w: %s", models.ErrTradeNotFound, id)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", models.ErrAccountNotFound, counterparty)
	case checkViolation:
		return fmt.Errorf("%w: %s", models.ErrSelfTrade, id)
	}
	if err != nil {
		return fmt.Errorf("settle trade: %w", err)
	}
	return r.checkConditional(ctx, res, id, models.ErrAlreadySettled)
}

func (r *tradesRepository) Delete(ctx context.Context, id string) error {
	res, err := r.m.conn(ctx).ExecContext(ctx,
		`DELETE FROM trades WHERE id = $1 AND counterparty_id IS NULL`, id)
	if errCode(err) == invalidTextRepr {
		return fmt.Errorf("%w: %s", models.ErrTradeNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	return r.checkConditional(ctx, res, id, models.ErrCannotCancelSettled)
}

// checkConditional turns a zero-row pending-only write into ErrTradeNotFound
// or the given state error.
func (r *tradesRepository) checkConditional(ctx context.Context, res sql.Result, id string, stateErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	ok, err := r.exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check trade: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrTradeNotFound, id)
	}
	return fmt.Errorf("%w: %s", stateErr, id)
}

func (r *tradesRepository) ListByAccount(ctx context.Context, accountID string, filter models.StatusFilter) ([]*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE proposer_id = $1`
	switch filter {
	case models.FilterPending:
		query += ` AND counterparty_id IS NULL`
	case models.FilterSettled:
		query += ` AND counterparty_id IS NOT NULL`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.m.conn(ctx).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*models.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return out, nil
}
