// Package postgres stores accounts and trades in PostgreSQL through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/escrowd/db"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/guttosm/escrowd/internal/storage"
	pq "github.com/lib/pq"
	goose "github.com/pressly/goose/v3"
)

const (
	uniqueViolation      pq.ErrorCode = "23505"
	foreignKeyViolation  pq.ErrorCode = "23503"
	checkViolation       pq.ErrorCode = "23514"
	invalidTextRepr      pq.ErrorCode = "22P02"
	serializationFailure pq.ErrorCode = "40001"
	deadlockDetected     pq.ErrorCode = "40P01"
)

const (
	defaultMaxAttempts    = 5
	defaultRetryBaseDelay = 10 * time.Millisecond
)

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Manager implements storage.RepoManager over a *sql.DB pool.
type Manager struct {
	db          *sql.DB
	maxAttempts int
	retryDelay  time.Duration
}

// NewManager wraps an open pool. The schema must already be migrated.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db, maxAttempts: defaultMaxAttempts, retryDelay: defaultRetryBaseDelay}
}

var _ storage.RepoManager = (*Manager)(nil)

func (m *Manager) Balances() storage.BalanceStore  { return &accountsRepository{m} }
func (m *Manager) Trades() storage.TradeRepository { return &tradesRepository{m} }

func (m *Manager) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }
func (m *Manager) Close() error                   { return m.db.Close() }

// conn returns the transaction carried by ctx, or the pool.
func (m *Manager) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return m.db
}

// RunTransaction runs fn inside one database transaction and retries the
// whole function on serialization failures and deadlocks. Nested calls join
// the outer transaction.
func (m *Manager) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err = m.runOnce(ctx, fn)
		if !retryable(err) {
			return err
		}
		logger.L().Debug().Err(err).Int("attempt", attempt).Msg("retrying transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * m.retryDelay):
		}
	}
	return err
}

func (m *Manager) runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func errCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func retryable(err error) bool {
	code := errCode(err)
	return code == serializationFailure || code == deadlockDetected
}

// Migrate applies the embedded goose migrations.
func Migrate(conn *sql.DB) error {
	goose.SetBaseFS(db.Migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(conn, db.MigrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
