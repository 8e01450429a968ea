// Package badgerdb is an embedded storage backend built on badgerhold.
//
// Every operation runs in a badger read-write transaction. Badger detects
// conflicting commits, so concurrent transitions touching the same account or
// trade are retried until one view of the data wins.
package badgerdb

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/guttosm/escrowd/internal/storage"
	"github.com/rs/zerolog"
	"github.com/timshannon/badgerhold/v4"
)

const (
	maxAttempts   = 100
	maxRetryDelay = 2 * time.Millisecond
)

var errClosed = errors.New("badger store is closed")

type txnKey struct{}

// Manager implements storage.RepoManager on a badgerhold store.
type Manager struct {
	store *badgerhold.Store
}

// Open opens (or creates) the store in dir. An empty dir keeps everything in memory.
func Open(dir string) (*Manager, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = badgerLogger{logger.L()}

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}
	return &Manager{store: store}, nil
}

var _ storage.RepoManager = (*Manager)(nil)

func (m *Manager) Balances() storage.BalanceStore  { return &accountsRepository{m} }
func (m *Manager) Trades() storage.TradeRepository { return &tradesRepository{m} }

func (m *Manager) Ping(context.Context) error {
	if m.store.Badger().IsClosed() {
		return errClosed
	}
	return nil
}

func (m *Manager) Close() error { return m.store.Close() }

// RunTransaction runs fn in one badger transaction, retrying on commit
// conflicts. Nested calls join the outer transaction.
func (m *Manager) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txnKey{}).(*badger.Txn); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = m.runOnce(ctx, fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(rand.N(maxRetryDelay))
	}
	logger.L().Warn().Err(err).Int("attempts", maxAttempts).Msg("badger transaction gave up")
	return err
}

func (m *Manager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	txn := m.store.Badger().NewTransaction(true)
	defer txn.Discard()

	if err := fn(context.WithValue(ctx, txnKey{}, txn)); err != nil {
		return err
	}
	return txn.Commit()
}

// withTxn hands fn the transaction in ctx, or runs it in a fresh one.
func (m *Manager) withTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if txn, ok := ctx.Value(txnKey{}).(*badger.Txn); ok {
		return fn(txn)
	}
	return m.RunTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txnKey{}).(*badger.Txn))
	})
}

// badgerLogger routes badger's internal logs to zerolog, one level quieter.
type badgerLogger struct {
	l *zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Trace().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}
