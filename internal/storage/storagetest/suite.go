// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Options tunes the suite for a backend.
type Options struct {
	// Transactional backends roll back every write made inside a failed
	// RunTransaction.
	Transactional bool
}

// Run executes the suite. newManager must return an empty, ready manager;
// the suite closes it.
func Run(t *testing.T, newManager func(t *testing.T) storage.RepoManager, opts Options) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newManager(t)) })
	t.Run("adjust", func(t *testing.T) { testAdjust(t, newManager(t)) })
	t.Run("concurrent adjust", func(t *testing.T) { testConcurrentAdjust(t, newManager(t)) })
	t.Run("trades", func(t *testing.T) { testTrades(t, newManager(t)) })
	t.Run("list by account", func(t *testing.T) { testListByAccount(t, newManager(t)) })
	t.Run("concurrent mark settled", func(t *testing.T) { testConcurrentMarkSettled(t, newManager(t)) })
	if opts.Transactional {
		t.Run("rollback", func(t *testing.T) { testRollback(t, newManager(t)) })
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func uniqueID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func seedAccount(t *testing.T, m storage.RepoManager, stb, gnr string) string {
	t.Helper()
	id := uniqueID("acc")
	ts := now()
	err := m.Balances().CreateAccount(context.Background(), &models.Account{
		ID:        id,
		Balances:  models.NewBalances(d(stb), d(gnr)),
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	require.NoError(t, err)
	return id
}

func requireBalances(t *testing.T, m storage.RepoManager, id, stb, gnr string) {
	t.Helper()
	acc, err := m.Balances().GetAccount(context.Background(), id)
	require.NoError(t, err)
	want := models.NewBalances(d(stb), d(gnr))
	require.Truef(t, acc.Balances.Equal(want), "balances of %s = (%s, %s), want (%s, %s)",
		id, acc.Balances.Get(models.CurrencySTB), acc.Balances.Get(models.CurrencyGNR), stb, gnr)
}

func newTrade(proposer string, createdAt time.Time) *models.Trade {
	return &models.Trade{
		ID:           uuid.NewString(),
		Proposer:     proposer,
		Direction:    models.DirectionBuy,
		BaseCurrency: models.CurrencySTB,
		Amount:       d("10"),
		Rate:         d("0.5"),
		CreatedAt:    createdAt,
	}
}

func testAccounts(t *testing.T, m storage.RepoManager) {
	defer m.Close()
	ctx := context.Background()

	id := seedAccount(t, m, "100", "0.5")
	requireBalances(t, m, id, "100", "0.5")

	err := m.Balances().CreateAccount(ctx, &models.Account{ID: id, CreatedAt: now(), UpdatedAt: now()})
	require.ErrorIs(t, err, models.ErrAccountExists)

	_, err = m.Balances().GetAccount(ctx, uniqueID("missing"))
	require.ErrorIs(t, err, models.ErrAccountNotFound)
}

func testAdjust(t *testing.T, m storage.RepoManager) {
	defer m.Close()
	ctx := context.Background()
	bs := m.Balances()
	id := seedAccount(t, m, "100", "100")

	require.NoError(t, bs.Adjust(ctx, id, models.CurrencyGNR, d("-5")))
	require.NoError(t, bs.Adjust(ctx, id, models.CurrencySTB, d("10.12345678")))
	requireBalances(t, m, id, "110.12345678", "95")

	err := bs.Adjust(ctx, id, models.CurrencyGNR, d("-95.00000001"))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
	requireBalances(t, m, id, "110.12345678", "95")

	require.NoError(t, bs.Adjust(ctx, id, models.CurrencyGNR, d("-95")))
	requireBalances(t, m, id, "110.12345678", "0")

	err = bs.Adjust(ctx, uniqueID("missing"), models.CurrencySTB, d("1"))
	require.ErrorIs(t, err, models.ErrAccountNotFound)
}

func testConcurrentAdjust(t *testing.T, m storage.RepoManager) {
	defer m.Close()
	ctx := context.Background()
	id := seedAccount(t, m, "20", "0")

	const workers = 50
	var ok, insufficient atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.RunTransaction(ctx, func(ctx context.Context) error {
				return m.Balances().Adjust(ctx, id, models.CurrencySTB, d("-1"))
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, models.ErrInsufficientFunds):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 20, ok.Load())
	require.EqualValues(t, workers-20, insufficient.Load())
	requireBalances(t, m, id, "0", "0")
}

func testTrades(t *testing.T, m storage.RepoManager) {
	defer m.Close()
	ctx := context.Background()
	repo := m.Trades()
	proposer := seedAccount(t, m, "0", "0")
	counterparty := seedAccount(t, m, "0", "0")

	tr := newTrade(proposer, now())
	tr.Amount = d("12.00000001")
	tr.Rate = d("0.25")
	require.NoError(t, repo.Save(ctx, tr))

	got, err := repo.FindByID(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, tr.Proposer, got.Proposer)
	require.Equal(t, models.DirectionBuy, got.Direction)
	require.Equal(t, models.CurrencySTB, got.BaseCurrency)
	require.True(t, tr.Amount.Equal(got.Amount), "amount %s", got.Amount)
	require.True(t, tr.Rate.Equal(got.Rate), "rate %s", got.Rate)
	require.True(t, tr.CreatedAt.Equal(got.CreatedAt), "created_at %s", got.CreatedAt)
	require.Equal(t, models.StatusPending, got.Status())
	require.Nil(t, got.SettledAt)

	_, err = repo.FindByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, models.ErrTradeNotFound)

	settledAt := now()
	require.NoError(t, repo.MarkSettled(ctx, tr.ID, counterparty, settledAt))
	got, err = repo.FindByID(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, counterparty, got.Counterparty)
	require.NotNil(t, got.SettledAt)
	require.True(t, settledAt.Equal(*got.SettledAt))

	err = repo.MarkSettled(ctx, tr.ID, proposer, now())
	require.ErrorIs(t, err, models.ErrAlreadySettled)
	err = repo.MarkSettled(ctx, uuid.NewString(), counterparty, now())
	require.ErrorIs(t, err, models.ErrTradeNotFound)

	err = repo.Delete(ctx, tr.ID)
	require.ErrorIs(t, err, models.ErrCannotCancelSettled)

	pending := newTrade(proposer, now())
	require.NoError(t, repo.Save(ctx, pending))
	require.NoError(t, repo.Delete(ctx, pending.ID))
	_, err = repo.FindByID(ctx, pending.ID)
	require.ErrorIs(t, err, models.ErrTradeNotFound)
	err = repo.Delete(ctx, pending.ID)
	require.ErrorIs(t, err, models.ErrTradeNotFound)
}

func testListByAccount(t *testing.T, m storage.RepoManager) {
	defer m.Close()
	ctx := context.Background()
	repo := m.Trades()
	alice := seedAccount(t, m, "0", "0")
	bob := seedAccount(t, m, "0", "0")

	base := now()
	older := newTrade(alice, base.Add(-2*time.Minute))
	newer := newTrade(alice, base.Add(-time.Minute))
	settled := newTrade(alice, base)
	other := newTrade(bob, base)
	for _, tr := range []*models.Trade{older, newer, settled, other} {
		require.NoError(t, repo.Save(ctx, tr))
	}
	require.NoError(t, repo.MarkSettled(ctx, settled.ID, bob, base))

	ids := func(ts []*models.Trade) []string {
		out := make([]string, 0, len(ts))
		for _, tr := range ts {
			out = append(out, tr.ID)
		}
		return out
	}

	all, err := repo.ListByAccount(ctx, alice, models.FilterAll)
	require.NoError(t, err)
	require.Equal(t, []string{settled.ID, newer.ID, older.ID}, ids(all))

	pending, err := repo.ListByAccount(ctx, alice, models.FilterPending)
	require.NoError(t, err)
	require.Equal(t, []string{newer.ID, older.ID}, ids(pending))

	done, err := repo.ListByAccount(ctx, alice, models.FilterSettled)
	require.NoError(t, err)
	require.Equal(t, []string{settled.ID}, ids(done))

	none, err := repo.ListByAccount(ctx, uniqueID("nobody"), models.FilterAll)
	require.NoError(t, err)
	require.Empty(t, none)
}

func testConcurrentMarkSettled(t *testing.T, m storage.RepoManager) {
	defer m.Close()
	ctx := context.Background()
	proposer := seedAccount(t, m, "0", "0")
	counterparty := seedAccount(t, m, "0", "0")
	tr := newTrade(proposer, now())
	require.NoError(t, m.Trades().Save(ctx, tr))

	const workers = 16
	var ok, already atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := m.RunTransaction(ctx, func(ctx context.Context) error {
				return m.Trades().MarkSettled(ctx, tr.ID, counterparty, now())
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, models.ErrAlreadySettled):
				already.Add(1)
			default:
				t.Errorf("worker %d: unexpected error: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, ok.Load())
	require.EqualValues(t, workers-1, already.Load())
}

func testRollback(t *testing.T, m storage.RepoManager) {
	defer m.Close()
	ctx := context.Background()
	id := seedAccount(t, m, "10", "10")
	tr := newTrade(id, now())
	boom := errors.New("boom")

	err := m.RunTransaction(ctx, func(ctx context.Context) error {
		if err := m.Balances().Adjust(ctx, id, models.CurrencyGNR, d("-5")); err != nil {
			return err
		}
		if err := m.Trades().Save(ctx, tr); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	requireBalances(t, m, id, "10", "10")
	_, err = m.Trades().FindByID(ctx, tr.ID)
	require.ErrorIs(t, err, models.ErrTradeNotFound)
}
