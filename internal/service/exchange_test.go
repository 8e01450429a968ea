package service

import (
	"context"
	"testing"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/ledger"
	"github.com/guttosm/escrowd/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) ExchangeService {
	t.Helper()
	svc := NewExchangeService(ledger.New(memory.New()))
	for _, id := range []string{"alice", "bob"} {
		_, err := svc.CreateAccount(context.Background(), id, models.NewBalances(decimal.NewFromInt(100), decimal.NewFromInt(100)))
		require.NoError(t, err)
	}
	return svc
}

func TestExchangeService_OpenSettle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	tr, err := svc.Open(ctx, "alice", models.DirectionBuy, models.CurrencySTB, decimal.NewFromInt(10), decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.Equal(t, "alice", tr.Proposer)

	settled, err := svc.Settle(ctx, "bob", tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", settled.Counterparty)

	acc, err := svc.Balances(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, acc.Balances.Equal(models.NewBalances(decimal.NewFromInt(90), decimal.NewFromInt(105))))

	got, err := svc.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettled, got.Status())
}

func TestExchangeService_Cancel(t *testing.T) {
	cases := []struct {
		name    string
		actor   string
		tradeID func(id string) string
		wantErr error
	}{
		{name: "proposer cancels", actor: "alice", tradeID: func(id string) string { return id }},
		{name: "other account", actor: "bob", tradeID: func(id string) string { return id }, wantErr: models.ErrNotTradeOwner},
		{name: "unknown trade", actor: "alice", tradeID: func(string) string { return "missing" }, wantErr: models.ErrTradeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			svc := newService(t)
			tr, err := svc.Open(ctx, "alice", models.DirectionSell, models.CurrencyGNR, decimal.NewFromInt(10), decimal.NewFromInt(2))
			require.NoError(t, err)

			_, err = svc.Cancel(ctx, tc.actor, tc.tradeID(tr.ID))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				pending, _ := svc.ListTrades(ctx, "alice", models.FilterPending)
				assert.Len(t, pending, 1)
				return
			}
			require.NoError(t, err)
			acc, err := svc.Balances(ctx, "alice")
			require.NoError(t, err)
			assert.True(t, acc.Balances.Equal(models.NewBalances(decimal.NewFromInt(100), decimal.NewFromInt(100))))
		})
	}
}

func TestExchangeService_ListTrades(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Open(ctx, "alice", models.DirectionBuy, models.CurrencySTB, decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)

	mine, err := svc.ListTrades(ctx, "alice", models.FilterAll)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.ListTrades(ctx, "bob", models.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
