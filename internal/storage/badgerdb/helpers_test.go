package badgerdb

import (
	"time"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
)

func newAccount(id string) *models.Account {
	now := time.Now().UTC()
	return &models.Account{
		ID:        id,
		Balances:  models.NewBalances(decimal.NewFromInt(1), decimal.NewFromInt(2)),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
