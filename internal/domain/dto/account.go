package dto

import (
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest is the body of POST /api/v1/admin/accounts.
type CreateAccountRequest struct {
	Account string          `json:"account" binding:"required" example:"alice"`
	STB     decimal.Decimal `json:"stb" swaggertype:"string" example:"100"`
	GNR     decimal.Decimal `json:"gnr" swaggertype:"string" example:"100"`
}

type BalancesResponse struct {
	Account string          `json:"account" example:"alice"`
	STB     decimal.Decimal `json:"stb" swaggertype:"string" example:"100"`
	GNR     decimal.Decimal `json:"gnr" swaggertype:"string" example:"95"`
}

func NewBalancesResponse(acc *models.Account) BalancesResponse {
	return BalancesResponse{
		Account: acc.ID,
		STB:     acc.Balances.Get(models.CurrencySTB),
		GNR:     acc.Balances.Get(models.CurrencyGNR),
	}
}
