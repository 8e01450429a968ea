package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/internal/domain/dto"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/middleware"
	"github.com/guttosm/escrowd/internal/service"
)

// Handler provides HTTP handlers for the trade and balance endpoints.
//
// Responsibilities:
//   - Parse and validate request bodies and path/query parameters
//   - Call the exchange service on behalf of the authenticated account
//   - Translate domain errors into HTTP status codes and ErrorResponse bodies
type Handler struct {
	svc service.ExchangeService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.ExchangeService) *Handler {
	return &Handler{svc: svc}
}

// OpenTrade handles POST /api/v1/trades.
//
// OpenTrade godoc
// @Summary      Propose a trade
// @Description  Reserves the proposer's side and records a pending trade at a fixed rate
// @Tags         trades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.OpenTradeRequest  true  "Trade proposal"
// @Success      201   {object}  dto.TradeResponse     "Created"
// @Failure      400   {object}  dto.ErrorResponse     "Bad Request"
// @Failure      401   {object}  dto.ErrorResponse     "Unauthorized"
// @Failure      404   {object}  dto.ErrorResponse     "Account not found"
// @Failure      422   {object}  dto.ErrorResponse     "Insufficient funds"
// @Failure      500   {object}  dto.ErrorResponse     "Internal Error"
// @Router       /api/v1/trades [post]
func (h *Handler) OpenTrade(c *gin.Context) {
	// ─── Parse body ───────────────────────────────────────────
	var req dto.OpenTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	dir, err := models.ParseDirection(req.Direction)
	if err != nil {
		respondError(c, err)
		return
	}
	base, err := models.ParseCurrency(req.Currency)
	if err != nil {
		respondError(c, err)
		return
	}

	// ─── Reserve and record ───────────────────────────────────
	t, err := h.svc.Open(c.Request.Context(), middleware.AccountID(c), dir, base, req.Amount, req.Rate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewTradeResponse(t))
}

// GetTrade godoc
// @Summary      Get a trade
// @Tags         trades
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Trade id"
// @Success      200  {object}  dto.TradeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/trades/{id} [get]
func (h *Handler) GetTrade(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTradeResponse(t))
}

// SettleTrade godoc
// @Summary      Accept a pending trade
// @Description  The authenticated account becomes the counterparty; both legs are exchanged atomically
// @Tags         trades
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Trade id"
// @Success      200  {object}  dto.TradeResponse
// @Failure      404  {object}  dto.ErrorResponse  "Trade not found"
// @Failure      409  {object}  dto.ErrorResponse  "Already settled"
// @Failure      422  {object}  dto.ErrorResponse  "Insufficient funds or self trade"
// @Router       /api/v1/trades/{id}/settle [post]
func (h *Handler) SettleTrade(c *gin.Context) {
	t, err := h.svc.Settle(c.Request.Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTradeResponse(t))
}

// CancelTrade godoc
// @Summary      Cancel a pending trade
// @Description  Returns the reservation to the proposer and deletes the trade
// @Tags         trades
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Trade id"
// @Success      200  {object}  dto.TradeResponse  "The cancelled trade"
// @Failure      403  {object}  dto.ErrorResponse  "Not the proposer"
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "Already settled"
// @Router       /api/v1/trades/{id} [delete]
func (h *Handler) CancelTrade(c *gin.Context) {
	t, err := h.svc.Cancel(c.Request.Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTradeResponse(t))
}

// ListTrades godoc
// @Summary      List own trades
// @Tags         trades
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "all, pending or settled"  Enums(all, pending, settled)
// @Success      200     {object}  dto.TradeListResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/v1/trades [get]
func (h *Handler) ListTrades(c *gin.Context) {
	filter, err := models.ParseStatusFilter(c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	trades, err := h.svc.ListTrades(c.Request.Context(), middleware.AccountID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTradeListResponse(trades))
}

// GetBalances godoc
// @Summary      Own balances
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.BalancesResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/balances [get]
func (h *Handler) GetBalances(c *gin.Context) {
	acc, err := h.svc.Balances(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBalancesResponse(acc))
}

// CreateAccount godoc
// @Summary      Create an account (operator)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateAccountRequest  true  "Account and starting balances"
// @Success      201   {object}  dto.BalancesResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse  "Account exists"
// @Router       /api/v1/admin/accounts [post]
func (h *Handler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	acc, err := h.svc.CreateAccount(c.Request.Context(), strings.TrimSpace(req.Account), models.NewBalances(req.STB, req.GNR))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewBalancesResponse(acc))
}

// statusFor maps domain errors to an HTTP status and a short message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid argument"
	case errors.Is(err, models.ErrTradeNotFound):
		return http.StatusNotFound, "trade not found"
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, models.ErrAlreadySettled):
		return http.StatusConflict, "trade already settled"
	case errors.Is(err, models.ErrCannotCancelSettled):
		return http.StatusConflict, "settled trades cannot be cancelled"
	case errors.Is(err, models.ErrAccountExists):
		return http.StatusConflict, "account already exists"
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient funds"
	case errors.Is(err, models.ErrSelfTrade):
		return http.StatusUnprocessableEntity, "cannot settle your own trade"
	case errors.Is(err, models.ErrNotTradeOwner):
		return http.StatusForbidden, "only the proposer can cancel a trade"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, dto.NewErrorResponse(msg, nil))
		return
	}
	middleware.AbortWithError(c, status, msg, err)
}
