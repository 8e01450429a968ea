package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/internal/domain/dto"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/middleware"
	"github.com/guttosm/escrowd/internal/service"
	"github.com/shopspring/decimal"
)

type mockExchangeService struct {
	trade    *models.Trade
	trades   []*models.Trade
	account  *models.Account
	err      error
	gotActor string
	gotDir   models.Direction
	gotBase  models.Currency
	gotID    string
	gotFilt  models.StatusFilter
}

func (m *mockExchangeService) Open(_ context.Context, actor string, dir models.Direction, base models.Currency, _, _ decimal.Decimal) (*models.Trade, error) {
	m.gotActor, m.gotDir, m.gotBase = actor, dir, base
	return m.trade, m.err
}

func (m *mockExchangeService) Settle(_ context.Context, actor, id string) (*models.Trade, error) {
	m.gotActor, m.gotID = actor, id
	return m.trade, m.err
}

func (m *mockExchangeService) Cancel(_ context.Context, actor, id string) (*models.Trade, error) {
	m.gotActor, m.gotID = actor, id
	return m.trade, m.err
}

func (m *mockExchangeService) Get(_ context.Context, id string) (*models.Trade, error) {
	m.gotID = id
	return m.trade, m.err
}

func (m *mockExchangeService) ListTrades(_ context.Context, actor string, f models.StatusFilter) ([]*models.Trade, error) {
	m.gotActor, m.gotFilt = actor, f
	return m.trades, m.err
}

func (m *mockExchangeService) Balances(_ context.Context, actor string) (*models.Account, error) {
	m.gotActor = actor
	return m.account, m.err
}

func (m *mockExchangeService) CreateAccount(_ context.Context, id string, b models.Balances) (*models.Account, error) {
	m.gotActor = id
	if m.err != nil {
		return nil, m.err
	}
	return &models.Account{ID: id, Balances: b}, nil
}

var _ service.ExchangeService = (*mockExchangeService)(nil)

func sampleTrade() *models.Trade {
	return &models.Trade{
		ID:           "t-1",
		Proposer:     "alice",
		Direction:    models.DirectionBuy,
		BaseCurrency: models.CurrencySTB,
		Amount:       decimal.NewFromInt(10),
		Rate:         decimal.RequireFromString("0.5"),
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// setupRouterWithMock mounts the handlers without JWT, injecting the acting
// account the way middleware.Auth would.
func setupRouterWithMock(s service.ExchangeService, actor string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s)
	r := gin.New()
	v1 := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(middleware.AccountIDKey, actor)
		c.Next()
	})
	v1.POST("/trades", h.OpenTrade)
	v1.GET("/trades", h.ListTrades)
	v1.GET("/trades/:id", h.GetTrade)
	v1.POST("/trades/:id/settle", h.SettleTrade)
	v1.DELETE("/trades/:id", h.CancelTrade)
	v1.GET("/balances", h.GetBalances)
	v1.POST("/admin/accounts", h.CreateAccount)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOpenTrade_TableDriven(t *testing.T) {
	cases := []struct {
		name   string
		svc    *mockExchangeService
		body   string
		status int
	}{
		{name: "malformed json", svc: &mockExchangeService{}, body: `{`, status: http.StatusBadRequest},
		{name: "missing direction", svc: &mockExchangeService{}, body: `{"currency":"stb","amount":"1","rate":"1"}`, status: http.StatusBadRequest},
		{name: "unknown direction", svc: &mockExchangeService{}, body: `{"direction":"hold","currency":"stb","amount":"1","rate":"1"}`, status: http.StatusBadRequest},
		{name: "unknown currency", svc: &mockExchangeService{}, body: `{"direction":"buy","currency":"usd","amount":"1","rate":"1"}`, status: http.StatusBadRequest},
		{name: "insufficient funds", svc: &mockExchangeService{err: fmt.Errorf("reserve: %w", models.ErrInsufficientFunds)}, body: `{"direction":"buy","currency":"stb","amount":"1","rate":"1"}`, status: http.StatusUnprocessableEntity},
		{name: "internal error", svc: &mockExchangeService{err: errors.New("db down")}, body: `{"direction":"buy","currency":"stb","amount":"1","rate":"1"}`, status: http.StatusInternalServerError},
		{name: "created", svc: &mockExchangeService{trade: sampleTrade()}, body: `{"direction":"purchase","currency":"STB","amount":10,"rate":"0.5"}`, status: http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(setupRouterWithMock(tc.svc, "alice"), http.MethodPost, "/api/v1/trades", tc.body)
			if w.Code != tc.status {
				t.Fatalf("want %d got %d body=%s", tc.status, w.Code, w.Body.String())
			}
			if tc.status != http.StatusCreated {
				var e dto.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Message == "" {
					t.Fatalf("expected ErrorResponse, got %s", w.Body.String())
				}
				return
			}
			if tc.svc.gotActor != "alice" || tc.svc.gotDir != models.DirectionBuy || tc.svc.gotBase != models.CurrencySTB {
				t.Fatalf("service called with %q %v %v", tc.svc.gotActor, tc.svc.gotDir, tc.svc.gotBase)
			}
			var out dto.TradeResponse
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if out.ID != "t-1" || out.Status != models.StatusPending || !out.Gives.Amount.Equal(decimal.NewFromInt(5)) {
				t.Fatalf("unexpected body: %+v", out)
			}
		})
	}
}

func TestInternalErrorDetailsAreHidden(t *testing.T) {
	w := do(setupRouterWithMock(&mockExchangeService{err: errors.New("pq: password authentication failed")}, "alice"),
		http.MethodGet, "/api/v1/trades/t-1", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.InvalidField("amount", "must be positive"), http.StatusBadRequest},
		{models.ErrTradeNotFound, http.StatusNotFound},
		{models.ErrAccountNotFound, http.StatusNotFound},
		{models.ErrAlreadySettled, http.StatusConflict},
		{models.ErrCannotCancelSettled, http.StatusConflict},
		{models.ErrAccountExists, http.StatusConflict},
		{models.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{models.ErrSelfTrade, http.StatusUnprocessableEntity},
		{models.ErrNotTradeOwner, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v)=%d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestTradeRoutes(t *testing.T) {
	settled := sampleTrade()
	settled.Counterparty = "bob"

	cases := []struct {
		name   string
		svc    *mockExchangeService
		method string
		path   string
		status int
		wantID string
	}{
		{name: "get", svc: &mockExchangeService{trade: sampleTrade()}, method: http.MethodGet, path: "/api/v1/trades/t-1", status: http.StatusOK, wantID: "t-1"},
		{name: "get missing", svc: &mockExchangeService{err: models.ErrTradeNotFound}, method: http.MethodGet, path: "/api/v1/trades/nope", status: http.StatusNotFound, wantID: "nope"},
		{name: "settle", svc: &mockExchangeService{trade: settled}, method: http.MethodPost, path: "/api/v1/trades/t-1/settle", status: http.StatusOK, wantID: "t-1"},
		{name: "settle own", svc: &mockExchangeService{err: models.ErrSelfTrade}, method: http.MethodPost, path: "/api/v1/trades/t-1/settle", status: http.StatusUnprocessableEntity, wantID: "t-1"},
		{name: "settle twice", svc: &mockExchangeService{err: models.ErrAlreadySettled}, method: http.MethodPost, path: "/api/v1/trades/t-1/settle", status: http.StatusConflict, wantID: "t-1"},
		{name: "cancel", svc: &mockExchangeService{trade: sampleTrade()}, method: http.MethodDelete, path: "/api/v1/trades/t-1", status: http.StatusOK, wantID: "t-1"},
		{name: "cancel foreign", svc: &mockExchangeService{err: models.ErrNotTradeOwner}, method: http.MethodDelete, path: "/api/v1/trades/t-1", status: http.StatusForbidden, wantID: "t-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(setupRouterWithMock(tc.svc, "bob"), tc.method, tc.path, "")
			if w.Code != tc.status {
				t.Fatalf("want %d got %d body=%s", tc.status, w.Code, w.Body.String())
			}
			if tc.svc.gotID != tc.wantID {
				t.Fatalf("service got id %q, want %q", tc.svc.gotID, tc.wantID)
			}
		})
	}
}

func TestListTrades(t *testing.T) {
	svc := &mockExchangeService{trades: []*models.Trade{sampleTrade()}}
	r := setupRouterWithMock(svc, "alice")

	w := do(r, http.MethodGet, "/api/v1/trades?status=approved", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d", w.Code)
	}
	if svc.gotFilt != models.FilterSettled || svc.gotActor != "alice" {
		t.Fatalf("service got %q %q", svc.gotActor, svc.gotFilt)
	}
	var out dto.TradeListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Count != 1 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	if w := do(r, http.MethodGet, "/api/v1/trades?status=weird", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad filter: code=%d", w.Code)
	}
}

func TestBalancesAndAccounts(t *testing.T) {
	svc := &mockExchangeService{account: &models.Account{ID: "alice", Balances: models.NewBalances(decimal.NewFromInt(3), decimal.NewFromInt(4))}}
	r := setupRouterWithMock(svc, "alice")

	w := do(r, http.MethodGet, "/api/v1/balances", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d", w.Code)
	}
	var bal dto.BalancesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &bal); err != nil || !bal.STB.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/v1/admin/accounts", `{"account":" carol ","stb":"1","gnr":2}`)
	if w.Code != http.StatusCreated || svc.gotActor != "carol" {
		t.Fatalf("code=%d actor=%q", w.Code, svc.gotActor)
	}
	if w := do(r, http.MethodPost, "/api/v1/admin/accounts", `{"stb":"1"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing account: code=%d", w.Code)
	}

	svc.err = models.ErrAccountExists
	if w := do(r, http.MethodPost, "/api/v1/admin/accounts", `{"account":"carol"}`); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: code=%d", w.Code)
	}
}
