package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/internal/auth"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/ledger"
	"github.com/guttosm/escrowd/internal/service"
	"github.com/guttosm/escrowd/internal/storage/memory"
)

func TestNewRouter_WiringAndMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, err := auth.NewTokenIssuer("router-test-secret-123", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	svc := service.NewExchangeService(ledger.New(memory.New()))
	r := NewRouter(NewHandler(svc), tokens)

	admin, _ := tokens.Generate("ops", true)
	alice, _ := tokens.Generate("alice", false)
	bob, _ := tokens.Generate("bob", false)

	send := func(method, path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// Unauthenticated calls never reach the handlers.
	w := send(http.MethodGet, "/api/v1/balances", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	// Only admin tokens may create accounts.
	if w := send(http.MethodPost, "/api/v1/admin/accounts", alice, `{"account":"alice","stb":"100","gnr":"100"}`); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	for _, id := range []string{"alice", "bob"} {
		if w := send(http.MethodPost, "/api/v1/admin/accounts", admin, `{"account":"`+id+`","stb":"100","gnr":"100"}`); w.Code != http.StatusCreated {
			t.Fatalf("create %s: %d %s", id, w.Code, w.Body.String())
		}
	}

	w = send(http.MethodPost, "/api/v1/trades", alice, `{"direction":"buy","currency":"stb","amount":"10","rate":"0.5"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("open: %d %s", w.Code, w.Body.String())
	}
	id := extractID(t, w.Body.String())

	if w := send(http.MethodDelete, "/api/v1/trades/"+id, bob, ""); w.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel: %d", w.Code)
	}
	if w := send(http.MethodPost, "/api/v1/trades/"+id+"/settle", alice, ""); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("self settle: %d", w.Code)
	}
	if w := send(http.MethodPost, "/api/v1/trades/"+id+"/settle", bob, ""); w.Code != http.StatusOK {
		t.Fatalf("settle: %d %s", w.Code, w.Body.String())
	}
	if w := send(http.MethodDelete, "/api/v1/trades/"+id, alice, ""); w.Code != http.StatusConflict {
		t.Fatalf("cancel settled: %d", w.Code)
	}

	w = send(http.MethodGet, "/api/v1/balances", bob, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"stb":"90"`) || !strings.Contains(w.Body.String(), `"gnr":"105"`) {
		t.Fatalf("bob balances: %d %s", w.Code, w.Body.String())
	}

	w = send(http.MethodGet, "/api/v1/trades?status="+string(models.FilterSettled), alice, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), id) {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	if w := send(http.MethodGet, "/metrics", "", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "escrowd_transitions_total") {
		t.Fatalf("metrics: %d", w.Code)
	}
}

func extractID(t *testing.T, body string) string {
	t.Helper()
	const key = `"id":"`
	i := strings.Index(body, key)
	if i < 0 {
		t.Fatalf("no id in %s", body)
	}
	rest := body[i+len(key):]
	return rest[:strings.IndexByte(rest, '"')]
}
