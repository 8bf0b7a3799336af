package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/clock"
	"github.com/iliyamo/ticket-ledger/internal/market"
	"github.com/iliyamo/ticket-ledger/internal/middleware"
	"github.com/iliyamo/ticket-ledger/internal/model"
	"github.com/iliyamo/ticket-ledger/internal/payment"
	"github.com/iliyamo/ticket-ledger/internal/utils"
)

const secret = "handler-secret"

const (
	organizer = "0x1000000000000000000000000000000000000001"
	buyerA    = "0x7000000000000000000000000000000000000007"
	buyerB    = "0x8000000000000000000000000000000000000008"
	door      = "0x3000000000000000000000000000000000000003"
)

type server struct {
	e     *echo.Echo
	h     *LedgerHandler
	vault *payment.Vault
}

// newServer mirrors router registration without importing it.
func newServer(t *testing.T) *server {
	t.Helper()
	vault := payment.NewVault()
	m := market.New(market.Options{
		Clock:    clock.NewManual(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)),
		Payments: vault,
	})
	h := NewLedgerHandler(m, vault)

	e := echo.New()
	auth := middleware.JWTAuth(secret)
	e.GET("/v1/events/:id", h.GetEvent)
	e.GET("/v1/tickets/:id", h.GetTicket)
	e.GET("/v1/wallets/:wallet/tickets", h.WalletTickets)
	e.GET("/v1/wallets/:wallet/balance", h.WalletBalance)
	e.GET("/v1/records", h.ListRecords)
	e.POST("/v1/events", h.CreateEvent, auth)
	e.PUT("/v1/events/:id/validators/:wallet", h.SetValidator, auth)
	e.POST("/v1/events/:id/purchase", h.BuyPrimary, auth)
	e.POST("/v1/tickets/:id/listing", h.ListForResale, auth)
	e.POST("/v1/listings/:id/purchase", h.BuyFromResale, auth)
	e.DELETE("/v1/listings/:id", h.CancelListing, auth)
	e.POST("/v1/tickets/:id/use", h.UseTicket, auth)
	return &server{e: e, h: h, vault: vault}
}

func (s *server) do(t *testing.T, method, path, as, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != "" {
		tok, err := utils.NewAccessToken(secret, as, 5)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

const eventBody = `{"name":"Harbour Lights","starts_at":"2026-11-20T19:30:00Z","location":"Pier 4",
"base_price":100,"max_resale_factor":130,"capacity":2,"max_per_wallet":1}`

func TestLedgerFlow(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/v1/events", organizer, eventBody)
	if code != http.StatusCreated || body["id"] != float64(1) || body["organizer"] != organizer {
		t.Fatalf("create event: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/v1/events/1/purchase", buyerA, `{"paid":99}`)
	if code != http.StatusPaymentRequired || body["code"] != "payment_mismatch" {
		t.Fatalf("underpaid purchase: %d %v", code, body)
	}
	code, body = s.do(t, http.MethodPost, "/v1/events/1/purchase", buyerA, `{"paid":100}`)
	if code != http.StatusCreated || body["owner"] != buyerA {
		t.Fatalf("purchase: %d %v", code, body)
	}
	code, body = s.do(t, http.MethodPost, "/v1/events/1/purchase", buyerA, `{"paid":100}`)
	if code != http.StatusConflict || body["code"] != "wallet_limit_reached" {
		t.Fatalf("second purchase: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/v1/tickets/1/listing", buyerA, `{"price":140}`)
	if code != http.StatusBadRequest || body["code"] != "price_above_cap" {
		t.Fatalf("listing above cap: %d %v", code, body)
	}
	code, body = s.do(t, http.MethodPost, "/v1/tickets/1/listing", buyerB, `{"price":120}`)
	if code != http.StatusForbidden || body["code"] != "not_ticket_owner" {
		t.Fatalf("listing by stranger: %d %v", code, body)
	}
	code, body = s.do(t, http.MethodPost, "/v1/tickets/1/listing", buyerA, `{"price":125}`)
	if code != http.StatusCreated || body["id"] != float64(1) {
		t.Fatalf("listing: %d %v", code, body)
	}
	code, body = s.do(t, http.MethodGet, "/v1/tickets/1", "", "")
	if code != http.StatusOK || body["owner"] != string(model.EscrowIdentity) || body["listing_id"] != float64(1) {
		t.Fatalf("escrowed ticket: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/v1/listings/1/purchase", buyerB, `{"paid":125}`)
	if code != http.StatusOK || body["owner"] != buyerB {
		t.Fatalf("resale purchase: %d %v", code, body)
	}
	code, body = s.do(t, http.MethodGet, "/v1/wallets/"+buyerA+"/balance", "", "")
	if code != http.StatusOK || body["balance"] != float64(125) {
		t.Fatalf("seller balance: %d %v", code, body)
	}
	code, body = s.do(t, http.MethodGet, "/v1/wallets/"+buyerB+"/tickets", "", "")
	if items, _ := body["items"].([]any); code != http.StatusOK || len(items) != 1 {
		t.Fatalf("wallet tickets: %d %v", code, body)
	}

	code, _ = s.do(t, http.MethodPost, "/v1/tickets/1/use", buyerB, "")
	if code != http.StatusForbidden {
		t.Fatalf("holder cannot admit own ticket, got %d", code)
	}
	code, _ = s.do(t, http.MethodPut, "/v1/events/1/validators/"+door, organizer, `{"enabled":true}`)
	if code != http.StatusOK {
		t.Fatalf("set validator: %d", code)
	}
	code, body = s.do(t, http.MethodPost, "/v1/tickets/1/use", door, "")
	if code != http.StatusOK || body["state"] != "USED" {
		t.Fatalf("admit: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodGet, "/v1/records?after=0&limit=2", "", "")
	if items, _ := body["items"].([]any); code != http.StatusOK || len(items) != 2 || body["next"] != float64(2) {
		t.Fatalf("records page: %d %v", code, body)
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newServer(t)
	cases := []struct {
		name, method, path, as, body string
		status                       int
		code                         string
	}{
		{"no token", http.MethodPost, "/v1/events", "", eventBody, http.StatusUnauthorized, "unauthenticated"},
		{"validation", http.MethodPost, "/v1/events", organizer, `{"name":"","starts_at":"2026-11-20T19:30:00Z","base_price":1,"capacity":1,"max_resale_factor":100}`, http.StatusBadRequest, "name_required"},
		{"cooldown overflow", http.MethodPost, "/v1/events", organizer, `{"name":"x","starts_at":"2026-11-20T19:30:00Z","base_price":1,"capacity":1,"max_resale_factor":100,"cooldown_seconds":18446744073}`, http.StatusBadRequest, "bad_request"},
		{"missing start", http.MethodPost, "/v1/events", organizer, `{"name":"x"}`, http.StatusBadRequest, "bad_request"},
		{"unknown event", http.MethodGet, "/v1/events/9", "", "", http.StatusNotFound, "event_not_found"},
		{"bad id", http.MethodGet, "/v1/tickets/abc", "", "", http.StatusBadRequest, "bad_request"},
		{"bad wallet", http.MethodGet, "/v1/wallets/0x12/tickets", "", "", http.StatusBadRequest, "bad_request"},
		{"unknown listing", http.MethodDelete, "/v1/listings/4", buyerA, "", http.StatusNotFound, "listing_not_found"},
		{"bad limit", http.MethodGet, "/v1/records?limit=0", "", "", http.StatusBadRequest, "bad_request"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code, body := s.do(t, c.method, c.path, c.as, c.body)
			if code != c.status || body["code"] != c.code {
				t.Fatalf("expected %d %s, got %d %v", c.status, c.code, code, body)
			}
		})
	}
}

type persister struct {
	err   error
	calls int
}

func (p *persister) Persist(context.Context) error {
	p.calls++
	return p.err
}

func TestWritesWaitForPersistence(t *testing.T) {
	s := newServer(t)
	p := &persister{err: errors.New("store offline")}
	s.h.Persister = p

	code, body := s.do(t, http.MethodPost, "/v1/events", organizer, eventBody)
	if code != http.StatusServiceUnavailable || body["code"] != "not_persisted" {
		t.Fatalf("expected 503 not_persisted, got %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/events/1", "", ""); code != http.StatusOK {
		t.Fatalf("write must stay applied when storage lags, got %d", code)
	}

	p.err = nil
	if code, body := s.do(t, http.MethodPost, "/v1/events/1/purchase", buyerA, `{"paid":100}`); code != http.StatusCreated {
		t.Fatalf("purchase: %d %v", code, body)
	}
	if code, _ := s.do(t, http.MethodPost, "/v1/events/1/purchase", buyerA, `{"paid":1}`); code != http.StatusPaymentRequired {
		t.Fatalf("expected rejected purchase, got %d", code)
	}
	s.do(t, http.MethodGet, "/v1/tickets/1", "", "")
	if p.calls != 2 {
		t.Fatalf("expected one persist per applied write, got %d", p.calls)
	}
}

func TestStatusOfUnknownError(t *testing.T) {
	if got := statusOf(context.DeadlineExceeded); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}
