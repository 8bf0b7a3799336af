// Package handler exposes the ledger over HTTP. Reads are public; every
// write acts as the wallet named by the bearer token.
package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/market"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// Balances reports resale proceeds credited to a wallet.
type Balances interface {
	Balance(id model.Identity) uint64
}

// Persister writes the journal through to durable storage.
type Persister interface {
	Persist(ctx context.Context) error
}

// LedgerHandler serves every /v1 route. When Persister is set, a write is
// acknowledged only after the records it appended are stored.
type LedgerHandler struct {
	Market    *market.Market
	Balances  Balances
	Persister Persister
}

// NewLedgerHandler panics when a dependency is missing.
func NewLedgerHandler(m *market.Market, b Balances) *LedgerHandler {
	if m == nil || b == nil {
		panic("nil dependency passed to NewLedgerHandler")
	}
	return &LedgerHandler{Market: m, Balances: b}
}

func (h *LedgerHandler) persist(c echo.Context) error {
	if h.Persister == nil {
		return nil
	}
	return h.Persister.Persist(c.Request().Context())
}
