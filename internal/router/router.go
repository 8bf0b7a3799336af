// Package router wires the ledger handlers onto echo.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/handler"
	"github.com/iliyamo/ticket-ledger/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the read API. cache wraps every read except
// wallet balances, which are served live from the vault.
func RegisterPublic(e *echo.Echo, h *handler.LedgerHandler, cache echo.MiddlewareFunc) {
	// Middleware is attached per route: the read and write groups share
	// the /v1 prefix and group-level middleware would leak across them.
	g := e.Group("/v1")
	g.GET("/events", h.ListEvents, cache)
	g.GET("/events/:id", h.GetEvent, cache)
	g.GET("/events/:id/buyers/:wallet", h.GetBuyer, cache)
	g.GET("/tickets/:id", h.GetTicket, cache)
	g.GET("/listings/:id", h.GetListing, cache)
	g.GET("/wallets/:wallet/tickets", h.WalletTickets, cache)
	g.GET("/wallets/:wallet/balance", h.WalletBalance)
	g.GET("/records", h.ListRecords, cache)
}

// RegisterLedger registers the write API. Every route requires a bearer
// token and is rate limited per wallet.
func RegisterLedger(e *echo.Echo, h *handler.LedgerHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), limiter}
	g := e.Group("/v1")
	g.POST("/events", h.CreateEvent, mw...)
	g.PUT("/events/:id/active", h.SetEventActive, mw...)
	g.PUT("/events/:id/validators/:wallet", h.SetValidator, mw...)
	g.POST("/events/:id/purchase", h.BuyPrimary, mw...)
	g.POST("/tickets/:id/listing", h.ListForResale, mw...)
	g.POST("/listings/:id/purchase", h.BuyFromResale, mw...)
	g.DELETE("/listings/:id", h.CancelListing, mw...)
	g.POST("/tickets/:id/use", h.UseTicket, mw...)
}
