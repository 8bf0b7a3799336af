package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

// TicketView is a ticket plus the listing holding it in escrow, if any.
type TicketView struct {
	model.Ticket
	ListingID uint64 `json:"listing_id,omitempty"`
}

func (h *LedgerHandler) ticketView(t model.Ticket) TicketView {
	v := TicketView{Ticket: t}
	if l, ok := h.Market.ActiveListingFor(t.ID); ok {
		v.ListingID = l.ID
	}
	return v
}

// GetTicket returns a ticket's owner, state and event.
func (h *LedgerHandler) GetTicket(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	t, err := h.Market.Ticket(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, h.ticketView(t))
}

// WalletTickets lists the tickets a wallet holds.
func (h *LedgerHandler) WalletTickets(c echo.Context) error {
	who, ok := walletParam(c, "wallet")
	if !ok {
		return badRequest(c, "invalid wallet address")
	}
	ids := h.Market.TicketsOf(who)
	out := make([]TicketView, 0, len(ids))
	for _, id := range ids {
		t, err := h.Market.Ticket(id)
		if err != nil {
			return fail(c, err)
		}
		out = append(out, h.ticketView(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"wallet": who, "items": out})
}

// WalletBalance returns the resale proceeds credited to a wallet.
func (h *LedgerHandler) WalletBalance(c echo.Context) error {
	who, ok := walletParam(c, "wallet")
	if !ok {
		return badRequest(c, "invalid wallet address")
	}
	return c.JSON(http.StatusOK, echo.Map{"wallet": who, "balance": h.Balances.Balance(who)})
}

// ListForResale escrows the caller's ticket under a new listing.
func (h *LedgerHandler) ListForResale(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	var req struct {
		Price uint64 `json:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	listingID, err := h.Market.ListForResale(c.Request().Context(), id, req.Price, caller(c))
	if err != nil {
		return fail(c, err)
	}
	if err := h.persist(c); err != nil {
		return notPersisted(c, err)
	}
	l, err := h.Market.Listing(listingID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// GetListing returns a listing.
func (h *LedgerHandler) GetListing(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	l, err := h.Market.Listing(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// BuyFromResale settles a listing for the caller.
func (h *LedgerHandler) BuyFromResale(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req struct {
		Paid uint64 `json:"paid"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ticketID, err := h.Market.BuyFromResale(c.Request().Context(), id, req.Paid, caller(c))
	if err != nil {
		return fail(c, err)
	}
	if err := h.persist(c); err != nil {
		return notPersisted(c, err)
	}
	t, err := h.Market.Ticket(ticketID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, h.ticketView(t))
}

// CancelListing withdraws a listing and returns the ticket to its seller.
func (h *LedgerHandler) CancelListing(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	if err := h.Market.CancelListing(c.Request().Context(), id, caller(c)); err != nil {
		return fail(c, err)
	}
	if err := h.persist(c); err != nil {
		return notPersisted(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UseTicket admits a ticket at the door.
func (h *LedgerHandler) UseTicket(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	if err := h.Market.MarkTicketUsed(c.Request().Context(), id, caller(c)); err != nil {
		return fail(c, err)
	}
	if err := h.persist(c); err != nil {
		return notPersisted(c, err)
	}
	t, err := h.Market.Ticket(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, h.ticketView(t))
}
