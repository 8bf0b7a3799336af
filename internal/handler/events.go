package handler

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/catalog"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// EventView is the public form of an event.
type EventView struct {
	model.Event
	Validators []model.Identity `json:"validators"`
	Minted     uint64           `json:"minted"`
}

type createEventRequest struct {
	Name            string    `json:"name"`
	StartsAt        time.Time `json:"starts_at"`
	Location        string    `json:"location"`
	BasePrice       uint64    `json:"base_price"`
	MaxResaleFactor uint64    `json:"max_resale_factor"`
	Capacity        uint64    `json:"capacity"`
	MetadataCID     string    `json:"metadata_cid"`
	MaxPerWallet    uint64    `json:"max_per_wallet"`
	CooldownSeconds uint64    `json:"cooldown_seconds"`
}

func (h *LedgerHandler) eventView(ev model.Event) EventView {
	v := EventView{Event: ev, Validators: h.Market.Validators(ev.ID), Minted: h.Market.MintedCount(ev.ID)}
	if v.Validators == nil {
		v.Validators = []model.Identity{}
	}
	return v
}

// ListEvents returns every event.
func (h *LedgerHandler) ListEvents(c echo.Context) error {
	events := h.Market.Events()
	out := make([]EventView, 0, len(events))
	for _, ev := range events {
		out = append(out, h.eventView(ev))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetEvent returns one event with its validators and minted count.
func (h *LedgerHandler) GetEvent(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ev, err := h.Market.Event(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, h.eventView(ev))
}

// GetBuyer returns a wallet's primary purchase counters for an event.
func (h *LedgerHandler) GetBuyer(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	who, ok := walletParam(c, "wallet")
	if !ok {
		return badRequest(c, "invalid wallet address")
	}
	if _, err := h.Market.Event(id); err != nil {
		return fail(c, err)
	}
	st := h.Market.BuyerState(id, who)
	return c.JSON(http.StatusOK, echo.Map{
		"event_id":      id,
		"wallet":        who,
		"purchased":     st.Purchased,
		"last_purchase": st.LastPurchase,
		"is_validator":  h.Market.IsValidator(id, who),
		"can_admit":     h.Market.IsOrganizerOrValidator(id, who),
	})
}

// maxCooldownSeconds is the largest cooldown that fits a time.Duration.
const maxCooldownSeconds = uint64(math.MaxInt64 / int64(time.Second))

// CreateEvent registers an event organized by the caller.
func (h *LedgerHandler) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.StartsAt.IsZero() {
		return badRequest(c, "starts_at is required")
	}
	if req.CooldownSeconds > maxCooldownSeconds {
		return badRequest(c, "cooldown_seconds out of range")
	}
	in := catalog.CreateEventInput{
		Name:            strings.TrimSpace(req.Name),
		StartsAt:        req.StartsAt.UTC(),
		Location:        strings.TrimSpace(req.Location),
		BasePrice:       req.BasePrice,
		MaxResaleFactor: req.MaxResaleFactor,
		Capacity:        req.Capacity,
		MetadataCID:     strings.TrimSpace(req.MetadataCID),
		MaxPerWallet:    req.MaxPerWallet,
		Cooldown:        time.Duration(req.CooldownSeconds) * time.Second,
	}
	id, err := h.Market.CreateEvent(c.Request().Context(), caller(c), in)
	if err != nil {
		return fail(c, err)
	}
	if err := h.persist(c); err != nil {
		return notPersisted(c, err)
	}
	ev, err := h.Market.Event(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, h.eventView(ev))
}

// SetEventActive activates or deactivates an event.
func (h *LedgerHandler) SetEventActive(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return badRequest(c, "active is required")
	}
	if err := h.Market.SetEventActive(c.Request().Context(), caller(c), id, *req.Active); err != nil {
		return fail(c, err)
	}
	if err := h.persist(c); err != nil {
		return notPersisted(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "active": *req.Active})
}

// SetValidator grants or revokes admission rights for the wallet in the path.
func (h *LedgerHandler) SetValidator(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	who, ok := walletParam(c, "wallet")
	if !ok {
		return badRequest(c, "invalid wallet address")
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return badRequest(c, "enabled is required")
	}
	if err := h.Market.SetValidator(c.Request().Context(), caller(c), id, who, *req.Enabled); err != nil {
		return fail(c, err)
	}
	if err := h.persist(c); err != nil {
		return notPersisted(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "wallet": who, "enabled": *req.Enabled})
}

// BuyPrimary sells the caller a new ticket at the base price.
func (h *LedgerHandler) BuyPrimary(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req struct {
		Paid uint64 `json:"paid"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ticketID, err := h.Market.BuyPrimary(c.Request().Context(), id, req.Paid, caller(c))
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
	return c.JSON(http.StatusCreated, t)
}
