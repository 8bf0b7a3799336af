package model

import "time"

// Event is a ticketed occurrence. ID, Organizer and Capacity never change
// after creation; Active is the only mutable attribute (validators are kept
// by the catalog alongside it).
type Event struct {
	ID              uint64        `json:"id"`
	Name            string        `json:"name"`
	StartsAt        time.Time     `json:"starts_at"`
	Location        string        `json:"location"`
	// BasePrice is the primary sale price in the smallest currency unit.
	BasePrice uint64 `json:"base_price"`
	// MaxResaleFactor caps resale prices as a percentage of BasePrice.
	MaxResaleFactor uint64 `json:"max_resale_factor"`
	Capacity        uint64 `json:"capacity"`
	// MetadataCID is opaque and returned verbatim.
	MetadataCID string   `json:"metadata_cid"`
	Organizer   Identity `json:"organizer"`
	Active      bool     `json:"active"`
	// MaxPerWallet limits primary purchases per wallet; zero means unlimited.
	MaxPerWallet uint64 `json:"max_per_wallet"`
	// Cooldown is the minimum gap between primary purchases of one wallet.
	// Zero disables it; negative values are rejected at creation.
	Cooldown time.Duration `json:"cooldown"`
}

// HasStarted reports whether the event's scheduled time is at or before now.
func (e Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartsAt)
}

// BuyerState tracks primary purchases of one wallet for one event. The
// counters only ever grow.
type BuyerState struct {
	Purchased    uint64    `json:"purchased"`
	LastPurchase time.Time `json:"last_purchase"`
}
