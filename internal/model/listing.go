package model

// Listing is a resale offer for one escrowed ticket. A listing is closed
// exactly once, either by a purchase or by the seller cancelling it.
type Listing struct {
	ID       uint64   `json:"id"`
	TicketID uint64   `json:"ticket_id"`
	Seller   Identity `json:"seller"`
	Price    uint64   `json:"price"`
	Active   bool     `json:"active"`
}
