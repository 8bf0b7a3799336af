package model

// TicketState is the lifecycle state of a minted ticket.
type TicketState string

const (
	TicketValid     TicketState = "VALID"
	TicketUsed      TicketState = "USED"
	TicketCancelled TicketState = "CANCELLED"
)

// Ticket is a uniquely owned admission record for one event. IDs are
// global across events.
type Ticket struct {
	ID      uint64      `json:"id"`
	EventID uint64      `json:"event_id"`
	Owner   Identity    `json:"owner"`
	State   TicketState `json:"state"`
}

// Escrowed reports whether the ticket is currently held by the market for resale.
func (t Ticket) Escrowed() bool {
	return t.Owner == EscrowIdentity
}
