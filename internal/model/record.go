package model

import "time"

// RecordKind names the state change a Record describes.
type RecordKind string

const (
	KindEventCreated       RecordKind = "event.created"
	KindEventStatusChanged RecordKind = "event.status_changed"
	KindEventValidatorSet  RecordKind = "event.validator_set"
	KindTicketMinted       RecordKind = "ticket.minted"
	KindTicketStateChanged RecordKind = "ticket.state_changed"
	KindTicketTransferred  RecordKind = "ticket.transferred"
	KindTicketValidated    RecordKind = "ticket.validated"
	KindListingCreated     RecordKind = "listing.created"
	KindListingClosed      RecordKind = "listing.closed"
)

// Record is one immutable entry of the ledger log. Only the fields relevant
// to Kind are set. Hash covers the JSON encoding of the record with Hash
// left empty, and PrevHash links it to the record before it.
type Record struct {
	Seq       uint64      `json:"seq"`
	Kind      RecordKind  `json:"kind"`
	At        time.Time   `json:"at"`
	EventID   uint64      `json:"event_id,omitempty"`
	TicketID  uint64      `json:"ticket_id,omitempty"`
	ListingID uint64      `json:"listing_id,omitempty"`
	Actor     Identity    `json:"actor,omitempty"`
	From      Identity    `json:"from,omitempty"`
	To        Identity    `json:"to,omitempty"`
	Amount    uint64      `json:"amount,omitempty"`
	State     TicketState `json:"state,omitempty"`
	Active    *bool       `json:"active,omitempty"`
	Event     *Event      `json:"event,omitempty"`
	PrevHash  string      `json:"prev_hash"`
	Hash      string      `json:"hash"`
}

// Flag returns a pointer to b for use in Record.Active.
func Flag(b bool) *bool { return &b }
