package market

import (
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// Event returns the full event record.
func (m *Market) Event(eventID uint64) (model.Event, error) {
	return m.catalog.Get(eventID)
}

// Events returns every event ordered by id.
func (m *Market) Events() []model.Event {
	return m.catalog.List()
}

// Validators returns the validator set of an event.
func (m *Market) Validators(eventID uint64) []model.Identity {
	return m.catalog.Validators(eventID)
}

// IsValidator reports whether who validates the event; unknown events yield false.
func (m *Market) IsValidator(eventID uint64, who model.Identity) bool {
	return m.catalog.IsValidator(eventID, who)
}

// IsOrganizerOrValidator reports whether who organizes or validates the event.
func (m *Market) IsOrganizerOrValidator(eventID uint64, who model.Identity) bool {
	return m.catalog.IsOrganizerOrValidator(eventID, who)
}

// Ticket returns the ticket's owner, state and event.
func (m *Market) Ticket(ticketID uint64) (model.Ticket, error) {
	return m.registry.Get(ticketID)
}

// TicketsOf returns the ids of tickets owner currently holds.
func (m *Market) TicketsOf(owner model.Identity) []uint64 {
	return m.registry.TicketsOf(owner)
}

// Listing returns the full listing record.
func (m *Market) Listing(listingID uint64) (model.Listing, error) {
	m.state.RLock()
	defer m.state.RUnlock()
	l, ok := m.listings[listingID]
	if !ok {
		return model.Listing{}, model.ErrListingNotFound
	}
	return *l, nil
}

// ActiveListingFor returns the open listing holding ticketID in escrow.
func (m *Market) ActiveListingFor(ticketID uint64) (model.Listing, bool) {
	m.state.RLock()
	defer m.state.RUnlock()
	id, ok := m.escrowed[ticketID]
	if !ok {
		return model.Listing{}, false
	}
	return *m.listings[id], true
}

// MintedCount returns how many primary tickets were sold for eventID.
func (m *Market) MintedCount(eventID uint64) uint64 {
	m.state.RLock()
	defer m.state.RUnlock()
	return m.minted[eventID]
}

// BuyerState returns wallet's primary purchase counters for eventID.
func (m *Market) BuyerState(eventID uint64, wallet model.Identity) model.BuyerState {
	m.state.RLock()
	defer m.state.RUnlock()
	return m.buyers[buyerKey{eventID: eventID, wallet: wallet}]
}

// Records returns up to limit log records after seq.
func (m *Market) Records(after uint64, limit int) []model.Record {
	return m.journal.Since(after, limit)
}

// Head returns the sequence number of the newest log record.
func (m *Market) Head() uint64 {
	return m.journal.Head()
}

// Updated fires after new records are appended.
func (m *Market) Updated() <-chan struct{} {
	return m.journal.Updated()
}
