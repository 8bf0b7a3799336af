// Package registry owns ticket identity, state and ownership.
//
// Reads are open to anyone holding the *Registry. Every mutation goes
// through the *Writer returned by New, which the market engine keeps to
// itself; no other path can mint, move or use a ticket.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// EventLookup is the only thing the registry needs from the catalog.
type EventLookup interface {
	Exists(eventID uint64) bool
}

// Registry stores tickets and an owner -> tickets index.
type Registry struct {
	mu      sync.RWMutex
	events  EventLookup
	journal *journal.Journal
	tickets map[uint64]*model.Ticket
	owned   map[model.Identity]map[uint64]struct{}
	nextID  uint64
}

// Writer is the mutation capability for a Registry.
type Writer struct {
	r *Registry
}

// New returns an empty registry and its single writer.
func New(events EventLookup, j *journal.Journal) (*Registry, *Writer) {
	r := &Registry{
		events:  events,
		journal: j,
		tickets: make(map[uint64]*model.Ticket),
		owned:   make(map[model.Identity]map[uint64]struct{}),
	}
	return r, &Writer{r: r}
}

// Mint creates a Valid ticket for eventID owned by to. at is the sale
// time recorded on the log; zero means now.
func (w *Writer) Mint(to model.Identity, eventID uint64, at time.Time) (uint64, error) {
	r := w.r
	if to.IsZero() {
		return 0, model.ErrZeroIdentity
	}
	if !r.events.Exists(eventID) {
		return 0, model.ErrEventNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t := &model.Ticket{ID: r.nextID, EventID: eventID, Owner: to, State: model.TicketValid}
	r.tickets[t.ID] = t
	r.index(to, t.ID)
	r.journal.Append(model.Record{Kind: model.KindTicketMinted, EventID: eventID, TicketID: t.ID, To: to, At: at})
	r.journal.Append(model.Record{Kind: model.KindTicketStateChanged, EventID: eventID, TicketID: t.ID, State: model.TicketValid, At: at})
	return t.ID, nil
}

// Transfer moves a ticket from its current owner to another identity.
// from must match the current owner.
func (w *Writer) Transfer(ticketID uint64, from, to model.Identity) error {
	r := w.r
	if to.IsZero() {
		return model.ErrZeroIdentity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return model.ErrTicketNotFound
	}
	if t.Owner != from {
		return model.ErrNotOwner
	}
	r.unindex(from, ticketID)
	t.Owner = to
	r.index(to, ticketID)
	r.journal.Append(model.Record{Kind: model.KindTicketTransferred, EventID: t.EventID, TicketID: ticketID, From: from, To: to})
	return nil
}

// MarkUsed moves a Valid ticket to Used. It never goes back.
func (w *Writer) MarkUsed(ticketID uint64) error {
	r := w.r
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return model.ErrTicketNotFound
	}
	if t.State != model.TicketValid {
		return model.ErrTicketNotValid
	}
	t.State = model.TicketUsed
	r.journal.Append(model.Record{Kind: model.KindTicketStateChanged, EventID: t.EventID, TicketID: ticketID, State: model.TicketUsed})
	return nil
}

// Get returns a copy of the ticket.
func (r *Registry) Get(ticketID uint64) (model.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return model.Ticket{}, model.ErrTicketNotFound
	}
	return *t, nil
}

// TicketsOf returns the ids of every ticket owner currently holds, ascending.
func (r *Registry) TicketsOf(owner model.Identity) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.owned[owner]
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count returns how many tickets were ever minted.
func (r *Registry) Count() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}

func (r *Registry) index(owner model.Identity, ticketID uint64) {
	set := r.owned[owner]
	if set == nil {
		set = make(map[uint64]struct{})
		r.owned[owner] = set
	}
	set[ticketID] = struct{}{}
}

func (r *Registry) unindex(owner model.Identity, ticketID uint64) {
	set := r.owned[owner]
	delete(set, ticketID)
	if len(set) == 0 {
		delete(r.owned, owner)
	}
}
