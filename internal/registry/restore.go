package registry

import (
	"fmt"

	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// Restore rebuilds a registry and its writer from the ticket.* records of a
// verified log.
func Restore(events EventLookup, j *journal.Journal, records []model.Record) (*Registry, *Writer, error) {
	r, w := New(events, j)
	for _, rec := range records {
		switch rec.Kind {
		case model.KindTicketMinted:
			if rec.TicketID != r.nextID+1 {
				return nil, nil, fmt.Errorf("registry: record %d: ticket %d minted out of order", rec.Seq, rec.TicketID)
			}
			r.tickets[rec.TicketID] = &model.Ticket{ID: rec.TicketID, EventID: rec.EventID, Owner: rec.To, State: model.TicketValid}
			r.index(rec.To, rec.TicketID)
			r.nextID = rec.TicketID
		case model.KindTicketStateChanged:
			t, ok := r.tickets[rec.TicketID]
			if !ok {
				return nil, nil, fmt.Errorf("registry: record %d: unknown ticket %d", rec.Seq, rec.TicketID)
			}
			t.State = rec.State
		case model.KindTicketTransferred:
			t, ok := r.tickets[rec.TicketID]
			if !ok || t.Owner != rec.From {
				return nil, nil, fmt.Errorf("registry: record %d: transfer of ticket %d from a non-owner", rec.Seq, rec.TicketID)
			}
			r.unindex(rec.From, rec.TicketID)
			t.Owner = rec.To
			r.index(rec.To, rec.TicketID)
		}
	}
	return r, w, nil
}
