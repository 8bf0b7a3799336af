package catalog

import (
	"fmt"

	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// Restore rebuilds a catalog from the event.* records of a verified log.
// Records are applied as facts; preconditions were checked when they were
// first written.
func Restore(j *journal.Journal, admin model.Identity, records []model.Record) (*Catalog, error) {
	c := New(j, admin)
	for _, rec := range records {
		switch rec.Kind {
		case model.KindEventCreated:
			if rec.Event == nil || rec.Event.ID != c.nextID+1 {
				return nil, fmt.Errorf("catalog: record %d: unexpected event creation", rec.Seq)
			}
			ev := *rec.Event
			c.events[ev.ID] = &ev
			c.nextID = ev.ID
		case model.KindEventStatusChanged:
			ev, ok := c.events[rec.EventID]
			if !ok || rec.Active == nil {
				return nil, fmt.Errorf("catalog: record %d: status change for unknown event %d", rec.Seq, rec.EventID)
			}
			ev.Active = *rec.Active
		case model.KindEventValidatorSet:
			if _, ok := c.events[rec.EventID]; !ok || rec.Active == nil {
				return nil, fmt.Errorf("catalog: record %d: validator change for unknown event %d", rec.Seq, rec.EventID)
			}
			set := c.validators[rec.EventID]
			if set == nil {
				set = make(map[model.Identity]struct{})
				c.validators[rec.EventID] = set
			}
			if *rec.Active {
				set[rec.To] = struct{}{}
			} else {
				delete(set, rec.To)
			}
		}
	}
	return c, nil
}
