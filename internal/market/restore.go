package market

import (
	"fmt"

	"github.com/iliyamo/ticket-ledger/internal/catalog"
	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
	"github.com/iliyamo/ticket-ledger/internal/registry"
)

// Restore rebuilds a ledger by replaying a stored log. The hash chain is
// verified first; new records continue the same chain.
func Restore(records []model.Record, opts Options) (*Market, error) {
	opts = opts.withDefaults()
	j, err := journal.Restore(opts.Clock, records)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Restore(j, opts.Admin, records)
	if err != nil {
		return nil, err
	}
	reg, w, err := registry.Restore(cat, j, records)
	if err != nil {
		return nil, err
	}
	m := assemble(opts, j, cat, reg, w)

	for _, rec := range records {
		switch rec.Kind {
		case model.KindTicketMinted:
			m.minted[rec.EventID]++
			key := buyerKey{eventID: rec.EventID, wallet: rec.To}
			state := m.buyers[key]
			m.buyers[key] = model.BuyerState{Purchased: state.Purchased + 1, LastPurchase: rec.At}
		case model.KindListingCreated:
			if rec.ListingID != m.nextListing+1 {
				return nil, fmt.Errorf("market: record %d: listing %d created out of order", rec.Seq, rec.ListingID)
			}
			m.nextListing = rec.ListingID
			m.listings[rec.ListingID] = &model.Listing{
				ID:       rec.ListingID,
				TicketID: rec.TicketID,
				Seller:   rec.From,
				Price:    rec.Amount,
				Active:   true,
			}
			m.escrowed[rec.TicketID] = rec.ListingID
		case model.KindListingClosed:
			l, ok := m.listings[rec.ListingID]
			if !ok || !l.Active {
				return nil, fmt.Errorf("market: record %d: close of unknown or closed listing %d", rec.Seq, rec.ListingID)
			}
			l.Active = false
			delete(m.escrowed, l.TicketID)
		}
	}
	return m, nil
}
