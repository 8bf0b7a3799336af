// Package market is the ledger's entry point: primary sales, resale with
// escrow, and admission. It is the only holder of the registry's write
// capability, and it serializes every mutation behind one lock so that each
// operation is applied whole or not at all, in one global order. Resale
// payment is the one step taken outside the lock, after the listing closes.
package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/ticket-ledger/internal/catalog"
	"github.com/iliyamo/ticket-ledger/internal/clock"
	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
	"github.com/iliyamo/ticket-ledger/internal/registry"
)

// Payments forwards resale proceeds to a seller. It is called after the
// listing is closed and without the engine lock held. The ctx it receives is
// marked so that calling back into the engine with it fails with
// model.ErrReentrantCall.
type Payments interface {
	Pay(ctx context.Context, to model.Identity, amount uint64) error
}

type noPayments struct{}

func (noPayments) Pay(context.Context, model.Identity, uint64) error { return nil }

// Options configures a Market. Zero values fall back to the system clock,
// no administrator and a payment hook that does nothing.
type Options struct {
	Clock    clock.Clock
	Admin    model.Identity
	Payments Payments
}

type buyerKey struct {
	eventID uint64
	wallet  model.Identity
}

// Market is safe for concurrent use. mu serializes operations; state
// guards the engine's own maps so reads never wait on an operation.
// Operations read the maps under mu alone and take state only to write.
// A resale settlement releases mu while its payment is outstanding.
type Market struct {
	mu       sync.Mutex
	state    sync.RWMutex
	clock    clock.Clock
	payments Payments
	journal  *journal.Journal
	catalog  *catalog.Catalog
	registry *registry.Registry
	tickets  *registry.Writer

	listings    map[uint64]*model.Listing
	escrowed    map[uint64]uint64 // ticket id -> active listing id
	nextListing uint64
	minted      map[uint64]uint64
	buyers      map[buyerKey]model.BuyerState

	settleMu sync.Mutex
	settling map[uint64]struct{} // listings with a payment outstanding
}

// New returns an empty ledger.
func New(opts Options) *Market {
	opts = opts.withDefaults()
	j := journal.New(opts.Clock)
	cat := catalog.New(j, opts.Admin)
	reg, w := registry.New(cat, j)
	return assemble(opts, j, cat, reg, w)
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.NewSystem()
	}
	if o.Payments == nil {
		o.Payments = noPayments{}
	}
	return o
}

func assemble(opts Options, j *journal.Journal, cat *catalog.Catalog, reg *registry.Registry, w *registry.Writer) *Market {
	return &Market{
		clock:    opts.Clock,
		payments: opts.Payments,
		journal:  j,
		catalog:  cat,
		registry: reg,
		tickets:  w,
		listings: make(map[uint64]*model.Listing),
		escrowed: make(map[uint64]uint64),
		minted:   make(map[uint64]uint64),
		buyers:   make(map[buyerKey]model.BuyerState),
		settling: make(map[uint64]struct{}),
	}
}

func checkCaller(id model.Identity) error {
	switch {
	case id.IsZero():
		return model.ErrZeroIdentity
	case id == model.EscrowIdentity:
		return model.ErrReservedCaller
	}
	return nil
}

// CreateEvent registers an event organized by caller.
func (m *Market) CreateEvent(ctx context.Context, caller model.Identity, in catalog.CreateEventInput) (uint64, error) {
	if _, err := enter(ctx, "create_event"); err != nil {
		return 0, err
	}
	if err := checkCaller(caller); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.Create(caller, in)
}

// SetEventActive activates or deactivates an event.
func (m *Market) SetEventActive(ctx context.Context, caller model.Identity, eventID uint64, active bool) error {
	if _, err := enter(ctx, "set_event_active"); err != nil {
		return err
	}
	if err := checkCaller(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.SetActive(caller, eventID, active)
}

// SetValidator grants or revokes who's admission rights for an event.
func (m *Market) SetValidator(ctx context.Context, caller model.Identity, eventID uint64, who model.Identity, enabled bool) error {
	if _, err := enter(ctx, "set_validator"); err != nil {
		return err
	}
	if err := checkCaller(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.SetValidator(caller, eventID, who, enabled)
}

// openEvent returns the event if it can still be traded at now.
func (m *Market) openEvent(eventID uint64, now time.Time) (model.Event, error) {
	ev, err := m.catalog.Get(eventID)
	if err != nil {
		return model.Event{}, err
	}
	if !ev.Active {
		return model.Event{}, model.ErrEventInactive
	}
	if ev.HasStarted(now) {
		return model.Event{}, model.ErrEventStarted
	}
	return ev, nil
}

// BuyPrimary sells a new ticket for eventID to buyer, who must pay exactly
// the base price. It returns the minted ticket id.
func (m *Market) BuyPrimary(ctx context.Context, eventID, paid uint64, buyer model.Identity) (uint64, error) {
	if _, err := enter(ctx, "buy_primary"); err != nil {
		return 0, err
	}
	if err := checkCaller(buyer); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	ev, err := m.openEvent(eventID, now)
	if err != nil {
		return 0, err
	}
	if paid != ev.BasePrice {
		return 0, model.ErrWrongPayment
	}
	if m.minted[eventID] >= ev.Capacity {
		return 0, model.ErrCapacityExhausted
	}
	key := buyerKey{eventID: eventID, wallet: buyer}
	prior := m.buyers[key]
	if ev.MaxPerWallet > 0 && prior.Purchased >= ev.MaxPerWallet {
		return 0, model.ErrWalletLimit
	}
	if ev.Cooldown > 0 && prior.Purchased > 0 && now.Before(prior.LastPurchase.Add(ev.Cooldown)) {
		return 0, model.ErrCooldownActive
	}

	ticketID, err := m.tickets.Mint(buyer, eventID, now)
	if err != nil {
		return 0, err
	}
	m.state.Lock()
	m.minted[eventID]++
	m.buyers[key] = model.BuyerState{Purchased: prior.Purchased + 1, LastPurchase: now.UTC()}
	m.state.Unlock()
	return ticketID, nil
}

// ListForResale escrows seller's ticket and opens a listing at ask. The ask
// may not exceed floor(basePrice * maxResaleFactor / 100).
func (m *Market) ListForResale(ctx context.Context, ticketID, ask uint64, seller model.Identity) (uint64, error) {
	if _, err := enter(ctx, "list_for_resale"); err != nil {
		return 0, err
	}
	if err := checkCaller(seller); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.registry.Get(ticketID)
	if err != nil {
		return 0, err
	}
	if t.Owner != seller {
		return 0, model.ErrNotTicketOwner
	}
	if t.State != model.TicketValid {
		return 0, model.ErrTicketNotValid
	}
	if ask == 0 {
		return 0, model.ErrInvalidPrice
	}
	ev, err := m.openEvent(t.EventID, m.clock.Now())
	if err != nil {
		return 0, err
	}
	limit, err := ResaleCap(ev.BasePrice, ev.MaxResaleFactor)
	if err != nil {
		return 0, err
	}
	if ask > limit {
		return 0, model.ErrPriceAboveCap
	}

	if err := m.tickets.Transfer(ticketID, seller, model.EscrowIdentity); err != nil {
		return 0, err
	}
	m.state.Lock()
	m.nextListing++
	l := &model.Listing{ID: m.nextListing, TicketID: ticketID, Seller: seller, Price: ask, Active: true}
	m.listings[l.ID] = l
	m.escrowed[ticketID] = l.ID
	m.state.Unlock()
	m.journal.Append(model.Record{
		Kind:      model.KindListingCreated,
		EventID:   t.EventID,
		TicketID:  ticketID,
		ListingID: l.ID,
		Actor:     seller,
		From:      seller,
		Amount:    ask,
	})
	return l.ID, nil
}

// BuyFromResale settles a listing: buyer pays exactly the ask, the seller
// is paid, and the ticket leaves escrow for buyer. It returns the ticket id.
func (m *Market) BuyFromResale(ctx context.Context, listingID, paid uint64, buyer model.Identity) (uint64, error) {
	ctx, err := enter(ctx, "buy_from_resale")
	if err != nil {
		return 0, err
	}
	if err := checkCaller(buyer); err != nil {
		return 0, err
	}
	if !m.claim(listingID) {
		return 0, model.ErrReentrantCall
	}
	defer m.release(listingID)

	l, t, err := m.closeForSettlement(listingID, paid)
	if err != nil {
		return 0, err
	}

	// The listing is already closed, so Pay runs without mu. A collaborator
	// that calls back into the engine on a fresh context is served (or
	// rejected by the claim above) instead of blocking on the lock.
	if err := m.payments.Pay(ctx, l.Seller, paid); err != nil {
		m.mu.Lock()
		m.setListingActive(l, true)
		m.mu.Unlock()
		return 0, fmt.Errorf("market: forward resale payment: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal.Append(model.Record{
		Kind:      model.KindListingClosed,
		EventID:   t.EventID,
		TicketID:  l.TicketID,
		ListingID: l.ID,
		Actor:     buyer,
		From:      l.Seller,
		To:        buyer,
		Amount:    paid,
	})
	if err := m.tickets.Transfer(l.TicketID, model.EscrowIdentity, buyer); err != nil {
		// The ticket left escrow while its listing was being settled; only
		// a corrupt ledger gets here.
		panic(fmt.Sprintf("market: release ticket %d from escrow: %v", l.TicketID, err))
	}
	return l.TicketID, nil
}

// closeForSettlement checks a resale purchase and closes the listing before
// any money moves, so no other settlement can observe it as active.
func (m *Market) closeForSettlement(listingID, paid uint64) (*model.Listing, model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[listingID]
	if !ok {
		return nil, model.Ticket{}, model.ErrListingNotFound
	}
	if !l.Active {
		return nil, model.Ticket{}, model.ErrListingInactive
	}
	if paid != l.Price {
		return nil, model.Ticket{}, model.ErrWrongPayment
	}
	t, err := m.registry.Get(l.TicketID)
	if err != nil {
		return nil, model.Ticket{}, err
	}
	if t.State != model.TicketValid {
		return nil, model.Ticket{}, model.ErrTicketNotValid
	}
	if _, err := m.openEvent(t.EventID, m.clock.Now()); err != nil {
		return nil, model.Ticket{}, err
	}
	m.setListingActive(l, false)
	return l, t, nil
}

// claim marks listingID as being settled. It fails while another
// settlement of the same listing is outstanding, whatever context that
// attempt carries.
func (m *Market) claim(listingID uint64) bool {
	m.settleMu.Lock()
	defer m.settleMu.Unlock()
	if _, busy := m.settling[listingID]; busy {
		return false
	}
	m.settling[listingID] = struct{}{}
	return true
}

func (m *Market) release(listingID uint64) {
	m.settleMu.Lock()
	delete(m.settling, listingID)
	m.settleMu.Unlock()
}

// setListingActive flips a listing and keeps the escrow index in step.
func (m *Market) setListingActive(l *model.Listing, active bool) {
	m.state.Lock()
	l.Active = active
	if active {
		m.escrowed[l.TicketID] = l.ID
	} else {
		delete(m.escrowed, l.TicketID)
	}
	m.state.Unlock()
}

// CancelListing closes an active listing and returns its ticket to the
// seller. Only the seller or the administrator may cancel.
func (m *Market) CancelListing(ctx context.Context, listingID uint64, caller model.Identity) error {
	if _, err := enter(ctx, "cancel_listing"); err != nil {
		return err
	}
	if err := checkCaller(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[listingID]
	if !ok {
		return model.ErrListingNotFound
	}
	if !l.Active {
		return model.ErrListingInactive
	}
	admin := m.catalog.Admin()
	if caller != l.Seller && (admin.IsZero() || caller != admin) {
		return model.ErrNotSeller
	}
	t, err := m.registry.Get(l.TicketID)
	if err != nil {
		return err
	}

	m.setListingActive(l, false)
	m.journal.Append(model.Record{
		Kind:      model.KindListingClosed,
		EventID:   t.EventID,
		TicketID:  l.TicketID,
		ListingID: l.ID,
		Actor:     caller,
		From:      l.Seller,
		To:        l.Seller,
	})
	if err := m.tickets.Transfer(l.TicketID, model.EscrowIdentity, l.Seller); err != nil {
		panic(fmt.Sprintf("market: return ticket %d from escrow: %v", l.TicketID, err))
	}
	return nil
}

// MarkTicketUsed admits a ticket. caller must organize or validate the
// ticket's event, or be the administrator.
func (m *Market) MarkTicketUsed(ctx context.Context, ticketID uint64, caller model.Identity) error {
	if _, err := enter(ctx, "mark_ticket_used"); err != nil {
		return err
	}
	if err := checkCaller(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.registry.Get(ticketID)
	if err != nil {
		return err
	}
	if !m.catalog.CanAdmit(t.EventID, caller) {
		return model.ErrNotValidator
	}
	if _, listed := m.escrowed[ticketID]; t.Owner == model.EscrowIdentity && !listed {
		return model.ErrSettlementPending
	}
	if err := m.tickets.MarkUsed(ticketID); err != nil {
		return err
	}
	m.journal.Append(model.Record{
		Kind:     model.KindTicketValidated,
		EventID:  t.EventID,
		TicketID: ticketID,
		Actor:    caller,
	})
	return nil
}
