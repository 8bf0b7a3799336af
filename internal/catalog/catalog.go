// Package catalog owns event definitions and the per-event roles that
// authorize configuration changes and admission.
package catalog

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// CreateEventInput carries every attribute an organizer chooses when
// creating an event.
type CreateEventInput struct {
	Name            string
	StartsAt        time.Time
	Location        string
	BasePrice       uint64
	MaxResaleFactor uint64
	Capacity        uint64
	MetadataCID     string
	MaxPerWallet    uint64
	Cooldown        time.Duration
}

// Validate checks the creation preconditions without touching any state.
func (in CreateEventInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return model.ErrNameRequired
	case in.BasePrice == 0:
		return model.ErrInvalidPrice
	case in.Capacity == 0:
		return model.ErrInvalidCapacity
	case in.MaxResaleFactor < 100:
		return model.ErrInvalidResaleCap
	case in.MaxPerWallet > in.Capacity:
		return model.ErrInvalidWalletLimit
	case in.Cooldown < 0:
		return model.ErrInvalidCooldown
	}
	return nil
}

// Catalog stores events and their validator sets.
type Catalog struct {
	mu         sync.RWMutex
	journal    *journal.Journal
	admin      model.Identity
	events     map[uint64]*model.Event
	validators map[uint64]map[model.Identity]struct{}
	nextID     uint64
}

// New returns an empty catalog that logs to j. admin is the global
// administrator identity; it may be zero to disable the role.
func New(j *journal.Journal, admin model.Identity) *Catalog {
	return &Catalog{
		journal:    j,
		admin:      admin,
		events:     make(map[uint64]*model.Event),
		validators: make(map[uint64]map[model.Identity]struct{}),
	}
}

// Create registers a new active event organized by organizer and returns its id.
func (c *Catalog) Create(organizer model.Identity, in CreateEventInput) (uint64, error) {
	if organizer.IsZero() {
		return 0, model.ErrZeroIdentity
	}
	if err := in.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	ev := &model.Event{
		ID:              c.nextID,
		Name:            in.Name,
		StartsAt:        in.StartsAt.UTC(),
		Location:        in.Location,
		BasePrice:       in.BasePrice,
		MaxResaleFactor: in.MaxResaleFactor,
		Capacity:        in.Capacity,
		MetadataCID:     in.MetadataCID,
		Organizer:       organizer,
		Active:          true,
		MaxPerWallet:    in.MaxPerWallet,
		Cooldown:        in.Cooldown,
	}
	c.events[ev.ID] = ev
	snapshot := *ev
	c.journal.Append(model.Record{
		Kind:    model.KindEventCreated,
		EventID: ev.ID,
		Actor:   organizer,
		Event:   &snapshot,
	})
	return ev.ID, nil
}

// SetActive toggles an event's active flag.
func (c *Catalog) SetActive(caller model.Identity, eventID uint64, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[eventID]
	if !ok {
		return model.ErrEventNotFound
	}
	if !CanManage(*ev, caller, c.admin) {
		return model.ErrNotOrganizer
	}
	ev.Active = active
	c.journal.Append(model.Record{
		Kind:    model.KindEventStatusChanged,
		EventID: eventID,
		Actor:   caller,
		Active:  model.Flag(active),
	})
	return nil
}

// SetValidator grants or revokes who's right to mark tickets of the event used.
func (c *Catalog) SetValidator(caller model.Identity, eventID uint64, who model.Identity, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[eventID]
	if !ok {
		return model.ErrEventNotFound
	}
	if !CanManage(*ev, caller, c.admin) {
		return model.ErrNotOrganizer
	}
	if who.IsZero() {
		return model.ErrZeroIdentity
	}
	set := c.validators[eventID]
	if set == nil {
		set = make(map[model.Identity]struct{})
		c.validators[eventID] = set
	}
	if enabled {
		set[who] = struct{}{}
	} else {
		delete(set, who)
	}
	c.journal.Append(model.Record{
		Kind:    model.KindEventValidatorSet,
		EventID: eventID,
		Actor:   caller,
		To:      who,
		Active:  model.Flag(enabled),
	})
	return nil
}

// Get returns a copy of the event.
func (c *Catalog) Get(eventID uint64) (model.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[eventID]
	if !ok {
		return model.Event{}, model.ErrEventNotFound
	}
	return *ev, nil
}

// Exists reports whether eventID was ever created.
func (c *Catalog) Exists(eventID uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.events[eventID]
	return ok
}

// List returns every event ordered by id.
func (c *Catalog) List() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validators returns the registered validators of an event, sorted.
func (c *Catalog) Validators(eventID uint64) []model.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set := c.validators[eventID]
	out := make([]model.Identity, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsValidator reports whether who is a registered validator. Unknown
// events yield false.
func (c *Catalog) IsValidator(eventID uint64, who model.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.validators[eventID][who]
	return ok
}

// IsOrganizerOrValidator reports whether who organizes or validates the
// event. Unknown events yield false.
func (c *Catalog) IsOrganizerOrValidator(eventID uint64, who model.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[eventID]
	if !ok || who.IsZero() {
		return false
	}
	if ev.Organizer == who {
		return true
	}
	_, ok = c.validators[eventID][who]
	return ok
}

// CanAdmit applies the admission predicate to the current catalog state.
func (c *Catalog) CanAdmit(eventID uint64, caller model.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[eventID]
	if !ok {
		return false
	}
	return CanAdmit(*ev, c.validators[eventID], caller, c.admin)
}

// Admin returns the global administrator identity.
func (c *Catalog) Admin() model.Identity { return c.admin }
