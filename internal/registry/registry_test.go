package registry

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/iliyamo/ticket-ledger/internal/clock"
	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

type fakeEvents map[uint64]bool

func (f fakeEvents) Exists(id uint64) bool { return f[id] }

var (
	alice = model.Identity("0xa000000000000000000000000000000000000001")
	bob   = model.Identity("0xb000000000000000000000000000000000000002")
)

func newRegistry() (*Registry, *Writer, *journal.Journal) {
	j := journal.New(clock.NewSystem())
	r, w := New(fakeEvents{1: true, 2: true}, j)
	return r, w, j
}

func TestMint(t *testing.T) {
	t.Parallel()
	r, w, j := newRegistry()

	first, err := w.Mint(alice, 1, time.Time{})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	second, err := w.Mint(bob, 2, time.Time{})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected global ids 1,2 got %d,%d", first, second)
	}
	tk, _ := r.Get(first)
	if tk.Owner != alice || tk.State != model.TicketValid || tk.EventID != 1 {
		t.Fatalf("unexpected ticket %+v", tk)
	}
	kinds := []model.RecordKind{}
	for _, rec := range j.Since(0, 2) {
		kinds = append(kinds, rec.Kind)
	}
	if !reflect.DeepEqual(kinds, []model.RecordKind{model.KindTicketMinted, model.KindTicketStateChanged}) {
		t.Fatalf("unexpected record kinds %v", kinds)
	}

	if _, err := w.Mint(alice, 9, time.Time{}); err != model.ErrEventNotFound {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if _, err := w.Mint("", 1, time.Time{}); err != model.ErrZeroIdentity {
		t.Fatalf("expected ErrZeroIdentity, got %v", err)
	}
	if r.Count() != 2 {
		t.Fatalf("expected count 2, got %d", r.Count())
	}
}

func TestMarkUsedIsOneWay(t *testing.T) {
	t.Parallel()
	r, w, _ := newRegistry()
	id, _ := w.Mint(alice, 1, time.Time{})

	if err := w.MarkUsed(id); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	err := w.MarkUsed(id)
	if err != model.ErrTicketNotValid || !errors.Is(err, model.ErrStateConflict) {
		t.Fatalf("expected ErrTicketNotValid, got %v", err)
	}
	if err := w.MarkUsed(77); err != model.ErrTicketNotFound {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
	tk, _ := r.Get(id)
	if tk.State != model.TicketUsed {
		t.Fatalf("expected USED, got %s", tk.State)
	}
}

func TestTransferMaintainsOwnerIndex(t *testing.T) {
	t.Parallel()
	r, w, _ := newRegistry()
	a1, _ := w.Mint(alice, 1, time.Time{})
	a2, _ := w.Mint(alice, 1, time.Time{})

	if err := w.Transfer(a1, bob, alice); err != model.ErrNotOwner {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := w.Transfer(a1, alice, model.EscrowIdentity); err != nil {
		t.Fatalf("transfer to escrow: %v", err)
	}
	if err := w.Transfer(a1, model.EscrowIdentity, bob); err != nil {
		t.Fatalf("transfer to bob: %v", err)
	}

	if got := r.TicketsOf(alice); !reflect.DeepEqual(got, []uint64{a2}) {
		t.Fatalf("unexpected alice tickets %v", got)
	}
	if got := r.TicketsOf(bob); !reflect.DeepEqual(got, []uint64{a1}) {
		t.Fatalf("unexpected bob tickets %v", got)
	}
	if got := r.TicketsOf(model.EscrowIdentity); len(got) != 0 {
		t.Fatalf("expected escrow to be empty, got %v", got)
	}
}

func TestRestore(t *testing.T) {
	t.Parallel()
	r, w, j := newRegistry()
	a, _ := w.Mint(alice, 1, time.Time{})
	b, _ := w.Mint(alice, 2, time.Time{})
	_ = w.Transfer(b, alice, bob)
	_ = w.MarkUsed(a)

	restored, rw, err := Restore(fakeEvents{1: true, 2: true}, j, j.Since(0, 0))
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, id := range []uint64{a, b} {
		want, _ := r.Get(id)
		got, _ := restored.Get(id)
		if want != got {
			t.Fatalf("ticket %d: expected %+v, got %+v", id, want, got)
		}
	}
	if got := restored.TicketsOf(bob); !reflect.DeepEqual(got, []uint64{b}) {
		t.Fatalf("unexpected restored index %v", got)
	}
	next, err := rw.Mint(bob, 1, time.Time{})
	if err != nil || next != 3 {
		t.Fatalf("expected next id 3, got %d (%v)", next, err)
	}
}
