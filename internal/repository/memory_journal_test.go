package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/ticket-ledger/internal/clock"
	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// sampleRecords builds a short valid chain.
func sampleRecords(t *testing.T) []model.Record {
	t.Helper()
	j := journal.New(clock.NewSystem())
	j.Append(model.Record{Kind: model.KindEventCreated, EventID: 1, Actor: "0x1000000000000000000000000000000000000001"})
	j.Append(model.Record{Kind: model.KindTicketMinted, EventID: 1, TicketID: 1, To: "0xA000000000000000000000000000000000000000"})
	j.Append(model.Record{Kind: model.KindEventStatusChanged, EventID: 1, Active: model.Flag(false)})
	return j.Since(0, 0)
}

// exerciseStore runs the shared JournalStore contract against s, which must be empty.
func exerciseStore(t *testing.T, s JournalStore) {
	t.Helper()
	ctx := context.Background()
	recs := sampleRecords(t)

	if last, err := s.LastSeq(ctx); err != nil || last != 0 {
		t.Fatalf("expected empty store, got %d %v", last, err)
	}
	if err := s.Append(ctx, recs[:2]); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, recs[1:]); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on re-append, got %v", err)
	}
	gap := recs[2]
	gap.Seq = 9
	if err := s.Append(ctx, []model.Record{gap}); !errors.Is(err, ErrSequenceGap) {
		t.Fatalf("expected sequence gap, got %v", err)
	}
	if err := s.Append(ctx, recs[2:]); err != nil {
		t.Fatalf("append tail: %v", err)
	}
	if last, err := s.LastSeq(ctx); err != nil || last != 3 {
		t.Fatalf("expected last seq 3, got %d %v", last, err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != len(recs) {
		t.Fatalf("expected %d records, got %d", len(recs), len(loaded))
	}
	if err := journal.Verify(loaded); err != nil {
		t.Fatalf("loaded chain does not verify: %v", err)
	}
	if loaded[2].Active == nil || *loaded[2].Active {
		t.Fatalf("active flag lost in storage: %+v", loaded[2])
	}
}

func TestMemoryJournal(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemoryJournal())
}

func TestMemoryJournalEmptyAppend(t *testing.T) {
	t.Parallel()
	s := NewMemoryJournal()
	if err := s.Append(context.Background(), nil); err != nil {
		t.Fatalf("empty append: %v", err)
	}
}
