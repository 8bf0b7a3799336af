package journal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/iliyamo/ticket-ledger/internal/clock"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

func TestAppendChainsRecords(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	j := New(clk)

	first := j.Append(model.Record{Kind: model.KindTicketMinted, TicketID: 1})
	clk.Advance(time.Second)
	second := j.Append(model.Record{Kind: model.KindTicketStateChanged, TicketID: 1, State: model.TicketValid})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("expected seq 1,2 got %d,%d", first.Seq, second.Seq)
	}
	if first.PrevHash != "" {
		t.Fatalf("expected empty prev hash on first record")
	}
	if second.PrevHash != first.Hash {
		t.Fatalf("expected second record to link to first")
	}
	if !second.At.Equal(clk.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clk.Now(), second.At)
	}
	if j.Head() != 2 {
		t.Fatalf("expected head 2, got %d", j.Head())
	}
	select {
	case <-j.Updated():
	default:
		t.Fatalf("expected update notification")
	}
}

func TestSince(t *testing.T) {
	j := New(clock.NewSystem())
	for i := 0; i < 5; i++ {
		j.Append(model.Record{Kind: model.KindTicketMinted, TicketID: uint64(i + 1)})
	}

	page := j.Since(1, 2)
	if len(page) != 2 || page[0].Seq != 2 || page[1].Seq != 3 {
		t.Fatalf("unexpected page %+v", page)
	}
	if all := j.Since(0, 0); len(all) != 5 {
		t.Fatalf("expected 5 records, got %d", len(all))
	}
	if none := j.Since(5, 10); len(none) != 0 {
		t.Fatalf("expected no records past head, got %d", len(none))
	}
}

func TestRestoreSurvivesJSONRoundTrip(t *testing.T) {
	j := New(clock.NewSystem())
	j.Append(model.Record{
		Kind:    model.KindEventCreated,
		EventID: 1,
		Event: &model.Event{
			ID:              1,
			Name:            "Opening night",
			StartsAt:        time.Date(2026, 12, 1, 20, 0, 0, 0, time.UTC),
			BasePrice:       100,
			MaxResaleFactor: 130,
			Capacity:        2,
			Cooldown:        time.Minute,
			Active:          true,
		},
	})
	j.Append(model.Record{Kind: model.KindEventStatusChanged, EventID: 1, Active: model.Flag(false)})

	raw, err := json.Marshal(j.Since(0, 0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var loaded []model.Record
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored, err := Restore(clock.NewSystem(), loaded)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	next := restored.Append(model.Record{Kind: model.KindTicketMinted, TicketID: 1})
	if next.Seq != 3 || next.PrevHash != loaded[1].Hash {
		t.Fatalf("expected appended record to continue the chain, got %+v", next)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	j := New(clock.NewSystem())
	j.Append(model.Record{Kind: model.KindListingCreated, ListingID: 1, Amount: 125})
	j.Append(model.Record{Kind: model.KindListingClosed, ListingID: 1, Amount: 125})

	t.Run("edited field", func(t *testing.T) {
		recs := j.Since(0, 0)
		recs[0].Amount = 1
		if err := Verify(recs); err == nil {
			t.Fatalf("expected hash mismatch")
		}
	})
	t.Run("gap", func(t *testing.T) {
		recs := j.Since(1, 0)
		if err := Verify(recs); err == nil {
			t.Fatalf("expected sequence error")
		}
	})
	t.Run("intact", func(t *testing.T) {
		if err := Verify(j.Since(0, 0)); err != nil {
			t.Fatalf("expected valid chain, got %v", err)
		}
	})
}
