package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/ticket-ledger/internal/clock"
	"github.com/iliyamo/ticket-ledger/internal/journal"
	"github.com/iliyamo/ticket-ledger/internal/model"
	"github.com/iliyamo/ticket-ledger/internal/repository"
)

type fakePublisher struct {
	fail error
	seqs []uint64
}

func (p *fakePublisher) Publish(_ context.Context, recs []model.Record) error {
	if p.fail != nil {
		return p.fail
	}
	for _, r := range recs {
		p.seqs = append(p.seqs, r.Seq)
	}
	return nil
}

// source exposes a bare journal the way the engine does.
type source struct{ *journal.Journal }

func (s source) Records(after uint64, limit int) []model.Record { return s.Since(after, limit) }

func appendN(j *journal.Journal, n int) {
	for i := 0; i < n; i++ {
		j.Append(model.Record{Kind: model.KindEventStatusChanged, EventID: 1, Active: model.Flag(i%2 == 0)})
	}
}

func TestFlushStoresThenPublishes(t *testing.T) {
	ctx := context.Background()
	j := journal.New(clock.NewSystem())
	store := repository.NewMemoryJournal()
	pub := &fakePublisher{}
	appendN(j, 5)

	r, err := New(ctx, source{j}, store, Options{Publisher: pub, BatchSize: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if last, _ := store.LastSeq(ctx); last != 5 {
		t.Fatalf("expected 5 stored, got %d", last)
	}
	if len(pub.seqs) != 5 || pub.seqs[0] != 1 || pub.seqs[4] != 5 {
		t.Fatalf("unexpected published seqs %v", pub.seqs)
	}
}

func TestPublishFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	j := journal.New(clock.NewSystem())
	store := repository.NewMemoryJournal()
	pub := &fakePublisher{fail: errors.New("broker down")}
	appendN(j, 3)

	r, _ := New(ctx, source{j}, store, Options{Publisher: pub})
	if err := r.Flush(ctx); err == nil {
		t.Fatalf("expected publish error")
	}
	if stored, published := r.Cursors(); stored != 3 || published != 0 {
		t.Fatalf("expected cursors 3/0, got %d/%d", stored, published)
	}
	pub.fail = nil
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(pub.seqs) != 3 {
		t.Fatalf("expected 3 published after retry, got %v", pub.seqs)
	}
}

func TestResumesAfterStoredTail(t *testing.T) {
	ctx := context.Background()
	j := journal.New(clock.NewSystem())
	appendN(j, 4)
	store := repository.NewMemoryJournal()
	if err := store.Append(ctx, j.Since(0, 2)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	r, err := New(ctx, source{j}, store, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	loaded, _ := store.Load(ctx)
	if len(loaded) != 4 {
		t.Fatalf("expected 4 stored, got %d", len(loaded))
	}
}

func TestRunDrainsOnUpdate(t *testing.T) {
	j := journal.New(clock.NewSystem())
	store := repository.NewMemoryJournal()
	ctx, cancel := context.WithCancel(context.Background())
	r, _ := New(ctx, source{j}, store, Options{Interval: time.Hour})

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	appendN(j, 2)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if last, _ := store.LastSeq(context.Background()); last == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("relay did not drain after update")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestPersistStoresWithoutPublishing(t *testing.T) {
	ctx := context.Background()
	j := journal.New(clock.NewSystem())
	store := repository.NewMemoryJournal()
	pub := &fakePublisher{}
	r, _ := New(ctx, source{j}, store, Options{Publisher: pub})

	appendN(j, 3)
	if err := r.Persist(ctx); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if stored, published := r.Cursors(); stored != 3 || published != 0 {
		t.Fatalf("expected cursors 3/0, got %d/%d", stored, published)
	}
	if len(pub.seqs) != 0 {
		t.Fatalf("persist must not publish, got %v", pub.seqs)
	}
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(pub.seqs) != 3 {
		t.Fatalf("expected 3 published, got %v", pub.seqs)
	}
}

func TestConcurrentPersistAndFlush(t *testing.T) {
	ctx := context.Background()
	j := journal.New(clock.NewSystem())
	store := repository.NewMemoryJournal()
	pub := &fakePublisher{}
	r, _ := New(ctx, source{j}, store, Options{Publisher: pub, BatchSize: 3})

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			appendN(j, 1)
			if i%2 == 0 {
				errs <- r.Persist(ctx)
			} else {
				errs <- r.Flush(ctx)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent drain: %v", err)
		}
	}
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("final flush: %v", err)
	}
	loaded, _ := store.Load(ctx)
	if len(loaded) != 20 {
		t.Fatalf("expected 20 stored, got %d", len(loaded))
	}
	if len(pub.seqs) != 20 || pub.seqs[19] != 20 {
		t.Fatalf("expected seqs 1..20 published once, got %v", pub.seqs)
	}
}
