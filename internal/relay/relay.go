// Package relay ships journal records out of the engine: first to the
// durable store, then to the broker. It runs beside the engine and never
// blocks it.
package relay

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/ticket-ledger/internal/model"
	"github.com/iliyamo/ticket-ledger/internal/repository"
)

// Source is the engine side of the relay.
type Source interface {
	Records(after uint64, limit int) []model.Record
	Updated() <-chan struct{}
}

// Publisher fans records out after they are stored.
type Publisher interface {
	Publish(ctx context.Context, recs []model.Record) error
}

// Relay copies records from a Source into a JournalStore and an optional
// Publisher. Its methods are safe for concurrent use.
type Relay struct {
	mu        sync.Mutex
	src       Source
	journal   repository.JournalStore
	pub       Publisher
	interval  time.Duration
	batchSize int

	stored    uint64
	published uint64
}

// Options tunes a Relay. Publisher may be nil.
type Options struct {
	Publisher Publisher
	Interval  time.Duration
	BatchSize int
}

// New returns a relay that resumes after whatever store already holds.
func New(ctx context.Context, src Source, store repository.JournalStore, opts Options) (*Relay, error) {
	last, err := store.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay: read stored tail: %w", err)
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	return &Relay{
		src:       src,
		journal:   store,
		pub:       opts.Publisher,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		stored:    last,
		published: last,
	}, nil
}

// Run drains on every journal update and on each interval tick until ctx
// is done, then makes a final pass with a short deadline.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.Flush(flushCtx); err != nil {
				log.Printf("relay: final flush: %v", err)
			}
			cancel()
			return
		case <-r.src.Updated():
		case <-ticker.C:
		}
		if err := r.Flush(ctx); err != nil {
			log.Printf("relay: %v", err)
		}
	}
}

// Flush stores and publishes everything the source holds beyond the
// relay's cursors. Publishing never runs ahead of storage.
func (r *Relay) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store(ctx); err != nil {
		return err
	}
	if r.pub == nil {
		r.published = r.stored
		return nil
	}
	for r.published < r.stored {
		batch := r.src.Records(r.published, r.batchSize)
		if len(batch) == 0 {
			break
		}
		if last := batch[len(batch)-1].Seq; last > r.stored {
			batch = batch[:len(batch)-int(last-r.stored)]
		}
		if err := r.pub.Publish(ctx, batch); err != nil {
			return fmt.Errorf("publish records after %d: %w", r.published, err)
		}
		r.published = batch[len(batch)-1].Seq
	}
	return nil
}

// Persist stores everything the source holds beyond the stored cursor and
// leaves publishing to the next Flush. Write paths call it to make a
// change durable before acknowledging it.
func (r *Relay) Persist(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store(ctx)
}

func (r *Relay) store(ctx context.Context) error {
	for {
		batch := r.src.Records(r.stored, r.batchSize)
		if len(batch) == 0 {
			return nil
		}
		if err := r.journal.Append(ctx, batch); err != nil {
			return fmt.Errorf("store records after %d: %w", r.stored, err)
		}
		r.stored = batch[len(batch)-1].Seq
	}
}

// Cursors returns the last stored and last published seq.
func (r *Relay) Cursors() (stored, published uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored, r.published
}
