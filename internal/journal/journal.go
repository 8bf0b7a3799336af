// Package journal holds the append-only ledger log. Records are numbered
// from 1 and chained by keccak256 hashes, so any edit to a stored record
// breaks verification of every record after it.
package journal

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/iliyamo/ticket-ledger/internal/clock"
	"github.com/iliyamo/ticket-ledger/internal/model"
)

// Journal is safe for concurrent use. Writers are expected to be serialized
// by the market engine; the internal lock only protects readers.
type Journal struct {
	mu      sync.RWMutex
	clock   clock.Clock
	records []model.Record
	notify  chan struct{}
}

// New returns an empty journal that timestamps records with clk.
func New(clk clock.Clock) *Journal {
	return &Journal{clock: clk, notify: make(chan struct{}, 1)}
}

// Restore rebuilds a journal from previously stored records after checking
// sequence continuity and the hash chain.
func Restore(clk clock.Clock, records []model.Record) (*Journal, error) {
	if err := Verify(records); err != nil {
		return nil, err
	}
	j := New(clk)
	j.records = append(j.records, records...)
	return j, nil
}

// Append stamps rec with the next sequence number and its chain hashes,
// stores it and returns the stored copy. A zero rec.At is set to the
// journal clock's current time.
func (j *Journal) Append(rec model.Record) model.Record {
	j.mu.Lock()
	rec.Seq = uint64(len(j.records)) + 1
	if rec.At.IsZero() {
		rec.At = j.clock.Now()
	}
	rec.At = rec.At.UTC()
	rec.PrevHash = ""
	if n := len(j.records); n > 0 {
		rec.PrevHash = j.records[n-1].Hash
	}
	rec.Hash = Hash(rec)
	j.records = append(j.records, rec)
	j.mu.Unlock()

	select {
	case j.notify <- struct{}{}:
	default:
	}
	return rec
}

// Since returns up to limit records with Seq greater than after, in order.
// A limit <= 0 returns everything.
func (j *Journal) Since(after uint64, limit int) []model.Record {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if after >= uint64(len(j.records)) {
		return nil
	}
	tail := j.records[after:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]model.Record, len(tail))
	copy(out, tail)
	return out
}

// Head returns the sequence number of the newest record, 0 when empty.
func (j *Journal) Head() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint64(len(j.records))
}

// Updated fires (coalesced) after every Append.
func (j *Journal) Updated() <-chan struct{} {
	return j.notify
}

// Hash computes the chain hash of rec, ignoring whatever rec.Hash holds.
func Hash(rec model.Record) string {
	rec.Hash = ""
	payload, err := json.Marshal(rec)
	if err != nil {
		// Record only holds plain values; Marshal cannot fail on it.
		panic(fmt.Sprintf("journal: marshal record: %v", err))
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks that records start at seq 1, have no gaps and form an
// unbroken hash chain.
func Verify(records []model.Record) error {
	prev := ""
	for i, rec := range records {
		if want := uint64(i) + 1; rec.Seq != want {
			return fmt.Errorf("journal: expected seq %d, found %d", want, rec.Seq)
		}
		if rec.PrevHash != prev {
			return fmt.Errorf("journal: record %d does not link to its predecessor", rec.Seq)
		}
		if got := Hash(rec); got != rec.Hash {
			return fmt.Errorf("journal: record %d hash mismatch", rec.Seq)
		}
		prev = rec.Hash
	}
	return nil
}
