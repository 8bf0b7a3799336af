package repository

import (
	"context"
	"sync"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

// MemoryJournal keeps records in process. Records round-trip through JSON
// so the memory store sees exactly what a SQL store would.
type MemoryJournal struct {
	mu     sync.RWMutex
	bodies [][]byte
}

func NewMemoryJournal() *MemoryJournal { return &MemoryJournal{} }

func (s *MemoryJournal) Load(_ context.Context) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, 0, len(s.bodies))
	for i, body := range s.bodies {
		rec, err := decodeRecord(uint64(i)+1, body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryJournal) LastSeq(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.bodies)), nil
}

func (s *MemoryJournal) Append(_ context.Context, recs []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkContiguous(uint64(len(s.bodies)), recs); err != nil {
		return err
	}
	bodies := make([][]byte, 0, len(recs))
	for _, rec := range recs {
		body, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		bodies = append(bodies, body)
	}
	s.bodies = append(s.bodies, bodies...)
	return nil
}
