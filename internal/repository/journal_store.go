package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

// JournalStore persists journal records in seq order.
type JournalStore interface {
	// Load returns every stored record ordered by seq.
	Load(ctx context.Context) ([]model.Record, error)
	// LastSeq returns the seq of the newest stored record, 0 when empty.
	LastSeq(ctx context.Context) (uint64, error)
	// Append stores recs atomically. recs must be contiguous and start at
	// LastSeq()+1.
	Append(ctx context.Context, recs []model.Record) error
}

// checkContiguous validates recs against the stored tail.
func checkContiguous(last uint64, recs []model.Record) error {
	for i, rec := range recs {
		if rec.Seq != last+uint64(i)+1 {
			if rec.Seq <= last {
				return fmt.Errorf("%w: seq %d", ErrConflict, rec.Seq)
			}
			return fmt.Errorf("%w: expected seq %d, got %d", ErrSequenceGap, last+uint64(i)+1, rec.Seq)
		}
	}
	return nil
}

func encodeRecord(rec model.Record) ([]byte, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %d: %w", rec.Seq, err)
	}
	return body, nil
}

func decodeRecord(seq uint64, body []byte) (model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return model.Record{}, fmt.Errorf("decode record %d: %w", seq, err)
	}
	if rec.Seq != seq {
		return model.Record{}, fmt.Errorf("decode record %d: body carries seq %d", seq, rec.Seq)
	}
	return rec, nil
}
