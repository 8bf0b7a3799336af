// Package repository persists the ledger journal. Every store accepts only
// records that extend its stored tail, so a store never holds a gap.
package repository

import "errors"

// ErrSequenceGap is returned when an append does not start right after the
// last stored record.
var ErrSequenceGap = errors.New("journal: appended records do not continue the stored sequence")

// ErrConflict is returned when a record with the same seq is already stored.
var ErrConflict = errors.New("journal: record already stored")
