// Package queue defines the broker payload for ledger records and the
// consumer that turns them into an audit log file.
package queue

import (
	"time"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

// RecordsQueue is the durable queue every journal record is routed to.
const RecordsQueue = "ledger.records"

// RecordMessage is one journal record as published to RabbitMQ. It carries
// the full record so consumers can verify the chain without querying the
// ledger.
type RecordMessage struct {
	Seq         uint64       `json:"seq"`
	Kind        string       `json:"kind"`
	At          time.Time    `json:"at"`
	Record      model.Record `json:"record"`
	PublishedAt time.Time    `json:"published_at"`
}

// NewRecordMessage wraps rec for publishing at now.
func NewRecordMessage(rec model.Record, now time.Time) RecordMessage {
	return RecordMessage{
		Seq:         rec.Seq,
		Kind:        string(rec.Kind),
		At:          rec.At,
		Record:      rec,
		PublishedAt: now.UTC(),
	}
}
