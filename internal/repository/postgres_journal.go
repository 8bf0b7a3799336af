package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_records (
  seq        BIGINT      PRIMARY KEY,
  kind       TEXT        NOT NULL,
  at         TIMESTAMPTZ NOT NULL,
  prev_hash  TEXT        NOT NULL,
  hash       TEXT        NOT NULL,
  body       JSONB       NOT NULL
)`

// PostgresJournal stores records in the ledger_records table.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// EnsureSchema creates ledger_records when missing.
func (s *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create ledger_records: %w", err)
	}
	return nil
}

func (s *PostgresJournal) Load(ctx context.Context) ([]model.Record, error) {
	const query = `SELECT seq, body FROM ledger_records ORDER BY seq`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			seq  int64
			body []byte
		)
		if err := rows.Scan(&seq, &body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(uint64(seq), body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresJournal) LastSeq(ctx context.Context) (uint64, error) {
	var last int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_records`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return uint64(last), nil
}

func (s *PostgresJournal) Append(ctx context.Context, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// One appender at a time; the lock is released with the transaction.
	if _, err := tx.Exec(ctx, `LOCK TABLE ledger_records IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	var last int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_records`).Scan(&last); err != nil {
		return fmt.Errorf("last seq: %w", err)
	}
	if err := checkContiguous(uint64(last), recs); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		body, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		batch.Queue(`INSERT INTO ledger_records (seq, kind, at, prev_hash, hash, body) VALUES ($1, $2, $3, $4, $5, $6)`,
			int64(rec.Seq), string(rec.Kind), rec.At.UTC(), rec.PrevHash, rec.Hash, body)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("insert records: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
