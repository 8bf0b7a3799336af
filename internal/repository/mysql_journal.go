package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS ledger_records (
  seq        BIGINT UNSIGNED NOT NULL PRIMARY KEY,
  kind       VARCHAR(40)     NOT NULL,
  at         DATETIME(6)     NOT NULL,
  prev_hash  CHAR(66)        NOT NULL,
  hash       CHAR(66)        NOT NULL,
  body       JSON            NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// MySQLJournal stores records in the ledger_records table.
type MySQLJournal struct{ db *sql.DB }

func NewMySQLJournal(db *sql.DB) *MySQLJournal { return &MySQLJournal{db: db} }

// EnsureSchema creates ledger_records when missing.
func (s *MySQLJournal) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("create ledger_records: %w", err)
	}
	return nil
}

func (s *MySQLJournal) Load(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, body FROM ledger_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			seq  uint64
			body []byte
		)
		if err := rows.Scan(&seq, &body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(seq, body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *MySQLJournal) LastSeq(ctx context.Context) (uint64, error) {
	return s.lastSeqTx(ctx, s.db)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *MySQLJournal) lastSeqTx(ctx context.Context, q querier) (uint64, error) {
	var last sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(seq) FROM ledger_records`).Scan(&last); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return uint64(last.Int64), nil
}

func (s *MySQLJournal) Append(ctx context.Context, recs []model.Record) (err error) {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	// Lock the tail so concurrent appenders serialize on it.
	var last sql.NullInt64
	if err = tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM ledger_records FOR UPDATE`).Scan(&last); err != nil {
		return fmt.Errorf("lock tail: %w", err)
	}
	if err = checkContiguous(uint64(last.Int64), recs); err != nil {
		return err
	}
	if err = s.insertTx(ctx, tx, recs); err != nil {
		return err
	}
	return nil
}

// insertTx writes recs in one multi-row INSERT within tx.
func (s *MySQLJournal) insertTx(ctx context.Context, tx *sql.Tx, recs []model.Record) error {
	query := `INSERT INTO ledger_records (seq, kind, at, prev_hash, hash, body) VALUES `
	args := make([]any, 0, len(recs)*6)
	for i, rec := range recs {
		body, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, rec.Seq, string(rec.Kind), rec.At.UTC(), rec.PrevHash, rec.Hash, string(body))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}
