// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history journals conversion attempts in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docconvert/pkg/types"
)

const defaultLimit = 50

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Recorder accepts journal entries. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, e types.HistoryEntry) error
}

// Nop discards every entry.
type Nop struct{}

// Record does nothing.
func (Nop) Record(context.Context, types.HistoryEntry) error { return nil }

// Store is a Recorder backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path and ensures its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id TEXT PRIMARY KEY,
			request_id TEXT,
			conversion TEXT NOT NULL,
			input_name TEXT,
			output_name TEXT,
			input_bytes INTEGER,
			output_bytes INTEGER,
			outcome TEXT NOT NULL,
			error TEXT,
			started_at TEXT NOT NULL,
			duration_ns INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_started_at ON conversions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_outcome ON conversions(outcome)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts e. A missing ID is generated; a zero StartedAt is set to now.
func (s *Store) Record(ctx context.Context, e types.HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (id, request_id, conversion, input_name, output_name,
			input_bytes, output_bytes, outcome, error, started_at, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RequestID, string(e.Conversion), e.InputName, e.OutputName,
		e.InputBytes, e.OutputBytes, string(e.Outcome), e.Error,
		e.StartedAt.UTC().Format(timeLayout), int64(e.Duration),
	)
	if err != nil {
		return fmt.Errorf("recording conversion %s: %w", e.ID, err)
	}
	return nil
}

// QueryOptions filters Recent. Zero values match everything.
type QueryOptions struct {
	Conversion types.Conversion
	Outcome    types.Outcome
	Since      time.Time
	Limit      int
}

// Recent returns matching entries, newest first.
func (s *Store) Recent(ctx context.Context, opts QueryOptions) ([]types.HistoryEntry, error) {
	var (
		where []string
		args  []any
	)
	if opts.Conversion != "" {
		where = append(where, "conversion = ?")
		args = append(args, string(opts.Conversion))
	}
	if opts.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(opts.Outcome))
	}
	if !opts.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}

	query := `SELECT id, request_id, conversion, input_name, output_name, input_bytes,
		output_bytes, outcome, error, started_at, duration_ns FROM conversions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var (
			e          types.HistoryEntry
			conversion string
			outcome    string
			startedAt  string
			durationNS int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &conversion, &e.InputName, &e.OutputName,
			&e.InputBytes, &e.OutputBytes, &outcome, &e.Error, &startedAt, &durationNS); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Conversion = types.Conversion(conversion)
		e.Outcome = types.Outcome(outcome)
		e.Duration = time.Duration(durationNS)
		if t, err := time.Parse(timeLayout, startedAt); err == nil {
			e.StartedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary counts entries per outcome.
type Summary struct {
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Rejected  int `json:"rejected" yaml:"rejected"`
}

// Total returns the number of journaled requests.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Rejected
}

// Summarize counts all journaled entries by outcome.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, count(*) FROM conversions GROUP BY outcome`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing history: %w", err)
	}
	defer rows.Close()

	var sum Summary
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return Summary{}, fmt.Errorf("scanning summary row: %w", err)
		}
		switch types.Outcome(outcome) {
		case types.OutcomeSucceeded:
			sum.Succeeded = n
		case types.OutcomeFailed:
			sum.Failed = n
		case types.OutcomeRejected:
			sum.Rejected = n
		}
	}
	return sum, rows.Err()
}
