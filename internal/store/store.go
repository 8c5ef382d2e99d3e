// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the processed-paper history, keyword observations,
// keyword aliases and the run log in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrCorrupt reports that the database could not be read or written
// consistently. A run that hits it must fail rather than continue.
var ErrCorrupt = errors.New("store unavailable or corrupt")

// Store manages the radar SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrCorrupt, err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %w", ErrCorrupt, err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS history (
			dedup_key TEXT PRIMARY KEY,
			first_seen TEXT NOT NULL,
			source TEXT,
			title TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS keyword_observations (
			keyword TEXT NOT NULL,
			obs_date TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (keyword, obs_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_date ON keyword_observations(obs_date)`,
		`CREATE TABLE IF NOT EXISTS keyword_aliases (
			raw_keyword TEXT PRIMARY KEY,
			canonical TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 1.0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aliases_canonical ON keyword_aliases(canonical)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			state TEXT NOT NULL,
			fetched INTEGER NOT NULL DEFAULT 0,
			uniq INTEGER NOT NULL DEFAULT 0,
			already_seen INTEGER NOT NULL DEFAULT 0,
			duplicates INTEGER NOT NULL DEFAULT 0,
			scored INTEGER NOT NULL DEFAULT 0,
			unscored INTEGER NOT NULL DEFAULT 0,
			passed INTEGER NOT NULL DEFAULT 0,
			analyzed INTEGER NOT NULL DEFAULT 0,
			partial INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			recorded INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Batch is everything one run records, committed in a single transaction.
type Batch struct {
	History      []types.HistoryRecord
	Observations []types.KeywordObservation
	Aliases      []types.KeywordAlias
	Run          *types.RunRecord
}

// CommitSummary holds counts from a Commit.
type CommitSummary struct {
	HistoryAdded int
	Observations int
	Aliases      int
	RunID        int64
}

// Commit writes b in one transaction. History rows are added at most once;
// observation counts are added to existing counts for the same keyword and
// day. Any failure rolls back the whole batch and wraps ErrCorrupt.
func (s *Store) Commit(ctx context.Context, b Batch) (CommitSummary, error) {
	var sum CommitSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, fmt.Errorf("%w: beginning transaction: %w", ErrCorrupt, err)
	}
	defer tx.Rollback()

	if len(b.History) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO history (dedup_key, first_seen, source, title) VALUES (?, ?, ?, ?)
			 ON CONFLICT(dedup_key) DO NOTHING`)
		if err != nil {
			return sum, fmt.Errorf("%w: preparing history insert: %w", ErrCorrupt, err)
		}
		defer stmt.Close()
		for _, rec := range b.History {
			if rec.DedupKey == "" {
				continue
			}
			seen := rec.FirstSeen
			if seen.IsZero() {
				seen = time.Now()
			}
			res, err := stmt.ExecContext(ctx, rec.DedupKey, seen.UTC().Format(time.RFC3339), rec.Source, rec.Title)
			if err != nil {
				return sum, fmt.Errorf("%w: inserting history %s: %w", ErrCorrupt, rec.DedupKey, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				sum.HistoryAdded++
			}
		}
	}

	if len(b.Observations) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO keyword_observations (keyword, obs_date, count) VALUES (?, ?, ?)
			 ON CONFLICT(keyword, obs_date) DO UPDATE SET count = count + excluded.count`)
		if err != nil {
			return sum, fmt.Errorf("%w: preparing observation insert: %w", ErrCorrupt, err)
		}
		defer stmt.Close()
		for _, obs := range b.Observations {
			if obs.Keyword == "" || obs.Count <= 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, obs.Keyword, obs.Date.Format(types.DateLayout), obs.Count); err != nil {
				return sum, fmt.Errorf("%w: recording %q: %w", ErrCorrupt, obs.Keyword, err)
			}
			sum.Observations++
		}
	}

	if len(b.Aliases) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO keyword_aliases (raw_keyword, canonical, confidence) VALUES (?, ?, ?)
			 ON CONFLICT(raw_keyword) DO UPDATE SET canonical = excluded.canonical, confidence = excluded.confidence`)
		if err != nil {
			return sum, fmt.Errorf("%w: preparing alias insert: %w", ErrCorrupt, err)
		}
		defer stmt.Close()
		for _, a := range b.Aliases {
			if a.Raw == "" || a.Canonical == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, a.Raw, a.Canonical, a.Confidence); err != nil {
				return sum, fmt.Errorf("%w: saving alias %q: %w", ErrCorrupt, a.Raw, err)
			}
			sum.Aliases++
		}
	}

	if b.Run != nil {
		id, err := insertRun(ctx, tx, b.Run)
		if err != nil {
			return sum, err
		}
		sum.RunID = id
	}

	if err := tx.Commit(); err != nil {
		return CommitSummary{}, fmt.Errorf("%w: committing: %w", ErrCorrupt, err)
	}
	return sum, nil
}

// parseStamp reads an RFC 3339 column. Empty means not set.
func parseStamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrCorrupt, s)
	}
	return t, nil
}

func insertRun(ctx context.Context, tx *sql.Tx, r *types.RunRecord) (int64, error) {
	c := r.Counts
	finished := ""
	if !r.FinishedAt.IsZero() {
		finished = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, state, fetched, uniq, already_seen, duplicates,
			scored, unscored, passed, analyzed, partial, failed, recorded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC().Format(time.RFC3339), finished, string(r.State),
		c.Fetched, c.Unique, c.AlreadySeen, c.Duplicates,
		c.Scored, c.Unscored, c.Passed, c.Analyzed, c.Partial, c.Failed, c.Recorded,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: logging run: %w", ErrCorrupt, err)
	}
	return res.LastInsertId()
}

// RecentRuns returns up to n runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]types.RunRecord, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, state, fetched, uniq, already_seen, duplicates,
			scored, unscored, passed, analyzed, partial, failed, recorded
		 FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("%w: querying runs: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var (
			r                 types.RunRecord
			started, finished string
			state             string
		)
		c := &r.Counts
		if err := rows.Scan(&r.ID, &started, &finished, &state,
			&c.Fetched, &c.Unique, &c.AlreadySeen, &c.Duplicates,
			&c.Scored, &c.Unscored, &c.Passed, &c.Analyzed, &c.Partial, &c.Failed, &c.Recorded); err != nil {
			return nil, fmt.Errorf("%w: scanning run: %w", ErrCorrupt, err)
		}
		r.State = types.RunState(state)
		var err error
		if r.StartedAt, err = parseStamp(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseStamp(finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
