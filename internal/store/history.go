// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-radar/pkg/types"
)

// LoadHistory reads every processed dedup key into memory.
func (s *Store) LoadHistory(ctx context.Context) (types.HistorySet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dedup_key, first_seen FROM history`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading history: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	set := make(types.HistorySet)
	for rows.Next() {
		var key, seen string
		if err := rows.Scan(&key, &seen); err != nil {
			return nil, fmt.Errorf("%w: scanning history: %w", ErrCorrupt, err)
		}
		t, err := parseStamp(seen)
		if err != nil {
			return nil, err
		}
		set[key] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: loading history: %w", ErrCorrupt, err)
	}
	return set, nil
}

// Contains reports whether key was recorded by an earlier run.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM history WHERE dedup_key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: checking history: %w", ErrCorrupt, err)
	}
	return n > 0, nil
}

// Add records a single history entry and reports whether it was new.
// Existing entries are never modified.
func (s *Store) Add(ctx context.Context, rec types.HistoryRecord) (bool, error) {
	sum, err := s.Commit(ctx, Batch{History: []types.HistoryRecord{rec}})
	if err != nil {
		return false, err
	}
	return sum.HistoryAdded == 1, nil
}

// HistoryCount returns the number of processed papers.
func (s *Store) HistoryCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting history: %w", ErrCorrupt, err)
	}
	return n, nil
}

// FindHistory returns entries whose dedup key equals query or whose title
// contains it, case-insensitively.
func (s *Store) FindHistory(ctx context.Context, query string, limit int) ([]types.HistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT dedup_key, first_seen, source, title FROM history
		 WHERE dedup_key = ? OR lower(title) LIKE '%' || lower(?) || '%'
		 ORDER BY first_seen DESC LIMIT ?`, query, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: searching history: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	var out []types.HistoryRecord
	for rows.Next() {
		var rec types.HistoryRecord
		var seen string
		if err := rows.Scan(&rec.DedupKey, &seen, &rec.Source, &rec.Title); err != nil {
			return nil, fmt.Errorf("%w: scanning history: %w", ErrCorrupt, err)
		}
		t, err := parseStamp(seen)
		if err != nil {
			return nil, err
		}
		rec.FirstSeen = t
		out = append(out, rec)
	}
	return out, rows.Err()
}
