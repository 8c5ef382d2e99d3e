// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/research-radar/pkg/types"
)

// SumCounts totals observation counts per keyword over the inclusive day
// range [from, to]. An empty keywords slice sums every keyword.
func (s *Store) SumCounts(ctx context.Context, keywords []string, from, to time.Time) (map[string]int, error) {
	query := `SELECT keyword, SUM(count) FROM keyword_observations WHERE obs_date >= ? AND obs_date <= ?`
	args := []any{from.Format(types.DateLayout), to.Format(types.DateLayout)}
	if len(keywords) > 0 {
		query += ` AND keyword IN (?` + strings.Repeat(",?", len(keywords)-1) + `)`
		for _, k := range keywords {
			args = append(args, k)
		}
	}
	query += ` GROUP BY keyword`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: summing counts: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kw string
		var n int
		if err := rows.Scan(&kw, &n); err != nil {
			return nil, fmt.Errorf("%w: scanning counts: %w", ErrCorrupt, err)
		}
		counts[kw] = n
	}
	return counts, rows.Err()
}

// TopKeywords ranks keywords by total count over [from, to].
func (s *Store) TopKeywords(ctx context.Context, from, to time.Time, n int) ([]types.KeywordCount, error) {
	counts, err := s.SumCounts(ctx, nil, from, to)
	if err != nil {
		return nil, err
	}
	return types.RankKeywords(counts, n), nil
}

// DailyCounts returns per-day observations for keywords over [from, to],
// ordered by date then keyword.
func (s *Store) DailyCounts(ctx context.Context, keywords []string, from, to time.Time) ([]types.KeywordObservation, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	query := `SELECT keyword, obs_date, count FROM keyword_observations
		WHERE obs_date >= ? AND obs_date <= ? AND keyword IN (?` + strings.Repeat(",?", len(keywords)-1) + `)
		ORDER BY obs_date, keyword`
	args := []any{from.Format(types.DateLayout), to.Format(types.DateLayout)}
	for _, k := range keywords {
		args = append(args, k)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying daily counts: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	var out []types.KeywordObservation
	for rows.Next() {
		var obs types.KeywordObservation
		var day string
		if err := rows.Scan(&obs.Keyword, &day, &obs.Count); err != nil {
			return nil, fmt.Errorf("%w: scanning observation: %w", ErrCorrupt, err)
		}
		d, err := time.Parse(types.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("%w: bad observation date %q", ErrCorrupt, day)
		}
		obs.Date = d
		out = append(out, obs)
	}
	return out, rows.Err()
}

// Aliases returns the known raw keyword to canonical form mapping.
func (s *Store) Aliases(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_keyword, canonical FROM keyword_aliases`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading aliases: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var raw, canonical string
		if err := rows.Scan(&raw, &canonical); err != nil {
			return nil, fmt.Errorf("%w: scanning alias: %w", ErrCorrupt, err)
		}
		out[raw] = canonical
	}
	return out, rows.Err()
}

// CanonicalKeywords returns every canonical form known from aliases or
// recorded observations, sorted.
func (s *Store) CanonicalKeywords(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT canonical FROM keyword_aliases UNION SELECT keyword FROM keyword_observations`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading canonical keywords: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("%w: scanning keyword: %w", ErrCorrupt, err)
		}
		out = append(out, kw)
	}
	sort.Strings(out)
	return out, rows.Err()
}

// Purge deletes observations dated strictly before the given day and
// returns the number of rows removed. It is the only operation that
// decreases counts.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM keyword_observations WHERE obs_date < ?`, before.Format(types.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("%w: purging observations: %w", ErrCorrupt, err)
	}
	return res.RowsAffected()
}
