// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package trend

import (
	"context"
	"time"

	"github.com/pdiddy/research-radar/pkg/types"
)

// Reader is the read side of the keyword store.
type Reader interface {
	SumCounts(ctx context.Context, keywords []string, from, to time.Time) (map[string]int, error)
	DailyCounts(ctx context.Context, keywords []string, from, to time.Time) ([]types.KeywordObservation, error)
}

// Bounds returns the inclusive day range [today - days, today].
func Bounds(today time.Time, days int) (time.Time, time.Time) {
	end := types.Day(today)
	return end.AddDate(0, 0, -days), end
}

// Aggregate sums counts per keyword over the last windowDays days and ranks
// them, keeping at most topN.
func Aggregate(ctx context.Context, r Reader, today time.Time, windowDays, topN int) (types.TrendWindow, error) {
	start, end := Bounds(today, windowDays)
	counts, err := r.SumCounts(ctx, nil, start, end)
	if err != nil {
		return types.TrendWindow{}, err
	}
	return types.TrendWindow{Start: start, End: end, Ranked: types.RankKeywords(counts, topN)}, nil
}

// Series is the bucketed count history of one keyword.
type Series struct {
	Keyword string
	Counts  []int
}

// Bucketed holds series aligned on shared bucket start days.
type Bucketed struct {
	Buckets []time.Time
	Series  []Series
}

// DailySeries reads per-day counts for keywords over the window and groups
// them into buckets of bucketDays days, oldest first. Missing days count 0.
func DailySeries(ctx context.Context, r Reader, keywords []string, today time.Time, windowDays, bucketDays int) (Bucketed, error) {
	if bucketDays <= 0 {
		bucketDays = 1
	}
	start, end := Bounds(today, windowDays)
	obs, err := r.DailyCounts(ctx, keywords, start, end)
	if err != nil {
		return Bucketed{}, err
	}

	var b Bucketed
	for d := start; !d.After(end); d = d.AddDate(0, 0, bucketDays) {
		b.Buckets = append(b.Buckets, d)
	}
	index := make(map[string]int, len(keywords))
	for i, kw := range keywords {
		index[kw] = i
		b.Series = append(b.Series, Series{Keyword: kw, Counts: make([]int, len(b.Buckets))})
	}
	for _, o := range obs {
		i, ok := index[o.Keyword]
		if !ok {
			continue
		}
		bucket := int(types.Day(o.Date).Sub(start).Hours()/24) / bucketDays
		if bucket < 0 || bucket >= len(b.Buckets) {
			continue
		}
		b.Series[i].Counts[bucket] += o.Count
	}
	return b, nil
}
