// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"time"
)

// DateLayout is the day-granularity layout used for observation dates.
const DateLayout = "2006-01-02"

// KeywordObservation counts occurrences of a normalized keyword on a day.
// Counts for the same (keyword, date) accumulate and are only removed by an
// explicit purge.
type KeywordObservation struct {
	Keyword string    `json:"keyword" yaml:"keyword"`
	Date    time.Time `json:"date" yaml:"date"`
	Count   int       `json:"count" yaml:"count"`
}

// KeywordCount is one ranked entry of a TrendWindow.
type KeywordCount struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Count   int    `json:"count" yaml:"count"`
}

// TrendWindow is a ranked aggregation of keyword counts over [Start, End].
// It is computed on demand and never stored.
type TrendWindow struct {
	Start  time.Time      `json:"start" yaml:"start"`
	End    time.Time      `json:"end" yaml:"end"`
	Ranked []KeywordCount `json:"ranked" yaml:"ranked"`
}

// Days returns the number of calendar days spanned by the window.
func (w TrendWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// RankKeywords sorts counts descending by count, breaking ties by the
// lexical order of the keyword, and keeps at most topN entries (topN <= 0
// keeps all).
func RankKeywords(counts map[string]int, topN int) []KeywordCount {
	ranked := make([]KeywordCount, 0, len(counts))
	for kw, c := range counts {
		ranked = append(ranked, KeywordCount{Keyword: kw, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Keyword < ranked[j].Keyword
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
