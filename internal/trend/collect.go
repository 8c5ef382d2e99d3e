// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package trend

import (
	"sort"
	"time"

	"github.com/pdiddy/research-radar/pkg/types"
)

// Collector counts keyword occurrences across scored papers.
type Collector struct {
	// Floor is the keyword score a configured keyword must exceed to count.
	Floor float64
	// RecordExtracted also counts keywords the reasoner extracted.
	RecordExtracted bool
}

// Count returns per-keyword occurrence counts, keyed by lexical form. Each
// keyword counts at most once per paper; unscored papers are skipped.
func (c Collector) Count(scores []types.ScoreResult) map[string]int {
	counts := make(map[string]int)
	for _, s := range scores {
		if !s.Scored {
			continue
		}
		seen := make(map[string]bool)
		add := func(kw string) {
			k := Lexical(kw)
			if k == "" || seen[k] {
				return
			}
			seen[k] = true
			counts[k]++
		}
		for kw, v := range s.KeywordScores {
			if v > c.Floor {
				add(kw)
			}
		}
		if c.RecordExtracted {
			for _, kw := range s.ExtractedKeywords {
				add(kw)
			}
		}
	}
	return counts
}

// Observations folds raw counts onto canonical forms for the given day.
// Counts for raws sharing a canonical form are summed. The result is sorted
// by keyword.
func Observations(raw map[string]int, m Mapping, day time.Time) []types.KeywordObservation {
	merged := make(map[string]int)
	for k, n := range raw {
		merged[m.Of(k)] += n
	}
	d := types.Day(day)
	out := make([]types.KeywordObservation, 0, len(merged))
	for k, n := range merged {
		out = append(out, types.KeywordObservation{Keyword: k, Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out
}

// Keys returns the keys of counts, sorted.
func Keys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
