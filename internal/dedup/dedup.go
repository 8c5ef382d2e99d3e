// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup derives cross-source dedup keys and collapses duplicate
// papers, preferring journal versions over preprints.
package dedup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/research-radar/pkg/types"
)

// DefaultPriority ranks journal sources ahead of preprints.
var DefaultPriority = []string{"openalex", "rss", "arxiv"}

// Result holds the deduplicated papers and the trace of everything dropped.
type Result struct {
	Papers      []types.Paper
	Dropped     []types.TraceEntry
	AlreadySeen int
	Duplicates  int
}

// Key returns the dedup key of p: normalized title, first author surname and
// publication year joined by "|". Two versions of the same paper from
// different sources map to the same key.
func Key(p types.Paper) string {
	var surname string
	if len(p.Authors) > 0 {
		surname = Surname(p.Authors[0])
	}
	year := ""
	if !p.Published.IsZero() {
		year = strconv.Itoa(p.Published.Year())
	}
	return normalizeTitle(p.Title) + "|" + surname + "|" + year
}

// Surname extracts the lowercased family name from "Surname, Given" or
// "Given Surname" forms.
func Surname(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i >= 0 {
		return normalizeTitle(name[:i])
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return normalizeTitle(fields[len(fields)-1])
}

// normalizeTitle lowercases, keeps letters, digits and spaces, and collapses
// whitespace.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Deduplicate drops papers already in history, then keeps one instance per
// dedup key. When several sources return the same paper the one from the
// highest priority source wins; ties keep fetch order. The returned papers
// are in priority-then-fetch order. Papers must carry DedupKey.
func Deduplicate(papers []types.Paper, history types.HistorySet, priority []string) Result {
	if priority == nil {
		priority = DefaultPriority
	}
	rank := make(map[string]int, len(priority))
	for i, s := range priority {
		if _, ok := rank[s]; !ok {
			rank[s] = i
		}
	}
	rankOf := func(source string) int {
		if r, ok := rank[source]; ok {
			return r
		}
		return len(priority)
	}

	var res Result
	fresh := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if history.Contains(p.DedupKey) {
			res.AlreadySeen++
			res.Dropped = append(res.Dropped, types.TraceEntry{
				DedupKey: p.DedupKey,
				Title:    p.Title,
				Source:   p.Source(),
				Stage:    types.StageDedup,
				Reason:   "already processed",
			})
			continue
		}
		fresh = append(fresh, p)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return rankOf(fresh[i].Source()) < rankOf(fresh[j].Source())
	})

	kept := make(map[string]types.SourceID, len(fresh))
	for _, p := range fresh {
		if winner, ok := kept[p.DedupKey]; ok {
			res.Duplicates++
			res.Dropped = append(res.Dropped, types.TraceEntry{
				DedupKey: p.DedupKey,
				Title:    p.Title,
				Source:   p.Source(),
				Stage:    types.StageDedup,
				Reason:   fmt.Sprintf("duplicate of %s", winner),
			})
			continue
		}
		kept[p.DedupKey] = p.ID
		res.Papers = append(res.Papers, p)
	}
	return res
}
