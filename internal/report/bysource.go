// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"path/filepath"
	"sort"

	"github.com/pdiddy/research-radar/internal/pipeline"
	"github.com/pdiddy/research-radar/pkg/types"
)

// Sources returns the names of the sources that contributed papers to res,
// sorted.
func Sources(res *pipeline.RunResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range res.Papers {
		if s := p.ID.Source; s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// ForSource returns a copy of res restricted to the papers of one source.
// Counts are recomputed from the kept papers; fetch-level counts that
// cannot be attributed to a source are left at zero. Trends are dropped.
func ForSource(res *pipeline.RunResult, source string) *pipeline.RunResult {
	out := *res
	out.Papers, out.Scores, out.Analyses, out.Trace = nil, nil, nil, nil
	out.Trends, out.Observations, out.SourceFailures = nil, nil, nil
	out.PerSource = map[string]int{source: res.PerSource[source]}
	out.Counts = types.RunCounts{Fetched: res.PerSource[source]}

	keys := make(map[string]bool)
	for i, p := range res.Papers {
		if p.ID.Source != source {
			continue
		}
		keys[p.DedupKey] = true
		out.Papers = append(out.Papers, p)
		if i >= len(res.Scores) {
			continue
		}
		s := res.Scores[i]
		out.Scores = append(out.Scores, s)
		switch {
		case !s.Scored:
			out.Counts.Unscored++
		case s.PassThreshold:
			out.Counts.Scored++
			out.Counts.Passed++
		default:
			out.Counts.Scored++
		}
	}
	out.Counts.Unique = len(out.Papers)

	for _, a := range res.Analyses {
		if !keys[a.DedupKey] {
			continue
		}
		out.Analyses = append(out.Analyses, a)
		switch {
		case a.Failed:
			out.Counts.Failed++
		default:
			out.Counts.Analyzed++
			if a.PartialInput {
				out.Counts.Partial++
			}
		}
	}
	for _, f := range res.SourceFailures {
		if f.Source == source {
			out.SourceFailures = append(out.SourceFailures, f)
		}
	}
	for _, e := range res.Trace {
		if e.Source == source || (e.DedupKey != "" && keys[e.DedupKey]) {
			out.Trace = append(out.Trace, e)
		}
	}
	return &out
}

// WriteBySource writes one report per contributing source into
// dir/<source>/ and returns the Markdown paths keyed by source.
func WriteBySource(dir string, res *pipeline.RunResult) (map[string]string, error) {
	written := make(map[string]string)
	for _, source := range Sources(res) {
		paths, err := WriteRun(filepath.Join(dir, source), ForSource(res, source))
		if err != nil {
			return written, err
		}
		written[source] = paths.Markdown
	}
	return written, nil
}
