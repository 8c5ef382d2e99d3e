// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch runs every enabled source adapter concurrently and merges
// their papers into one deterministic list for deduplication.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/research-radar/internal/dedup"
	"github.com/pdiddy/research-radar/internal/source"
	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrAllSourcesUnavailable is returned when every enabled source failed.
var ErrAllSourcesUnavailable = errors.New("all sources unavailable")

// Enricher adds metadata to a fetched paper. Implemented by
// source.SemanticScholar.
type Enricher interface {
	Enrich(ctx context.Context, p types.Paper) (types.Paper, error)
}

// Failure records a source that failed during the run.
type Failure struct {
	Source string `json:"source" yaml:"source"`
	Error  string `json:"error" yaml:"error"`
}

// Output holds the merged papers and per-source statistics.
type Output struct {
	Papers    []types.Paper
	PerSource map[string]int
	Failures  []Failure
	Enriched  int
}

// Fetch fans the request out to all adapters concurrently. Papers are
// stamped with their dedup key and merged in adapter order, keeping each
// source's own order. A failed source contributes no papers. When every
// source fails the error wraps ErrAllSourcesUnavailable.
func Fetch(ctx context.Context, adapters []source.Adapter, req source.Request, enricher Enricher, w io.Writer) (Output, error) {
	if len(adapters) == 0 {
		return Output{}, fmt.Errorf("no sources enabled: %w", ErrAllSourcesUnavailable)
	}

	type sourceResult struct {
		index  int
		name   string
		papers []types.Paper
		err    error
	}

	ch := make(chan sourceResult, len(adapters))
	var wg sync.WaitGroup
	for i, a := range adapters {
		fmt.Fprintf(w, "fetching from %s...\n", a.Name())
		wg.Add(1)
		go func(i int, a source.Adapter) {
			defer wg.Done()
			var papers []types.Paper
			for p, err := range a.Fetch(ctx, req) {
				if err != nil {
					ch <- sourceResult{index: i, name: a.Name(), err: err}
					return
				}
				p.DedupKey = dedup.Key(p)
				papers = append(papers, p)
			}
			ch <- sourceResult{index: i, name: a.Name(), papers: papers}
		}(i, a)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	results := make([]sourceResult, len(adapters))
	for r := range ch {
		results[r.index] = r
	}

	out := Output{PerSource: make(map[string]int, len(adapters))}
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			out.Failures = append(out.Failures, Failure{Source: r.name, Error: r.err.Error()})
			fmt.Fprintf(w, "warning: source %s failed: %v\n", r.name, r.err)
			continue
		}
		fmt.Fprintf(w, "  %s: %d papers\n", r.name, len(r.papers))
		out.PerSource[r.name] = len(r.papers)
		out.Papers = append(out.Papers, r.papers...)
	}

	if len(errs) == len(adapters) {
		return out, fmt.Errorf("%w: %w", ErrAllSourcesUnavailable, errors.Join(errs...))
	}

	if enricher != nil {
		out.Enriched = enrich(ctx, out.Papers, enricher, w)
	}
	return out, nil
}

// enrich looks up papers that have a DOI but no PDF link. Lookup failures
// leave the paper unchanged. Keys are not recomputed because enrichment
// never touches title, authors or date.
func enrich(ctx context.Context, papers []types.Paper, e Enricher, w io.Writer) int {
	n := 0
	for i, p := range papers {
		if p.DOI == "" || p.PDFURL != "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		enriched, err := e.Enrich(ctx, p)
		if err != nil {
			fmt.Fprintf(w, "warning: enrichment failed for %q: %v\n", p.Title, err)
			continue
		}
		if enriched.PDFURL != p.PDFURL || enriched.TLDR != p.TLDR {
			n++
		}
		papers[i] = enriched
	}
	if n > 0 {
		fmt.Fprintf(w, "enriched %d papers via Semantic Scholar\n", n)
	}
	return n
}
