// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/internal/source"
	"github.com/pdiddy/research-radar/pkg/types"
)

type fakeAdapter struct {
	name   string
	delay  time.Duration
	papers []types.Paper
	// failAfter yields an error after that many papers (-1 never fails).
	failAfter int
}

func (f *fakeAdapter) Name() string                      { return f.name }
func (f *fakeAdapter) MinRequestInterval() time.Duration { return 0 }

func (f *fakeAdapter) Fetch(ctx context.Context, _ source.Request) iter.Seq2[types.Paper, error] {
	return func(yield func(types.Paper, error) bool) {
		time.Sleep(f.delay)
		for i, p := range f.papers {
			if i == f.failAfter {
				yield(types.Paper{}, fmt.Errorf("%s: %w", f.name, source.ErrSourceUnavailable))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if f.failAfter >= len(f.papers) {
			yield(types.Paper{}, fmt.Errorf("%s: %w", f.name, source.ErrSourceUnavailable))
		}
	}
}

func papersFor(src string, n int) []types.Paper {
	var ps []types.Paper
	for i := 0; i < n; i++ {
		ps = append(ps, types.Paper{
			ID:        types.SourceID{Source: src, NativeID: fmt.Sprintf("%s-%d", src, i)},
			Title:     fmt.Sprintf("%s paper %d", src, i),
			Authors:   []string{"Alice Smith"},
			Published: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		})
	}
	return ps
}

func TestFetch_MergesInAdapterOrder(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{name: "arxiv", delay: 30 * time.Millisecond, papers: papersFor("arxiv", 2), failAfter: -1},
		&fakeAdapter{name: "openalex", papers: papersFor("openalex", 3), failAfter: -1},
	}

	out, err := Fetch(context.Background(), adapters, source.Request{}, nil, io.Discard)
	require.NoError(t, err)
	require.Len(t, out.Papers, 5)
	assert.Equal(t, "arxiv-0", out.Papers[0].ID.NativeID)
	assert.Equal(t, "arxiv-1", out.Papers[1].ID.NativeID)
	assert.Equal(t, "openalex-0", out.Papers[2].ID.NativeID)
	assert.Equal(t, map[string]int{"arxiv": 2, "openalex": 3}, out.PerSource)
	for _, p := range out.Papers {
		assert.NotEmpty(t, p.DedupKey)
	}
}

func TestFetch_IsolatesFailedSource(t *testing.T) {
	var buf bytes.Buffer
	adapters := []source.Adapter{
		&fakeAdapter{name: "arxiv", papers: papersFor("arxiv", 4), failAfter: 2},
		&fakeAdapter{name: "openalex", papers: papersFor("openalex", 3), failAfter: -1},
	}

	out, err := Fetch(context.Background(), adapters, source.Request{}, nil, &buf)
	require.NoError(t, err)
	require.Len(t, out.Papers, 3)
	for _, p := range out.Papers {
		assert.Equal(t, "openalex", p.Source(), "partial papers of a failed source must be discarded")
	}
	require.Len(t, out.Failures, 1)
	assert.Equal(t, "arxiv", out.Failures[0].Source)
	assert.Contains(t, buf.String(), "warning: source arxiv failed")
}

func TestFetch_AllSourcesUnavailable(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{name: "arxiv", failAfter: 0},
		&fakeAdapter{name: "rss", failAfter: 0},
	}
	_, err := Fetch(context.Background(), adapters, source.Request{}, nil, io.Discard)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllSourcesUnavailable))
	assert.True(t, errors.Is(err, source.ErrSourceUnavailable))
}

func TestFetch_ZeroResultsIsNotFailure(t *testing.T) {
	adapters := []source.Adapter{&fakeAdapter{name: "arxiv", failAfter: -1}}
	out, err := Fetch(context.Background(), adapters, source.Request{}, nil, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, out.Papers)
	assert.Empty(t, out.Failures)
}

type fakeEnricher struct {
	calls int
}

func (f *fakeEnricher) Enrich(_ context.Context, p types.Paper) (types.Paper, error) {
	f.calls++
	if p.DOI == "10.1/fail" {
		return p, errors.New("lookup failed")
	}
	p.PDFURL = "https://arxiv.org/pdf/2610.1"
	p.TLDR = "tldr"
	return p, nil
}

func TestFetch_EnrichesPapersWithoutPDF(t *testing.T) {
	ps := papersFor("openalex", 3)
	ps[0].DOI = "10.1/ok"
	ps[1].DOI = "10.1/fail"
	ps[2].DOI = "10.1/has-pdf"
	ps[2].PDFURL = "https://example.org/x.pdf"

	e := &fakeEnricher{}
	adapters := []source.Adapter{&fakeAdapter{name: "openalex", papers: ps, failAfter: -1}}
	out, err := Fetch(context.Background(), adapters, source.Request{}, e, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 2, e.calls)
	assert.Equal(t, 1, out.Enriched)
	assert.Equal(t, "tldr", out.Papers[0].TLDR)
	assert.Empty(t, out.Papers[1].PDFURL)
	assert.Equal(t, "https://example.org/x.pdf", out.Papers[2].PDFURL)
}
