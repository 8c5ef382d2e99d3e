// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/internal/analyze"
	"github.com/pdiddy/research-radar/internal/fetch"
	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/internal/pdftext"
	"github.com/pdiddy/research-radar/internal/score"
	"github.com/pdiddy/research-radar/internal/source"
	"github.com/pdiddy/research-radar/internal/store"
	"github.com/pdiddy/research-radar/pkg/types"
)

var now = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

type fakeAdapter struct {
	name   string
	papers []types.Paper
	err    error
}

func (f *fakeAdapter) Name() string                      { return f.name }
func (f *fakeAdapter) MinRequestInterval() time.Duration { return 0 }

func (f *fakeAdapter) Fetch(_ context.Context, _ source.Request) iter.Seq2[types.Paper, error] {
	return func(yield func(types.Paper, error) bool) {
		if f.err != nil {
			yield(types.Paper{}, f.err)
			return
		}
		for _, p := range f.papers {
			if !yield(p, nil) {
				return
			}
		}
	}
}

type fakeFetcher struct{ broken map[string]bool }

func (f *fakeFetcher) FetchText(_ context.Context, url string) (string, error) {
	if f.broken[url] {
		return "", &pdftext.RetrievalError{URL: url, Err: errors.New("HTTP 404")}
	}
	return "full text of " + url, nil
}

// makePapers returns n papers; the first pass of them carry "pass" in the title.
func makePapers(n, pass int) []types.Paper {
	var out []types.Paper
	for i := range n {
		kind := "fail"
		if i < pass {
			kind = "pass"
		}
		out = append(out, types.Paper{
			ID:        types.SourceID{Source: "arxiv", NativeID: fmt.Sprintf("2610.%05d", i)},
			Title:     fmt.Sprintf("%s study number %d", kind, i),
			Abstract:  "abstract",
			Authors:   []string{fmt.Sprintf("Author%d Smith", i)},
			Published: now.AddDate(0, 0, -1),
			PDFURL:    fmt.Sprintf("https://pdf/%d", i),
		})
	}
	return out
}

var scoringReasoner = llm.ReasonerFunc(func(_ context.Context, req llm.Request) (string, error) {
	if strings.Contains(req.Prompt, "Title: pass") {
		return `{"keyword_scores": {"qec": 8}, "extracted_keywords": ["Surface Code"]}`, nil
	}
	return `{"keyword_scores": {"qec": 1}, "extracted_keywords": ["surface code"]}`, nil
})

var analysisReasoner = llm.ReasonerFunc(func(context.Context, llm.Request) (string, error) {
	return `{"summary": "s", "methodology": "m", "innovations": ["i"], "tech_stack": ["t"], "limitations": "l", "relevance": "r"}`, nil
})

func testConfig() types.RadarConfig {
	cfg := types.DefaultConfig()
	cfg.Scoring.Keywords = map[string]float64{"qec": 1}
	cfg.Scoring.BaseScore = 3
	cfg.Scoring.Coefficient = 2
	cfg.Scoring.Workers = 4
	cfg.Analysis.Workers = 3
	cfg.Trend.Enabled = true
	cfg.Trend.Normalize = false
	cfg.Trend.RecordExtracted = true
	cfg.Trend.Windows = []int{7}
	return cfg
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newPipeline(t *testing.T, st Store, adapters []source.Adapter, scorer llm.Reasoner, broken map[string]bool) *Pipeline {
	t.Helper()
	cfg := testConfig()
	return &Pipeline{
		Adapters: adapters,
		Scorer:   score.NewEngine(scorer, cfg.Scoring),
		Analyzer: &analyze.Engine{Reasoner: analysisReasoner, Fetcher: &fakeFetcher{broken: broken}, Workers: 3},
		Store:    st,
		Config:   cfg,
		Progress: io.Discard,
		Now:      func() time.Time { return now },
	}
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	papers := makePapers(100, 15)
	broken := map[string]bool{papers[3].PDFURL: true, papers[11].PDFURL: true}

	var transitions []string
	p := newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: papers}}, scoringReasoner, broken)
	p.Observer = func(from, to types.RunState) { transitions = append(transitions, string(from)+">"+string(to)) }

	res, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, types.StateDone, res.State)
	assert.Equal(t, []string{
		"idle>fetching", "fetching>deduplicating", "deduplicating>scoring",
		"scoring>analyzing", "analyzing>recording", "recording>done",
	}, transitions)

	require.Len(t, res.Scores, 100)
	for i, s := range res.Scores {
		assert.Equal(t, res.Papers[i].DedupKey, s.DedupKey)
	}
	assert.Equal(t, 15, res.Counts.Passed)
	require.Len(t, res.Analyses, 15)
	partial := 0
	for _, a := range res.Analyses {
		assert.False(t, a.Failed)
		if a.PartialInput {
			partial++
		}
	}
	assert.Equal(t, 2, partial)
	assert.Equal(t, 2, res.Counts.Partial)
	assert.Equal(t, 100, res.Counts.Recorded)

	n, err := st.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	counts, err := st.SumCounts(ctx, nil, types.Day(now), types.Day(now))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"qec": 100, "surface code": 100}, counts)

	require.Len(t, res.Trends, 1)
	assert.Equal(t, "qec", res.Trends[0].Ranked[0].Keyword)

	runs, err := st.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.StateDone, runs[0].State)
	assert.Equal(t, 100, runs[0].Counts.Fetched)
}

func TestRun_SecondRunSkipsHistory(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	papers := makePapers(10, 2)
	adapters := []source.Adapter{&fakeAdapter{name: "arxiv", papers: papers}}

	_, err := newPipeline(t, st, adapters, scoringReasoner, nil).Run(ctx)
	require.NoError(t, err)

	res, err := newPipeline(t, st, adapters, scoringReasoner, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Counts.AlreadySeen)
	assert.Empty(t, res.Scores)
	assert.Len(t, res.Trace, 10)

	n, err := st.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestRun_AllSourcesUnavailable(t *testing.T) {
	st := testStore(t)
	adapters := []source.Adapter{
		&fakeAdapter{name: "arxiv", err: fmt.Errorf("arxiv: %w", source.ErrSourceUnavailable)},
		&fakeAdapter{name: "rss", err: fmt.Errorf("rss: %w", source.ErrSourceUnavailable)},
	}
	var last types.RunState
	p := newPipeline(t, st, adapters, scoringReasoner, nil)
	p.Observer = func(_, to types.RunState) { last = to }

	res, err := p.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrAllSourcesUnavailable))
	assert.Equal(t, types.StateFailed, res.State)
	assert.Equal(t, types.StateFailed, last)
	assert.Len(t, res.Trace, 2)

	runs, err := st.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.StateFailed, runs[0].State)
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	papers := makePapers(6, 3)
	adapters := []source.Adapter{
		&fakeAdapter{name: "arxiv", papers: papers},
		&fakeAdapter{name: "rss", err: fmt.Errorf("rss: %w", source.ErrSourceUnavailable)},
	}
	flaky := llm.ReasonerFunc(func(ctx context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "number 1\n") || strings.Contains(req.Prompt, "number 4\n") {
			return "", &llm.ServiceError{Op: "scoring", Err: errors.New("overloaded")}
		}
		return scoringReasoner.Evaluate(ctx, req)
	})

	res, err := newPipeline(t, st, adapters, flaky, nil).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, types.StateDone, res.State)
	assert.Equal(t, 2, res.Counts.Unscored)
	assert.Equal(t, 2, res.Counts.Passed)
	assert.Len(t, res.Analyses, 2)

	n, err := st.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "unscored papers are retried next run")

	var stages []types.Stage
	for _, tr := range res.Trace {
		stages = append(stages, tr.Stage)
	}
	assert.Contains(t, stages, types.StageFetch)
	assert.Contains(t, stages, types.StageScoring)
}

func TestRun_AnalysisFailureIsStillHistoried(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	p := newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: makePapers(3, 3)}}, scoringReasoner, nil)
	p.Analyzer.Reasoner = llm.ReasonerFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("down")
	})

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Counts.Failed)

	n, err := st.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRun_DryRunRecordsNothing(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	p := newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: makePapers(5, 1)}}, scoringReasoner, nil)
	p.DryRun = true

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, res.State)
	assert.NotEmpty(t, res.Observations)

	n, err := st.HistoryCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	runs, err := st.RecentRuns(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

type failingStore struct {
	*store.Store
}

func (f failingStore) Commit(context.Context, store.Batch) (store.CommitSummary, error) {
	return store.CommitSummary{}, fmt.Errorf("%w: disk I/O error", store.ErrCorrupt)
}

func TestRun_PersistenceFailureIsFatal(t *testing.T) {
	st := failingStore{testStore(t)}
	p := newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: makePapers(2, 1)}}, scoringReasoner, nil)

	res, err := p.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrCorrupt))
	assert.Equal(t, types.StateFailed, res.State)
}

func TestRun_CancelledScoringCommitsCompletedWork(t *testing.T) {
	st := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := llm.ReasonerFunc(func(ctx context.Context, req llm.Request) (string, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return scoringReasoner.Evaluate(ctx, req)
	})
	p := newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: makePapers(6, 0)}}, r, nil)
	p.Scorer.Workers = 1

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, res.State)
	assert.Equal(t, 2, res.Counts.Scored)
	assert.Equal(t, 4, res.Counts.Unscored)

	n, err := st.HistoryCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// cancellingAnalysis cancels the run on its first call and fails with the
// context error, as a reasoner interrupted mid-request would.
func cancellingAnalysis(cancel context.CancelFunc) llm.Reasoner {
	return llm.ReasonerFunc(func(ctx context.Context, _ llm.Request) (string, error) {
		cancel()
		return "", ctx.Err()
	})
}

func TestRun_InterruptedAnalysisIsRetriedNextRun(t *testing.T) {
	st := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: makePapers(3, 3)}}, scoringReasoner, nil)
	p.Analyzer.Workers = 1
	p.Analyzer.Reasoner = cancellingAnalysis(cancel)

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, res.State)
	assert.Zero(t, res.Counts.Analyzed)
	for _, a := range res.Analyses {
		assert.Equal(t, "abandoned: run cancelled", a.Error)
	}

	n, err := st.HistoryCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err = newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: makePapers(3, 3)}}, scoringReasoner, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Counts.AlreadySeen)
	assert.Equal(t, 3, res.Counts.Analyzed)
}

func TestRun_InterruptedRunDoesNotDoubleCountKeywords(t *testing.T) {
	bg := context.Background()
	st := testStore(t)
	papers := makePapers(5, 3)

	ctx, cancel := context.WithCancel(bg)
	defer cancel()
	p := newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: papers}}, scoringReasoner, nil)
	p.Analyzer.Workers = 1
	p.Analyzer.Reasoner = cancellingAnalysis(cancel)
	_, err := p.Run(ctx)
	require.NoError(t, err)

	counts, err := st.SumCounts(bg, nil, types.Day(now), types.Day(now))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"qec": 2, "surface code": 2}, counts, "only historied papers are counted")

	_, err = newPipeline(t, st, []source.Adapter{&fakeAdapter{name: "arxiv", papers: papers}}, scoringReasoner, nil).Run(bg)
	require.NoError(t, err)

	counts, err = st.SumCounts(bg, nil, types.Day(now), types.Day(now))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"qec": 5, "surface code": 5}, counts)

	n, err := st.HistoryCount(bg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
