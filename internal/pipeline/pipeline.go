// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one radar pass: fetch, deduplicate, score, analyze
// and record, moving through a fixed sequence of states.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/research-radar/internal/analyze"
	"github.com/pdiddy/research-radar/internal/dedup"
	"github.com/pdiddy/research-radar/internal/fetch"
	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/internal/score"
	"github.com/pdiddy/research-radar/internal/source"
	"github.com/pdiddy/research-radar/internal/store"
	"github.com/pdiddy/research-radar/internal/trend"
	"github.com/pdiddy/research-radar/pkg/types"
)

// Store is the persistence the pipeline needs.
type Store interface {
	trend.Reader
	LoadHistory(ctx context.Context) (types.HistorySet, error)
	Commit(ctx context.Context, b store.Batch) (store.CommitSummary, error)
	Aliases(ctx context.Context) (map[string]string, error)
	CanonicalKeywords(ctx context.Context) ([]string, error)
}

// Observer is notified of every state transition.
type Observer func(from, to types.RunState)

// Pipeline holds the collaborators of a run. All of them are passed in
// explicitly; the pipeline keeps no global state.
type Pipeline struct {
	Adapters []source.Adapter
	Enricher fetch.Enricher
	Scorer   *score.Engine
	Analyzer *analyze.Engine
	// Normalizer merges keyword variants. Nil keeps the lexical form.
	Normalizer llm.Reasoner
	Store      Store
	Config     types.RadarConfig

	// DryRun skips the Recording phase entirely.
	DryRun   bool
	Observer Observer
	Progress io.Writer
	Now      func() time.Time
}

// RunResult is everything a run produced, with scores in deduplicated
// order and analyses in the order of the passing papers.
type RunResult struct {
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
	State      types.RunState `json:"state" yaml:"state"`
	DryRun     bool           `json:"dry_run" yaml:"dry_run"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`

	From time.Time `json:"from" yaml:"from"`
	To   time.Time `json:"to" yaml:"to"`

	Counts         types.RunCounts    `json:"counts" yaml:"counts"`
	PerSource      map[string]int     `json:"per_source" yaml:"per_source"`
	SourceFailures []fetch.Failure    `json:"source_failures,omitempty" yaml:"source_failures,omitempty"`
	Weights        map[string]float64 `json:"weights" yaml:"weights"`
	BaseScore      float64            `json:"base_score" yaml:"base_score"`
	Coefficient    float64            `json:"coefficient" yaml:"coefficient"`
	PassingScore   float64            `json:"passing_score" yaml:"passing_score"`

	Papers   []types.Paper          `json:"papers" yaml:"papers"`
	Scores   []types.ScoreResult    `json:"scores" yaml:"scores"`
	Analyses []types.AnalysisResult `json:"analyses" yaml:"analyses"`
	Trace    []types.TraceEntry     `json:"trace" yaml:"trace"`

	Observations []types.KeywordObservation `json:"observations,omitempty" yaml:"observations,omitempty"`
	Trends       []types.TrendWindow        `json:"trends,omitempty" yaml:"trends,omitempty"`
}

// Passing returns the papers that passed the threshold, in order.
func (r *RunResult) Passing() []types.Paper {
	var out []types.Paper
	for i, s := range r.Scores {
		if s.PassThreshold {
			out = append(out, r.Papers[i])
		}
	}
	return out
}

type run struct {
	p     *Pipeline
	w     io.Writer
	state types.RunState
	res   *RunResult
}

func (r *run) transition(to types.RunState) {
	from := r.state
	r.state = to
	r.res.State = to
	fmt.Fprintf(r.w, "state: %s -> %s\n", from, to)
	if r.p.Observer != nil {
		r.p.Observer(from, to)
	}
}

// Run executes one pass. The returned error is non-nil only when every
// source was unavailable or persistence failed; item-level failures are
// absorbed into the result's scores, analyses and trace.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	w := p.Progress
	if w == nil {
		w = io.Discard
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	start := now()
	days := p.Config.Sources.SearchDays
	if days <= 0 {
		days = 7
	}
	res := &RunResult{
		StartedAt: start,
		DryRun:    p.DryRun,
		From:      types.Day(start).AddDate(0, 0, -days),
		To:        types.Day(start),
	}
	r := &run{p: p, w: w, state: types.StateIdle, res: res}
	res.State = types.StateIdle

	// Fetching
	r.transition(types.StateFetching)
	history, err := p.Store.LoadHistory(ctx)
	if err != nil {
		return r.fail(ctx, now, err)
	}
	req := source.Request{
		Domains:    p.Config.Sources.Domains,
		From:       res.From,
		To:         res.To,
		MaxResults: p.Config.Sources.MaxResults,
	}
	out, err := fetch.Fetch(ctx, p.Adapters, req, p.Enricher, w)
	res.PerSource = out.PerSource
	res.SourceFailures = out.Failures
	for _, f := range out.Failures {
		res.Trace = append(res.Trace, types.TraceEntry{Title: "source " + f.Source, Source: f.Source, Stage: types.StageFetch, Reason: f.Error})
	}
	res.Counts.Fetched = len(out.Papers)
	if err != nil {
		return r.fail(ctx, now, err)
	}

	// Deduplicating
	r.transition(types.StateDeduplicating)
	priority := p.Config.Sources.Priority
	if len(priority) == 0 {
		priority = dedup.DefaultPriority
	}
	dd := dedup.Deduplicate(out.Papers, history, priority)
	res.Papers = dd.Papers
	res.Trace = append(res.Trace, dd.Dropped...)
	res.Counts.Unique = len(dd.Papers)
	res.Counts.AlreadySeen = dd.AlreadySeen
	res.Counts.Duplicates = dd.Duplicates
	fmt.Fprintf(w, "%d unique papers (%d already processed, %d duplicates)\n",
		len(dd.Papers), dd.AlreadySeen, dd.Duplicates)

	// Scoring
	r.transition(types.StateScoring)
	policy := p.Scorer.Policy
	res.Weights = policy.Weights
	res.BaseScore = policy.BaseScore
	res.Coefficient = policy.Coefficient
	res.PassingScore = policy.PassingScore()
	scored := p.Scorer.ScoreAll(ctx, dd.Papers, w)
	res.Scores = scored.Results
	abandoned := make(map[int]bool, len(scored.Abandoned))
	for _, i := range scored.Abandoned {
		abandoned[i] = true
		res.Scores[i] = types.ScoreResult{
			DedupKey: dd.Papers[i].DedupKey, Title: dd.Papers[i].Title, Source: dd.Papers[i].Source(),
			PassingScore: res.PassingScore, Error: "abandoned: run cancelled",
		}
	}
	var passing []types.Paper
	for i, s := range res.Scores {
		paper := dd.Papers[i]
		switch {
		case !s.Scored:
			res.Counts.Unscored++
			res.Trace = append(res.Trace, trace(paper, types.StageScoring, s.Error+"; retried next run"))
		case s.PassThreshold:
			res.Counts.Scored++
			res.Counts.Passed++
			passing = append(passing, paper)
		default:
			res.Counts.Scored++
			res.Trace = append(res.Trace, trace(paper, types.StageScoring,
				fmt.Sprintf("below threshold (%.2f < %.2f)", s.TotalScore, s.PassingScore)))
		}
	}
	fmt.Fprintf(w, "scored %d, passed %d, unscored %d\n", res.Counts.Scored, res.Counts.Passed, res.Counts.Unscored)

	// Analyzing
	r.transition(types.StateAnalyzing)
	analyzed := p.Analyzer.AnalyzeAll(ctx, passing, w)
	res.Analyses = analyzed.Results
	analysisAbandoned := make(map[string]bool)
	for _, i := range analyzed.Abandoned {
		analysisAbandoned[passing[i].DedupKey] = true
		res.Analyses[i] = types.AnalysisResult{
			DedupKey: passing[i].DedupKey, Title: passing[i].Title,
			Failed: true, Error: "abandoned: run cancelled",
		}
	}
	for i, a := range res.Analyses {
		if a.Failed {
			res.Trace = append(res.Trace, trace(passing[i], types.StageAnalysis, a.Error))
		}
	}
	res.Counts.Analyzed = analyzed.Summary.Analyzed
	res.Counts.Partial = analyzed.Summary.Partial
	res.Counts.Failed = analyzed.Summary.Failed + analyzed.Summary.Abandoned

	// Recording
	r.transition(types.StateRecording)
	batch, err := p.record(ctx, res, abandoned, analysisAbandoned, start, w)
	if err != nil {
		return r.fail(ctx, now, err)
	}
	if !p.DryRun {
		res.FinishedAt = now()
		res.Counts.Recorded = len(batch.History)
		batch.Run = &types.RunRecord{StartedAt: start, FinishedAt: res.FinishedAt, State: types.StateDone, Counts: res.Counts}
		sum, err := p.Store.Commit(context.WithoutCancel(ctx), batch)
		if err != nil {
			return r.fail(ctx, now, err)
		}
		res.Counts.Recorded = sum.HistoryAdded
		fmt.Fprintf(w, "recorded %d papers, %d keyword observations, %d aliases\n",
			sum.HistoryAdded, sum.Observations, sum.Aliases)
	} else {
		fmt.Fprintf(w, "dry run: nothing recorded\n")
	}

	if p.Config.Trend.Enabled {
		trends, err := p.trends(context.WithoutCancel(ctx), start)
		if err != nil {
			fmt.Fprintf(w, "warning: computing keyword trends: %v\n", err)
		}
		res.Trends = trends
	}

	r.transition(types.StateDone)
	res.FinishedAt = now()
	return res, nil
}

// record builds the batch committed at the end of a run: a history record
// for every scored paper and the keyword observations of those papers.
// Papers left out of history are counted when a later run processes them.
func (p *Pipeline) record(ctx context.Context, res *RunResult, abandoned map[int]bool, analysisAbandoned map[string]bool, start time.Time, w io.Writer) (store.Batch, error) {
	var b store.Batch
	var historied []types.ScoreResult
	for i, s := range res.Scores {
		if !s.Scored || abandoned[i] {
			continue
		}
		paper := res.Papers[i]
		if analysisAbandoned[paper.DedupKey] {
			continue
		}
		b.History = append(b.History, types.HistoryRecord{
			DedupKey: paper.DedupKey, FirstSeen: start, Source: paper.Source(), Title: paper.Title,
		})
		historied = append(historied, s)
	}

	if !p.Config.Trend.Enabled {
		return b, nil
	}
	collector := trend.Collector{Floor: p.Config.Trend.RelevanceFloor, RecordExtracted: p.Config.Trend.RecordExtracted}
	raw := collector.Count(historied)
	if len(raw) == 0 {
		return b, nil
	}

	// Store reads must succeed even when the run was interrupted.
	dctx := context.WithoutCancel(ctx)
	aliases, err := p.Store.Aliases(dctx)
	if err != nil {
		return b, err
	}
	canonicals, err := p.Store.CanonicalKeywords(dctx)
	if err != nil {
		return b, err
	}
	n := trend.NewNormalizer(p.Normalizer, p.Config.Trend, aliases, canonicals)
	m := n.Normalize(ctx, trend.Keys(raw), w)
	b.Observations = trend.Observations(raw, m, start)
	b.Aliases = m.NewAliases
	res.Observations = b.Observations
	return b, nil
}

func (p *Pipeline) trends(ctx context.Context, now time.Time) ([]types.TrendWindow, error) {
	cfg := p.Config.Trend
	windows := cfg.Windows
	if len(windows) == 0 {
		windows = []int{cfg.WindowDays}
	}
	var out []types.TrendWindow
	for _, days := range windows {
		if days <= 0 {
			continue
		}
		tw, err := trend.Aggregate(ctx, p.Store, now, days, cfg.TopN)
		if err != nil {
			return out, err
		}
		out = append(out, tw)
	}
	return out, nil
}

func (r *run) fail(ctx context.Context, now func() time.Time, err error) (*RunResult, error) {
	from := r.state
	r.transition(types.StateFailed)
	r.res.Error = err.Error()
	r.res.FinishedAt = now()

	// The run log is best effort once the failure is outside persistence.
	if from == types.StateFetching && !r.p.DryRun && !errors.Is(err, store.ErrCorrupt) {
		rec := &types.RunRecord{StartedAt: r.res.StartedAt, FinishedAt: r.res.FinishedAt, State: types.StateFailed, Counts: r.res.Counts}
		if _, cerr := r.p.Store.Commit(context.WithoutCancel(ctx), store.Batch{Run: rec}); cerr != nil {
			fmt.Fprintf(r.w, "warning: logging failed run: %v\n", cerr)
		}
	}
	return r.res, err
}

func trace(p types.Paper, stage types.Stage, reason string) types.TraceEntry {
	return types.TraceEntry{DedupKey: p.DedupKey, Title: p.Title, Source: p.Source(), Stage: stage, Reason: reason}
}
