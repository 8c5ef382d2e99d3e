// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score rates papers against weighted keywords with the cheap
// reasoning tier and applies the passing-score threshold.
package score

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrScoring marks a paper that could not be scored. The paper stays
// unscored for this run and is retried on the next one.
var ErrScoring = errors.New("scoring failed")

const maxExtractedKeywords = 8

// Engine scores papers with one reasoning call per paper.
type Engine struct {
	Reasoner        llm.Reasoner
	Policy          Policy
	ResearchContext string
	// Workers bounds the number of concurrent reasoning calls.
	Workers int
}

// NewEngine builds an engine from the scoring configuration.
func NewEngine(r llm.Reasoner, cfg types.ScoringConfig) *Engine {
	return &Engine{
		Reasoner:        r,
		Policy:          PolicyFromConfig(cfg),
		ResearchContext: cfg.ResearchContext,
		Workers:         cfg.Workers,
	}
}

// Batch holds the results of scoring a list of papers.
type Batch struct {
	// Results is indexed like the input papers. Entries listed in
	// Abandoned are zero values.
	Results []types.ScoreResult
	// Abandoned holds the indexes of papers not started, or cut short,
	// because the context was cancelled.
	Abandoned []int
	Summary   Summary
}

// Summary holds counts from a scoring batch.
type Summary struct {
	Scored    int
	Passed    int
	Failed    int
	Abandoned int
}

// Total returns the number of papers in the batch.
func (s Summary) Total() int {
	return s.Scored + s.Failed + s.Abandoned
}

type scoreResponse struct {
	KeywordScores     map[string]float64 `json:"keyword_scores"`
	Reasoning         string             `json:"reasoning"`
	TLDR              string             `json:"tldr"`
	ExtractedKeywords []string           `json:"extracted_keywords"`
}

// ScoreAll scores papers concurrently with at most Workers calls in flight.
// A failed paper yields an unscored result and never aborts the batch.
// Results come back in input order.
func (e *Engine) ScoreAll(ctx context.Context, papers []types.Paper, w io.Writer) Batch {
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]types.ScoreResult, len(papers))
	started := make([]bool, len(papers))
	interrupted := make([]bool, len(papers))

	var mu sync.Mutex
	logf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range papers {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			started[i] = true
			r := e.Score(ctx, p)
			if !r.Scored && ctx.Err() != nil {
				interrupted[i] = true
				logf("interrupted %s\n", p.Title)
				return nil
			}
			results[i] = r
			switch {
			case !r.Scored:
				logf("failed  %s: %s\n", p.Title, r.Error)
			case r.PassThreshold:
				logf("scored  %.1f/%.1f PASS %s\n", r.TotalScore, r.PassingScore, p.Title)
			default:
				logf("scored  %.1f/%.1f      %s\n", r.TotalScore, r.PassingScore, p.Title)
			}
			return nil
		})
	}
	g.Wait()

	var b Batch
	b.Results = results
	for i := range papers {
		switch {
		case !started[i] || interrupted[i]:
			b.Abandoned = append(b.Abandoned, i)
			b.Summary.Abandoned++
		case !results[i].Scored:
			b.Summary.Failed++
		default:
			b.Summary.Scored++
			if results[i].PassThreshold {
				b.Summary.Passed++
			}
		}
	}
	return b
}

// Score rates one paper. Reasoning failures produce an unscored result with
// Error set rather than an error return.
func (e *Engine) Score(ctx context.Context, p types.Paper) types.ScoreResult {
	bonus, experts := e.Policy.AuthorBonus(p.Authors)
	res := types.ScoreResult{
		DedupKey:      p.DedupKey,
		Title:         p.Title,
		Source:        p.Source(),
		AuthorBonus:   bonus,
		ExpertAuthors: experts,
		PassingScore:  e.Policy.PassingScore(),
	}

	resp, err := e.evaluate(ctx, p)
	if err != nil {
		res.AuthorBonus = 0
		res.ExpertAuthors = nil
		res.Error = fmt.Errorf("%w: %v", ErrScoring, err).Error()
		return res
	}

	res.KeywordScores = e.keywordScores(resp.KeywordScores)
	res.TotalScore, res.PassingScore, res.PassThreshold = e.Policy.Evaluate(res.KeywordScores, bonus)
	res.Scored = true
	res.Reasoning = strings.TrimSpace(resp.Reasoning)
	res.TLDR = strings.TrimSpace(resp.TLDR)
	if res.TLDR == "" {
		res.TLDR = p.TLDR
	}
	res.ExtractedKeywords = cleanKeywords(resp.ExtractedKeywords)
	return res
}

func (e *Engine) evaluate(ctx context.Context, p types.Paper) (scoreResponse, error) {
	data := promptData{
		ResearchContext: e.ResearchContext,
		Title:           p.Title,
		Authors:         p.AuthorsString(),
		Abstract:        p.Abstract,
		MaxScore:        e.Policy.MaxScore,
		HalfScore:       e.Policy.MaxScore / 2,
	}
	for _, kw := range e.Policy.Keywords() {
		data.Keywords = append(data.Keywords, promptKeyword{Name: kw, Weight: e.Policy.Weights[kw]})
	}
	prompt, err := renderPrompt(data)
	if err != nil {
		return scoreResponse{}, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := e.Reasoner.Evaluate(ctx, llm.Request{System: scoringSystem, Prompt: prompt})
	if err != nil {
		return scoreResponse{}, err
	}
	var resp scoreResponse
	if err := llm.DecodeJSON(text, &resp); err != nil {
		return scoreResponse{}, err
	}
	if resp.KeywordScores == nil {
		return scoreResponse{}, &llm.ServiceError{Op: "decode", Err: fmt.Errorf("response has no keyword_scores")}
	}
	return resp, nil
}

// keywordScores maps the answer onto the configured keywords, matching
// case-insensitively. Missing keywords score 0; values are clamped.
func (e *Engine) keywordScores(answer map[string]float64) map[string]float64 {
	folded := make(map[string]float64, len(answer))
	for k, v := range answer {
		folded[strings.ToLower(strings.TrimSpace(k))] = v
	}
	out := make(map[string]float64, len(e.Policy.Weights))
	for kw := range e.Policy.Weights {
		v, ok := answer[kw]
		if !ok {
			v = folded[strings.ToLower(kw)]
		}
		out[kw] = e.Policy.Clamp(v)
	}
	return out
}

func cleanKeywords(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, kw := range raw {
		kw = strings.Join(strings.Fields(kw), " ")
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
		if len(out) == maxExtractedKeywords {
			break
		}
	}
	return out
}
