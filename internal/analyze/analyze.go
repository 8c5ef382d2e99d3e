// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze runs the smart reasoning tier over the full text of
// papers that passed the scoring threshold.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/internal/pdftext"
	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrAnalysis marks a paper whose analysis call failed. Such papers are
// still recorded in history and are not retried.
var ErrAnalysis = errors.New("analysis failed")

const defaultCharBudget = 15000

// Engine extracts structured insights from passing papers.
type Engine struct {
	Reasoner        llm.Reasoner
	Fetcher         pdftext.TextFetcher
	ResearchContext string
	// CharBudget truncates the text sent to the reasoner.
	CharBudget int
	Workers    int
	// Translator, when set, adds a translated abstract to successful
	// analyses. A failed translation leaves the analysis intact.
	Translator *Translator
}

// NewEngine builds an engine from configuration.
func NewEngine(r llm.Reasoner, f pdftext.TextFetcher, researchContext string, cfg types.AnalysisConfig) *Engine {
	return &Engine{
		Reasoner:        r,
		Fetcher:         f,
		ResearchContext: researchContext,
		CharBudget:      cfg.CharBudget,
		Workers:         cfg.Workers,
	}
}

// Batch holds analysis results indexed like the input papers.
type Batch struct {
	// Results is indexed like the input papers. Entries listed in
	// Abandoned are zero values.
	Results []types.AnalysisResult
	// Abandoned holds the indexes of papers not started, or cut short,
	// because the context was cancelled.
	Abandoned []int
	Summary   Summary
}

// Summary holds counts from an analysis batch.
type Summary struct {
	Analyzed  int
	Partial   int
	Failed    int
	Abandoned int
}

type analysisResponse struct {
	Summary     string     `json:"summary"`
	Methodology string     `json:"methodology"`
	Innovations stringList `json:"innovations"`
	TechStack   stringList `json:"tech_stack"`
	KeyResults  string     `json:"key_results"`
	Limitations string     `json:"limitations"`
	Relevance   string     `json:"relevance"`
}

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if strings.TrimSpace(one) != "" {
		*s = []string{one}
	}
	return nil
}

// AnalyzeAll analyzes papers concurrently with at most Workers calls in
// flight and returns results in input order.
func (e *Engine) AnalyzeAll(ctx context.Context, papers []types.Paper, w io.Writer) Batch {
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]types.AnalysisResult, len(papers))
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
			r := e.Analyze(ctx, p)
			if r.Failed && ctx.Err() != nil {
				interrupted[i] = true
				logf("interrupted analysis %s\n", p.Title)
				return nil
			}
			results[i] = r
			switch {
			case r.Failed:
				logf("failed  analysis %s: %s\n", p.Title, r.Error)
			case r.PartialInput:
				logf("analyzed %s (abstract only)\n", p.Title)
			default:
				logf("analyzed %s\n", p.Title)
			}
			return nil
		})
	}
	g.Wait()

	b := Batch{Results: results}
	for i := range papers {
		switch {
		case !started[i] || interrupted[i]:
			b.Abandoned = append(b.Abandoned, i)
			b.Summary.Abandoned++
		case results[i].Failed:
			b.Summary.Failed++
		default:
			b.Summary.Analyzed++
			if results[i].PartialInput {
				b.Summary.Partial++
			}
		}
	}
	return b
}

// Analyze retrieves the paper text, falling back to the abstract when the
// PDF cannot be retrieved, and asks the reasoner for a structured analysis.
func (e *Engine) Analyze(ctx context.Context, p types.Paper) types.AnalysisResult {
	res := types.AnalysisResult{DedupKey: p.DedupKey, Title: p.Title}

	content, partial := e.content(ctx, p)
	res.PartialInput = partial

	prompt, err := renderPrompt(promptData{
		Title:           p.Title,
		Content:         truncate(content, e.charBudget()),
		ResearchContext: e.ResearchContext,
		Partial:         partial,
	})
	if err != nil {
		return failed(res, fmt.Errorf("rendering prompt: %w", err))
	}

	text, err := e.Reasoner.Evaluate(ctx, llm.Request{System: analysisSystem, Prompt: prompt})
	if err != nil {
		return failed(res, err)
	}
	var resp analysisResponse
	if err := llm.DecodeJSON(text, &resp); err != nil {
		return failed(res, err)
	}

	res.Summary = strings.TrimSpace(resp.Summary)
	res.Methodology = strings.TrimSpace(resp.Methodology)
	res.Innovations = trimAll(resp.Innovations)
	res.TechStack = uniqueSorted(resp.TechStack)
	res.KeyResults = strings.TrimSpace(resp.KeyResults)
	res.Limitations = strings.TrimSpace(resp.Limitations)
	res.RelevanceSummary = strings.TrimSpace(resp.Relevance)

	if e.Translator != nil && strings.TrimSpace(p.Abstract) != "" {
		if tr, err := e.Translator.Translate(ctx, p.Abstract); err == nil && tr != "" {
			res.TranslatedAbstract = tr
			res.TranslationLanguage = e.Translator.Language
		}
	}
	return res
}

// content returns the text to analyze and whether it is the abstract
// fallback.
func (e *Engine) content(ctx context.Context, p types.Paper) (string, bool) {
	if e.Fetcher != nil {
		text, err := e.Fetcher.FetchText(ctx, p.BestPDFURL())
		if err == nil {
			return text, false
		}
	}
	var parts []string
	if p.TLDR != "" {
		parts = append(parts, "TLDR: "+p.TLDR)
	}
	if p.Abstract != "" {
		parts = append(parts, "Abstract: "+p.Abstract)
	}
	if len(parts) == 0 {
		parts = append(parts, "(no abstract available)")
	}
	return strings.Join(parts, "\n\n"), true
}

func (e *Engine) charBudget() int {
	if e.CharBudget > 0 {
		return e.CharBudget
	}
	return defaultCharBudget
}

func failed(res types.AnalysisResult, err error) types.AnalysisResult {
	res.Failed = true
	res.Error = fmt.Errorf("%w: %v", ErrAnalysis, err).Error()
	return res
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// uniqueSorted returns the case-insensitively distinct entries of in,
// sorted lexically.
func uniqueSorted(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range trimAll(in) {
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
