// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/internal/pdftext"
	"github.com/pdiddy/research-radar/pkg/types"
)

const goodResponse = `{"summary":"s","methodology":"m","innovations":["a"," b "],
"tech_stack":["Qiskit","qiskit","Cirq"],"key_results":"k","limitations":"l","relevance":"r"}`

type fakeFetcher struct {
	mu    sync.Mutex
	texts map[string]string
	calls []string
}

func (f *fakeFetcher) FetchText(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if t, ok := f.texts[url]; ok {
		return t, nil
	}
	return "", &pdftext.RetrievalError{URL: url, Err: errors.New("HTTP 403")}
}

func fixedReasoner(text string, err error, seen *[]llm.Request) llm.Reasoner {
	var mu sync.Mutex
	return llm.ReasonerFunc(func(_ context.Context, req llm.Request) (string, error) {
		if seen != nil {
			mu.Lock()
			*seen = append(*seen, req)
			mu.Unlock()
		}
		return text, err
	})
}

func TestAnalyze_FullText(t *testing.T) {
	var seen []llm.Request
	f := &fakeFetcher{texts: map[string]string{"https://x/p.pdf": "full text body"}}
	e := &Engine{Reasoner: fixedReasoner(goodResponse, nil, &seen), Fetcher: f}

	r := e.Analyze(context.Background(), types.Paper{Title: "T", DedupKey: "k", PDFURL: "https://x/p.pdf", Abstract: "abs"})

	assert.False(t, r.Failed)
	assert.False(t, r.PartialInput)
	assert.Equal(t, "k", r.DedupKey)
	assert.Equal(t, "m", r.Methodology)
	assert.Equal(t, []string{"a", "b"}, r.Innovations)
	assert.Equal(t, []string{"Cirq", "Qiskit"}, r.TechStack)
	assert.Equal(t, "r", r.RelevanceSummary)
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0].Prompt, "full text body")
	assert.NotContains(t, seen[0].Prompt, "Only the abstract")
}

func TestAnalyze_FallsBackToAbstract(t *testing.T) {
	var seen []llm.Request
	f := &fakeFetcher{}
	e := &Engine{Reasoner: fixedReasoner(goodResponse, nil, &seen), Fetcher: f}

	r := e.Analyze(context.Background(), types.Paper{Title: "T", ArxivID: "2401.00001", Abstract: "the abstract", TLDR: "short"})

	assert.False(t, r.Failed)
	assert.True(t, r.PartialInput)
	assert.Equal(t, []string{"https://arxiv.org/pdf/2401.00001"}, f.calls)
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0].Prompt, "the abstract")
	assert.Contains(t, seen[0].Prompt, "TLDR: short")
	assert.Contains(t, seen[0].Prompt, "Only the abstract")
}

func TestAnalyze_ReasonerFailure(t *testing.T) {
	e := &Engine{Reasoner: fixedReasoner("", errors.New("overloaded"), nil), Fetcher: &fakeFetcher{}}

	r := e.Analyze(context.Background(), types.Paper{Title: "T", Abstract: "a"})

	assert.True(t, r.Failed)
	assert.Contains(t, r.Error, "analysis failed")
	assert.Contains(t, r.Error, "overloaded")
}

func TestAnalyze_BadJSONFails(t *testing.T) {
	e := &Engine{Reasoner: fixedReasoner("no json here", nil, nil)}
	r := e.Analyze(context.Background(), types.Paper{Title: "T"})
	assert.True(t, r.Failed)
}

func TestAnalyze_SingleStringInnovations(t *testing.T) {
	e := &Engine{Reasoner: fixedReasoner(`{"innovations":"one idea","tech_stack":"Python"}`, nil, nil)}
	r := e.Analyze(context.Background(), types.Paper{Title: "T"})
	require.False(t, r.Failed, r.Error)
	assert.Equal(t, []string{"one idea"}, r.Innovations)
	assert.Equal(t, []string{"Python"}, r.TechStack)
}

func TestAnalyze_TruncatesToBudget(t *testing.T) {
	var seen []llm.Request
	long := strings.Repeat("é", 50) + "TAIL"
	f := &fakeFetcher{texts: map[string]string{"u": long}}
	e := &Engine{Reasoner: fixedReasoner(goodResponse, nil, &seen), Fetcher: f, CharBudget: 50}

	e.Analyze(context.Background(), types.Paper{Title: "T", PDFURL: "u"})

	require.Len(t, seen, 1)
	assert.Contains(t, seen[0].Prompt, strings.Repeat("é", 50))
	assert.NotContains(t, seen[0].Prompt, "TAIL")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "äö", truncate("äöü", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
}

func TestAnalyzeAll_OrderAndSummary(t *testing.T) {
	f := &fakeFetcher{texts: map[string]string{"p0": "text", "p2": "text"}}
	r := llm.ReasonerFunc(func(_ context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "Paper title: bad") {
			return "", errors.New("boom")
		}
		return goodResponse, nil
	})
	e := &Engine{Reasoner: r, Fetcher: f, Workers: 3}
	papers := []types.Paper{
		{Title: "p0", DedupKey: "k0", PDFURL: "p0"},
		{Title: "p1", DedupKey: "k1", PDFURL: "p1", Abstract: "a"},
		{Title: "p2", DedupKey: "k2", PDFURL: "p2"},
		{Title: "bad", DedupKey: "k3"},
	}

	b := e.AnalyzeAll(context.Background(), papers, io.Discard)

	require.Len(t, b.Results, 4)
	for i, r := range b.Results {
		assert.Equal(t, papers[i].DedupKey, r.DedupKey)
	}
	assert.True(t, b.Results[1].PartialInput)
	assert.True(t, b.Results[3].Failed)
	assert.Equal(t, Summary{Analyzed: 3, Partial: 1, Failed: 1}, b.Summary)
	assert.Empty(t, b.Abandoned)
}

func TestAnalyzeAll_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Engine{Reasoner: fixedReasoner(goodResponse, nil, nil)}

	b := e.AnalyzeAll(ctx, []types.Paper{{Title: "a"}, {Title: "b"}}, io.Discard)

	assert.Equal(t, []int{0, 1}, b.Abandoned)
	assert.Equal(t, 2, b.Summary.Abandoned)
}

func TestAnalyzeAll_CallCutShortByCancelIsAbandoned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := llm.ReasonerFunc(func(ctx context.Context, _ llm.Request) (string, error) {
		cancel()
		return "", ctx.Err()
	})
	e := &Engine{Reasoner: r, Workers: 1}

	b := e.AnalyzeAll(ctx, []types.Paper{{Title: "a"}, {Title: "b"}, {Title: "c"}}, io.Discard)

	assert.Equal(t, []int{0, 1, 2}, b.Abandoned)
	assert.Equal(t, 3, b.Summary.Abandoned)
	assert.Zero(t, b.Summary.Failed)
	assert.Equal(t, types.AnalysisResult{}, b.Results[0])
}

func TestAnalyze_TranslatesAbstract(t *testing.T) {
	var seen []llm.Request
	e := &Engine{
		Reasoner:   fixedReasoner(goodResponse, nil, nil),
		Fetcher:    &fakeFetcher{},
		Translator: NewTranslator(fixedReasoner("  Resumen del artículo.\n", nil, &seen), "Spanish"),
	}

	r := e.Analyze(context.Background(), types.Paper{Title: "T", Abstract: "the abstract"})

	assert.False(t, r.Failed)
	assert.Equal(t, "Resumen del artículo.", r.TranslatedAbstract)
	assert.Equal(t, "Spanish", r.TranslationLanguage)
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0].Prompt, "into Spanish")
	assert.Contains(t, seen[0].Prompt, "the abstract")
}

func TestAnalyze_TranslationFailureKeepsAnalysis(t *testing.T) {
	e := &Engine{
		Reasoner:   fixedReasoner(goodResponse, nil, nil),
		Translator: NewTranslator(fixedReasoner("", errors.New("overloaded"), nil), "German"),
	}

	r := e.Analyze(context.Background(), types.Paper{Title: "T", Abstract: "the abstract"})

	assert.False(t, r.Failed)
	assert.Equal(t, "m", r.Methodology)
	assert.Empty(t, r.TranslatedAbstract)
	assert.Empty(t, r.TranslationLanguage)
}

func TestAnalyze_NoTranslationWithoutAbstractOrOnFailure(t *testing.T) {
	var seen []llm.Request
	tr := NewTranslator(fixedReasoner("x", nil, &seen), "French")

	e := &Engine{Reasoner: fixedReasoner(goodResponse, nil, nil), Translator: tr}
	e.Analyze(context.Background(), types.Paper{Title: "no abstract"})

	e = &Engine{Reasoner: fixedReasoner("not json", nil, nil), Translator: tr}
	r := e.Analyze(context.Background(), types.Paper{Title: "T", Abstract: "abs"})

	assert.True(t, r.Failed)
	assert.Empty(t, seen)
}

func TestNewTranslator_EmptyLanguage(t *testing.T) {
	assert.Nil(t, NewTranslator(fixedReasoner("", nil, nil), "  "))
}
