// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package trend

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/internal/store"
	"github.com/pdiddy/research-radar/pkg/types"
)

var today = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLexical(t *testing.T) {
	assert.Equal(t, "quantum error correction", Lexical("  Quantum   Error\tCorrection "))
	assert.Equal(t, "", Lexical("   "))
}

func TestAggregate_SumsAcrossDays(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, err := s.Commit(ctx, store.Batch{Observations: []types.KeywordObservation{
		{Keyword: "k", Date: types.Day(today.AddDate(0, 0, -1)), Count: 3},
		{Keyword: "k", Date: types.Day(today), Count: 2},
		{Keyword: "old", Date: types.Day(today.AddDate(0, 0, -40)), Count: 9},
	}})
	require.NoError(t, err)

	w, err := Aggregate(ctx, s, today, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []types.KeywordCount{{Keyword: "k", Count: 5}}, w.Ranked)
	assert.True(t, w.End.Equal(types.Day(today)))
}

func TestAggregate_TieBreakAndTopN(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	d := types.Day(today)
	_, err := s.Commit(ctx, store.Batch{Observations: []types.KeywordObservation{
		{Keyword: "b", Date: d, Count: 2},
		{Keyword: "a", Date: d, Count: 2},
		{Keyword: "c", Date: d, Count: 5},
	}})
	require.NoError(t, err)

	w, err := Aggregate(ctx, s, today, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, []types.KeywordCount{{Keyword: "c", Count: 5}, {Keyword: "a", Count: 2}}, w.Ranked)
}

func TestDailySeries_Buckets(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, err := s.Commit(ctx, store.Batch{Observations: []types.KeywordObservation{
		{Keyword: "k", Date: types.Day(today.AddDate(0, 0, -13)), Count: 1},
		{Keyword: "k", Date: types.Day(today.AddDate(0, 0, -12)), Count: 2},
		{Keyword: "k", Date: types.Day(today), Count: 4},
	}})
	require.NoError(t, err)

	b, err := DailySeries(ctx, s, []string{"k", "none"}, today, 13, 7)
	require.NoError(t, err)
	require.Len(t, b.Buckets, 2)
	require.Len(t, b.Series, 2)
	assert.Equal(t, []int{3, 4}, b.Series[0].Counts)
	assert.Equal(t, []int{0, 0}, b.Series[1].Counts)
}

func TestCollector_Count(t *testing.T) {
	scores := []types.ScoreResult{
		{Scored: true, KeywordScores: map[string]float64{"QEC": 6, "ion trap": 0}, ExtractedKeywords: []string{"qec", "Surface Code"}},
		{Scored: true, KeywordScores: map[string]float64{"QEC": 2, "ion trap": 1}},
		{Scored: false, KeywordScores: map[string]float64{"QEC": 9}},
	}

	got := Collector{Floor: 0, RecordExtracted: true}.Count(scores)
	assert.Equal(t, map[string]int{"qec": 2, "surface code": 1, "ion trap": 1}, got)

	got = Collector{Floor: 1.5}.Count(scores)
	assert.Equal(t, map[string]int{"qec": 2}, got)
}

func TestObservations_MergesCanonical(t *testing.T) {
	m := Mapping{Canonical: map[string]string{"qec": "quantum error correction"}}
	obs := Observations(map[string]int{"qec": 3, "quantum error correction": 2, "ion trap": 1}, m, today)
	require.Len(t, obs, 2)
	assert.Equal(t, "ion trap", obs[0].Keyword)
	assert.Equal(t, "quantum error correction", obs[1].Keyword)
	assert.Equal(t, 5, obs[1].Count)
	assert.True(t, obs[1].Date.Equal(types.Day(today)))
}

func normalizingReasoner(calls *int32) llm.Reasoner {
	return llm.ReasonerFunc(func(_ context.Context, req llm.Request) (string, error) {
		atomic.AddInt32(calls, 1)
		return `{"normalizations": [
			{"canonical_form": "Quantum Error Correction", "original_keywords": ["qec", "quantum error correcting codes"], "confidence": 0.9},
			{"canonical_form": "ion trap", "original_keywords": ["trapped ions"], "confidence": 0.3}
		]}`, nil
	})
}

func TestNormalize_MergesAndLearns(t *testing.T) {
	var calls int32
	n := NewNormalizer(normalizingReasoner(&calls), types.TrendConfig{Normalize: true}, nil, nil)

	m := n.Normalize(context.Background(), []string{"QEC", "quantum error correcting codes", "trapped ions"}, &bytes.Buffer{})

	assert.Equal(t, "quantum error correction", m.Of("QEC"))
	assert.Equal(t, "quantum error correction", m.Of("quantum error correcting codes"))
	assert.Equal(t, "trapped ions", m.Of("trapped ions"), "low confidence merge is ignored")
	assert.EqualValues(t, 1, calls)

	learned := make(map[string]string)
	for _, a := range m.NewAliases {
		learned[a.Raw] = a.Canonical
	}
	assert.Equal(t, "quantum error correction", learned["qec"])
	assert.Equal(t, "quantum error correction", learned["quantum error correction"])
	assert.Equal(t, "trapped ions", learned["trapped ions"])
}

func TestNormalize_Idempotent(t *testing.T) {
	var calls int32
	n := NewNormalizer(normalizingReasoner(&calls), types.TrendConfig{Normalize: true}, nil, nil)
	first := n.Normalize(context.Background(), []string{"QEC", "trapped ions"}, &bytes.Buffer{})

	var outputs []string
	for _, c := range first.Canonical {
		outputs = append(outputs, c)
	}
	second := n.Normalize(context.Background(), outputs, &bytes.Buffer{})
	for _, c := range outputs {
		assert.Equal(t, c, second.Of(c))
	}
	assert.EqualValues(t, 1, calls, "canonical forms resolve without a reasoning call")
	assert.Empty(t, second.NewAliases)
}

func TestNormalize_SeededAliasesSkipReasoner(t *testing.T) {
	var calls int32
	n := NewNormalizer(normalizingReasoner(&calls), types.TrendConfig{Normalize: true},
		map[string]string{"qec": "quantum error correction"}, []string{"ion trap"})

	m := n.Normalize(context.Background(), []string{"QEC", "Ion  Trap", "quantum error correction"}, &bytes.Buffer{})

	assert.Zero(t, calls)
	assert.Equal(t, "quantum error correction", m.Of("qec"))
	assert.Equal(t, "ion trap", m.Of("ion trap"))
	assert.Equal(t, "quantum error correction", m.Of("quantum error correction"))
}

func TestNormalize_FailedBatchFallsBackToIdentity(t *testing.T) {
	r := llm.ReasonerFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("unavailable")
	})
	n := NewNormalizer(r, types.TrendConfig{Normalize: true, BatchSize: 2}, nil, nil)
	var buf bytes.Buffer

	m := n.Normalize(context.Background(), []string{"a", "b", "c"}, &buf)

	assert.Equal(t, 2, m.FailedBatches)
	assert.Equal(t, "a", m.Of("a"))
	assert.Equal(t, "c", m.Of("c"))
	assert.Empty(t, m.NewAliases)
	assert.Contains(t, buf.String(), "warning:")
}

func TestNormalize_BatchesAndHints(t *testing.T) {
	var prompts []string
	r := llm.ReasonerFunc(func(_ context.Context, req llm.Request) (string, error) {
		prompts = append(prompts, req.Prompt)
		return `{"normalizations": [{"canonical_form": "x", "original_keywords": [], "confidence": 1}]}`, nil
	})
	n := NewNormalizer(r, types.TrendConfig{Normalize: true, BatchSize: 2}, nil, []string{"known form"})

	n.Normalize(context.Background(), []string{"k1", "k2", "k3"}, &bytes.Buffer{})

	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "known form")
	assert.True(t, strings.Contains(prompts[0], `"k1"`) && strings.Contains(prompts[0], `"k2"`))
	assert.Contains(t, prompts[1], `"k3"`)
}

func TestNormalize_DisabledIsLexicalOnly(t *testing.T) {
	var calls int32
	n := NewNormalizer(normalizingReasoner(&calls), types.TrendConfig{Normalize: false},
		map[string]string{"qec": "quantum error correction"}, nil)

	m := n.Normalize(context.Background(), []string{" QEC "}, &bytes.Buffer{})
	assert.Equal(t, "qec", m.Of("QEC"))
	assert.Zero(t, calls)
}
