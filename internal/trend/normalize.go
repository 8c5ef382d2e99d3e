// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trend turns scoring results into keyword observations, merges
// keyword variants into canonical forms and ranks keywords over time
// windows.
package trend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/pkg/types"
)

// MinConfidence is the lowest merge confidence accepted from the reasoner.
const MinConfidence = 0.5

const (
	defaultBatchSize = 50
	maxHintKeywords  = 50
)

// Lexical lowercases s, trims it and collapses internal whitespace.
func Lexical(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Normalizer maps raw keywords to canonical forms. Known aliases and known
// canonical forms resolve without a reasoning call; the rest are sent to
// the reasoner in batches. A canonical form always maps to itself, so
// normalizing an already normalized keyword is a no-op.
type Normalizer struct {
	Reasoner  llm.Reasoner
	BatchSize int
	// Disabled restricts normalization to the lexical pass.
	Disabled bool

	aliases map[string]string
}

// NewNormalizer builds a normalizer seeded with persisted aliases and
// canonical forms.
func NewNormalizer(r llm.Reasoner, cfg types.TrendConfig, aliases map[string]string, canonicals []string) *Normalizer {
	n := &Normalizer{
		Reasoner:  r,
		BatchSize: cfg.BatchSize,
		Disabled:  !cfg.Normalize,
		aliases:   make(map[string]string, len(aliases)+len(canonicals)),
	}
	for raw, c := range aliases {
		n.aliases[Lexical(raw)] = Lexical(c)
	}
	for _, c := range canonicals {
		c = Lexical(c)
		n.aliases[c] = c
	}
	for _, c := range aliases {
		c = Lexical(c)
		if _, ok := n.aliases[c]; !ok {
			n.aliases[c] = c
		}
	}
	return n
}

// Mapping is the outcome of one Normalize call.
type Mapping struct {
	// Canonical maps each lexically normalized input keyword to its
	// canonical form.
	Canonical map[string]string

	// NewAliases lists mappings learned from the reasoner, to be persisted.
	NewAliases []types.KeywordAlias

	// FailedBatches counts reasoner batches that fell back to identity.
	FailedBatches int
}

// Of returns the canonical form of raw, or its lexical form when unknown.
func (m Mapping) Of(raw string) string {
	k := Lexical(raw)
	if c, ok := m.Canonical[k]; ok {
		return c
	}
	return k
}

// Normalize resolves raws to canonical forms. Reasoner failures never fail
// the call: keywords of a failed batch map to themselves.
func (n *Normalizer) Normalize(ctx context.Context, raws []string, w io.Writer) Mapping {
	m := Mapping{Canonical: make(map[string]string)}

	var pending []string
	seen := make(map[string]bool)
	for _, raw := range raws {
		k := Lexical(raw)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if n.Disabled {
			m.Canonical[k] = k
			continue
		}
		if c, ok := n.resolve(k); ok {
			m.Canonical[k] = c
			continue
		}
		if n.Reasoner == nil {
			m.Canonical[k] = k
			continue
		}
		pending = append(pending, k)
	}
	sort.Strings(pending)

	size := n.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	for start := 0; start < len(pending); start += size {
		batch := pending[start:min(start+size, len(pending))]
		groups, err := n.normalizeBatch(ctx, batch)
		if err != nil {
			fmt.Fprintf(w, "warning: keyword normalization batch of %d failed: %v\n", len(batch), err)
			m.FailedBatches++
			for _, k := range batch {
				m.Canonical[k] = k
			}
			continue
		}
		n.apply(batch, groups, &m)
	}
	return m
}

// resolve follows known aliases to a fixed point.
func (n *Normalizer) resolve(k string) (string, bool) {
	c, ok := n.aliases[k]
	if !ok {
		return "", false
	}
	for range 8 {
		next, ok := n.aliases[c]
		if !ok || next == c {
			break
		}
		c = next
	}
	return c, true
}

func (n *Normalizer) apply(batch []string, groups []group, m *Mapping) {
	inBatch := make(map[string]bool, len(batch))
	for _, k := range batch {
		inBatch[k] = true
	}

	for _, g := range groups {
		canonical := Lexical(g.Canonical)
		if canonical == "" || g.Confidence < MinConfidence {
			continue
		}
		if c, ok := n.resolve(canonical); ok {
			canonical = c
		}
		for _, raw := range g.Originals {
			k := Lexical(raw)
			if !inBatch[k] {
				continue
			}
			if _, done := m.Canonical[k]; done {
				continue
			}
			m.Canonical[k] = canonical
			n.learn(k, canonical, g.Confidence, m)
		}
		if _, ok := n.aliases[canonical]; !ok {
			n.learn(canonical, canonical, 1, m)
		}
	}

	// Omitted or rejected keywords become their own canonical form.
	for _, k := range batch {
		if _, ok := m.Canonical[k]; ok {
			continue
		}
		m.Canonical[k] = k
		n.learn(k, k, 1, m)
	}
}

func (n *Normalizer) learn(raw, canonical string, confidence float64, m *Mapping) {
	if existing, ok := n.aliases[raw]; ok && existing == canonical {
		return
	}
	n.aliases[raw] = canonical
	m.NewAliases = append(m.NewAliases, types.KeywordAlias{Raw: raw, Canonical: canonical, Confidence: confidence})
}

type group struct {
	Canonical  string   `json:"canonical_form"`
	Originals  []string `json:"original_keywords"`
	Confidence float64  `json:"confidence"`
}

type normalizationResponse struct {
	Normalizations []group `json:"normalizations"`
}

const normalizeSystem = "You are an expert in academic terminology. You merge keyword variants into canonical forms and answer in strict JSON."

var normalizePromptTmpl = template.Must(template.New("normalize").Parse(`Normalize the following academic keywords.

1. Identify synonyms, abbreviations and spelling variants and merge them into one canonical form.
2. Choose the most standard, most widely used form as canonical_form, in lowercase unless it is a proper noun.
3. Give the confidence of each merge between 0.5 and 1.0.
{{if .Existing}}
Known canonical keywords (map to these when they fit):
{{.Existing}}
{{end}}
Keywords:
{{.Keywords}}

Every keyword must appear in exactly one group; a keyword that merges with nothing is its own group.
Respond with JSON only:
{"normalizations": [{"canonical_form": "quantum computing", "original_keywords": ["qc", "quantum computation"], "confidence": 0.95}]}
`))

func (n *Normalizer) normalizeBatch(ctx context.Context, batch []string) ([]group, error) {
	kwJSON, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return nil, err
	}
	data := struct{ Existing, Keywords string }{Keywords: string(kwJSON)}
	if hints := n.hints(); len(hints) > 0 {
		hintJSON, err := json.MarshalIndent(hints, "", "  ")
		if err != nil {
			return nil, err
		}
		data.Existing = string(hintJSON)
	}

	var buf bytes.Buffer
	if err := normalizePromptTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := n.Reasoner.Evaluate(ctx, llm.Request{System: normalizeSystem, Prompt: buf.String()})
	if err != nil {
		return nil, err
	}
	var resp normalizationResponse
	if err := llm.DecodeJSON(text, &resp); err != nil {
		return nil, err
	}
	if len(resp.Normalizations) == 0 {
		return nil, fmt.Errorf("empty normalization list")
	}
	return resp.Normalizations, nil
}

// hints returns up to maxHintKeywords known canonical forms, sorted.
func (n *Normalizer) hints() []string {
	set := make(map[string]bool)
	for _, c := range n.aliases {
		set[c] = true
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	if len(out) > maxHintKeywords {
		out = out[:maxHintKeywords]
	}
	return out
}
