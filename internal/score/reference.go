// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/internal/pdftext"
	"github.com/pdiddy/research-radar/pkg/types"
)

const referenceSystem = "You are a research assistant. You extract the core technical concepts of academic papers and answer with a single JSON object."

var referencePromptTmpl = template.Must(template.New("reference").Parse(`Paper excerpts:
{{range .Excerpts}}---
Paper: {{.Name}}
{{.Text}}
{{end}}
Research context:
{{if .ResearchContext}}{{.ResearchContext}}{{else}}General academic research{{end}}

Extract the core technical concepts of these papers in three importance tiers:
1. high_importance (at most {{.High}}): core techniques, main algorithms, key problems.
2. medium_importance (at most {{.Medium}}): related techniques, supporting methods, application areas.
3. low_importance (at most {{.Low}}): peripheral concepts and background.

Only extract concepts that are truly central and relevant to the research context. A tier may
have fewer entries than its maximum, or none. Prefer specific English technical terms over broad
ones such as "machine learning" or "optimization", and do not list near-duplicates.

Respond with a JSON object and nothing else:
{
  "high_importance": ["..."],
  "medium_importance": ["..."],
  "low_importance": ["..."]
}
`))

type referenceExcerpt struct {
	Name string
	Text string
}

type referencePromptData struct {
	Excerpts        []referenceExcerpt
	ResearchContext string
	High            int
	Medium          int
	Low             int
}

type referenceResponse struct {
	High   []string `json:"high_importance"`
	Medium []string `json:"medium_importance"`
	Low    []string `json:"low_importance"`
}

// referenceCache is the on-disk record of processed reference PDFs, keyed
// by file name.
type referenceCache struct {
	Files map[string]cachedReference `yaml:"files"`
}

type cachedReference struct {
	Hash     string             `yaml:"hash"`
	Keywords map[string]float64 `yaml:"keywords"`
}

// ReferenceKeywords derives weighted keywords from a directory of reference
// PDFs. Only new or changed files are sent to the reasoner; keywords of
// deleted files are dropped from the cache.
type ReferenceKeywords struct {
	Reasoner        llm.Reasoner
	Config          types.ReferenceConfig
	ResearchContext string

	// ExtractText reads the text of the first pages of a PDF. Nil uses
	// pdftext.Extract.
	ExtractText func(data []byte, pages int) (string, error)
}

// NewReferenceKeywords returns a generator using the cheap-tier reasoner r.
func NewReferenceKeywords(r llm.Reasoner, cfg types.ScoringConfig) *ReferenceKeywords {
	return &ReferenceKeywords{Reasoner: r, Config: cfg.Reference, ResearchContext: cfg.ResearchContext}
}

// Generate returns the merged reference keywords. A missing directory or a
// failed reasoning call is a warning: the cached keywords are returned and
// unprocessed files are tried again next time.
func (g *ReferenceKeywords) Generate(ctx context.Context, w io.Writer) (map[string]float64, error) {
	cfg := referenceDefaults(g.Config)
	entries, err := os.ReadDir(cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "warning: reference directory %s does not exist\n", cfg.Dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading reference directory: %w", err)
	}

	cache := loadCache(cfg.CachePath, w)
	current := make(map[string]bool)
	var pending []string
	contents := make(map[string][]byte)
	hashes := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		name := e.Name()
		data, err := os.ReadFile(filepath.Join(cfg.Dir, name))
		if err != nil {
			fmt.Fprintf(w, "warning: reading reference %s: %v\n", name, err)
			continue
		}
		current[name] = true
		sum := sha256.Sum256(data)
		hashes[name] = hex.EncodeToString(sum[:])
		if c, ok := cache.Files[name]; !ok || c.Hash != hashes[name] {
			pending = append(pending, name)
			contents[name] = data
		}
	}
	sort.Strings(pending)

	changed := false
	for name := range cache.Files {
		if !current[name] {
			fmt.Fprintf(w, "reference %s removed, dropping its keywords\n", name)
			delete(cache.Files, name)
			changed = true
		}
	}

	if len(pending) > cfg.MaxPDFs {
		fmt.Fprintf(w, "%d reference PDFs pending, processing %d this run\n", len(pending), cfg.MaxPDFs)
		pending = pending[:cfg.MaxPDFs]
	}
	if len(pending) > 0 {
		if g.extractPending(ctx, cfg, pending, contents, hashes, cache, w) {
			changed = true
		}
	}

	if changed {
		if err := saveCache(cfg.CachePath, cache); err != nil {
			fmt.Fprintf(w, "warning: %v\n", err)
		}
	}

	merged := make(map[string]float64)
	for _, c := range cache.Files {
		for kw, weight := range c.Keywords {
			merged[kw] = max(merged[kw], weight)
		}
	}
	return DedupeSimilar(merged, cfg.SimilarityThreshold), nil
}

// extractPending sends the excerpts of pending files to the reasoner in one
// call and caches the result for each of them. It reports whether the cache
// changed.
func (g *ReferenceKeywords) extractPending(ctx context.Context, cfg types.ReferenceConfig, pending []string, contents map[string][]byte, hashes map[string]string, cache *referenceCache, w io.Writer) bool {
	extract := g.ExtractText
	if extract == nil {
		extract = pdftext.Extract
	}

	changed := false
	var excerpts []referenceExcerpt
	var included []string
	for _, name := range pending {
		text, err := extract(contents[name], cfg.Pages)
		if err != nil {
			// Unreadable files are cached empty so they are not retried
			// until they change.
			fmt.Fprintf(w, "warning: reference %s: %v\n", name, err)
			cache.Files[name] = cachedReference{Hash: hashes[name]}
			changed = true
			continue
		}
		excerpts = append(excerpts, referenceExcerpt{Name: name, Text: truncateRunes(text, cfg.Chars)})
		included = append(included, name)
	}
	if len(excerpts) == 0 {
		return changed
	}

	var buf bytes.Buffer
	err := referencePromptTmpl.Execute(&buf, referencePromptData{
		Excerpts:        excerpts,
		ResearchContext: g.ResearchContext,
		High:            cfg.High.Count,
		Medium:          cfg.Medium.Count,
		Low:             cfg.Low.Count,
	})
	if err != nil {
		fmt.Fprintf(w, "warning: rendering reference prompt: %v\n", err)
		return changed
	}

	text, err := g.Reasoner.Evaluate(ctx, llm.Request{System: referenceSystem, Prompt: buf.String()})
	var resp referenceResponse
	if err == nil {
		err = llm.DecodeJSON(text, &resp)
	}
	if err != nil {
		fmt.Fprintf(w, "warning: extracting reference keywords: %v (using cached keywords)\n", err)
		return changed
	}

	keywords := make(map[string]float64)
	addTier(keywords, resp.Low, cfg.Low)
	addTier(keywords, resp.Medium, cfg.Medium)
	addTier(keywords, resp.High, cfg.High)
	fmt.Fprintf(w, "extracted %d reference keywords from %d PDFs\n", len(keywords), len(included))
	for _, name := range included {
		cache.Files[name] = cachedReference{Hash: hashes[name], Keywords: keywords}
	}
	return true
}

// addTier adds up to tier.Count keywords at tier.Weight, keeping a higher
// weight already present.
func addTier(dst map[string]float64, kws []string, tier types.ReferenceTier) {
	n := 0
	for _, kw := range kws {
		if n >= tier.Count {
			break
		}
		kw = strings.ToLower(strings.Join(strings.Fields(kw), " "))
		if kw == "" {
			continue
		}
		dst[kw] = max(dst[kw], tier.Weight)
		n++
	}
}

func loadCache(path string, w io.Writer) *referenceCache {
	cache := &referenceCache{Files: make(map[string]cachedReference)}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(w, "warning: reading reference cache: %v\n", err)
		}
		return cache
	}
	if err := yaml.Unmarshal(data, cache); err != nil {
		fmt.Fprintf(w, "warning: reference cache %s is unreadable, rebuilding: %v\n", path, err)
		return &referenceCache{Files: make(map[string]cachedReference)}
	}
	if cache.Files == nil {
		cache.Files = make(map[string]cachedReference)
	}
	return cache
}

func saveCache(path string, cache *referenceCache) error {
	data, err := yaml.Marshal(cache)
	if err != nil {
		return fmt.Errorf("marshaling reference cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating reference cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing reference cache: %w", err)
	}
	return nil
}

func referenceDefaults(cfg types.ReferenceConfig) types.ReferenceConfig {
	def := types.DefaultConfig().Scoring.Reference
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.CachePath == "" {
		cfg.CachePath = def.CachePath
	}
	if cfg.MaxPDFs <= 0 {
		cfg.MaxPDFs = def.MaxPDFs
	}
	if cfg.Pages <= 0 {
		cfg.Pages = def.Pages
	}
	if cfg.Chars <= 0 {
		cfg.Chars = def.Chars
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.High == (types.ReferenceTier{}) {
		cfg.High = def.High
	}
	if cfg.Medium == (types.ReferenceTier{}) {
		cfg.Medium = def.Medium
	}
	if cfg.Low == (types.ReferenceTier{}) {
		cfg.Low = def.Low
	}
	return cfg
}

// MergeWeights returns configured weights plus the reference keywords whose
// names are not configured. Configured weights are never overridden.
func MergeWeights(configured, reference map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(configured)+len(reference))
	seen := make(map[string]bool, len(configured))
	for kw, w := range configured {
		out[kw] = w
		seen[strings.ToLower(kw)] = true
	}
	for kw, w := range reference {
		if !seen[strings.ToLower(kw)] {
			out[kw] = w
		}
	}
	return out
}

// DedupeSimilar drops every keyword whose similarity to a kept keyword is at
// least threshold. Keywords are visited by descending weight, then name, so
// the higher-weighted spelling survives.
func DedupeSimilar(kws map[string]float64, threshold float64) map[string]float64 {
	names := make([]string, 0, len(kws))
	for kw := range kws {
		names = append(names, kw)
	}
	sort.Slice(names, func(i, j int) bool {
		if kws[names[i]] != kws[names[j]] {
			return kws[names[i]] > kws[names[j]]
		}
		return names[i] < names[j]
	})

	out := make(map[string]float64, len(kws))
	var kept []string
	for _, kw := range names {
		dup := false
		for _, k := range kept {
			if Similarity(kw, k) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, kw)
			out[kw] = kws[kw]
		}
	}
	return out
}

// Similarity returns the Ratcliff/Obershelp ratio 2M/T of a and b, compared
// case-insensitively: M is the number of characters in matching blocks and
// T the total length of both strings.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(strings.TrimSpace(a)))
	rb := []rune(strings.ToLower(strings.TrimSpace(b)))
	if len(ra)+len(rb) == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(len(ra)+len(rb))
}

func matchingRunes(a, b []rune) int {
	i, j, n := longestCommon(a, b)
	if n == 0 {
		return 0
	}
	return n + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+n:], b[j+n:])
}

// longestCommon returns the start in a, the start in b and the length of
// the earliest longest common substring.
func longestCommon(a, b []rune) (int, int, int) {
	best, bi, bj := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best, bi, bj = cur[j], i-cur[j], j-cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bi, bj, best
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
