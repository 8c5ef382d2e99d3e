// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"math"
	"sort"

	"github.com/pdiddy/research-radar/pkg/types"
)

// passEpsilon absorbs float rounding so that a total equal to the passing
// score on paper still passes.
const passEpsilon = 1e-9

// Policy is the deterministic part of scoring: keyword weights, the
// passing score formula and the expert-author bonus.
type Policy struct {
	Weights      map[string]float64
	BaseScore    float64
	Coefficient  float64
	MaxScore     float64
	BonusEnabled bool
	BonusPoints  float64
	Experts      []string
	Matcher      AuthorMatcher
}

// PolicyFromConfig builds a Policy from the scoring configuration.
func PolicyFromConfig(cfg types.ScoringConfig) Policy {
	maxScore := cfg.MaxScorePerKeyword
	if maxScore <= 0 {
		maxScore = 10
	}
	return Policy{
		Weights:      cfg.Keywords,
		BaseScore:    cfg.BaseScore,
		Coefficient:  cfg.Coefficient,
		MaxScore:     maxScore,
		BonusEnabled: cfg.AuthorBonusEnabled,
		BonusPoints:  cfg.AuthorBonusPoints,
		Experts:      cfg.ExpertAuthors,
		Matcher:      MatcherFor(cfg.AuthorMatch),
	}
}

// Keywords returns the configured keywords in lexical order.
func (p Policy) Keywords() []string {
	kws := make([]string, 0, len(p.Weights))
	for kw := range p.Weights {
		kws = append(kws, kw)
	}
	sort.Strings(kws)
	return kws
}

// TotalWeight returns Σ weights.
func (p Policy) TotalWeight() float64 {
	var sum float64
	for _, kw := range p.Keywords() {
		sum += p.Weights[kw]
	}
	return sum
}

// PassingScore returns base_score + coefficient × Σ weights.
func (p Policy) PassingScore() float64 {
	return p.BaseScore + p.Coefficient*p.TotalWeight()
}

// Clamp bounds a keyword relevance to [0, MaxScore].
func (p Policy) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > p.MaxScore {
		return p.MaxScore
	}
	return v
}

// AuthorBonus returns bonus_points × number of distinct experts found in
// authors, along with the matched experts in configuration order.
func (p Policy) AuthorBonus(authors []string) (float64, []string) {
	if !p.BonusEnabled || len(p.Experts) == 0 {
		return 0, nil
	}
	found := FindExperts(p.Experts, authors, p.Matcher)
	return p.BonusPoints * float64(len(found)), found
}

// Evaluate applies the formula to already clamped keyword scores:
//
//	total_score    = Σ (keyword_score × weight) + author_bonus
//	pass_threshold = total_score ≥ passing_score
func (p Policy) Evaluate(keywordScores map[string]float64, authorBonus float64) (total float64, passing float64, pass bool) {
	for _, kw := range p.Keywords() {
		total += keywordScores[kw] * p.Weights[kw]
	}
	total += authorBonus
	passing = p.PassingScore()
	return total, passing, total >= passing-passEpsilon
}
