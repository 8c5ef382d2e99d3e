// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ScoreResult is the outcome of scoring one paper against the configured
// keyword weights. Created once per paper and never mutated.
type ScoreResult struct {
	// DedupKey refers back to the scored Paper.
	DedupKey string `json:"dedup_key" yaml:"dedup_key"`

	// Title is copied from the paper for reporting.
	Title string `json:"title" yaml:"title"`

	// Source is the adapter that produced the paper.
	Source string `json:"source" yaml:"source"`

	// KeywordScores maps each configured keyword to its relevance in [0,10].
	KeywordScores map[string]float64 `json:"keyword_scores" yaml:"keyword_scores"`

	// AuthorBonus is the bonus added for matched expert authors.
	AuthorBonus float64 `json:"author_bonus" yaml:"author_bonus"`

	// ExpertAuthors lists the configured experts found in the author list.
	ExpertAuthors []string `json:"expert_authors,omitempty" yaml:"expert_authors,omitempty"`

	// TotalScore is the weighted keyword sum plus the author bonus.
	TotalScore float64 `json:"total_score" yaml:"total_score"`

	// PassingScore is the threshold the total was compared against.
	PassingScore float64 `json:"passing_score" yaml:"passing_score"`

	// PassThreshold reports TotalScore >= PassingScore.
	PassThreshold bool `json:"pass_threshold" yaml:"pass_threshold"`

	// Scored is false when the reasoning call failed and the paper is unscored.
	Scored bool `json:"scored" yaml:"scored"`

	// Error records the scoring failure. Empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	Reasoning         string   `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	TLDR              string   `json:"tldr,omitempty" yaml:"tldr,omitempty"`
	ExtractedKeywords []string `json:"extracted_keywords,omitempty" yaml:"extracted_keywords,omitempty"`
}

// AnalysisResult holds the deep extraction for a paper that passed the
// threshold. Terminal once created.
type AnalysisResult struct {
	DedupKey string `json:"dedup_key" yaml:"dedup_key"`
	Title    string `json:"title" yaml:"title"`

	Methodology      string   `json:"methodology" yaml:"methodology"`
	Innovations      []string `json:"innovations" yaml:"innovations"`
	TechStack        []string `json:"tech_stack" yaml:"tech_stack"`
	Limitations      string   `json:"limitations" yaml:"limitations"`
	RelevanceSummary string   `json:"relevance_summary" yaml:"relevance_summary"`
	Summary          string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	KeyResults       string   `json:"key_results,omitempty" yaml:"key_results,omitempty"`

	TranslatedAbstract  string `json:"translated_abstract,omitempty" yaml:"translated_abstract,omitempty"`
	TranslationLanguage string `json:"translation_language,omitempty" yaml:"translation_language,omitempty"`

	// PartialInput is set when the PDF could not be retrieved and the
	// analysis ran on the abstract only.
	PartialInput bool `json:"partial_input" yaml:"partial_input"`

	// Failed is set when the reasoning call failed. Failed analyses are
	// excluded from the report but the paper is still historied.
	Failed bool   `json:"failed" yaml:"failed"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Stage names the pipeline stage a TraceEntry came from.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageDedup    Stage = "dedup"
	StageScoring  Stage = "scoring"
	StageAnalysis Stage = "analysis"
	StageRecord   Stage = "record"
)

// TraceEntry explains why a paper left the happy path, so that no paper is
// dropped from a run without a record.
type TraceEntry struct {
	DedupKey string `json:"dedup_key,omitempty" yaml:"dedup_key,omitempty"`
	Title    string `json:"title" yaml:"title"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`
	Stage    Stage  `json:"stage" yaml:"stage"`
	Reason   string `json:"reason" yaml:"reason"`
}
