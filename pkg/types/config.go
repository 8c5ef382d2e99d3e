// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-radar/0.1 (mailto:you@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// JournalFeed names an RSS/Atom feed consumed by the rss source.
type JournalFeed struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
}

// SourcesConfig holds settings for the fetch stage.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Enabled lists the adapters to run (arxiv, openalex, rss).
	Enabled []string `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// SearchDays is the size of the publication date window ending today.
	SearchDays int `json:"search_days" yaml:"search_days" mapstructure:"search_days"`

	// MaxResults caps the papers taken from each source (default 100).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Domains are the domain filters, e.g. arXiv categories ("quant-ph", "cs.AI").
	Domains []string `json:"domains" yaml:"domains" mapstructure:"domains"`

	// Journals lists journal codes for the openalex source ("prl", "nature_physics").
	Journals []string `json:"journals" yaml:"journals" mapstructure:"journals"`

	// Feeds lists journal RSS feeds for the rss source.
	Feeds []JournalFeed `json:"feeds" yaml:"feeds" mapstructure:"feeds"`

	// Priority orders sources for duplicate resolution. Unlisted sources
	// rank after listed ones.
	Priority []string `json:"priority" yaml:"priority" mapstructure:"priority"`

	// MinIntervals overrides the per-source minimum interval between requests.
	MinIntervals map[string]time.Duration `json:"min_intervals" yaml:"min_intervals" mapstructure:"min_intervals"`

	// OpenAlexEmail is sent as mailto for the OpenAlex polite pool.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// OpenAlexAPIKey is an optional OpenAlex API key.
	OpenAlexAPIKey string `json:"openalex_api_key,omitempty" yaml:"openalex_api_key,omitempty" mapstructure:"openalex_api_key"`

	// EnableSemanticScholar turns on arXiv/TLDR enrichment for journal papers.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
}

// AIConfig holds settings for one reasoning-service tier.
type AIConfig struct {
	// Provider selects the API flavour: "anthropic" or "openai".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "claude-haiku-4-5").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens caps the response size (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Temperature is passed to providers that accept it.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// LLMConfig groups the cheap and smart reasoning tiers.
type LLMConfig struct {
	// Cheap serves scoring and keyword normalization.
	Cheap AIConfig `json:"cheap" yaml:"cheap" mapstructure:"cheap"`

	// Smart serves deep analysis.
	Smart AIConfig `json:"smart" yaml:"smart" mapstructure:"smart"`

	// CallTimeout bounds every reasoning call.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout" mapstructure:"call_timeout"`
}

// Author match strategies for the expert-author bonus.
const (
	MatchExact    = "exact"
	MatchInitials = "initials"
)

// ScoringConfig holds the weighted-scoring policy.
type ScoringConfig struct {
	// Keywords maps each keyword to its weight.
	Keywords map[string]float64 `json:"keywords" yaml:"keywords" mapstructure:"keywords"`

	// ResearchContext describes the reader's research focus for prompts.
	ResearchContext string `json:"research_context" yaml:"research_context" mapstructure:"research_context"`

	// MaxScorePerKeyword is the upper bound of a keyword relevance (default 10).
	MaxScorePerKeyword float64 `json:"max_score_per_keyword" yaml:"max_score_per_keyword" mapstructure:"max_score_per_keyword"`

	// BaseScore and Coefficient define passing = base + coefficient × Σ weights.
	BaseScore   float64 `json:"base_score" yaml:"base_score" mapstructure:"base_score"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient" mapstructure:"coefficient"`

	// AuthorBonusEnabled toggles the expert-author bonus.
	AuthorBonusEnabled bool `json:"author_bonus_enabled" yaml:"author_bonus_enabled" mapstructure:"author_bonus_enabled"`

	// ExpertAuthors lists author names that earn the bonus.
	ExpertAuthors []string `json:"expert_authors" yaml:"expert_authors" mapstructure:"expert_authors"`

	// AuthorBonusPoints is added per matched expert (default 5).
	AuthorBonusPoints float64 `json:"author_bonus_points" yaml:"author_bonus_points" mapstructure:"author_bonus_points"`

	// AuthorMatch selects the name matching strategy: exact or initials.
	AuthorMatch string `json:"author_match" yaml:"author_match" mapstructure:"author_match"`

	// Workers bounds concurrent scoring calls (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Reference derives extra keyword weights from reference papers.
	Reference ReferenceConfig `json:"reference" yaml:"reference" mapstructure:"reference"`
}

// ReferenceTier is one importance level of reference keywords: up to Count
// keywords, each weighted Weight.
type ReferenceTier struct {
	Weight float64 `json:"weight" yaml:"weight" mapstructure:"weight"`
	Count  int     `json:"count" yaml:"count" mapstructure:"count"`
}

// ReferenceConfig holds settings for keywords extracted from a directory of
// reference PDFs. Configured keywords keep their weight when a reference
// keyword has the same name.
type ReferenceConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir holds the reference PDFs.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// CachePath stores per-file hashes and extracted keywords so that
	// unchanged PDFs are not sent to the reasoning service again.
	CachePath string `json:"cache_path" yaml:"cache_path" mapstructure:"cache_path"`

	// MaxPDFs caps the new or changed PDFs processed per run (default 5).
	MaxPDFs int `json:"max_pdfs" yaml:"max_pdfs" mapstructure:"max_pdfs"`

	// Pages and Chars bound the text read from each PDF (defaults 2 and 2000).
	Pages int `json:"pages" yaml:"pages" mapstructure:"pages"`
	Chars int `json:"chars" yaml:"chars" mapstructure:"chars"`

	// SimilarityThreshold drops a keyword at least this similar to a
	// higher-weighted one (default 0.75).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold" mapstructure:"similarity_threshold"`

	High   ReferenceTier `json:"high" yaml:"high" mapstructure:"high"`
	Medium ReferenceTier `json:"medium" yaml:"medium" mapstructure:"medium"`
	Low    ReferenceTier `json:"low" yaml:"low" mapstructure:"low"`
}

// TotalWeight returns the sum of all keyword weights.
func (c ScoringConfig) TotalWeight() float64 {
	var sum float64
	for _, w := range c.Keywords {
		sum += w
	}
	return sum
}

// PassingScore returns base_score + coefficient × Σ weights.
func (c ScoringConfig) PassingScore() float64 {
	return c.BaseScore + c.Coefficient*c.TotalWeight()
}

// AnalysisConfig holds settings for the deep analysis stage.
type AnalysisConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// CharBudget truncates document text sent to the smart tier (default 15000).
	CharBudget int `json:"char_budget" yaml:"char_budget" mapstructure:"char_budget"`

	// MaxPages limits how many PDF pages are read (default 20).
	MaxPages int `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`

	// Workers bounds concurrent analysis calls (default 2).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// TranslateTo names a language the abstracts of analyzed papers are
	// translated into on the cheap tier. Empty disables translation.
	TranslateTo string `json:"translate_to,omitempty" yaml:"translate_to,omitempty" mapstructure:"translate_to"`
}

// Trend report frequencies.
const (
	FrequencyAlways  = "always"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// TrendConfig holds keyword trend settings.
type TrendConfig struct {
	// Enabled toggles keyword recording.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// RelevanceFloor is the keyword score a keyword must exceed to be recorded.
	RelevanceFloor float64 `json:"relevance_floor" yaml:"relevance_floor" mapstructure:"relevance_floor"`

	// RecordExtracted also records keywords extracted from titles/abstracts.
	RecordExtracted bool `json:"record_extracted" yaml:"record_extracted" mapstructure:"record_extracted"`

	// Normalize enables reasoning-service synonym merging.
	Normalize bool `json:"normalize" yaml:"normalize" mapstructure:"normalize"`

	// BatchSize is the number of keywords per normalization call (default 50).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// WindowDays is the default aggregation window (default 30).
	WindowDays int `json:"window_days" yaml:"window_days" mapstructure:"window_days"`

	// Windows lists additional window sizes reported per run.
	Windows []int `json:"windows" yaml:"windows" mapstructure:"windows"`

	// TopN is the number of ranked keywords in a window (default 15).
	TopN int `json:"top_n" yaml:"top_n" mapstructure:"top_n"`

	// TrendTopN is the number of keywords drawn on the line chart (default 5).
	TrendTopN int `json:"trend_top_n" yaml:"trend_top_n" mapstructure:"trend_top_n"`

	// ReportFrequency is one of always, daily, weekly, monthly.
	ReportFrequency string `json:"report_frequency" yaml:"report_frequency" mapstructure:"report_frequency"`
}

// StorageConfig locates persistent state and reports.
type StorageConfig struct {
	// DBPath is the SQLite database holding history and keyword observations.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// ReportDir receives Markdown and YAML run reports.
	ReportDir string `json:"report_dir" yaml:"report_dir" mapstructure:"report_dir"`

	// BySource also writes one report per source under ReportDir/<source>/.
	BySource bool `json:"by_source" yaml:"by_source" mapstructure:"by_source"`
}

// NotifyConfig holds optional run notifications.
type NotifyConfig struct {
	// SlackWebhookURL receives a run summary when set.
	SlackWebhookURL string `json:"slack_webhook_url,omitempty" yaml:"slack_webhook_url,omitempty" mapstructure:"slack_webhook_url"`
}

// RadarConfig groups all stage configurations.
type RadarConfig struct {
	Sources  SourcesConfig  `json:"sources" yaml:"sources" mapstructure:"sources"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Scoring  ScoringConfig  `json:"scoring" yaml:"scoring" mapstructure:"scoring"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis" mapstructure:"analysis"`
	Trend    TrendConfig    `json:"trend" yaml:"trend" mapstructure:"trend"`
	Storage  StorageConfig  `json:"storage" yaml:"storage" mapstructure:"storage"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify" mapstructure:"notify"`

	// Schedule is the cron expression used by the schedule command.
	Schedule string `json:"schedule" yaml:"schedule" mapstructure:"schedule"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() RadarConfig {
	http := HTTPConfig{
		Timeout:   30 * time.Second,
		UserAgent: "research-radar/0.1",
	}
	return RadarConfig{
		Sources: SourcesConfig{
			HTTPConfig:            http,
			Enabled:               []string{"arxiv"},
			SearchDays:            7,
			MaxResults:            100,
			Domains:               []string{"quant-ph"},
			Priority:              []string{"openalex", "rss", "arxiv"},
			EnableSemanticScholar: true,
		},
		LLM: LLMConfig{
			Cheap:       AIConfig{Provider: "anthropic", Model: "claude-haiku-4-5", MaxTokens: 2048, Temperature: 0.3},
			Smart:       AIConfig{Provider: "anthropic", Model: "claude-sonnet-4-5", MaxTokens: 4096, Temperature: 0.3},
			CallTimeout: 2 * time.Minute,
		},
		Scoring: ScoringConfig{
			MaxScorePerKeyword: 10,
			BaseScore:          3.0,
			Coefficient:        2.5,
			AuthorBonusEnabled: true,
			AuthorBonusPoints:  5.0,
			AuthorMatch:        MatchExact,
			Workers:            4,
			Reference: ReferenceConfig{
				Dir:                 "data/reference_pdfs",
				CachePath:           "data/reference_keywords.yaml",
				MaxPDFs:             5,
				Pages:               2,
				Chars:               2000,
				SimilarityThreshold: 0.75,
				High:                ReferenceTier{Weight: 0.8, Count: 3},
				Medium:              ReferenceTier{Weight: 0.5, Count: 6},
				Low:                 ReferenceTier{Weight: 0.3, Count: 3},
			},
		},
		Analysis: AnalysisConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: http.UserAgent},
			CharBudget: 15000,
			MaxPages:   20,
			Workers:    2,
		},
		Trend: TrendConfig{
			Enabled:         true,
			RecordExtracted: true,
			Normalize:       true,
			BatchSize:       50,
			WindowDays:      30,
			Windows:         []int{7, 30},
			TopN:            15,
			TrendTopN:       5,
			ReportFrequency: FrequencyWeekly,
		},
		Storage: StorageConfig{
			DBPath:    "data/radar.db",
			ReportDir: "reports",
		},
		Schedule: "0 8 * * *",
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c RadarConfig) Validate() error {
	if len(c.Sources.Enabled) == 0 {
		return fmt.Errorf("no sources enabled")
	}
	if c.Sources.SearchDays <= 0 {
		return fmt.Errorf("search_days must be positive, got %d", c.Sources.SearchDays)
	}
	if len(c.Scoring.Keywords) == 0 && !c.Scoring.Reference.Enabled {
		return fmt.Errorf("no scoring keywords configured")
	}
	if t := c.Scoring.Reference.SimilarityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("reference similarity_threshold must be in [0,1], got %v", t)
	}
	for kw, w := range c.Scoring.Keywords {
		if w < 0 {
			return fmt.Errorf("keyword %q has negative weight %v", kw, w)
		}
	}
	switch c.Scoring.AuthorMatch {
	case "", MatchExact, MatchInitials:
	default:
		return fmt.Errorf("unknown author_match strategy %q", c.Scoring.AuthorMatch)
	}
	switch c.Trend.ReportFrequency {
	case "", FrequencyAlways, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return fmt.Errorf("unknown trend report_frequency %q", c.Trend.ReportFrequency)
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	return nil
}
