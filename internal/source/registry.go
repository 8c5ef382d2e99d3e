// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/research-radar/pkg/types"
)

// Build constructs the enabled adapters in configuration order. Unknown or
// repeated names are configuration errors.
func Build(cfg types.SourcesConfig, client *http.Client) ([]Adapter, error) {
	seen := make(map[string]bool)
	var adapters []Adapter
	for _, raw := range cfg.Enabled {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			return nil, fmt.Errorf("source %q enabled twice", name)
		}
		seen[name] = true

		interval := minInterval(cfg, name)
		switch name {
		case "arxiv":
			adapters = append(adapters, NewArxiv(client, cfg.UserAgent, interval))
		case "openalex":
			o := NewOpenAlex(client, cfg.UserAgent, cfg.Journals, interval)
			o.Email = cfg.OpenAlexEmail
			o.APIKey = cfg.OpenAlexAPIKey
			adapters = append(adapters, o)
		case "rss":
			adapters = append(adapters, NewRSS(client, cfg.UserAgent, cfg.Feeds, interval))
		default:
			return nil, fmt.Errorf("unknown source %q (available: arxiv, openalex, rss)", raw)
		}
	}
	return adapters, nil
}

// BuildEnricher returns the Semantic Scholar enricher, or nil when it is
// disabled.
func BuildEnricher(cfg types.SourcesConfig, client *http.Client) *SemanticScholar {
	if !cfg.EnableSemanticScholar {
		return nil
	}
	interval := SemanticMinInterval
	if d, ok := cfg.MinIntervals["semantic_scholar"]; ok {
		interval = d
	}
	if cfg.SemanticScholarAPIKey != "" && interval > 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return NewSemanticScholar(client, cfg.UserAgent, cfg.SemanticScholarAPIKey, interval)
}

func minInterval(cfg types.SourcesConfig, name string) time.Duration {
	if d, ok := cfg.MinIntervals[name]; ok {
		return d
	}
	switch name {
	case "arxiv":
		return ArxivMinInterval
	case "openalex":
		return OpenAlexMinInterval
	case "rss":
		return RSSMinInterval
	}
	return 0
}
