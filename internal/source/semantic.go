// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/research-radar/internal/httputil"
	"github.com/pdiddy/research-radar/pkg/types"
)

// semanticAPIBase is the Semantic Scholar graph API. Declared as a var so
// tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

// SemanticMinInterval is the unauthenticated Semantic Scholar request rate.
var SemanticMinInterval = time.Second

// SemanticScholar looks up journal papers by DOI to find an arXiv version
// and a TLDR. It is not an adapter: the fetch coordinator applies it to
// papers that lack a PDF link.
type SemanticScholar struct {
	Client    *http.Client
	UserAgent string
	APIKey    string

	throttle *Throttle
}

// NewSemanticScholar returns an enricher that waits at least interval
// between lookups.
func NewSemanticScholar(client *http.Client, userAgent, apiKey string, interval time.Duration) *SemanticScholar {
	return &SemanticScholar{Client: client, UserAgent: userAgent, APIKey: apiKey, throttle: NewThrottle(interval)}
}

// Enrich fills ArxivID, PDFURL and TLDR when Semantic Scholar knows them.
// Papers without a DOI and unknown DOIs are returned unchanged.
func (s *SemanticScholar) Enrich(ctx context.Context, p types.Paper) (types.Paper, error) {
	if p.DOI == "" {
		return p, nil
	}
	if err := s.throttle.Wait(ctx); err != nil {
		return p, err
	}

	reqURL := fmt.Sprintf("%s/paper/DOI:%s?%s", semanticAPIBase, p.DOI,
		url.Values{"fields": {"tldr,externalIds"}}.Encode())
	var header http.Header
	if s.APIKey != "" {
		header = http.Header{"X-Api-Key": {s.APIKey}}
	}

	body, err := httputil.GetBody(ctx, s.Client, reqURL, s.UserAgent, header, 0)
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return p, nil
		}
		return p, fmt.Errorf("Semantic Scholar lookup for %s: %w", p.DOI, err)
	}

	var sp semanticPaper
	if err := json.Unmarshal(body, &sp); err != nil {
		return p, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	if p.ArxivID == "" && sp.ExternalIDs.ArXiv != "" {
		p.ArxivID = stripArxivVersion(sp.ExternalIDs.ArXiv)
	}
	if p.PDFURL == "" && p.ArxivID != "" {
		p.PDFURL = "https://arxiv.org/pdf/" + p.ArxivID
	}
	if p.TLDR == "" && sp.TLDR != nil {
		p.TLDR = sp.TLDR.Text
	}
	return p, nil
}

// Semantic Scholar API JSON structures.
type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
	TLDR        *semanticTLDR       `json:"tldr"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

type semanticTLDR struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}
