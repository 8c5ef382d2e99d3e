// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-radar/internal/httputil"
	"github.com/pdiddy/research-radar/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivMinInterval is the arXiv API courtesy delay between requests.
var ArxivMinInterval = 6 * time.Second

const arxivPageSize = 100

// Arxiv fetches recent submissions per arXiv category, newest first.
type Arxiv struct {
	Client    *http.Client
	UserAgent string

	interval time.Duration
	throttle *Throttle
}

// NewArxiv returns an arXiv adapter that waits at least interval between
// requests.
func NewArxiv(client *http.Client, userAgent string, interval time.Duration) *Arxiv {
	return &Arxiv{Client: client, UserAgent: userAgent, interval: interval, throttle: NewThrottle(interval)}
}

// Name returns the adapter identifier.
func (a *Arxiv) Name() string { return "arxiv" }

// MinRequestInterval returns the enforced delay between requests.
func (a *Arxiv) MinRequestInterval() time.Duration { return a.interval }

// Fetch pages through each domain's submissions sorted by date until the
// window floor or MaxResults is reached. Papers cross-listed in several
// domains are yielded once.
func (a *Arxiv) Fetch(ctx context.Context, req Request) iter.Seq2[types.Paper, error] {
	return func(yield func(types.Paper, error) bool) {
		if len(req.Domains) == 0 {
			yield(types.Paper{}, unavailable(a.Name(), fmt.Errorf("no domain filters configured")))
			return
		}

		pageSize := arxivPageSize
		if req.MaxResults > 0 && req.MaxResults < pageSize {
			pageSize = req.MaxResults
		}

		seen := make(map[string]bool)
		yielded := 0
		for _, domain := range req.Domains {
			for start := 0; ; start += pageSize {
				entries, err := a.page(ctx, domain, start, pageSize)
				if err != nil {
					yield(types.Paper{}, unavailable(a.Name(), err))
					return
				}

				reachedFloor := false
				for _, e := range entries {
					p, ok := e.paper()
					if !ok {
						continue
					}
					if beforeWindow(p.Published, req.From) {
						reachedFloor = true
						break
					}
					if !inWindow(p.Published, req.From, req.To) || seen[p.ArxivID] {
						continue
					}
					seen[p.ArxivID] = true
					if !yield(p, nil) {
						return
					}
					yielded++
					if req.MaxResults > 0 && yielded >= req.MaxResults {
						return
					}
				}
				if reachedFloor || len(entries) < pageSize {
					break
				}
			}
		}
	}
}

func (a *Arxiv) page(ctx context.Context, domain string, start, size int) ([]arxivEntry, error) {
	if err := a.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"search_query": {"cat:" + domain},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(size)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}
	body, err := httputil.GetBody(ctx, a.Client, arxivAPIBase+"?"+params.Encode(), a.UserAgent, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request for %s: %w", domain, err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return feed.Entries, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Categories []arxivCategory `xml:"category"`
	DOI        string          `xml:"http://arxiv.org/schemas/atom doi"`
	Journal    string          `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

func (e arxivEntry) paper() (types.Paper, bool) {
	id := extractArxivID(e.ID)
	if id == "" {
		return types.Paper{}, false
	}
	published, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published))
	if err != nil {
		return types.Paper{}, false
	}

	p := types.Paper{
		ID:        types.SourceID{Source: "arxiv", NativeID: id},
		Title:     strings.Join(strings.Fields(e.Title), " "),
		Abstract:  strings.Join(strings.Fields(e.Summary), " "),
		Published: published.UTC(),
		URL:       "https://arxiv.org/abs/" + id,
		ArxivID:   id,
		DOI:       strings.TrimSpace(e.DOI),
		Venue:     strings.TrimSpace(e.Journal),
	}
	for _, au := range e.Authors {
		if name := strings.TrimSpace(au.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	if p.PDFURL == "" {
		p.PDFURL = "https://arxiv.org/pdf/" + id
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	return p, true
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return stripArxivVersion(strings.TrimSpace(idURL[idx+len(prefix):]))
}

func stripArxivVersion(id string) string {
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			return id[:vIdx]
		}
	}
	return id
}
