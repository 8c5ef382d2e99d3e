// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-radar/internal/httputil"
	"github.com/pdiddy/research-radar/pkg/types"
)

// openAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

// OpenAlexMinInterval keeps requests inside the polite pool limits.
var OpenAlexMinInterval = 200 * time.Millisecond

// openAlexPerPage is the page size, 200 being the API maximum.
var openAlexPerPage = 200

const (
	openAlexMaxAuthors = 20
	openAlexSelect     = "id,doi,title,authorships,abstract_inverted_index,publication_date,publication_year,primary_location,open_access,locations"
)

var arxivURLPattern = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,5})`)

// OpenAlex fetches recent journal articles by ISSN from the OpenAlex API.
type OpenAlex struct {
	Client    *http.Client
	UserAgent string
	// Email is sent as mailto parameter for polite pool access.
	Email  string
	APIKey string
	// Journals lists journal codes (see LookupJournal).
	Journals []string

	interval time.Duration
	throttle *Throttle
}

// NewOpenAlex returns an OpenAlex adapter for the given journal codes.
func NewOpenAlex(client *http.Client, userAgent string, journalCodes []string, interval time.Duration) *OpenAlex {
	return &OpenAlex{
		Client:    client,
		UserAgent: userAgent,
		Journals:  journalCodes,
		interval:  interval,
		throttle:  NewThrottle(interval),
	}
}

// Name returns the adapter identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// MinRequestInterval returns the enforced delay between requests.
func (o *OpenAlex) MinRequestInterval() time.Duration { return o.interval }

// Fetch queries each configured journal newest first. MaxResults caps the
// total across journals. Unknown journal codes fail the whole source.
func (o *OpenAlex) Fetch(ctx context.Context, req Request) iter.Seq2[types.Paper, error] {
	return func(yield func(types.Paper, error) bool) {
		if len(o.Journals) == 0 {
			yield(types.Paper{}, unavailable(o.Name(), fmt.Errorf("no journals configured")))
			return
		}
		var js []Journal
		for _, code := range o.Journals {
			j, ok := LookupJournal(code)
			if !ok {
				yield(types.Paper{}, unavailable(o.Name(), fmt.Errorf("unknown journal code %q", code)))
				return
			}
			js = append(js, j)
		}

		perPage := openAlexPerPage
		if req.MaxResults > 0 && req.MaxResults < perPage {
			perPage = req.MaxResults
		}

		yielded := 0
		for _, j := range js {
			for page := 1; ; page++ {
				resp, err := o.page(ctx, j, req, page, perPage)
				if err != nil {
					yield(types.Paper{}, unavailable(o.Name(), err))
					return
				}
				for _, w := range resp.Results {
					p, ok := w.paper(j)
					if !ok || !inWindow(p.Published, req.From, req.To) {
						continue
					}
					if !yield(p, nil) {
						return
					}
					yielded++
					if req.MaxResults > 0 && yielded >= req.MaxResults {
						return
					}
				}
				if len(resp.Results) < perPage || page*perPage >= resp.Meta.Count {
					break
				}
			}
		}
	}
}

func (o *OpenAlex) page(ctx context.Context, j Journal, req Request, page, perPage int) (openAlexResponse, error) {
	if err := o.throttle.Wait(ctx); err != nil {
		return openAlexResponse{}, err
	}

	filters := []string{"primary_location.source.issn:" + strings.Join(j.ISSNs, "|")}
	if !req.From.IsZero() {
		filters = append(filters, "from_publication_date:"+req.From.Format(types.DateLayout))
	}
	if !req.To.IsZero() {
		filters = append(filters, "to_publication_date:"+req.To.Format(types.DateLayout))
	}

	params := url.Values{
		"filter":   {strings.Join(filters, ",")},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
		"sort":     {"publication_date:desc"},
		"select":   {openAlexSelect},
	}
	if o.APIKey != "" {
		params.Set("api_key", o.APIKey)
	} else if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	body, err := httputil.GetBody(ctx, o.Client, openAlexWorksBase+"?"+params.Encode(), o.UserAgent, nil, 0)
	if err != nil {
		return openAlexResponse{}, fmt.Errorf("OpenAlex request for %s: %w", j.Code, err)
	}

	var resp openAlexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return openAlexResponse{}, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return resp, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	Locations             []openAlexLocation   `json:"locations"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
	Source         *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

func (w openAlexWork) paper(j Journal) (types.Paper, bool) {
	title := plainText(w.Title)
	if title == "" {
		return types.Paper{}, false
	}

	doi := strings.TrimPrefix(w.DOI, "https://doi.org/")
	nativeID := doi
	if nativeID == "" {
		nativeID = strings.TrimPrefix(w.ID, "https://openalex.org/")
	}
	if nativeID == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		ID:       types.SourceID{Source: "openalex", NativeID: nativeID},
		Title:    title,
		Abstract: reconstructAbstract(w.AbstractInvertedIndex),
		DOI:      doi,
		Venue:    j.Name,
	}

	if t, err := time.Parse(types.DateLayout, w.PublicationDate); err == nil {
		p.Published = t
	} else if w.PublicationYear > 0 {
		p.Published = time.Date(w.PublicationYear, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	for i, a := range w.Authorships {
		if i >= openAlexMaxAuthors {
			break
		}
		if a.Author.DisplayName != "" {
			p.Authors = append(p.Authors, a.Author.DisplayName)
		}
	}

	switch {
	case w.PrimaryLocation != nil && w.PrimaryLocation.LandingPageURL != "":
		p.URL = w.PrimaryLocation.LandingPageURL
	case doi != "":
		p.URL = "https://doi.org/" + doi
	default:
		p.URL = w.ID
	}

	if w.OpenAccess.IsOA && w.OpenAccess.OAURL != "" {
		p.PDFURL = w.OpenAccess.OAURL
	}

	for _, loc := range w.Locations {
		if loc.Source == nil || !strings.Contains(strings.ToLower(loc.Source.DisplayName), "arxiv") {
			continue
		}
		if m := arxivURLPattern.FindStringSubmatch(loc.LandingPageURL); m != nil {
			p.ArxivID = m[1]
			if p.PDFURL == "" {
				p.PDFURL = "https://arxiv.org/pdf/" + m[1]
			}
			break
		}
	}
	return p, true
}
