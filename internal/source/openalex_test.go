// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withOpenAlexServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := openAlexWorksBase
	openAlexWorksBase = ts.URL
	t.Cleanup(func() { openAlexWorksBase = old })
}

func openAlexWindow() Request {
	return Request{
		From: time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
	}
}

func TestOpenAlex_FetchBuildsJournalFilter(t *testing.T) {
	withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t,
			"primary_location.source.issn:0031-9007|1079-7114,from_publication_date:2026-10-10,to_publication_date:2026-10-17",
			q.Get("filter"))
		assert.Equal(t, "publication_date:desc", q.Get("sort"))
		assert.Equal(t, "me@example.org", q.Get("mailto"))

		json.NewEncoder(w).Encode(map[string]any{
			"meta": map[string]any{"count": 2},
			"results": []map[string]any{
				{
					"id":                      "https://openalex.org/W1",
					"doi":                     "https://doi.org/10.1103/PhysRevLett.1",
					"title":                   "Entanglement in <i>Qubit</i> Arrays",
					"publication_date":        "2026-10-14",
					"abstract_inverted_index": map[string][]int{"Qubits": {0}, "entangle": {1}},
					"authorships": []map[string]any{
						{"author": map[string]any{"display_name": "Ana Lopez"}},
					},
					"primary_location": map[string]any{"landing_page_url": "https://journals.aps.org/prl/1"},
					"open_access":      map[string]any{"is_oa": false},
					"locations": []map[string]any{
						{"landing_page_url": "https://arxiv.org/abs/2610.11111", "source": map[string]any{"display_name": "arXiv (Cornell University)"}},
					},
				},
				{
					"id":               "https://openalex.org/W2",
					"title":            "Closed Access Result",
					"publication_date": "2026-10-12",
					"open_access":      map[string]any{"is_oa": true, "oa_url": "https://example.org/oa.pdf"},
				},
			},
		})
	})

	o := NewOpenAlex(http.DefaultClient, "", []string{"PRL"}, 0)
	o.Email = "me@example.org"
	papers, err := collect(t, o, openAlexWindow())
	require.NoError(t, err)
	require.Len(t, papers, 2)

	p := papers[0]
	assert.Equal(t, "10.1103/PhysRevLett.1", p.ID.NativeID)
	assert.Equal(t, "openalex", p.Source())
	assert.Equal(t, "Entanglement in Qubit Arrays", p.Title)
	assert.Equal(t, "Qubits entangle", p.Abstract)
	assert.Equal(t, "Physical Review Letters", p.Venue)
	assert.Equal(t, "2610.11111", p.ArxivID)
	assert.Equal(t, "https://arxiv.org/pdf/2610.11111", p.PDFURL)
	assert.Equal(t, "https://journals.aps.org/prl/1", p.URL)

	assert.Equal(t, "W2", papers[1].ID.NativeID)
	assert.Equal(t, "https://example.org/oa.pdf", papers[1].PDFURL)
}

func TestOpenAlex_Paginates(t *testing.T) {
	oldPerPage := openAlexPerPage
	openAlexPerPage = 2
	defer func() { openAlexPerPage = oldPerPage }()

	var pages []string
	withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		n, _ := strconv.Atoi(page)
		results := []map[string]any{}
		for i := 0; i < 2 && (n-1)*2+i < 3; i++ {
			id := strconv.Itoa((n-1)*2 + i)
			results = append(results, map[string]any{
				"id": "https://openalex.org/W" + id, "title": "Paper " + id, "publication_date": "2026-10-15",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"meta": map[string]any{"count": 3}, "results": results})
	})

	o := NewOpenAlex(http.DefaultClient, "", []string{"quantum"}, 0)
	papers, err := collect(t, o, openAlexWindow())
	require.NoError(t, err)
	assert.Len(t, papers, 3)
	assert.Equal(t, []string{"1", "2"}, pages)

	req := openAlexWindow()
	req.MaxResults = 1
	pages = nil
	papers, err = collect(t, o, req)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.Equal(t, []string{"1"}, pages)
}

func TestOpenAlex_UnknownJournal(t *testing.T) {
	o := NewOpenAlex(http.DefaultClient, "", []string{"not-a-journal"}, 0)
	_, err := collect(t, o, openAlexWindow())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestOpenAlex_HTTPErrorIsSourceUnavailable(t *testing.T) {
	withOpenAlexServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	o := NewOpenAlex(http.DefaultClient, "", []string{"prl"}, 0)
	_, err := collect(t, o, openAlexWindow())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil map", nil, ""},
		{"single word", map[string][]int{"hello": {0}}, "hello"},
		{"ordered", map[string][]int{"We": {0}, "propose": {1}, "a": {2}, "method": {3}}, "We propose a method"},
		{"repeated word", map[string][]int{"the": {0, 2}, "cat": {1}, "hat": {3}}, "the cat the hat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconstructAbstract(tt.index))
		})
	}
}

func TestLookupJournal(t *testing.T) {
	j, ok := LookupJournal(" Nature_Physics ")
	require.True(t, ok)
	assert.Equal(t, "nature_physics", j.Code)
	assert.Equal(t, []string{"1745-2473", "1745-2481"}, j.ISSNs)

	_, ok = LookupJournal("unknown")
	assert.False(t, ok)
	assert.Contains(t, JournalCodes(), "prxq")
}
