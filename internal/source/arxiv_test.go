// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/pkg/types"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2610.01234v2</id>
    <published>2026-10-16T17:59:00Z</published>
    <title>Surface Code Decoding
      with Neural Networks</title>
    <summary>  We decode surface codes.  </summary>
    <author><name>Alice Smith</name></author>
    <author><name>Bob Jones</name></author>
    <arxiv:doi>10.1000/xyz</arxiv:doi>
    <link href="http://arxiv.org/abs/2610.01234v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2610.01234v2" rel="related" type="application/pdf"/>
    <category term="quant-ph"/>
    <category term="cs.LG"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2610.05678v1</id>
    <published>2026-10-15T10:00:00Z</published>
    <title>Trapped Ion Gates</title>
    <summary>Fast gates.</summary>
    <author><name>Carol White</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2609.00001v1</id>
    <published>2026-10-01T10:00:00Z</published>
    <title>Old Paper</title>
    <summary>Too old.</summary>
    <author><name>Dan Old</name></author>
  </entry>
</feed>`

func arxivWindow() Request {
	return Request{
		Domains: []string{"quant-ph"},
		From:    time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
	}
}

func withArxivServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() { arxivAPIBase = old })
}

func collect(t *testing.T, a Adapter, req Request) ([]types.Paper, error) {
	t.Helper()
	var papers []types.Paper
	for p, err := range a.Fetch(context.Background(), req) {
		if err != nil {
			return papers, err
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func TestArxiv_FetchStopsAtWindowFloor(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cat:quant-ph", r.URL.Query().Get("search_query"))
		assert.Equal(t, "submittedDate", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "radar-test", r.Header.Get("User-Agent"))
		w.Write([]byte(arxivFixture))
	})

	a := NewArxiv(http.DefaultClient, "radar-test", 0)
	papers, err := collect(t, a, arxivWindow())
	require.NoError(t, err)
	require.Len(t, papers, 2)

	p := papers[0]
	assert.Equal(t, types.SourceID{Source: "arxiv", NativeID: "2610.01234"}, p.ID)
	assert.Equal(t, "Surface Code Decoding with Neural Networks", p.Title)
	assert.Equal(t, "We decode surface codes.", p.Abstract)
	assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, p.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2610.01234v2", p.PDFURL)
	assert.Equal(t, "10.1000/xyz", p.DOI)
	assert.Equal(t, []string{"quant-ph", "cs.LG"}, p.Categories)
	assert.Equal(t, "https://arxiv.org/pdf/2610.05678", papers[1].PDFURL)
}

func TestArxiv_CrossListedPapersYieldedOnce(t *testing.T) {
	var calls int32
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(arxivFixture))
	})

	req := arxivWindow()
	req.Domains = []string{"quant-ph", "cs.LG"}
	papers, err := collect(t, NewArxiv(http.DefaultClient, "", 0), req)
	require.NoError(t, err)
	assert.Len(t, papers, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestArxiv_MaxResults(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("max_results"))
		w.Write([]byte(arxivFixture))
	})

	req := arxivWindow()
	req.MaxResults = 1
	papers, err := collect(t, NewArxiv(http.DefaultClient, "", 0), req)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
}

func TestArxiv_ServerErrorIsSourceUnavailable(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	papers, err := collect(t, NewArxiv(http.DefaultClient, "", 0), arxivWindow())
	assert.Empty(t, papers)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestArxiv_EmptyFeedIsNotAnError(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	})

	papers, err := collect(t, NewArxiv(http.DefaultClient, "", 0), arxivWindow())
	assert.NoError(t, err)
	assert.Empty(t, papers)
}

func TestArxiv_FetchRestartsEachCall(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(arxivFixture))
	})

	a := NewArxiv(http.DefaultClient, "", 0)
	first, err := collect(t, a, arxivWindow())
	require.NoError(t, err)
	second, err := collect(t, a, arxivWindow())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestArxiv_EarlyBreakStopsFetching(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(arxivFixture))
	})

	n := 0
	for _, err := range NewArxiv(http.DefaultClient, "", 0).Fetch(context.Background(), arxivWindow()) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041v12", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/quant-ph/0101001v1", "quant-ph/0101001"},
		{"http://example.org/no-id", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.in); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
