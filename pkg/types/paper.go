// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// SourceID identifies a paper within the source that produced it.
type SourceID struct {
	// Source is the adapter name (e.g. "arxiv", "openalex", "rss").
	Source string `json:"source" yaml:"source"`

	// NativeID is the identifier the source uses (arXiv ID, DOI, OpenAlex ID, feed GUID).
	NativeID string `json:"native_id" yaml:"native_id"`
}

// String returns "source:native_id".
func (s SourceID) String() string {
	return s.Source + ":" + s.NativeID
}

// Paper holds the metadata of a newly published paper as returned by a
// source adapter. The Fetch Coordinator stamps DedupKey; after that the
// value is treated as immutable.
type Paper struct {
	ID SourceID `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, possibly empty for paywalled journals.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the publication or submission date.
	Published time.Time `json:"published" yaml:"published"`

	// URL is the landing page of the paper.
	URL string `json:"url" yaml:"url"`

	// PDFURL is a direct link to the full text PDF, if one is known.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// DedupKey is derived from the normalized title, first author surname and year.
	DedupKey string `json:"dedup_key" yaml:"dedup_key"`

	// DOI is the bare DOI (no https://doi.org/ prefix) when known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ArxivID is set when an arXiv version of the paper is known.
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// Venue is the journal or feed name for non-preprint sources.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Categories lists subject classifications (e.g. arXiv categories).
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// TLDR is a one-sentence summary supplied by an enrichment service.
	TLDR string `json:"tldr,omitempty" yaml:"tldr,omitempty"`
}

// Source returns the adapter name that produced the paper.
func (p Paper) Source() string { return p.ID.Source }

// AuthorsString joins the author list with commas.
func (p Paper) AuthorsString() string {
	return strings.Join(p.Authors, ", ")
}

// BestPDFURL returns the direct PDF link, falling back to the arXiv PDF
// when only an arXiv ID is known.
func (p Paper) BestPDFURL() string {
	if p.PDFURL != "" {
		return p.PDFURL
	}
	if p.ArxivID != "" {
		return "https://arxiv.org/pdf/" + p.ArxivID
	}
	return ""
}

// HistoryRecord marks a dedup key as processed by an earlier run.
type HistoryRecord struct {
	DedupKey  string    `json:"dedup_key" yaml:"dedup_key"`
	FirstSeen time.Time `json:"first_seen" yaml:"first_seen"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
}

// HistorySet is the in-memory view of processed dedup keys loaded at run start.
type HistorySet map[string]time.Time

// Contains reports whether key has been processed before.
func (h HistorySet) Contains(key string) bool {
	_, ok := h[key]
	return ok
}
