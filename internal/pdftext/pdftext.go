// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext downloads a paper PDF and extracts its plain text.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/research-radar/internal/httputil"
	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrRetrieval matches every failure to obtain text from a PDF.
var ErrRetrieval = errors.New("pdf retrieval failed")

// RetrievalError describes why the text of a PDF could not be obtained.
type RetrievalError struct {
	URL string
	Err error
}

func (e *RetrievalError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("pdf retrieval: %v", e.Err)
	}
	return fmt.Sprintf("pdf retrieval %s: %v", e.URL, e.Err)
}

// Unwrap exposes both ErrRetrieval and the underlying cause.
func (e *RetrievalError) Unwrap() []error {
	return []error{ErrRetrieval, e.Err}
}

// MaxPDFBytes caps the size of a downloaded PDF.
var MaxPDFBytes int64 = 50 << 20

const defaultMaxPages = 20

// TextFetcher obtains the plain text of a paper from its PDF URL.
type TextFetcher interface {
	FetchText(ctx context.Context, pdfURL string) (string, error)
}

// Fetcher downloads PDFs over HTTP and extracts text with ledongthuc/pdf.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	// MaxPages limits how many leading pages are read.
	MaxPages int
}

// NewFetcher returns a fetcher configured from the analysis settings.
func NewFetcher(cfg types.AnalysisConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: cfg.UserAgent,
		MaxPages:  cfg.MaxPages,
	}
}

// FetchText downloads pdfURL and returns whitespace-normalized text of the
// first MaxPages pages. All failures are *RetrievalError.
func (f *Fetcher) FetchText(ctx context.Context, pdfURL string) (string, error) {
	if strings.TrimSpace(pdfURL) == "" {
		return "", &RetrievalError{Err: errors.New("no PDF URL")}
	}

	data, err := httputil.GetBody(ctx, f.Client, pdfURL, f.UserAgent, http.Header{"Accept": {"application/pdf"}}, MaxPDFBytes)
	if err != nil {
		return "", &RetrievalError{URL: pdfURL, Err: err}
	}

	text, err := Extract(data, f.MaxPages)
	if err != nil {
		return "", &RetrievalError{URL: pdfURL, Err: err}
	}
	return text, nil
}

// Extract returns the plain text of the first maxPages pages of a PDF
// document (0 means the default of 20).
func Extract(data []byte, maxPages int) (text string, err error) {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("%PDF")) {
		return "", errors.New("response is not a PDF document")
	}

	// ledongthuc/pdf panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages && i <= maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text = strings.Join(strings.Fields(sb.String()), " ")
	if text == "" {
		return "", errors.New("no extractable text in PDF")
	}
	return text, nil
}
