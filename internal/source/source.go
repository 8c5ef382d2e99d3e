// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches newly published papers from external sources. Each
// adapter implements the same contract so the fetch coordinator can treat
// arXiv, OpenAlex and journal feeds uniformly.
package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrSourceUnavailable marks a failed source request. An empty result is not
// an error; callers use errors.Is to tell the two apart.
var ErrSourceUnavailable = errors.New("source unavailable")

// Request holds the parameters for one fetch.
type Request struct {
	// Domains are domain filters (arXiv categories). Adapters that do not
	// filter by domain ignore them.
	Domains []string

	// From and To bound the publication date window, inclusive by day.
	From time.Time
	To   time.Time

	// MaxResults caps the number of papers yielded (0 means no cap).
	MaxResults int
}

// Adapter fetches papers from one external source. Fetch returns a lazy,
// finite sequence that restarts from the beginning on every call. On failure
// the sequence yields a single error wrapping ErrSourceUnavailable and stops.
type Adapter interface {
	Name() string
	MinRequestInterval() time.Duration
	Fetch(ctx context.Context, req Request) iter.Seq2[types.Paper, error]
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrSourceUnavailable, err)
}

// inWindow reports whether t falls on a day within [from, to]. Zero bounds
// are open.
func inWindow(t, from, to time.Time) bool {
	day := types.Day(t)
	if !from.IsZero() && day.Before(types.Day(from)) {
		return false
	}
	if !to.IsZero() && day.After(types.Day(to)) {
		return false
	}
	return true
}

// beforeWindow reports whether t falls on a day earlier than from.
func beforeWindow(t, from time.Time) bool {
	return !from.IsZero() && types.Day(t).Before(types.Day(from))
}
