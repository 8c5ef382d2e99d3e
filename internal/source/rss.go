// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/research-radar/internal/httputil"
	"github.com/pdiddy/research-radar/pkg/types"
)

// RSSMinInterval is the delay between requests to journal feeds.
var RSSMinInterval = time.Second

const maxFeedBytes = 10 << 20

// RSS fetches papers from journal RSS, Atom and RDF feeds.
type RSS struct {
	Client    *http.Client
	UserAgent string
	Feeds     []types.JournalFeed

	interval time.Duration
	throttle *Throttle
}

// NewRSS returns an adapter reading the given feeds in order.
func NewRSS(client *http.Client, userAgent string, feeds []types.JournalFeed, interval time.Duration) *RSS {
	return &RSS{Client: client, UserAgent: userAgent, Feeds: feeds, interval: interval, throttle: NewThrottle(interval)}
}

// Name returns the adapter identifier.
func (r *RSS) Name() string { return "rss" }

// MinRequestInterval returns the enforced delay between requests.
func (r *RSS) MinRequestInterval() time.Duration { return r.interval }

// Fetch reads every feed and yields items published inside the window.
// A single broken feed is skipped; the source fails only when no feed
// could be read. Items without a date are treated as published on the
// window's last day.
func (r *RSS) Fetch(ctx context.Context, req Request) iter.Seq2[types.Paper, error] {
	return func(yield func(types.Paper, error) bool) {
		if len(r.Feeds) == 0 {
			yield(types.Paper{}, unavailable(r.Name(), fmt.Errorf("no feeds configured")))
			return
		}

		var errs []error
		yielded := 0
		for _, f := range r.Feeds {
			feed, err := r.read(ctx, f)
			if err != nil {
				if ctx.Err() != nil {
					yield(types.Paper{}, unavailable(r.Name(), ctx.Err()))
					return
				}
				errs = append(errs, fmt.Errorf("feed %s: %w", f.Name, err))
				continue
			}
			venue := f.Name
			if venue == "" {
				venue = feed.Title
			}
			for _, item := range feed.Items {
				p, ok := feedItemPaper(item, venue, req.To)
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
		}
		if len(errs) == len(r.Feeds) {
			yield(types.Paper{}, unavailable(r.Name(), errors.Join(errs...)))
		}
	}
}

func (r *RSS) read(ctx context.Context, f types.JournalFeed) (*gofeed.Feed, error) {
	if err := r.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := httputil.GetBody(ctx, r.Client, f.URL, r.UserAgent, nil, maxFeedBytes)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("feed parse failed: %w", err)
	}
	return feed, nil
}

func feedItemPaper(item *gofeed.Item, venue string, fallback time.Time) (types.Paper, bool) {
	title := plainText(item.Title)
	if title == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		Title: title,
		URL:   item.Link,
		DOI:   itemDOI(item),
		Venue: venue,
	}

	abstract := item.Description
	if abstract == "" {
		abstract = item.Content
	}
	p.Abstract = plainText(abstract)

	switch {
	case item.PublishedParsed != nil:
		p.Published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		p.Published = item.UpdatedParsed.UTC()
	default:
		p.Published = types.Day(fallback)
	}

	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
	}
	if len(p.Authors) == 0 && item.DublinCoreExt != nil {
		for _, c := range item.DublinCoreExt.Creator {
			if c = strings.TrimSpace(c); c != "" {
				p.Authors = append(p.Authors, c)
			}
		}
	}

	p.Categories = item.Categories

	native := p.DOI
	if native == "" {
		native = item.GUID
	}
	if native == "" {
		native = item.Link
	}
	if native == "" {
		return types.Paper{}, false
	}
	p.ID = types.SourceID{Source: "rss", NativeID: native}
	return p, true
}

// itemDOI reads prism:doi, then a DOI-looking dc:identifier.
func itemDOI(item *gofeed.Item) string {
	if prism, ok := item.Extensions["prism"]; ok {
		for _, e := range prism["doi"] {
			if v := strings.TrimSpace(e.Value); v != "" {
				return v
			}
		}
	}
	if item.DublinCoreExt != nil {
		for _, id := range item.DublinCoreExt.Identifier {
			id = strings.TrimPrefix(strings.TrimSpace(id), "doi:")
			id = strings.TrimPrefix(id, "https://doi.org/")
			if strings.HasPrefix(id, "10.") {
				return id
			}
		}
	}
	return ""
}
