// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-radar/internal/trend"
	"github.com/pdiddy/research-radar/pkg/types"
)

const trendBucketDays = 7

// Due reports whether a trend report should be produced on day under the
// given frequency: weekly reports fall on Mondays, monthly ones on the
// first of the month.
func Due(frequency string, day time.Time) bool {
	switch frequency {
	case types.FrequencyAlways, types.FrequencyDaily, "":
		return true
	case types.FrequencyWeekly:
		return day.Weekday() == time.Monday
	case types.FrequencyMonthly:
		return day.Day() == 1
	default:
		return false
	}
}

// Trends renders the keyword trend report: a bar chart of the top keywords
// over the window, a line chart of weekly counts for the leading keywords
// and the ranked table.
func Trends(ctx context.Context, r trend.Reader, now time.Time, cfg types.TrendConfig) (string, error) {
	days := cfg.WindowDays
	if days <= 0 {
		days = 30
	}
	w, err := trend.Aggregate(ctx, r, now, days, cfg.TopN)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Keyword Trends %s\n\n", types.Day(now).Format(types.DateLayout))
	fmt.Fprintf(&b, "Window: %s to %s\n\n", w.Start.Format(types.DateLayout), w.End.Format(types.DateLayout))
	if len(w.Ranked) == 0 {
		b.WriteString("No keyword observations in this window.\n")
		return b.String(), nil
	}

	b.WriteString("## Top Keywords\n\n")
	b.WriteString(BarChart(w.Ranked, fmt.Sprintf("Top Research Keywords (Last %d Days)", days)))
	b.WriteString("\n")

	lineN := cfg.TrendTopN
	if lineN <= 0 || lineN > len(w.Ranked) {
		lineN = len(w.Ranked)
	}
	keywords := make([]string, lineN)
	for i := range lineN {
		keywords[i] = w.Ranked[i].Keyword
	}
	series, err := trend.DailySeries(ctx, r, keywords, now, days, trendBucketDays)
	if err != nil {
		return "", err
	}
	if chart := LineChart(series, trendBucketDays, "Keyword Trends"); chart != "" {
		b.WriteString("## Keyword Trends Over Time\n\n")
		b.WriteString(chart)
		b.WriteString("\n")
	}

	b.WriteString("## Keyword Statistics\n\n")
	writeRankTable(&b, w.Ranked)
	return b.String(), nil
}
