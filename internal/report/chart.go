// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/research-radar/internal/trend"
	"github.com/pdiddy/research-radar/pkg/types"
)

const (
	barLabelLen  = 20
	lineLabelLen = 18
)

// BarChart renders ranked keyword counts as a Mermaid xychart-beta bar
// chart. It returns "" when there is nothing to draw.
func BarChart(ranked []types.KeywordCount, title string) string {
	if len(ranked) == 0 {
		return ""
	}
	labels := make([]string, len(ranked))
	values := make([]string, len(ranked))
	maxCount := 0
	for i, kc := range ranked {
		labels[i] = quote(shorten(kc.Keyword, barLabelLen))
		values[i] = strconv.Itoa(kc.Count)
		maxCount = max(maxCount, kc.Count)
	}

	var b strings.Builder
	b.WriteString("```mermaid\nxychart-beta\n")
	fmt.Fprintf(&b, "    title %s\n", quote(title))
	fmt.Fprintf(&b, "    x-axis [%s]\n", strings.Join(labels, ", "))
	fmt.Fprintf(&b, "    y-axis \"Paper Count\" 0 --> %d\n", AxisMax(maxCount))
	fmt.Fprintf(&b, "    bar [%s]\n", strings.Join(values, ", "))
	b.WriteString("```\n")
	return b.String()
}

// LineChart renders bucketed series as a Mermaid xychart-beta line chart,
// one line per keyword, followed by a legend since xychart lines carry no
// labels. It returns "" when there is nothing to draw.
func LineChart(data trend.Bucketed, bucketDays int, title string) string {
	if len(data.Series) == 0 || len(data.Buckets) == 0 {
		return ""
	}
	labels := make([]string, len(data.Buckets))
	for i, start := range data.Buckets {
		end := start.AddDate(0, 0, max(bucketDays, 1)-1)
		labels[i] = quote(start.Format("01/02") + "-" + end.Format("01/02"))
	}
	maxCount := 0
	for _, s := range data.Series {
		for _, c := range s.Counts {
			maxCount = max(maxCount, c)
		}
	}

	var b strings.Builder
	b.WriteString("```mermaid\nxychart-beta\n")
	fmt.Fprintf(&b, "    title %s\n", quote(title))
	fmt.Fprintf(&b, "    x-axis [%s]\n", strings.Join(labels, ", "))
	fmt.Fprintf(&b, "    y-axis \"Papers\" 0 --> %d\n", AxisMax(maxCount))
	for _, s := range data.Series {
		values := make([]string, len(s.Counts))
		for i, c := range s.Counts {
			values[i] = strconv.Itoa(c)
		}
		fmt.Fprintf(&b, "    line [%s]\n", strings.Join(values, ", "))
	}
	b.WriteString("```\n\n")
	for i, s := range data.Series {
		fmt.Fprintf(&b, "%d. %s\n", i+1, shorten(s.Keyword, lineLabelLen))
	}
	return b.String()
}

// AxisMax rounds a maximum count up to a readable axis bound: 10, 20, 50,
// 100, then the next multiple of 50 above the value.
func AxisMax(v int) int {
	switch {
	case v <= 10:
		return 10
	case v <= 20:
		return 20
	case v <= 50:
		return 50
	case v <= 100:
		return 100
	default:
		return (v/50 + 1) * 50
	}
}

// shorten truncates s to n runes, marking the cut with "..".
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-2]) + ".."
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `'`) + `"`
}
