// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders run results and keyword trends as Markdown with
// Mermaid charts, and exports run results as YAML or JSON.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/research-radar/internal/pipeline"
	"github.com/pdiddy/research-radar/pkg/types"
)

// Run renders the Markdown report of one pipeline run.
func Run(res *pipeline.RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Radar %s\n\n", res.StartedAt.Format(types.DateLayout))
	if res.DryRun {
		b.WriteString("> Dry run: nothing was recorded.\n\n")
	}
	fmt.Fprintf(&b, "Search window: %s to %s\n\n", res.From.Format(types.DateLayout), res.To.Format(types.DateLayout))

	writeSummary(&b, res)
	writeScores(&b, res)
	writeAnalyses(&b, res)
	writeTrends(&b, res.Trends)
	writeTrace(&b, res.Trace)
	return b.String()
}

func writeSummary(b *strings.Builder, res *pipeline.RunResult) {
	c := res.Counts
	b.WriteString("## Summary\n\n")
	b.WriteString("| Fetched | Unique | Already seen | Duplicates | Scored | Unscored | Passed | Analyzed | Abstract only | Analysis failed |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(b, "| %d | %d | %d | %d | %d | %d | %d | %d | %d | %d |\n\n",
		c.Fetched, c.Unique, c.AlreadySeen, c.Duplicates, c.Scored, c.Unscored, c.Passed, c.Analyzed, c.Partial, c.Failed)

	if len(res.PerSource) > 0 {
		names := make([]string, 0, len(res.PerSource))
		for name := range res.PerSource {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s (%d)", name, res.PerSource[name])
		}
		fmt.Fprintf(b, "Sources: %s\n\n", strings.Join(parts, ", "))
	}

	var total float64
	kws := make([]string, 0, len(res.Weights))
	for kw, w := range res.Weights {
		kws = append(kws, kw)
		total += w
	}
	sort.Strings(kws)
	fmt.Fprintf(b, "Passing score: %.1f + %.1f × %.1f = **%.2f**", res.BaseScore, res.Coefficient, total, res.PassingScore)
	if len(kws) > 0 {
		weights := make([]string, len(kws))
		for i, kw := range kws {
			weights[i] = fmt.Sprintf("%s %.1f", kw, res.Weights[kw])
		}
		fmt.Fprintf(b, " (weights: %s)", strings.Join(weights, ", "))
	}
	b.WriteString("\n\n")
}

func writeScores(b *strings.Builder, res *pipeline.RunResult) {
	if len(res.Scores) == 0 {
		return
	}
	b.WriteString("## Scores\n\n")
	b.WriteString("| # | Title | Source | Score | Pass | Expert authors |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for i, s := range res.Scores {
		title := cell(s.Title)
		if i < len(res.Papers) && res.Papers[i].URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, res.Papers[i].URL)
		}
		score, pass := "-", "unscored"
		if s.Scored {
			score = fmt.Sprintf("%.2f", s.TotalScore)
			pass = "no"
			if s.PassThreshold {
				pass = "**yes**"
			}
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s | %s | %s |\n",
			i+1, title, s.Source, score, pass, cell(strings.Join(s.ExpertAuthors, ", ")))
	}
	b.WriteString("\n")
}

func writeAnalyses(b *strings.Builder, res *pipeline.RunResult) {
	papers := make(map[string]types.Paper, len(res.Papers))
	for _, p := range res.Papers {
		papers[p.DedupKey] = p
	}
	scores := make(map[string]types.ScoreResult, len(res.Scores))
	for _, s := range res.Scores {
		scores[s.DedupKey] = s
	}

	var shown []types.AnalysisResult
	for _, a := range res.Analyses {
		if !a.Failed {
			shown = append(shown, a)
		}
	}
	if len(shown) == 0 {
		return
	}

	b.WriteString("## Analyses\n\n")
	for i, a := range shown {
		p := papers[a.DedupKey]
		fmt.Fprintf(b, "### %d. %s\n\n", i+1, a.Title)
		if len(p.Authors) > 0 {
			fmt.Fprintf(b, "*%s*", p.AuthorsString())
			if p.Venue != "" {
				fmt.Fprintf(b, " · %s", p.Venue)
			}
			b.WriteString("\n\n")
		}
		if link := p.URL; link != "" {
			fmt.Fprintf(b, "Link: %s", link)
			if pdf := p.BestPDFURL(); pdf != "" && pdf != link {
				fmt.Fprintf(b, " · [PDF](%s)", pdf)
			}
			b.WriteString("\n\n")
		}
		if s, ok := scores[a.DedupKey]; ok {
			fmt.Fprintf(b, "Score: %.2f / %.2f\n\n", s.TotalScore, s.PassingScore)
		}
		if a.PartialInput {
			b.WriteString("> Based on the abstract only; the full text could not be retrieved.\n\n")
		}
		field(b, "Summary", a.Summary)
		if a.TranslatedAbstract != "" {
			field(b, fmt.Sprintf("Abstract (%s)", a.TranslationLanguage), a.TranslatedAbstract)
		}
		field(b, "Methodology", a.Methodology)
		if len(a.Innovations) > 0 {
			b.WriteString("**Innovations**\n\n")
			for _, in := range a.Innovations {
				fmt.Fprintf(b, "- %s\n", in)
			}
			b.WriteString("\n")
		}
		if len(a.TechStack) > 0 {
			field(b, "Tech stack", strings.Join(a.TechStack, ", "))
		}
		field(b, "Key results", a.KeyResults)
		field(b, "Limitations", a.Limitations)
		field(b, "Relevance", a.RelevanceSummary)
	}
}

func writeTrends(b *strings.Builder, windows []types.TrendWindow) {
	var hasData bool
	for _, w := range windows {
		if len(w.Ranked) > 0 {
			hasData = true
		}
	}
	if !hasData {
		return
	}
	b.WriteString("## Keyword Trends\n\n")
	for _, w := range windows {
		if len(w.Ranked) == 0 {
			continue
		}
		days := w.Days() - 1
		fmt.Fprintf(b, "### Last %d days\n\n", days)
		b.WriteString(BarChart(w.Ranked, fmt.Sprintf("Top Research Keywords (Last %d Days)", days)))
		b.WriteString("\n")
		writeRankTable(b, w.Ranked)
	}
}

func writeRankTable(b *strings.Builder, ranked []types.KeywordCount) {
	b.WriteString("| Rank | Keyword | Count |\n")
	b.WriteString("|---|---|---|\n")
	for i, kc := range ranked {
		fmt.Fprintf(b, "| %d | %s | %d |\n", i+1, cell(kc.Keyword), kc.Count)
	}
	b.WriteString("\n")
}

func writeTrace(b *strings.Builder, entries []types.TraceEntry) {
	if len(entries) == 0 {
		return
	}
	b.WriteString("## Skipped and failed\n\n")
	b.WriteString("| Title | Stage | Reason |\n")
	b.WriteString("|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(b, "| %s | %s | %s |\n", cell(e.Title), e.Stage, cell(e.Reason))
	}
	b.WriteString("\n")
}

func field(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "**%s**: %s\n\n", name, value)
}

// cell makes s safe inside a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
