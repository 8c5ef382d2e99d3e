// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify posts a run summary to a Slack incoming webhook.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/pdiddy/research-radar/internal/pipeline"
	"github.com/pdiddy/research-radar/pkg/types"
)

const maxTrendingKeywords = 5

// Slack posts run summaries to an incoming webhook.
type Slack struct {
	WebhookURL string
}

// NewSlack returns a notifier, or nil when url is empty.
func NewSlack(url string) *Slack {
	if url == "" {
		return nil
	}
	return &Slack{WebhookURL: url}
}

// Notify posts the summary of res. reportPath may be empty.
func (s *Slack) Notify(ctx context.Context, res *pipeline.RunResult, reportPath string) error {
	if err := slack.PostWebhookContext(ctx, s.WebhookURL, Message(res, reportPath)); err != nil {
		return fmt.Errorf("posting to Slack: %w", err)
	}
	return nil
}

// Message builds the webhook payload for res.
func Message(res *pipeline.RunResult, reportPath string) *slack.WebhookMessage {
	c := res.Counts
	title := fmt.Sprintf("Research Radar %s", res.StartedAt.Format(types.DateLayout))
	if res.State == types.StateFailed {
		title += " (failed)"
	}

	summary := fmt.Sprintf("*%d* fetched, *%d* new, *%d* passed, *%d* analyzed", c.Fetched, c.Unique, c.Passed, c.Analyzed)
	if c.Unscored > 0 || c.Failed > 0 {
		summary += fmt.Sprintf(" (%d unscored, %d analysis failures)", c.Unscored, c.Failed)
	}
	if res.Error != "" {
		summary += "\nError: " + res.Error
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, false, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, summary, false, false), nil, nil),
	}

	var passing []string
	for _, a := range res.Analyses {
		if a.Failed {
			continue
		}
		passing = append(passing, "• "+a.Title)
	}
	if len(passing) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*Relevant papers*\n"+strings.Join(passing, "\n"), false, false), nil, nil))
	}

	if len(res.Trends) > 0 && len(res.Trends[0].Ranked) > 0 {
		ranked := res.Trends[0].Ranked
		var kws []string
		for _, kc := range ranked[:min(len(ranked), maxTrendingKeywords)] {
			kws = append(kws, fmt.Sprintf("%s (%d)", kc.Keyword, kc.Count))
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*Trending*: "+strings.Join(kws, ", "), false, false), nil, nil))
	}

	if reportPath != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "Report: `"+reportPath+"`", false, false)))
	}

	return &slack.WebhookMessage{
		Text:   title + ": " + summary,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}
