// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pdiddy/research-radar/internal/analyze"
	"github.com/pdiddy/research-radar/internal/fetch"
	"github.com/pdiddy/research-radar/internal/llm"
	"github.com/pdiddy/research-radar/internal/notify"
	"github.com/pdiddy/research-radar/internal/pdftext"
	"github.com/pdiddy/research-radar/internal/pipeline"
	"github.com/pdiddy/research-radar/internal/report"
	"github.com/pdiddy/research-radar/internal/score"
	"github.com/pdiddy/research-radar/internal/source"
	"github.com/pdiddy/research-radar/internal/store"
	"github.com/pdiddy/research-radar/pkg/types"
)

// runOptions are per-invocation settings from the command line.
type runOptions struct {
	DryRun     bool
	JSON       bool
	NoReport   bool
	NoNotify   bool
	Progress   io.Writer
	JSONOutput io.Writer
}

// buildPipeline wires every collaborator of a run from cfg. Reference
// keywords, when enabled, are merged into the configured weights first.
func buildPipeline(ctx context.Context, cfg types.RadarConfig, st *store.Store, opts runOptions) (*pipeline.Pipeline, error) {
	client := &http.Client{Timeout: cfg.Sources.Timeout}
	adapters, err := source.Build(cfg.Sources, client)
	if err != nil {
		return nil, err
	}
	var enricher fetch.Enricher
	if e := source.BuildEnricher(cfg.Sources, client); e != nil {
		enricher = e
	}

	tiers, err := llm.NewTiers(cfg.LLM)
	if err != nil {
		return nil, err
	}

	if cfg.Scoring.Reference.Enabled {
		ref, err := score.NewReferenceKeywords(tiers.Cheap, cfg.Scoring).Generate(ctx, opts.Progress)
		if err != nil {
			return nil, err
		}
		cfg.Scoring.Keywords = score.MergeWeights(cfg.Scoring.Keywords, ref)
		fmt.Fprintf(opts.Progress, "%d reference keyword(s) merged, %d weight(s) in use\n", len(ref), len(cfg.Scoring.Keywords))
	}
	if len(cfg.Scoring.Keywords) == 0 {
		return nil, fmt.Errorf("no scoring keywords configured and none derived from reference papers")
	}

	analyzer := analyze.NewEngine(tiers.Smart, pdftext.NewFetcher(cfg.Analysis), cfg.Scoring.ResearchContext, cfg.Analysis)
	analyzer.Translator = analyze.NewTranslator(tiers.Cheap, cfg.Analysis.TranslateTo)

	return &pipeline.Pipeline{
		Adapters:   adapters,
		Enricher:   enricher,
		Scorer:     score.NewEngine(tiers.Cheap, cfg.Scoring),
		Analyzer:   analyzer,
		Normalizer: tiers.Cheap,
		Store:      st,
		Config:     cfg,
		DryRun:     opts.DryRun,
		Progress:   opts.Progress,
	}, nil
}

// runOnce performs one pipeline run followed by its reports and
// notification. Report and notification failures are warnings.
func runOnce(ctx context.Context, cfg types.RadarConfig, opts runOptions) error {
	w := opts.Progress
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := buildPipeline(ctx, cfg, st, opts)
	if err != nil {
		return err
	}

	res, runErr := p.Run(ctx)

	var reportPath string
	if !opts.NoReport && res != nil {
		paths, err := report.WriteRun(cfg.Storage.ReportDir, res)
		if err != nil {
			fmt.Fprintf(w, "warning: %v\n", err)
		} else {
			reportPath = paths.Markdown
			fmt.Fprintf(w, "report written to %s\n", paths.Markdown)
		}
		if cfg.Storage.BySource {
			written, err := report.WriteBySource(cfg.Storage.ReportDir, res)
			if err != nil {
				fmt.Fprintf(w, "warning: per-source reports: %v\n", err)
			}
			fmt.Fprintf(w, "%d per-source report(s) written\n", len(written))
		}
		if runErr == nil && cfg.Trend.Enabled && report.Due(cfg.Trend.ReportFrequency, res.StartedAt) {
			writeTrendReport(context.WithoutCancel(ctx), st, cfg, res.StartedAt, w)
		}
	}

	if opts.JSON && res != nil {
		if err := report.WriteJSON(opts.JSONOutput, res); err != nil {
			fmt.Fprintf(w, "warning: writing JSON: %v\n", err)
		}
	}

	if n := notify.NewSlack(cfg.Notify.SlackWebhookURL); n != nil && !opts.NoNotify && !opts.DryRun && res != nil {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		if err := n.Notify(nctx, res, reportPath); err != nil {
			fmt.Fprintf(w, "warning: %v\n", err)
		}
		cancel()
	}

	if runErr != nil {
		return runErr
	}
	if res.Counts.Unscored > 0 {
		fmt.Fprintf(w, "%d paper(s) could not be scored and will be retried next run\n", res.Counts.Unscored)
	}
	return nil
}

func writeTrendReport(ctx context.Context, st *store.Store, cfg types.RadarConfig, now time.Time, w io.Writer) {
	content, err := report.Trends(ctx, st, now, cfg.Trend)
	if err != nil {
		fmt.Fprintf(w, "warning: trend report: %v\n", err)
		return
	}
	path, err := report.WriteTrends(cfg.Storage.ReportDir, now, content)
	if err != nil {
		fmt.Fprintf(w, "warning: %v\n", err)
		return
	}
	fmt.Fprintf(w, "trend report written to %s\n", path)
}

func defaultRunOptions() runOptions {
	return runOptions{Progress: os.Stderr, JSONOutput: os.Stdout}
}
