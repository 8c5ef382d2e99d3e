// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the radar pipeline once",
	Long: `Run fetches papers published in the search window from every enabled
source, removes duplicates and papers processed by earlier runs, scores the
rest against the configured keywords, analyzes papers that pass the threshold
and records history and keyword observations. A Markdown report and a YAML
export are written to the report directory.

The command fails only when every source is unavailable or the database
cannot be written. Interrupting a run persists the work already completed.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("days") {
		cfg.Sources.SearchDays, _ = cmd.Flags().GetInt("days")
	}
	if cmd.Flags().Changed("sources") {
		raw, _ := cmd.Flags().GetString("sources")
		cfg.Sources.Enabled = splitList(raw)
	}
	if cmd.Flags().Changed("report-dir") {
		cfg.Storage.ReportDir, _ = cmd.Flags().GetString("report-dir")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	opts := defaultRunOptions()
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.JSON, _ = cmd.Flags().GetBool("json")
	opts.NoReport, _ = cmd.Flags().GetBool("no-report")
	opts.NoNotify, _ = cmd.Flags().GetBool("no-notify")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runOnce(ctx, cfg, opts)
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "fetch, score and analyze without recording history or observations")
	runCmd.Flags().Int("days", 0, "search window in days (overrides sources.search_days)")
	runCmd.Flags().String("sources", "", "comma-separated sources to enable (arxiv, openalex, rss)")
	runCmd.Flags().String("report-dir", "", "directory for run reports (overrides storage.report_dir)")
	runCmd.Flags().Bool("json", false, "print the run result as JSON on stdout")
	runCmd.Flags().Bool("no-report", false, "do not write report files")
	runCmd.Flags().Bool("no-notify", false, "do not post the Slack summary")

	rootCmd.AddCommand(runCmd)
}
