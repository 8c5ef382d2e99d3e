// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/store"
	"github.com/pdiddy/research-radar/internal/trend"
	"github.com/pdiddy/research-radar/pkg/types"
)

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show the most frequent keywords over a recent window",
	Long: `Trends ranks normalized keywords by the number of papers they appeared in
over the last --days days. With --chart it also writes the keyword trend
report (bar chart, weekly line chart and ranked table) to the report
directory.`,
	RunE: runTrends,
}

func runTrends(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	days := cfg.Trend.WindowDays
	if cmd.Flags().Changed("days") {
		days, _ = cmd.Flags().GetInt("days")
	}
	top := cfg.Trend.TopN
	if cmd.Flags().Changed("top") {
		top, _ = cmd.Flags().GetInt("top")
	}

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	now := time.Now()
	w, err := trend.Aggregate(ctx, st, now, days, top)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(w); err != nil {
			return err
		}
	} else {
		printWindow(w)
	}

	if chart, _ := cmd.Flags().GetBool("chart"); chart {
		tc := cfg.Trend
		tc.WindowDays = days
		tc.TopN = top
		writeTrendReport(ctx, st, types.RadarConfig{Trend: tc, Storage: cfg.Storage}, now, os.Stderr)
	}
	return nil
}

func printWindow(w types.TrendWindow) {
	fmt.Printf("Keywords from %s to %s\n\n", w.Start.Format(types.DateLayout), w.End.Format(types.DateLayout))
	if len(w.Ranked) == 0 {
		fmt.Println("No keyword observations in this window.")
		return
	}
	fmt.Printf("%-4s  %-40s  %s\n", "Rank", "Keyword", "Count")
	fmt.Println(strings.Repeat("-", 54))
	for i, kc := range w.Ranked {
		fmt.Printf("%-4d  %-40s  %d\n", i+1, kc.Keyword, kc.Count)
	}
}

var trendsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete keyword observations dated before a given day",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("before")
		before, err := time.Parse(types.DateLayout, raw)
		if err != nil {
			return fmt.Errorf("--before must be YYYY-MM-DD: %w", err)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.Purge(context.Background(), before)
		if err != nil {
			return err
		}
		fmt.Printf("purged %d observation(s) before %s\n", n, raw)
		return nil
	},
}

func init() {
	trendsCmd.Flags().Int("days", 30, "window size in days")
	trendsCmd.Flags().Int("top", 15, "number of keywords to show")
	trendsCmd.Flags().Bool("chart", false, "write the trend report with Mermaid charts")
	trendsCmd.Flags().Bool("json", false, "output the window as JSON")

	trendsPurgeCmd.Flags().String("before", "", "delete observations dated before this day (YYYY-MM-DD)")
	trendsPurgeCmd.MarkFlagRequired("before")

	trendsCmd.AddCommand(trendsPurgeCmd)
	rootCmd.AddCommand(trendsCmd)
}
