// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect processed papers and recent runs",
	Long: `History reports how many papers earlier runs have processed and lists
the most recent runs. With --check it looks up a dedup key or a title
fragment to tell whether a paper was already processed.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	if query, _ := cmd.Flags().GetString("check"); query != "" {
		recs, err := st.FindHistory(ctx, query, 20)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Printf("not processed: %s\n", query)
			return nil
		}
		for _, r := range recs {
			fmt.Printf("processed %s  %-8s  %s\n", r.FirstSeen.Format("2006-01-02"), r.Source, r.Title)
		}
		return nil
	}

	n, err := st.HistoryCount(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d paper(s) processed (%s)\n", n, st.Path())

	limit, _ := cmd.Flags().GetInt("runs")
	runs, err := st.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}
	fmt.Printf("\n%-16s  %-8s  %7s  %6s  %6s  %6s  %8s  %8s\n",
		"Started", "State", "Fetched", "Unique", "Scored", "Passed", "Analyzed", "Recorded")
	fmt.Println(strings.Repeat("-", 82))
	for _, r := range runs {
		c := r.Counts
		fmt.Printf("%-16s  %-8s  %7d  %6d  %6d  %6d  %8d  %8d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.State,
			c.Fetched, c.Unique, c.Scored, c.Passed, c.Analyzed, c.Recorded)
	}
	return nil
}

func init() {
	historyCmd.Flags().String("check", "", "dedup key or title fragment to look up")
	historyCmd.Flags().Int("runs", 10, "number of recent runs to list")

	rootCmd.AddCommand(historyCmd)
}
