// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule until interrupted",
	Long: `Schedule keeps the process running and starts a pipeline run at every
time matched by the cron expression (standard five-field syntax, local time).
A run that is still in progress when the next one is due is not overlapped;
the later run is skipped.`,
	RunE: runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	spec := cfg.Schedule
	if cmd.Flags().Changed("cron") {
		spec, _ = cmd.Flags().GetString("cron")
	}
	runNow, _ := cmd.Flags().GetBool("run-now")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs := &serialRunner{w: os.Stderr, run: func() {
		if ctx.Err() != nil {
			return
		}
		if err := runOnce(ctx, cfg, defaultRunOptions()); err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		}
	}}

	c := cron.New()
	id, err := c.AddFunc(spec, runs.Go)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	c.Start()
	fmt.Fprintf(os.Stderr, "scheduled %q, next run at %s\n", spec, c.Entry(id).Next.Format("2006-01-02 15:04"))

	if runNow {
		runs.Go()
	}

	<-ctx.Done()
	fmt.Fprintln(os.Stderr, "stopping scheduler...")
	<-c.Stop().Done()
	runs.Wait()
	return nil
}

// serialRunner starts run in the background at most once at a time. A start
// requested while a run is in progress is skipped.
type serialRunner struct {
	mu      sync.Mutex
	running sync.WaitGroup
	run     func()
	w       io.Writer
}

// Go starts a run in a new goroutine.
func (s *serialRunner) Go() {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.Run()
	}()
}

// Run runs in the calling goroutine unless a run is already in progress.
func (s *serialRunner) Run() {
	if !s.mu.TryLock() {
		fmt.Fprintln(s.w, "warning: previous run still in progress, skipping")
		return
	}
	defer s.mu.Unlock()
	s.run()
}

// Wait blocks until every started run has returned.
func (s *serialRunner) Wait() {
	s.running.Wait()
}

func init() {
	scheduleCmd.Flags().String("cron", "", "cron expression (overrides schedule in config)")
	scheduleCmd.Flags().Bool("run-now", false, "start a run immediately in addition to the schedule")

	rootCmd.AddCommand(scheduleCmd)
}
