package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirvlasenkov/subreddit-insights/internal/scheduler"
)

var (
	watchRun      runOptions
	watchSchedule string
	watchTimezone string
	watchNow      bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <subreddit>",
	Short: "Regenerate the report on a cron schedule",
	Long: `watch keeps running and rebuilds the report every time the schedule fires,
overwriting the previous report. Stop it with Ctrl+C.

Schedules use the five-field cron format or descriptors:
  "0 7 * * *"     every day at 07:00
  "0 9 * * 1"     Mondays at 09:00
  "@every 6h"     every six hours`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	addRunFlags(watchCmd, &watchRun)
	watchCmd.Flags().StringVarP(&watchSchedule, "schedule", "s", "0 7 * * *", "cron schedule")
	watchCmd.Flags().StringVar(&watchTimezone, "timezone", "", "IANA timezone for the schedule (default local)")
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "also run once immediately")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := scheduler.Validate(watchSchedule); err != nil {
		return err
	}

	req, err := newRequest(args[0], watchRun, cfg.Fetch)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sched, err := scheduler.New(watchTimezone, logger)
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		res, err := a.Run(ctx, req)
		if err != nil {
			return explain(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", res.Path)
		return nil
	}

	name := "r/" + req.Subreddit
	if err := sched.AddJob(name, watchSchedule, job); err != nil {
		return err
	}

	if watchNow {
		sched.RunNow(name, job)
	}

	sched.Start()
	for _, j := range sched.ListJobs() {
		logger.Info("Next run scheduled", "job", j.Name, "at", j.NextRun)
	}

	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}
