package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"animetrack/internal/daemonrun"
	"animetrack/internal/dayindex"
	"animetrack/internal/scheduler"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a scheduler task once",
	}
	syncCmd.AddCommand(newSyncScheduleCommand(ctx))
	syncCmd.AddCommand(newSyncEpisodesCommand(ctx))
	return syncCmd
}

func newSyncScheduleCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Fetch the weekly schedule and reconcile it into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, true, func(c *daemonrun.Components) error {
				report, err := c.Scheduler.RunWeekly(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reconciled %d works: %d created, %d updated, %d failed\n",
					report.Total(), report.Created, report.Updated, report.Failed)
				rows := make([][]string, 0, len(dayindex.Tokens))
				for _, day := range dayindex.Tokens {
					rows = append(rows, []string{day, strconv.Itoa(report.Days[day])})
				}
				return writeRows(out, []string{"Day", "Works"}, rows, []columnAlignment{alignLeft, alignRight})
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSyncEpisodesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "Check today's works for new episodes and notify subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, true, func(c *daemonrun.Components) error {
				report, err := c.Scheduler.RunFrequent(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: checked %d, advanced %d, unchanged %d, skipped %d, failed %d\n",
					report.Day, report.Checked, report.Advanced, report.Unchanged, report.Skipped, report.Failed)
				if len(report.Outcomes) == 0 {
					return nil
				}
				return writeRows(out, outcomeHeaders, outcomeRows(report.Outcomes), outcomeAligns)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

var (
	outcomeHeaders = []string{"ID", "Title", "Previous", "Episode", "Notified", "Outcome", "Error"}
	outcomeAligns  = []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}
)

func outcomeRows(outcomes []scheduler.WorkOutcome) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			strconv.FormatInt(o.WorkID, 10),
			o.Title,
			optionalInt(o.Previous),
			optionalInt(o.Episode),
			strconv.Itoa(o.Notified),
			o.Outcome,
			o.Error,
		})
	}
	return rows
}
