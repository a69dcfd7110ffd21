package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"animetrack/internal/daemonrun"
	"animetrack/internal/scheduler"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "probe <work-id>",
		Short: "Probe one work for its latest episode",
		Long: "Probe one work for its latest episode. Without --dry-run a new episode is " +
			"recorded and subscribers are notified, exactly as the scheduled check does.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid work id %q", args[0])
			}
			return ctx.withRuntime(cmd, !dryRun, func(c *daemonrun.Components) error {
				out := cmd.OutOrStdout()
				if dryRun {
					work, err := c.Store.GetWork(cmd.Context(), id)
					if err != nil {
						return err
					}
					result, err := c.Prober.ProbeLatest(cmd.Context(), work)
					if err != nil {
						return err
					}
					if !result.Found {
						fmt.Fprintf(out, "%s: no episode found (%d requests)\n", work.Title, result.Requests)
						return nil
					}
					fmt.Fprintf(out, "%s: latest episode %d at %s (stored %s, %d requests)\n",
						work.Title, result.Episode, result.EpisodeURL, optionalInt(work.LastEpisode), result.Requests)
					return nil
				}
				outcome, err := c.Scheduler.CheckWork(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeRows(out, outcomeHeaders, outcomeRows([]scheduler.WorkOutcome{outcome}), outcomeAligns)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the latest episode without recording or notifying")
	return cmd
}
