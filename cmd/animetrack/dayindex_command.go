package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"animetrack/internal/dayindex"
)

func newDayIndexCommand(ctx *commandContext) *cobra.Command {
	dayCmd := &cobra.Command{
		Use:   "dayindex",
		Short: "Inspect the weekday index used by the episode check",
	}
	var jsonOut bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the work ids listed under each weekday",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			idx, err := dayindex.NewStore(cfg.DayIndexPath(), nil).Load()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, idx)
			}
			today := dayindex.Today(time.Now())
			rows := make([][]string, 0, len(dayindex.Tokens))
			for _, day := range dayindex.Tokens {
				label := day
				if day == today {
					label += " *"
				}
				ids := make([]string, 0, len(idx[day]))
				for _, id := range idx[day] {
					ids = append(ids, strconv.FormatInt(id, 10))
				}
				rows = append(rows, []string{label, strconv.Itoa(len(ids)), strings.Join(ids, " ")})
			}
			out := cmd.OutOrStdout()
			if err := writeRows(out, []string{"Day", "Count", "Work IDs"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total entries: %d\n", idx.Count())
			return nil
		},
	}
	show.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	dayCmd.AddCommand(show)
	return dayCmd
}
