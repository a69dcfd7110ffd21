package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animetrack/internal/catalog"
	"animetrack/internal/dayindex"
)

func newWorksCommand(ctx *commandContext) *cobra.Command {
	worksCmd := &cobra.Command{
		Use:   "works",
		Short: "Inspect the catalog",
	}
	worksCmd.AddCommand(newWorksListCommand(ctx))
	worksCmd.AddCommand(newWorksShowCommand(ctx))
	return worksCmd
}

func newWorksListCommand(ctx *commandContext) *cobra.Command {
	var day, status string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List works, optionally filtered by air day or status",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := catalog.WorkFilter{AirDay: strings.TrimSpace(day), Status: catalog.Status(strings.TrimSpace(status))}
			if filter.AirDay != "" && !dayindex.ValidToken(filter.AirDay) {
				return fmt.Errorf("invalid day %q (want one of %s)", filter.AirDay, strings.Join(dayindex.Tokens, ", "))
			}
			return ctx.withStore(func(store *catalog.Store) error {
				works, err := store.ListWorks(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, works)
				}
				if len(works) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No works found")
					return nil
				}
				return writeRows(cmd.OutOrStdout(), workHeaders, workRows(works), workAligns)
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "Filter by air day (Mon..Sun)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (airing, finished, upcoming)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newWorksShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <work-id>",
		Short: "Show one work as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid work id %q", args[0])
			}
			return ctx.withStore(func(store *catalog.Store) error {
				work, err := store.GetWork(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, work)
			})
		},
	}
}

var (
	workHeaders = []string{"ID", "Title", "Day", "Status", "Episode", "Total", "Members"}
	workAligns  = []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
)

func workRows(works []*catalog.Work) [][]string {
	rows := make([][]string, 0, len(works))
	for _, w := range works {
		rows = append(rows, []string{
			strconv.FormatInt(w.ExternalID, 10),
			w.Title,
			w.AirDay,
			string(w.Status),
			optionalInt(w.LastEpisode),
			optionalInt(w.TotalEpisodes),
			strconv.Itoa(w.Members),
		})
	}
	return rows
}
