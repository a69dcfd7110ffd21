package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"animetrack/internal/catalog"
)

func newInboxCommand(ctx *commandContext) *cobra.Command {
	var all, markRead, jsonOut bool
	cmd := &cobra.Command{
		Use:   "inbox <subscriber>",
		Short: "List a subscriber's episode notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			return ctx.withStore(func(store *catalog.Store) error {
				notes, err := store.Inbox(cmd.Context(), name, !all)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					if err := writeJSON(cmd, notes); err != nil {
						return err
					}
				} else if len(notes) == 0 {
					fmt.Fprintln(out, "No notifications")
				} else {
					rows := make([][]string, 0, len(notes))
					for _, n := range notes {
						rows = append(rows, []string{
							n.CreatedAt.Local().Format(time.DateTime),
							strconv.FormatInt(n.WorkID, 10),
							n.Verb,
							n.Description,
							yesNo(n.Unread),
						})
					}
					if err := writeRows(out, []string{"When", "Work", "Message", "Link", "Unread"}, rows,
						[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft}); err != nil {
						return err
					}
				}
				if markRead {
					count, err := store.MarkRead(cmd.Context(), name)
					if err != nil {
						return err
					}
					if !jsonOut {
						fmt.Fprintf(out, "Marked %d notifications read\n", count)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include notifications already read")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "Mark listed notifications as read")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
