package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animetrack/internal/catalog"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage subscriber watchlists",
	}

	watchCmd.AddCommand(&cobra.Command{
		Use:   "add <subscriber> <work-id>...",
		Short: "Add works to a subscriber's watchlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ids, err := watchArgs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *catalog.Store) error {
				for _, id := range ids {
					if err := store.Watch(cmd.Context(), name, id); err != nil {
						return fmt.Errorf("watch %d: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s now watches %d\n", name, id)
				}
				return nil
			})
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "remove <subscriber> <work-id>...",
		Short: "Remove works from a subscriber's watchlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ids, err := watchArgs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *catalog.Store) error {
				for _, id := range ids {
					removed, err := store.Unwatch(cmd.Context(), name, id)
					if err != nil {
						return fmt.Errorf("unwatch %d: %w", id, err)
					}
					if removed {
						fmt.Fprintf(cmd.OutOrStdout(), "%s no longer watches %d\n", name, id)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s was not watching %d\n", name, id)
					}
				}
				return nil
			})
		},
	})

	var jsonOut bool
	list := &cobra.Command{
		Use:   "list <subscriber>",
		Short: "List a subscriber's watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			return ctx.withStore(func(store *catalog.Store) error {
				works, err := store.Watchlist(cmd.Context(), name)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, works)
				}
				if len(works) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is not watching anything\n", name)
					return nil
				}
				return writeRows(cmd.OutOrStdout(), workHeaders, workRows(works), workAligns)
			})
		},
	}
	list.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	watchCmd.AddCommand(list)

	return watchCmd
}

func watchArgs(args []string) (string, []int64, error) {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return "", nil, fmt.Errorf("subscriber name is required")
	}
	ids := make([]int64, 0, len(args)-1)
	for _, raw := range args[1:] {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			return "", nil, fmt.Errorf("invalid work id %q", raw)
		}
		ids = append(ids, id)
	}
	return name, ids, nil
}
