package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"animetrack/internal/daemon"
	"animetrack/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: strings.TrimSpace(logLevel)})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's task status via its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.APIBind == "" {
				return fmt.Errorf("paths.api_bind is not set; the daemon exposes no status API")
			}
			status, err := fetchStatus(cmd, "http://"+cfg.Paths.APIBind+"/api/status")
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon: running=%s pid=%d\n", yesNo(status.Running), status.PID)
			fmt.Fprintf(out, "Catalog: %s\n", status.CatalogPath)
			rows := make([][]string, 0, len(status.Tasks))
			for _, task := range status.Tasks {
				last := "-"
				if !task.LastStarted.IsZero() {
					last = task.LastStarted.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					string(task.Task),
					yesNo(task.Running),
					last,
					fmt.Sprintf("%d/%d", task.Runs-task.Failures, task.Runs),
					task.LastSummary,
					task.LastError,
				})
			}
			return writeRows(out, []string{"Task", "Running", "Last Start", "OK/Runs", "Summary", "Error"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func fetchStatus(cmd *cobra.Command, url string) (daemon.Status, error) {
	var status daemon.Status
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return status, err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return status, fmt.Errorf("connect to daemon: %w; verify `animetrack daemon` is running", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("daemon returned %s", resp.Status)
	}
	if err := decodeJSON(resp.Body, &status); err != nil {
		return status, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
