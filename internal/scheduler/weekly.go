package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"animetrack/internal/logging"
	"animetrack/internal/reconcile"
)

// runWeekly fetches the schedule and reconciles it. A fetch failure leaves the
// catalog and day index untouched.
func (s *Scheduler) runWeekly(ctx context.Context) (reconcile.Report, error) {
	var report reconcile.Report
	err := s.cycle(TaskWeekly, func(logger *slog.Logger) (string, error) {
		logger.Info("fetching weekly schedule", logging.String(logging.FieldEventType, "schedule_fetch"))
		sched, err := s.deps.Fetcher.FetchWeeklySchedule(ctx)
		if err != nil {
			return "", fmt.Errorf("fetch schedule: %w", err)
		}
		logger.Debug("schedule fetched", logging.Int("descriptors", sched.Len()))

		report, err = s.deps.Reconciler.Reconcile(ctx, sched)
		summary := fmt.Sprintf("created=%d updated=%d failed=%d", report.Created, report.Updated, report.Failed)
		if err != nil {
			return summary, fmt.Errorf("reconcile: %w", err)
		}
		if report.Failed > 0 {
			logging.WarnWithContext(logger, "some works failed to reconcile", "reconcile_partial",
				logging.Int("failed", report.Failed),
				logging.Any("failed_ids", report.FailedIDs),
				logging.String(logging.FieldImpact, "failed works keep their previous catalog state"),
			)
		}
		return summary, nil
	})
	return report, err
}
