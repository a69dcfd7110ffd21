package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"animetrack/internal/catalog"
	"animetrack/internal/dayindex"
	"animetrack/internal/episodes"
	"animetrack/internal/logging"
)

// Per-work outcomes of the frequent task.
const (
	OutcomeAdvanced   = "advanced"
	OutcomeUnchanged  = "unchanged"
	OutcomeFinished   = "finished"
	OutcomeMissing    = "missing"
	OutcomeStale      = "stale"
	OutcomeUnresolved = "unresolved"
	OutcomeTimeout    = "timeout"
	OutcomeFailed     = "failed"
)

// WorkOutcome describes what happened to one work during a check.
type WorkOutcome struct {
	WorkID   int64  `json:"work_id"`
	Title    string `json:"title,omitempty"`
	Previous *int   `json:"previous"`
	Episode  *int   `json:"episode"`
	Notified int    `json:"notified"`
	Outcome  string `json:"outcome"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// CheckReport summarizes one frequent run.
type CheckReport struct {
	Day       string        `json:"day"`
	Checked   int           `json:"checked"`
	Advanced  int           `json:"advanced"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Outcomes  []WorkOutcome `json:"outcomes"`
}

func (r *CheckReport) add(o WorkOutcome) {
	r.Checked++
	switch o.Outcome {
	case OutcomeAdvanced:
		r.Advanced++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeFinished, OutcomeMissing, OutcomeStale:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

func (r CheckReport) summary() string {
	return fmt.Sprintf("day=%s checked=%d advanced=%d unchanged=%d skipped=%d failed=%d",
		r.Day, r.Checked, r.Advanced, r.Unchanged, r.Skipped, r.Failed)
}

// runFrequent checks every work listed for today. One work's failure never
// stops the others.
func (s *Scheduler) runFrequent(ctx context.Context) (CheckReport, error) {
	report := CheckReport{Day: dayindex.Today(s.opts.Now())}
	err := s.cycle(TaskFrequent, func(logger *slog.Logger) (string, error) {
		idx, err := s.deps.DayIndex.Load()
		if err != nil {
			return "", fmt.Errorf("load day index: %w", err)
		}
		ids := idx[report.Day]
		logger.Info("checking today's works",
			logging.String(logging.FieldEventType, "episode_check"),
			logging.String("day", report.Day),
			logging.Int("works", len(ids)),
		)
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return report.summary(), err
			}
			outcome := s.checkWork(ctx, logger, id)
			s.deps.Metrics.ObserveWork(string(TaskFrequent), outcome.Outcome)
			report.add(outcome)
		}
		return report.summary(), nil
	})
	return report, err
}

// CheckWork runs the frequent task's per-work step for a single work outside
// the schedule. It shares the frequent task's single-flight slot.
func (s *Scheduler) CheckWork(ctx context.Context, workID int64) (WorkOutcome, error) {
	if !s.acquire(TaskFrequent) {
		return WorkOutcome{WorkID: workID}, ErrBusy
	}
	defer s.release(TaskFrequent)
	outcome := s.checkWork(ctx, s.logger, workID)
	s.deps.Metrics.ObserveWork(string(TaskFrequent), outcome.Outcome)
	return outcome, outcome.Err
}

func (s *Scheduler) checkWork(ctx context.Context, logger *slog.Logger, workID int64) WorkOutcome {
	workCtx, cancel := context.WithTimeout(ctx, s.opts.WorkTimeout)
	defer cancel()
	logger = logging.ForWork(logger, workID)
	out := WorkOutcome{WorkID: workID}

	work, err := s.deps.Catalog.GetWork(workCtx, workID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			out.Outcome = OutcomeMissing
			logging.WarnWithContext(logger, "day index references unknown work", "work_missing",
				logging.String(logging.FieldErrorHint, "run the weekly sync to rebuild the day index"),
				logging.String(logging.FieldImpact, "work skipped this cycle"),
			)
			return out
		}
		return s.failed(logger, out, err, "load work")
	}
	out.Title = work.Title
	out.Previous = work.LastEpisode
	out.Episode = work.LastEpisode
	if work.IsFinished() {
		out.Outcome = OutcomeFinished
		logger.Debug("work finished; skipping")
		return out
	}

	result, err := s.deps.Prober.ProbeLatest(workCtx, work)
	if err != nil {
		return s.failed(logger, out, err, "probe")
	}
	if !result.Found || (work.LastEpisode != nil && *work.LastEpisode == result.Episode) {
		out.Outcome = OutcomeUnchanged
		logger.Debug("no new episode", logging.Int("requests", result.Requests))
		return out
	}

	subscribers, err := s.deps.Catalog.SubscribersWatching(workCtx, workID)
	if err != nil {
		return s.failed(logger, out, err, "load subscribers")
	}

	next := result.Episode
	finished := work.TotalEpisodes != nil && next == *work.TotalEpisodes
	if err := s.deps.Catalog.RecordEpisode(workCtx, workID, catalog.EpisodeUpdate{
		Previous:   work.LastEpisode,
		Episode:    next,
		EpisodeURL: result.EpisodeURL,
		Finished:   finished,
	}); err != nil {
		if errors.Is(err, catalog.ErrStale) {
			out.Outcome = OutcomeStale
			logger.Info("episode already recorded by another writer; not notifying",
				logging.String(logging.FieldEventType, "episode_stale"),
				logging.Int("episode", next),
			)
			return out
		}
		return s.failed(logger, out, err, "record episode")
	}
	work.LastEpisode = &next
	work.LatestEpisodeURL = result.EpisodeURL
	if finished {
		work.Status = catalog.StatusFinished
	}
	out.Episode = &next
	out.Outcome = OutcomeAdvanced

	logger.Info("new episode recorded",
		logging.String(logging.FieldEventType, "episode_advanced"),
		logging.Int("episode", next),
		logging.Bool("finished", finished),
		logging.Int("subscribers", len(subscribers)),
	)

	delivered, err := s.deps.Notifier.NotifyIfAdvanced(workCtx, work, out.Previous, &next, subscribers)
	out.Notified = delivered
	if err != nil {
		logging.WarnWithContext(logger, "notification delivery incomplete", "notify_partial",
			logging.Error(err),
			logging.Int("delivered", delivered),
			logging.String(logging.FieldImpact, "episode recorded; undelivered notifications are not retried"),
		)
	}
	return out
}

func (s *Scheduler) failed(logger *slog.Logger, out WorkOutcome, err error, step string) WorkOutcome {
	out.Err = fmt.Errorf("%s work %d: %w", step, out.WorkID, err)
	out.Error = out.Err.Error()
	switch {
	case errors.Is(err, episodes.ErrResolutionFailed):
		out.Outcome = OutcomeUnresolved
	case errors.Is(err, context.DeadlineExceeded):
		out.Outcome = OutcomeTimeout
	default:
		out.Outcome = OutcomeFailed
	}
	logging.WarnWithContext(logger, "work check failed", "work_"+out.Outcome,
		logging.String("step", step),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the work is retried on the next frequent cycle"),
		logging.String(logging.FieldImpact, "work state unchanged"),
	)
	return out
}
