package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"animetrack/internal/catalog"
	"animetrack/internal/dayindex"
	"animetrack/internal/logging"
	"animetrack/internal/schedule"
)

// WorkStore is the catalog surface the reconciler writes through.
type WorkStore interface {
	UpsertWork(ctx context.Context, in catalog.WorkInput) (catalog.UpsertResult, error)
}

// IndexWriter persists the rebuilt day index.
type IndexWriter interface {
	Save(idx dayindex.Index) error
}

// Report summarizes one reconciliation.
type Report struct {
	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
	Failed    int            `json:"failed"`
	FailedIDs []int64        `json:"failed_ids,omitempty"`
	Days      map[string]int `json:"days"`
}

// Total returns the number of descriptors processed.
func (r Report) Total() int {
	return r.Created + r.Updated + r.Failed
}

// Reconciler merges schedules into the catalog.
type Reconciler struct {
	store  WorkStore
	index  IndexWriter
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Reconciler.
func New(store WorkStore, index IndexWriter, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		index:  index,
		logger: logging.NewComponentLogger(logger, "reconciler"),
		now:    time.Now,
	}
}

// WithClock overrides the clock used to tell upcoming works from airing ones.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// Reconcile upserts every descriptor and then replaces the day index with
// one built from the works written in this pass. Cancellation stops before
// the index is touched.
func (r *Reconciler) Reconcile(ctx context.Context, sched schedule.Schedule) (Report, error) {
	report := Report{Days: make(map[string]int, len(dayindex.Tokens))}
	var entries []dayindex.Entry

	for _, entry := range sched.Entries() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		token := DayToken(entry.Weekday)
		in := workInput(entry.Descriptor, token, r.now())
		logger := logging.ForWork(r.logger, in.ExternalID)

		result, err := r.store.UpsertWork(ctx, in)
		if err != nil {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, in.ExternalID)
			logging.WarnWithContext(logger, "work upsert failed", "reconcile_work_failed",
				logging.String("title", in.Title),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the upstream descriptor and catalog database"),
				logging.String(logging.FieldImpact, "work keeps its previous catalog state and is left out of the day index"),
			)
			continue
		}
		if result.Created {
			report.Created++
			logger.Debug("work created", logging.String("title", in.Title), logging.String("day", token))
		} else {
			report.Updated++
		}
		entries = append(entries, dayindex.Entry{Day: token, WorkID: in.ExternalID})
	}

	idx := dayindex.Build(entries)
	for _, token := range dayindex.Tokens {
		report.Days[token] = len(idx[token])
	}
	if err := r.index.Save(idx); err != nil {
		return report, fmt.Errorf("save day index: %w", err)
	}

	r.logger.Info("schedule reconciled",
		logging.String(logging.FieldEventType, "reconcile_complete"),
		logging.Int("created", report.Created),
		logging.Int("updated", report.Updated),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}

func workInput(d schedule.WorkDescriptor, day string, now time.Time) catalog.WorkInput {
	total := d.Episodes
	if total != nil && *total <= 0 {
		total = nil
	}
	return catalog.WorkInput{
		ExternalID:    d.MalID,
		Title:         d.Title,
		Type:          d.Type,
		Source:        d.Source,
		URL:           d.URL,
		ImageURL:      d.ImageURL,
		Synopsis:      d.Synopsis,
		TotalEpisodes: total,
		Status:        statusAt(d.AiringStart, now),
		AirDay:        day,
		Members:       d.Members,
		Score:         d.Score,
		Season:        SeasonFor(d.AiringStart),
		Genres:        schedule.Names(d.Genres),
		Studios:       schedule.Names(d.Producers),
	}
}

// statusAt reports a work as upcoming until its first broadcast and airing
// afterwards. Missing or unparsable start dates count as airing.
func statusAt(airingStart string, now time.Time) catalog.Status {
	start, ok := parseAiringStart(airingStart)
	if ok && start.After(now) {
		return catalog.StatusUpcoming
	}
	return catalog.StatusAiring
}

func parseAiringStart(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
