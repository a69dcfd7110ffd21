package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"animetrack/internal/catalog"
	"animetrack/internal/dayindex"
	"animetrack/internal/episodes"
	"animetrack/internal/logging"
	"animetrack/internal/reconcile"
	"animetrack/internal/schedule"
)

// Task names a periodic task kind.
type Task string

const (
	TaskWeekly   Task = "weekly"
	TaskFrequent Task = "frequent"
)

// ErrBusy is returned when a task is triggered while it is already running.
var ErrBusy = errors.New("task already running")

// Catalog is the store surface used by the frequent task.
type Catalog interface {
	GetWork(ctx context.Context, externalID int64) (*catalog.Work, error)
	RecordEpisode(ctx context.Context, externalID int64, update catalog.EpisodeUpdate) error
	SubscribersWatching(ctx context.Context, workID int64) ([]catalog.Subscriber, error)
}

// DayIndexReader loads the persisted day index.
type DayIndexReader interface {
	Load() (dayindex.Index, error)
}

// Reconciler merges a fetched schedule into the catalog.
type Reconciler interface {
	Reconcile(ctx context.Context, sched schedule.Schedule) (reconcile.Report, error)
}

// Prober finds a work's latest episode.
type Prober interface {
	ProbeLatest(ctx context.Context, work *catalog.Work) (episodes.Result, error)
}

// Notifier announces episode advances.
type Notifier interface {
	NotifyIfAdvanced(ctx context.Context, work *catalog.Work, previous, next *int, subscribers []catalog.Subscriber) (int, error)
}

// Recorder receives cycle and per-work observations.
type Recorder interface {
	ObserveCycle(task string, elapsed time.Duration, err error)
	ObserveSkip(task string)
	ObserveWork(task, outcome string)
}

// Deps are the collaborators composed by the scheduler.
type Deps struct {
	Fetcher    schedule.Fetcher
	Reconciler Reconciler
	Catalog    Catalog
	DayIndex   DayIndexReader
	Prober     Prober
	Notifier   Notifier
	Metrics    Recorder
	Logger     *slog.Logger
}

// Options tune cadence and timeouts.
type Options struct {
	WeeklyInterval   time.Duration
	FrequentInterval time.Duration
	WorkTimeout      time.Duration
	RunOnStart       bool
	// Now overrides the clock used to pick today's day index entry.
	Now func() time.Time
}

// Scheduler runs the weekly and frequent tasks.
type Scheduler struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	running map[Task]bool
	status  map[Task]*TaskStatus
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New validates deps and fills option defaults.
func New(deps Deps, opts Options) (*Scheduler, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("scheduler: fetcher is required")
	case deps.Reconciler == nil:
		return nil, errors.New("scheduler: reconciler is required")
	case deps.Catalog == nil:
		return nil, errors.New("scheduler: catalog is required")
	case deps.DayIndex == nil:
		return nil, errors.New("scheduler: day index is required")
	case deps.Prober == nil:
		return nil, errors.New("scheduler: prober is required")
	case deps.Notifier == nil:
		return nil, errors.New("scheduler: notifier is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if opts.WeeklyInterval <= 0 {
		opts.WeeklyInterval = 7 * 24 * time.Hour
	}
	if opts.FrequentInterval <= 0 {
		opts.FrequentInterval = 5 * time.Minute
	}
	if opts.WorkTimeout <= 0 {
		opts.WorkTimeout = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		deps:    deps,
		opts:    opts,
		logger:  logging.NewComponentLogger(deps.Logger, "scheduler"),
		running: make(map[Task]bool, 2),
		status: map[Task]*TaskStatus{
			TaskWeekly:   {Task: TaskWeekly},
			TaskFrequent: {Task: TaskFrequent},
		},
	}, nil
}

// Start launches one ticker loop per task. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.wg.Add(2)
	go s.loop(runCtx, TaskWeekly, s.opts.WeeklyInterval)
	go s.loop(runCtx, TaskFrequent, s.opts.FrequentInterval)

	s.logger.Info("scheduler started",
		logging.Duration("weekly_interval", s.opts.WeeklyInterval),
		logging.Duration("frequent_interval", s.opts.FrequentInterval),
		logging.Bool("run_on_start", s.opts.RunOnStart),
	)
	return nil
}

// Stop cancels the loops and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, task Task, interval time.Duration) {
	defer s.wg.Done()

	if s.opts.RunOnStart {
		s.trigger(ctx, task)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx, task)
		}
	}
}

// trigger starts a run in the background unless one is already active.
func (s *Scheduler) trigger(ctx context.Context, task Task) {
	if !s.acquire(task) {
		s.deps.Metrics.ObserveSkip(string(task))
		s.logger.Info("skipping overlapping run",
			logging.String(logging.FieldTask, string(task)),
			logging.String(logging.FieldEventType, "cycle_skipped"),
		)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(task)
		var err error
		switch task {
		case TaskWeekly:
			_, err = s.runWeekly(ctx)
		case TaskFrequent:
			_, err = s.runFrequent(ctx)
		}
		if err != nil && ctx.Err() == nil {
			logging.ErrorWithContext(s.logger, "scheduled run failed", "cycle_failed",
				logging.String(logging.FieldTask, string(task)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the task retries on its next tick"),
			)
		}
	}()
}

// RunWeekly runs the weekly task now. It returns ErrBusy if it is already running.
func (s *Scheduler) RunWeekly(ctx context.Context) (reconcile.Report, error) {
	if !s.acquire(TaskWeekly) {
		return reconcile.Report{}, ErrBusy
	}
	defer s.release(TaskWeekly)
	return s.runWeekly(ctx)
}

// RunFrequent runs the frequent task now. It returns ErrBusy if it is already running.
func (s *Scheduler) RunFrequent(ctx context.Context) (CheckReport, error) {
	if !s.acquire(TaskFrequent) {
		return CheckReport{}, ErrBusy
	}
	defer s.release(TaskFrequent)
	return s.runFrequent(ctx)
}

func (s *Scheduler) acquire(task Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[task] {
		return false
	}
	s.running[task] = true
	return true
}

func (s *Scheduler) release(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, task)
}

// cycle wraps one run with a correlation id, timing, metrics and status. A
// panic inside run is recovered and reported as the cycle's error.
func (s *Scheduler) cycle(task Task, run func(logger *slog.Logger) (string, error)) error {
	cycleID := uuid.NewString()
	logger := s.logger.With(
		logging.String(logging.FieldTask, string(task)),
		logging.String(logging.FieldCycleID, cycleID),
	)
	started := time.Now()
	s.recordStart(task, cycleID, started)

	var (
		summary string
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() { summary, err = run(logger) })
	if recovered := catcher.Recovered(); recovered != nil {
		err = recovered.AsError()
	}
	elapsed := time.Since(started)
	s.deps.Metrics.ObserveCycle(string(task), elapsed, err)
	s.recordFinish(task, elapsed, summary, err)

	if err == nil {
		logger.Info("cycle complete",
			logging.String(logging.FieldEventType, "cycle_complete"),
			logging.Duration("elapsed", elapsed),
			logging.String("summary", summary),
		)
		return nil
	}
	return fmt.Errorf("%s cycle %s: %w", task, cycleID, err)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCycle(string, time.Duration, error) {}
func (nopRecorder) ObserveSkip(string)                         {}
func (nopRecorder) ObserveWork(string, string)                 {}
