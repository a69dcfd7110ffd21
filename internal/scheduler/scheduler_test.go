package scheduler_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"animetrack/internal/catalog"
	"animetrack/internal/dayindex"
	"animetrack/internal/episodes"
	"animetrack/internal/notifications"
	"animetrack/internal/reconcile"
	"animetrack/internal/schedule"
	"animetrack/internal/scheduler"
	"animetrack/internal/testsupport"
)

// 2026-10-19 is a Monday.
var monday = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeProber struct {
	mu      sync.Mutex
	latest  map[int64]int
	errs    map[int64]error
	calls   []int64
	hang    map[int64]bool
	block   chan struct{}
	entered chan struct{}
}

func (p *fakeProber) ProbeLatest(ctx context.Context, work *catalog.Work) (episodes.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, work.ExternalID)
	block, entered := p.block, p.entered
	hang := p.hang[work.ExternalID]
	p.mu.Unlock()
	if hang {
		<-ctx.Done()
		return episodes.Result{}, ctx.Err()
	}
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return episodes.Result{}, ctx.Err()
		}
	}
	if err := p.errs[work.ExternalID]; err != nil {
		return episodes.Result{}, err
	}
	ep, ok := p.latest[work.ExternalID]
	if !ok {
		return episodes.Result{}, nil
	}
	return episodes.Result{Found: true, Episode: ep, EpisodeURL: "https://site.test/show-episode-" + strconv.Itoa(ep)}, nil
}

type recordingSink struct {
	mu       sync.Mutex
	messages []notifications.Message
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Deliver(_ context.Context, msg notifications.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

type stubFetcher struct {
	sched schedule.Schedule
	err   error
	calls int
}

func (f *stubFetcher) FetchWeeklySchedule(context.Context) (schedule.Schedule, error) {
	f.calls++
	return f.sched, f.err
}

type stubReconciler struct {
	calls int
}

func (r *stubReconciler) Reconcile(context.Context, schedule.Schedule) (reconcile.Report, error) {
	r.calls++
	return reconcile.Report{Created: 1}, nil
}

type harness struct {
	store   *catalog.Store
	index   *dayindex.Store
	prober  *fakeProber
	sink    *recordingSink
	fetcher *stubFetcher
	recon   *stubReconciler
	sched   *scheduler.Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		store:   testsupport.MustOpenStore(t, cfg),
		index:   dayindex.NewStore(cfg.DayIndexPath(), nil),
		prober:  &fakeProber{latest: map[int64]int{}, errs: map[int64]error{}},
		sink:    &recordingSink{},
		fetcher: &stubFetcher{},
		recon:   &stubReconciler{},
	}
	notifier := notifications.NewNotifier(h.sink, h.store, notifications.Options{
		SystemIdentity: "animetrack",
		SiteURL:        "http://animetrack.test",
	}, nil)
	s, err := scheduler.New(scheduler.Deps{
		Fetcher:    h.fetcher,
		Reconciler: h.recon,
		Catalog:    h.store,
		DayIndex:   h.index,
		Prober:     h.prober,
		Notifier:   notifier,
	}, scheduler.Options{
		WeeklyInterval:   time.Hour,
		FrequentInterval: time.Hour,
		WorkTimeout:      5 * time.Second,
		Now:              func() time.Time { return monday },
	})
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	h.sched = s
	return h
}

func (h *harness) seed(t *testing.T, id int64, title string, total *int, last int) {
	t.Helper()
	testsupport.SeedWork(t, h.store, catalog.WorkInput{
		ExternalID:    id,
		Title:         title,
		TotalEpisodes: total,
		AirDay:        "Mon",
		Members:       20000,
	})
	if last > 0 {
		testsupport.SeedEpisode(t, h.store, id, last)
	}
}

func (h *harness) listToday(t *testing.T, ids ...int64) {
	t.Helper()
	idx := dayindex.New()
	idx["Mon"] = ids
	if err := h.index.Save(idx); err != nil {
		t.Fatalf("save index: %v", err)
	}
}

func (h *harness) watch(t *testing.T, id int64, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := h.store.Watch(context.Background(), name, id); err != nil {
			t.Fatalf("watch %s %d: %v", name, id, err)
		}
	}
}

func TestRunFrequentRecordsAndNotifiesOncePerSubscriber(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "Alpha", testsupport.Int(12), 5)
	h.listToday(t, 1)
	h.watch(t, 1, "alice", "bob")
	h.prober.latest[1] = 6

	report, err := h.sched.RunFrequent(context.Background())
	if err != nil {
		t.Fatalf("RunFrequent returned error: %v", err)
	}
	if report.Day != "Mon" || report.Advanced != 1 || report.Checked != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	work, err := h.store.GetWork(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetWork: %v", err)
	}
	if work.LastEpisode == nil || *work.LastEpisode != 6 {
		t.Fatalf("expected last episode 6, got %v", work.LastEpisode)
	}
	if work.LatestEpisodeURL != "https://site.test/show-episode-6" {
		t.Fatalf("unexpected episode url: %q", work.LatestEpisodeURL)
	}
	if len(h.sink.messages) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(h.sink.messages))
	}
	if h.sink.messages[0].Recipient != "alice" || h.sink.messages[1].Recipient != "bob" {
		t.Fatalf("unexpected recipients: %+v", h.sink.messages)
	}
	if h.sink.messages[0].Verb != "Episode 6 of Alpha is now available!" {
		t.Fatalf("unexpected verb: %q", h.sink.messages[0].Verb)
	}

	// A second run with nothing new sends nothing.
	report, err = h.sched.RunFrequent(context.Background())
	if err != nil {
		t.Fatalf("second RunFrequent returned error: %v", err)
	}
	if report.Unchanged != 1 || len(h.sink.messages) != 2 {
		t.Fatalf("expected no new notifications, report=%+v messages=%d", report, len(h.sink.messages))
	}
}

func TestRunFrequentIsolatesFailures(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "Broken", nil, 0)
	h.seed(t, 2, "Unlisted", nil, 0)
	h.seed(t, 3, "Healthy", nil, 2)
	h.listToday(t, 1, 99, 2, 3)
	h.watch(t, 3, "carol")
	h.prober.errs[1] = errors.New("connection reset")
	h.prober.errs[2] = episodes.ErrResolutionFailed
	h.prober.latest[3] = 3

	report, err := h.sched.RunFrequent(context.Background())
	if err != nil {
		t.Fatalf("RunFrequent returned error: %v", err)
	}
	if report.Checked != 4 || report.Failed != 2 || report.Skipped != 1 || report.Advanced != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	want := []string{scheduler.OutcomeFailed, scheduler.OutcomeMissing, scheduler.OutcomeUnresolved, scheduler.OutcomeAdvanced}
	for i, outcome := range report.Outcomes {
		if outcome.Outcome != want[i] {
			t.Fatalf("outcome %d: got %q want %q", i, outcome.Outcome, want[i])
		}
	}
	broken, _ := h.store.GetWork(context.Background(), 1)
	if broken.LastEpisode != nil {
		t.Fatalf("failed probe must not write, got %v", *broken.LastEpisode)
	}
	if len(h.sink.messages) != 1 || h.sink.messages[0].Recipient != "carol" {
		t.Fatalf("unexpected messages: %+v", h.sink.messages)
	}
}

func TestRunFrequentMarksFinishedAndSkipsAfterwards(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 7, "Short", testsupport.Int(3), 2)
	h.listToday(t, 7)
	h.watch(t, 7, "dave")
	h.prober.latest[7] = 3

	if _, err := h.sched.RunFrequent(context.Background()); err != nil {
		t.Fatalf("RunFrequent returned error: %v", err)
	}
	work, _ := h.store.GetWork(context.Background(), 7)
	if !work.IsFinished() {
		t.Fatalf("expected finished status, got %q", work.Status)
	}
	if len(h.sink.messages) != 1 {
		t.Fatalf("expected final episode notification, got %d", len(h.sink.messages))
	}

	report, err := h.sched.RunFrequent(context.Background())
	if err != nil {
		t.Fatalf("second RunFrequent returned error: %v", err)
	}
	if report.Skipped != 1 || report.Outcomes[0].Outcome != scheduler.OutcomeFinished {
		t.Fatalf("expected finished work skipped, got %+v", report)
	}
	if len(h.prober.calls) != 1 {
		t.Fatalf("finished work must not be probed again, calls=%v", h.prober.calls)
	}
}

func TestRunFrequentIgnoresOtherDays(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "Tuesday Show", nil, 0)
	idx := dayindex.New()
	idx["Tue"] = []int64{1}
	if err := h.index.Save(idx); err != nil {
		t.Fatalf("save index: %v", err)
	}
	report, err := h.sched.RunFrequent(context.Background())
	if err != nil {
		t.Fatalf("RunFrequent returned error: %v", err)
	}
	if report.Checked != 0 || len(h.prober.calls) != 0 {
		t.Fatalf("expected nothing checked on Monday, got %+v", report)
	}
}

func TestRunFrequentIsSingleFlight(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "Slow", nil, 0)
	h.listToday(t, 1)
	h.prober.block = make(chan struct{})
	h.prober.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.sched.RunFrequent(context.Background())
		done <- err
	}()
	<-h.prober.entered

	if _, err := h.sched.RunFrequent(context.Background()); !errors.Is(err, scheduler.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if _, err := h.sched.CheckWork(context.Background(), 1); !errors.Is(err, scheduler.ErrBusy) {
		t.Fatalf("expected ErrBusy from CheckWork, got %v", err)
	}
	// The weekly task has its own slot.
	if _, err := h.sched.RunWeekly(context.Background()); err != nil {
		t.Fatalf("RunWeekly during frequent run: %v", err)
	}

	close(h.prober.block)
	if err := <-done; err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	for _, st := range h.sched.Status() {
		if st.Running {
			t.Fatalf("task %s still marked running", st.Task)
		}
	}
}

func TestRunWeeklyFetchFailureSkipsReconcile(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = schedule.ErrUpstreamUnavailable

	_, err := h.sched.RunWeekly(context.Background())
	if !errors.Is(err, schedule.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if h.recon.calls != 0 {
		t.Fatalf("reconcile must not run after a failed fetch")
	}
	status := h.sched.Status()[0]
	if status.Task != scheduler.TaskWeekly || status.Failures != 1 || status.LastError == "" {
		t.Fatalf("unexpected weekly status: %+v", status)
	}
}

func TestCheckWorkProbesSingleWork(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 4, "Manual", nil, 1)
	h.prober.latest[4] = 2

	outcome, err := h.sched.CheckWork(context.Background(), 4)
	if err != nil {
		t.Fatalf("CheckWork returned error: %v", err)
	}
	if outcome.Outcome != scheduler.OutcomeAdvanced || outcome.Episode == nil || *outcome.Episode != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if *outcome.Previous != 1 {
		t.Fatalf("unexpected previous: %v", *outcome.Previous)
	}
}

func TestStartRunsOnStartAndStops(t *testing.T) {
	h := newHarness(t)
	s, err := scheduler.New(scheduler.Deps{
		Fetcher:    h.fetcher,
		Reconciler: h.recon,
		Catalog:    h.store,
		DayIndex:   h.index,
		Prober:     h.prober,
		Notifier:   notifications.NewNotifier(h.sink, h.store, notifications.Options{}, nil),
	}, scheduler.Options{
		WeeklyInterval:   time.Hour,
		FrequentInterval: time.Hour,
		RunOnStart:       true,
		Now:              func() time.Time { return monday },
	})
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := s.Status()
		if st[0].Runs == 1 && st[1].Runs == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("runs on start did not complete: %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()
	if h.fetcher.calls != 1 || h.recon.calls != 1 {
		t.Fatalf("expected one weekly run, fetch=%d reconcile=%d", h.fetcher.calls, h.recon.calls)
	}
}

type panicFetcher struct{}

func (panicFetcher) FetchWeeklySchedule(context.Context) (schedule.Schedule, error) {
	panic("schedule decoder exploded")
}

type cycleRecorder struct {
	cycles chan error
}

func (r *cycleRecorder) ObserveCycle(task string, _ time.Duration, err error) {
	if task == string(scheduler.TaskWeekly) {
		r.cycles <- err
	}
}
func (r *cycleRecorder) ObserveSkip(string)         {}
func (r *cycleRecorder) ObserveWork(string, string) {}

func TestScheduledRunRecoversFromPanic(t *testing.T) {
	h := newHarness(t)
	rec := &cycleRecorder{cycles: make(chan error, 1)}
	s, err := scheduler.New(scheduler.Deps{
		Fetcher:    panicFetcher{},
		Reconciler: h.recon,
		Catalog:    h.store,
		DayIndex:   h.index,
		Prober:     h.prober,
		Notifier:   notifications.NewNotifier(h.sink, h.store, notifications.Options{}, nil),
		Metrics:    rec,
	}, scheduler.Options{
		WeeklyInterval:   time.Hour,
		FrequentInterval: time.Hour,
		RunOnStart:       true,
		Now:              func() time.Time { return monday },
	})
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	select {
	case err := <-rec.cycles:
		if err == nil {
			t.Fatal("expected panicking cycle to be recorded as failed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("weekly cycle was not observed")
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Status()[0].Running {
		if time.Now().After(deadline) {
			t.Fatal("weekly slot was not released after panic")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := s.RunWeekly(context.Background()); err == nil {
		t.Fatal("expected manual run to fail through the recovered path")
	}
}

func TestRunFrequentTimesOutSlowWorkAndContinues(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "Stuck", testsupport.Int(12), 2)
	h.seed(t, 2, "Healthy", testsupport.Int(12), 4)
	h.listToday(t, 1, 2)
	h.watch(t, 1, "alice")
	h.watch(t, 2, "alice")
	h.prober.hang = map[int64]bool{1: true}
	h.prober.latest[1] = 3
	h.prober.latest[2] = 5

	s, err := scheduler.New(scheduler.Deps{
		Fetcher:    h.fetcher,
		Reconciler: h.recon,
		Catalog:    h.store,
		DayIndex:   h.index,
		Prober:     h.prober,
		Notifier: notifications.NewNotifier(h.sink, h.store, notifications.Options{
			SystemIdentity: "animetrack",
			SiteURL:        "http://animetrack.test",
		}, nil),
	}, scheduler.Options{
		WeeklyInterval:   time.Hour,
		FrequentInterval: time.Hour,
		WorkTimeout:      50 * time.Millisecond,
		Now:              func() time.Time { return monday },
	})
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}

	report, err := s.RunFrequent(context.Background())
	if err != nil {
		t.Fatalf("RunFrequent returned error: %v", err)
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected two outcomes, got %+v", report.Outcomes)
	}
	if got := report.Outcomes[0]; got.WorkID != 1 || got.Outcome != scheduler.OutcomeTimeout {
		t.Fatalf("expected work 1 to time out, got %+v", got)
	}
	if got := report.Outcomes[1]; got.WorkID != 2 || got.Outcome != scheduler.OutcomeAdvanced {
		t.Fatalf("expected work 2 to advance, got %+v", got)
	}
	if report.Failed != 1 || report.Advanced != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}

	stuck, err := h.store.GetWork(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetWork 1: %v", err)
	}
	if stuck.LastEpisode == nil || *stuck.LastEpisode != 2 {
		t.Fatalf("timed out work must keep episode 2, got %v", stuck.LastEpisode)
	}
	if len(h.sink.messages) != 1 || h.sink.messages[0].Verb != "Episode 5 of Healthy is now available!" {
		t.Fatalf("expected one notification for the healthy work, got %+v", h.sink.messages)
	}
}
