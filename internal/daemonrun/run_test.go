package daemonrun_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"animetrack/internal/daemonrun"
	"animetrack/internal/metrics"
	"animetrack/internal/scheduler"
	"animetrack/internal/testsupport"
)

func scheduleServer(t *testing.T) *httptest.Server {
	t.Helper()
	today := strings.ToLower(time.Now().Weekday().String())
	days := map[string]string{}
	for _, d := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		days[d] = "[]"
	}
	days[today] = `[{"mal_id": 300, "title": "Tracked Show", "members": 40000, "episodes": 12,
		"airing_start": "2026-10-05T15:00:00+00:00", "producers": [], "genres": [{"name": "Comedy"}]}]`
	var b strings.Builder
	b.WriteString("{")
	i := 0
	for day, list := range days {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%q: %s", day, list)
		i++
	}
	b.WriteString("}")
	payload := b.String()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func episodeServer(t *testing.T, latest int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search.html" {
			fmt.Fprint(w, `<ul class="items"><li><a href="/category/tracked-show">Tracked Show</a></li></ul>`)
			return
		}
		for n := 1; n <= latest; n++ {
			if r.URL.Path == fmt.Sprintf("/tracked-show-episode-%d", n) {
				fmt.Fprintf(w, `<h1>Tracked Show Episode %d</h1>`, n)
				return
			}
		}
		fmt.Fprint(w, `<h1>404</h1>`)
	}))
	t.Cleanup(server.Close)
	return server
}

type ntfyRecorder struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (n *ntfyRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	n.mu.Lock()
	n.titles = append(n.titles, r.Header.Get("Title"))
	n.bodies = append(n.bodies, string(body))
	n.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func TestBuildRunsWeeklyThenFrequent(t *testing.T) {
	ntfy := &ntfyRecorder{}
	ntfyServer := httptest.NewServer(ntfy)
	t.Cleanup(ntfyServer.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithScheduleURL(scheduleServer(t).URL),
		testsupport.WithEpisodeSite(episodeServer(t, 3).URL),
		testsupport.WithNtfyTopic(ntfyServer.URL+"/anime"),
	)
	registry := metrics.New()
	components, err := daemonrun.Build(cfg, nil, registry)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { components.Close() })

	ctx := context.Background()
	report, err := components.Scheduler.RunWeekly(ctx)
	if err != nil {
		t.Fatalf("RunWeekly: %v", err)
	}
	if report.Created != 1 {
		t.Fatalf("expected one created work, got %+v", report)
	}
	if err := components.Store.Watch(ctx, "alice", 300); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	check, err := components.Scheduler.RunFrequent(ctx)
	if err != nil {
		t.Fatalf("RunFrequent: %v", err)
	}
	if check.Advanced != 1 {
		t.Fatalf("expected one advanced work, got %+v", check)
	}

	work, err := components.Store.GetWork(ctx, 300)
	if err != nil {
		t.Fatalf("GetWork: %v", err)
	}
	if work.LastEpisode == nil || *work.LastEpisode != 3 {
		t.Fatalf("expected last episode 3, got %v", work.LastEpisode)
	}
	if !strings.HasSuffix(work.LatestEpisodeURL, "/tracked-show-episode-3") {
		t.Fatalf("unexpected episode url %q", work.LatestEpisodeURL)
	}

	inbox, err := components.Store.Inbox(ctx, "alice", true)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Verb != "Episode 3 of Tracked Show is now available!" {
		t.Fatalf("unexpected inbox: %+v", inbox)
	}
	if inbox[0].Description != "http://animetrack.test/anime/300" {
		t.Fatalf("unexpected detail link %q", inbox[0].Description)
	}

	ntfy.mu.Lock()
	defer ntfy.mu.Unlock()
	if len(ntfy.bodies) != 1 || !strings.Contains(ntfy.bodies[0], "Episode 3 of Tracked Show") {
		t.Fatalf("unexpected ntfy deliveries: %v", ntfy.bodies)
	}
}

func TestBuildRejectsNilConfig(t *testing.T) {
	if _, err := daemonrun.Build(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

// gatedEpisodeServer holds search responses until `callers` searches arrived,
// so every runtime has read the work before any of them records an episode.
func gatedEpisodeServer(t *testing.T, latest, callers int) *httptest.Server {
	t.Helper()
	site := episodeServer(t, latest)
	var (
		mu      sync.Mutex
		arrived int
		release = make(chan struct{})
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search.html" {
			mu.Lock()
			arrived++
			if arrived == callers {
				close(release)
			}
			mu.Unlock()
			select {
			case <-release:
			case <-time.After(5 * time.Second):
			}
		}
		resp, err := http.Get(site.URL + r.URL.RequestURI())
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestConcurrentRuntimesNotifyOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithScheduleURL(scheduleServer(t).URL),
		testsupport.WithEpisodeSite(gatedEpisodeServer(t, 3, 2).URL),
	)
	ctx := context.Background()

	first, err := daemonrun.Build(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build first: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	second, err := daemonrun.Build(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build second: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	if _, err := first.Scheduler.RunWeekly(ctx); err != nil {
		t.Fatalf("RunWeekly: %v", err)
	}
	if err := first.Store.Watch(ctx, "alice", 300); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	var wg sync.WaitGroup
	var advanced, stale int
	var mu sync.Mutex
	for _, c := range []*daemonrun.Components{first, second} {
		wg.Add(1)
		go func(c *daemonrun.Components) {
			defer wg.Done()
			report, err := c.Scheduler.RunFrequent(ctx)
			if err != nil {
				t.Errorf("RunFrequent: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, o := range report.Outcomes {
				switch o.Outcome {
				case scheduler.OutcomeAdvanced:
					advanced++
				case scheduler.OutcomeStale:
					stale++
				}
			}
		}(c)
	}
	wg.Wait()

	if advanced != 1 || stale != 1 {
		t.Fatalf("expected one advanced and one stale outcome, got advanced=%d stale=%d", advanced, stale)
	}
	inbox, err := first.Store.Inbox(ctx, "alice", false)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("expected exactly one notification for the 0->3 transition, got %d: %+v", len(inbox), inbox)
	}
}
