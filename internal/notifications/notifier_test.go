package notifications_test

import (
	"context"
	"errors"
	"testing"

	"animetrack/internal/catalog"
	"animetrack/internal/notifications"
	"animetrack/internal/testsupport"
)

type recordingSink struct {
	messages []notifications.Message
	failFor  string
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Deliver(_ context.Context, msg notifications.Message) error {
	if msg.Recipient == r.failFor {
		return errors.New("unreachable")
	}
	r.messages = append(r.messages, msg)
	return nil
}

type statusRecorder struct {
	finished []int64
}

func (s *statusRecorder) MarkFinished(_ context.Context, id int64) error {
	s.finished = append(s.finished, id)
	return nil
}

func subscribers(names ...string) []catalog.Subscriber {
	out := make([]catalog.Subscriber, 0, len(names))
	for i, name := range names {
		out = append(out, catalog.Subscriber{ID: int64(i + 1), Name: name})
	}
	return out
}

func newNotifier(sink notifications.Sink, status notifications.StatusWriter) *notifications.Notifier {
	return notifications.NewNotifier(sink, status, notifications.Options{
		SystemIdentity: "animetrack-bot",
		SiteURL:        "https://catalog.example/",
	}, nil)
}

func TestNotifyOncePerSubscriberOnAdvance(t *testing.T) {
	sink := &recordingSink{}
	n := newNotifier(sink, &statusRecorder{})
	work := &catalog.Work{ExternalID: 42, Title: "Two Words", Status: catalog.StatusAiring}

	count, err := n.NotifyIfAdvanced(context.Background(), work, testsupport.Int(5), testsupport.Int(6), subscribers("alice", "bob"))
	if err != nil {
		t.Fatalf("NotifyIfAdvanced returned error: %v", err)
	}
	if count != 2 || len(sink.messages) != 2 {
		t.Fatalf("expected 2 notifications, got count=%d messages=%d", count, len(sink.messages))
	}
	msg := sink.messages[0]
	if msg.Sender != "animetrack-bot" || msg.Recipient != "alice" {
		t.Fatalf("unexpected addressing: %#v", msg)
	}
	if msg.Verb != "Episode 6 of Two Words is now available!" {
		t.Fatalf("unexpected verb: %q", msg.Verb)
	}
	if msg.Description != "https://catalog.example/anime/42" {
		t.Fatalf("unexpected link: %q", msg.Description)
	}
}

func TestNotifySkipsUnchangedOrMissingEpisode(t *testing.T) {
	sink := &recordingSink{}
	n := newNotifier(sink, &statusRecorder{})
	work := &catalog.Work{ExternalID: 1, Title: "Show"}

	if count, _ := n.NotifyIfAdvanced(context.Background(), work, testsupport.Int(5), testsupport.Int(5), subscribers("alice")); count != 0 {
		t.Fatalf("expected no notification for unchanged episode, got %d", count)
	}
	if count, _ := n.NotifyIfAdvanced(context.Background(), work, testsupport.Int(5), nil, subscribers("alice")); count != 0 {
		t.Fatalf("expected no notification without a probe answer, got %d", count)
	}
	if len(sink.messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(sink.messages))
	}
}

func TestNotifyFirstObservation(t *testing.T) {
	sink := &recordingSink{}
	n := newNotifier(sink, &statusRecorder{})
	work := &catalog.Work{ExternalID: 1, Title: "Show"}

	count, err := n.NotifyIfAdvanced(context.Background(), work, nil, testsupport.Int(1), subscribers("alice"))
	if err != nil || count != 1 {
		t.Fatalf("expected one notification on first observation, got count=%d err=%v", count, err)
	}
}

func TestNotifyMarksFinishedAtTotal(t *testing.T) {
	sink := &recordingSink{}
	status := &statusRecorder{}
	n := newNotifier(sink, status)
	work := &catalog.Work{ExternalID: 7, Title: "Short Show", TotalEpisodes: testsupport.Int(12), Status: catalog.StatusAiring}

	if _, err := n.NotifyIfAdvanced(context.Background(), work, testsupport.Int(11), testsupport.Int(12), subscribers("alice")); err != nil {
		t.Fatalf("NotifyIfAdvanced returned error: %v", err)
	}
	if len(status.finished) != 1 || status.finished[0] != 7 {
		t.Fatalf("expected work 7 marked finished, got %v", status.finished)
	}
	if !work.IsFinished() {
		t.Fatalf("expected in-memory status finished, got %q", work.Status)
	}

	already := &catalog.Work{ExternalID: 8, Title: "Done", TotalEpisodes: testsupport.Int(3), Status: catalog.StatusFinished}
	if _, err := n.NotifyIfAdvanced(context.Background(), already, testsupport.Int(2), testsupport.Int(3), nil); err != nil {
		t.Fatalf("NotifyIfAdvanced returned error: %v", err)
	}
	if len(status.finished) != 1 {
		t.Fatalf("expected no second transition, got %v", status.finished)
	}
}

func TestNotifyContinuesAfterDeliveryFailure(t *testing.T) {
	sink := &recordingSink{failFor: "bob"}
	n := newNotifier(sink, nil)
	work := &catalog.Work{ExternalID: 1, Title: "Show"}

	count, err := n.NotifyIfAdvanced(context.Background(), work, testsupport.Int(1), testsupport.Int(2), subscribers("alice", "bob", "carol"))
	if err == nil {
		t.Fatal("expected joined delivery error")
	}
	if count != 2 {
		t.Fatalf("expected 2 deliveries, got %d", count)
	}
	if sink.messages[1].Recipient != "carol" {
		t.Fatalf("expected carol to be notified after bob failed, got %#v", sink.messages)
	}
}

func TestNotifyWritesInbox(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	n := newNotifier(notifications.NewSink(cfg, store, nil), store)
	work := &catalog.Work{ExternalID: 3, Title: "Show"}

	if _, err := n.NotifyIfAdvanced(context.Background(), work, nil, testsupport.Int(4), subscribers("alice")); err != nil {
		t.Fatalf("NotifyIfAdvanced returned error: %v", err)
	}
	inbox, err := store.Inbox(context.Background(), "alice", true)
	if err != nil {
		t.Fatalf("Inbox failed: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Episode != 4 || inbox[0].Sender != "animetrack-bot" {
		t.Fatalf("unexpected inbox: %#v", inbox)
	}
}
