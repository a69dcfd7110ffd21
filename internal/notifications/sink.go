package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"animetrack/internal/catalog"
	"animetrack/internal/config"
	"animetrack/internal/logging"
)

const userAgent = "animetrack/0.1"

// Message is one notification addressed to one subscriber.
type Message struct {
	Sender      string
	Recipient   string
	Verb        string
	Description string
	WorkID      int64
	WorkTitle   string
	Episode     int
}

// Sink delivers messages.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// InboxWriter stores inbox messages.
type InboxWriter interface {
	AddNotification(ctx context.Context, n catalog.Notification) (int64, error)
}

// NewSink builds the configured sink: the inbox, plus ntfy when a topic is set.
func NewSink(cfg *config.Config, inbox InboxWriter, logger *slog.Logger) Sink {
	inboxSink := NewInboxSink(inbox)
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return inboxSink
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	return NewMulti(logger, inboxSink, NewNtfySink(cfg.Notifications.NtfyTopic, &http.Client{Timeout: timeout}))
}

// InboxSink writes messages to the catalog notifications table.
type InboxSink struct {
	store InboxWriter
}

// NewInboxSink wraps a catalog store.
func NewInboxSink(store InboxWriter) *InboxSink {
	return &InboxSink{store: store}
}

func (s *InboxSink) Name() string { return "inbox" }

func (s *InboxSink) Deliver(ctx context.Context, msg Message) error {
	if s == nil || s.store == nil {
		return errors.New("inbox sink has no store")
	}
	_, err := s.store.AddNotification(ctx, catalog.Notification{
		Sender:      msg.Sender,
		Recipient:   msg.Recipient,
		Verb:        msg.Verb,
		Description: msg.Description,
		WorkID:      msg.WorkID,
		Episode:     msg.Episode,
	})
	return err
}

// NtfySink publishes messages to an ntfy topic URL. The topic is shared by
// every subscriber, so one episode change is pushed once no matter how many
// recipients the Notifier addresses.
type NtfySink struct {
	endpoint string
	client   *http.Client

	mu     sync.Mutex
	pushed map[int64]int
}

// NewNtfySink creates a sink for the topic. A nil client gets a 10s timeout.
func NewNtfySink(topic string, client *http.Client) *NtfySink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NtfySink{endpoint: strings.TrimSpace(topic), client: client, pushed: make(map[int64]int)}
}

func (s *NtfySink) Name() string { return "ntfy" }

// Deliver posts msg unless the same work and episode already went out.
// A failed post is forgotten so the next recipient's delivery retries it.
func (s *NtfySink) Deliver(ctx context.Context, msg Message) error {
	if !s.claim(msg.WorkID, msg.Episode) {
		return nil
	}
	if err := s.post(ctx, msg); err != nil {
		s.release(msg.WorkID, msg.Episode)
		return err
	}
	return nil
}

func (s *NtfySink) claim(workID int64, episode int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.pushed[workID]; ok && last == episode {
		return false
	}
	s.pushed[workID] = episode
	return true
}

func (s *NtfySink) release(workID int64, episode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pushed[workID] == episode {
		delete(s.pushed, workID)
	}
}

func (s *NtfySink) post(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(msg.Verb))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", "animetrack - New Episode")
	req.Header.Set("Tags", strings.Join([]string{"animetrack", "episode", "ep" + strconv.Itoa(msg.Episode)}, ","))
	if msg.Description != "" {
		req.Header.Set("Click", msg.Description)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Multi delivers to every sink. It fails only when every sink fails; partial
// failures are logged.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMulti fans out to sinks in order.
func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, logger: logging.NewComponentLogger(logger, "notifications")}
}

func (m *Multi) Name() string {
	names := make([]string, 0, len(m.sinks))
	for _, sink := range m.sinks {
		names = append(names, sink.Name())
	}
	return strings.Join(names, "+")
}

func (m *Multi) Deliver(ctx context.Context, msg Message) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Deliver(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == len(m.sinks) {
		return errors.Join(errs...)
	}
	logging.WarnWithContext(m.logger, "notification partially delivered", "notification_partial",
		logging.String("recipient", msg.Recipient),
		logging.Error(errors.Join(errs...)),
		logging.String(logging.FieldErrorHint, "check the failing sink's endpoint"),
		logging.String(logging.FieldImpact, "subscriber received the message on fewer channels"),
	)
	return nil
}

// Noop discards messages.
type Noop struct{}

func (Noop) Name() string                           { return "noop" }
func (Noop) Deliver(context.Context, Message) error { return nil }
