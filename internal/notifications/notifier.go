package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"animetrack/internal/catalog"
	"animetrack/internal/logging"
)

// StatusWriter transitions a work to finished.
type StatusWriter interface {
	MarkFinished(ctx context.Context, externalID int64) error
}

// DeliveryObserver receives one call per attempted delivery.
type DeliveryObserver interface {
	ObserveDelivery(sink, outcome string)
}

// Options configure message construction.
type Options struct {
	// SystemIdentity is the sender recorded on every message.
	SystemIdentity string
	// SiteURL prefixes the canonical work link.
	SiteURL  string
	Observer DeliveryObserver
}

// Notifier turns episode advances into subscriber messages.
type Notifier struct {
	sink     Sink
	status   StatusWriter
	identity string
	siteURL  string
	observer DeliveryObserver
	logger   *slog.Logger
}

// NewNotifier builds a Notifier. A nil sink discards messages.
func NewNotifier(sink Sink, status StatusWriter, opts Options, logger *slog.Logger) *Notifier {
	if sink == nil {
		sink = Noop{}
	}
	identity := strings.TrimSpace(opts.SystemIdentity)
	if identity == "" {
		identity = "animetrack"
	}
	return &Notifier{
		sink:     sink,
		status:   status,
		identity: identity,
		siteURL:  strings.TrimRight(opts.SiteURL, "/"),
		observer: opts.Observer,
		logger:   logging.NewComponentLogger(logger, "notifier"),
	}
}

// DetailLink returns the canonical page for a work.
func DetailLink(siteURL string, externalID int64) string {
	return strings.TrimRight(siteURL, "/") + "/anime/" + strconv.FormatInt(externalID, 10)
}

// Verb is the human-readable notification text.
func Verb(episode int, title string) string {
	return fmt.Sprintf("Episode %d of %s is now available!", episode, title)
}

// NotifyIfAdvanced sends one message per subscriber when next is set and
// differs from previous, and returns how many were delivered. Reaching the
// work's total episode count marks it finished first. Delivery failures are
// logged per subscriber and returned joined; they never stop the others.
func (n *Notifier) NotifyIfAdvanced(ctx context.Context, work *catalog.Work, previous, next *int, subscribers []catalog.Subscriber) (int, error) {
	if work == nil || next == nil {
		return 0, nil
	}
	if previous != nil && *previous == *next {
		return 0, nil
	}
	logger := logging.ForWork(n.logger, work.ExternalID)

	if work.TotalEpisodes != nil && *next == *work.TotalEpisodes && !work.IsFinished() {
		if n.status != nil {
			if err := n.status.MarkFinished(ctx, work.ExternalID); err != nil {
				logging.WarnWithContext(logger, "mark finished failed", "finish_transition_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check catalog database health"),
					logging.String(logging.FieldImpact, "work stays in the airing list"),
				)
			} else {
				work.Status = catalog.StatusFinished
				logger.Info("work finished", logging.Int("episode", *next))
			}
		}
	}

	verb := Verb(*next, work.Title)
	link := DetailLink(n.siteURL, work.ExternalID)
	delivered := 0
	var errs []error
	for _, sub := range subscribers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg := Message{
			Sender:      n.identity,
			Recipient:   sub.Name,
			Verb:        verb,
			Description: link,
			WorkID:      work.ExternalID,
			WorkTitle:   work.Title,
			Episode:     *next,
		}
		if err := n.sink.Deliver(ctx, msg); err != nil {
			n.observe("error")
			errs = append(errs, fmt.Errorf("deliver to %s: %w", sub.Name, err))
			logging.WarnWithContext(logger, "notification delivery failed", "notification_failed",
				logging.String("recipient", sub.Name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the notification sink"),
				logging.String(logging.FieldImpact, "subscriber misses this episode alert"),
			)
			continue
		}
		n.observe("delivered")
		delivered++
	}

	logger.Info("episode notification sent",
		logging.String(logging.FieldEventType, "episode_notified"),
		logging.Int("episode", *next),
		logging.Int("subscribers", len(subscribers)),
		logging.Int("delivered", delivered),
	)
	return delivered, errors.Join(errs...)
}

func (n *Notifier) observe(outcome string) {
	if n.observer != nil {
		n.observer.ObserveDelivery(n.sink.Name(), outcome)
	}
}
