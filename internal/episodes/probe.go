package episodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"animetrack/internal/catalog"
	"animetrack/internal/logging"
)

// DefaultMaxProbes bounds the requests spent on one work per probe.
const DefaultMaxProbes = 200

// Result is the outcome of probing one work.
type Result struct {
	// Found is false when the site has no confirmed episode yet.
	Found      bool
	Episode    int
	EpisodeURL string
	Listing    Listing
	Requests   int
}

// ProbeObserver receives one call per episode page request.
type ProbeObserver interface {
	ObserveProbe(source, outcome string)
}

// Prober finds the latest released episode of a work.
type Prober struct {
	source    EpisodeSource
	maxProbes int
	observer  ProbeObserver
	logger    *slog.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithMaxProbes caps requests per work.
func WithMaxProbes(n int) ProberOption {
	return func(p *Prober) {
		if n > 0 {
			p.maxProbes = n
		}
	}
}

// WithObserver reports each probe request.
func WithObserver(observer ProbeObserver) ProberOption {
	return func(p *Prober) {
		p.observer = observer
	}
}

// NewProber builds a Prober over source.
func NewProber(source EpisodeSource, logger *slog.Logger, opts ...ProberOption) *Prober {
	p := &Prober{
		source:    source,
		maxProbes: DefaultMaxProbes,
		logger:    logging.NewComponentLogger(logger, "probe"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Source returns the underlying episode source.
func (p *Prober) Source() EpisodeSource {
	return p.source
}

// ProbeLatest walks episode pages upward from the work's last known episode
// (or 1). A miss at n is re-checked at n+1; a hit there resumes the walk past
// it. Two consecutive misses end the walk with local number m = n+1, and the
// latest episode is m-2 when m > 2. Errors leave the result empty so callers
// never persist a partial answer.
func (p *Prober) ProbeLatest(ctx context.Context, work *catalog.Work) (Result, error) {
	if work == nil {
		return Result{}, errors.New("probe: nil work")
	}
	logger := logging.ForWork(p.logger, work.ExternalID)

	listing, err := p.source.ResolveListing(ctx, work.Title)
	if err != nil {
		return Result{}, err
	}

	n := 1
	if work.LastEpisode != nil && *work.LastEpisode > 0 {
		n = *work.LastEpisode
	}

	requests := 0
	exists := func(episode int) (bool, error) {
		if requests >= p.maxProbes {
			return false, fmt.Errorf("%w: %d requests for %q", ErrProbeLimit, requests, work.Title)
		}
		requests++
		ok, err := p.source.EpisodeExists(ctx, listing, episode)
		p.observe(err, ok)
		if err != nil {
			return false, fmt.Errorf("probe episode %d: %w", episode, err)
		}
		logger.Debug("episode probed", logging.Int("episode", episode), logging.Bool("exists", ok))
		return ok, nil
	}

	for {
		ok, err := exists(n)
		if err != nil {
			return Result{}, err
		}
		if ok {
			n++
			continue
		}

		ok, err = exists(n + 1)
		if err != nil {
			return Result{}, err
		}
		if ok {
			n += 2
			continue
		}

		result := Result{Listing: listing, Requests: requests}
		if m := n + 1; m > 2 {
			result.Found = true
			result.Episode = m - 2
			result.EpisodeURL = listing.EpisodeURL(result.Episode)
		}
		return result, nil
	}
}

func (p *Prober) observe(err error, exists bool) {
	if p.observer == nil {
		return
	}
	outcome := "miss"
	switch {
	case err != nil:
		outcome = "error"
	case exists:
		outcome = "hit"
	}
	p.observer.ObserveProbe(p.source.Name(), outcome)
}
