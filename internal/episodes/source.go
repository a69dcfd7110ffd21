package episodes

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrResolutionFailed means no listing page could be located for a title.
	ErrResolutionFailed = errors.New("episode listing not found")
	// ErrProbeLimit means the probe hit its request budget without two
	// consecutive misses.
	ErrProbeLimit = errors.New("episode probe limit reached")
)

// Listing locates a work on a streaming index.
type Listing struct {
	Title       string
	ListingURL  string
	EpisodeBase string
}

// EpisodeURL returns the page for episode n.
func (l Listing) EpisodeURL(n int) string {
	return l.EpisodeBase + strconv.Itoa(n)
}

// EpisodeSource is a streaming index that can be probed for episodes.
type EpisodeSource interface {
	Name() string
	ResolveListing(ctx context.Context, title string) (Listing, error)
	EpisodeExists(ctx context.Context, listing Listing, episode int) (bool, error)
}
