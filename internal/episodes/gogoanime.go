package episodes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"
)

const (
	listingPrefix = "/category/"
	maxPageBytes  = 4 << 20
)

// Gogoanime probes a gogoanime-style index: a search page at
// /search.html?keyword=, listings under /category/<slug>, and episodes at
// /<slug>-episode-<n>. Missing episodes render an <h1> with a sentinel text.
type Gogoanime struct {
	baseURL    string
	sentinel   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ EpisodeSource = (*Gogoanime)(nil)

// GogoOption configures a Gogoanime source.
type GogoOption func(*Gogoanime)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) GogoOption {
	return func(g *Gogoanime) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) GogoOption {
	return func(g *Gogoanime) {
		g.userAgent = strings.TrimSpace(ua)
	}
}

// WithNotFoundSentinel overrides the <h1> text that marks a missing page.
func WithNotFoundSentinel(sentinel string) GogoOption {
	return func(g *Gogoanime) {
		if s := strings.TrimSpace(sentinel); s != "" {
			g.sentinel = s
		}
	}
}

// WithRateLimit paces requests to perSecond with a burst of one.
func WithRateLimit(perSecond float64) GogoOption {
	return func(g *Gogoanime) {
		if perSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewGogoanime creates a source rooted at baseURL.
func NewGogoanime(baseURL string, opts ...GogoOption) (*Gogoanime, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("episode site url required")
	}
	g := &Gogoanime{
		baseURL:    baseURL,
		sentinel:   "404",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Name identifies the source in logs and metrics.
func (g *Gogoanime) Name() string { return "gogoanime" }

// SearchToken normalizes a title for the search endpoint: lowercase, every
// character outside [a-z0-9-] replaced by an encoded space, runs of
// separators collapsed to one.
func SearchToken(title string) string {
	const sep = "%20"
	var b strings.Builder
	lastSep := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
			lastSep = false
			continue
		}
		if !lastSep {
			b.WriteString(sep)
			lastSep = true
		}
	}
	return b.String()
}

// SearchURL returns the search page for a title.
func (g *Gogoanime) SearchURL(title string) string {
	return g.baseURL + "/search.html?keyword=" + SearchToken(title)
}

// ResolveListing searches for title and takes the first category link as the
// work's listing.
func (g *Gogoanime) ResolveListing(ctx context.Context, title string) (Listing, error) {
	if strings.TrimSpace(title) == "" {
		return Listing{}, fmt.Errorf("%w: empty title", ErrResolutionFailed)
	}
	searchURL := g.SearchURL(title)
	doc, status, err := g.fetch(ctx, searchURL)
	if err != nil {
		return Listing{}, err
	}
	if status < 200 || status > 299 {
		return Listing{}, fmt.Errorf("search %s returned %d", searchURL, status)
	}

	href := firstListingHref(doc)
	slug := strings.Trim(strings.TrimPrefix(href, listingPrefix), "/")
	if href == "" || slug == "" {
		return Listing{}, fmt.Errorf("%w: no listing for %q at %s", ErrResolutionFailed, title, searchURL)
	}
	return Listing{
		Title:       title,
		ListingURL:  g.baseURL + href,
		EpisodeBase: g.baseURL + "/" + slug + "-episode-",
	}, nil
}

// EpisodeExists fetches the episode page. A 404 status or a sentinel <h1>
// is a miss; any other 4xx or 5xx status is an error.
func (g *Gogoanime) EpisodeExists(ctx context.Context, listing Listing, episode int) (bool, error) {
	if listing.EpisodeBase == "" {
		return false, errors.New("listing has no episode base url")
	}
	doc, status, err := g.fetch(ctx, listing.EpisodeURL(episode))
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status < 200 || status > 299 {
		return false, fmt.Errorf("episode %d page returned %d", episode, status)
	}
	heading, ok := firstHeading(doc)
	if ok && heading == g.sentinel {
		return false, nil
	}
	return true, nil
}

func (g *Gogoanime) fetch(ctx context.Context, target string) (*html.Node, int, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, resp.StatusCode, nil
}

func firstListingHref(doc *html.Node) string {
	var found string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			return true
		}
		for _, attr := range n.Attr {
			if attr.Key == "href" && strings.HasPrefix(attr.Val, "/category") {
				found = attr.Val
				return false
			}
		}
		return true
	})
	return found
}

func firstHeading(doc *html.Node) (string, bool) {
	var (
		text  string
		found bool
	)
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.H1 {
			text = strings.TrimSpace(nodeText(n))
			found = true
			return false
		}
		return true
	})
	return text, found
}

// walk visits nodes depth-first until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}
