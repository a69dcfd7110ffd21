package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxPayloadBytes caps the schedule document size.
const maxPayloadBytes = 16 << 20

// Fetcher retrieves the current weekly schedule.
type Fetcher interface {
	FetchWeeklySchedule(ctx context.Context) (Schedule, error)
}

// Client talks to the upstream schedule API.
type Client struct {
	url        string
	minMembers int
	userAgent  string
	httpClient *http.Client
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMinMembers sets the popularity threshold. Works with this many members
// or fewer are dropped.
func WithMinMembers(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.minMembers = n
		}
	}
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// New creates a schedule client for the given endpoint.
func New(url string, opts ...Option) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("schedule url required")
	}
	client := &Client{
		url:        url,
		minMembers: 10000,
		userAgent:  "animetrack",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchWeeklySchedule downloads and filters the weekly schedule.
func (c *Client) FetchWeeklySchedule(ctx context.Context) (Schedule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build schedule request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: schedule api returned %d (latency=%v)", ErrUpstreamUnavailable, resp.StatusCode, latency)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read schedule body: %w", ErrUpstreamUnavailable, err)
	}

	schedule, err := Decode(body)
	if err != nil {
		return nil, err
	}
	return schedule.Filter(c.minMembers), nil
}

// Decode parses a schedule document. Every weekday key must be present and
// every descriptor must carry an id and title.
func Decode(payload []byte) (Schedule, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSchedule, err)
	}

	schedule := make(Schedule, len(Weekdays))
	for _, day := range Weekdays {
		data, ok := raw[day]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrMalformedSchedule, day)
		}
		var descriptors []WorkDescriptor
		if err := json.Unmarshal(data, &descriptors); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSchedule, day, err)
		}
		for i, d := range descriptors {
			if d.MalID <= 0 || strings.TrimSpace(d.Title) == "" {
				return nil, fmt.Errorf("%w: %s[%d] lacks mal_id or title", ErrMalformedSchedule, day, i)
			}
		}
		schedule[day] = descriptors
	}
	return schedule, nil
}

// Filter returns a copy keeping only works with more than minMembers members.
func (s Schedule) Filter(minMembers int) Schedule {
	out := make(Schedule, len(s))
	for day, descriptors := range s {
		kept := make([]WorkDescriptor, 0, len(descriptors))
		for _, d := range descriptors {
			if d.Members > minMembers {
				kept = append(kept, d)
			}
		}
		out[day] = kept
	}
	return out
}
