package catalog

import "time"

// Status captures where a work is in its broadcast run.
type Status string

const (
	StatusAiring   Status = "airing"
	StatusFinished Status = "finished"
	StatusUpcoming Status = "upcoming"
)

func (s Status) valid() bool {
	switch s {
	case StatusAiring, StatusFinished, StatusUpcoming:
		return true
	}
	return false
}

// Season names as stored.
const (
	SeasonWinter = "Winter"
	SeasonSpring = "Spring"
	SeasonSummer = "Summer"
	SeasonFall   = "Fall"
)

// Season identifies a broadcast quarter.
type Season struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

// Work is a single titled series tracked by the catalog.
type Work struct {
	ExternalID       int64     `json:"id"`
	Title            string    `json:"title"`
	Type             string    `json:"type,omitempty"`
	Source           string    `json:"source,omitempty"`
	URL              string    `json:"url,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	Synopsis         string    `json:"synopsis,omitempty"`
	TotalEpisodes    *int      `json:"total_episodes"`
	LastEpisode      *int      `json:"last_episode"`
	LatestEpisodeURL string    `json:"latest_episode_url,omitempty"`
	Status           Status    `json:"status"`
	AirDay           string    `json:"air_day"`
	Members          int       `json:"members"`
	Score            *float64  `json:"score,omitempty"`
	Season           *Season   `json:"season,omitempty"`
	Genres           []string  `json:"genres"`
	Studios          []string  `json:"studios"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsFinished reports whether the work no longer needs episode probing.
func (w *Work) IsFinished() bool {
	return w != nil && w.Status == StatusFinished
}

// WorkInput carries the upstream fields written by UpsertWork. Episode
// progress is deliberately absent: it is only written through RecordEpisode.
type WorkInput struct {
	ExternalID    int64
	Title         string
	Type          string
	Source        string
	URL           string
	ImageURL      string
	Synopsis      string
	TotalEpisodes *int
	Status        Status
	AirDay        string
	Members       int
	Score         *float64
	Season        *Season
	Genres        []string
	Studios       []string
}

// UpsertResult describes the outcome of UpsertWork.
type UpsertResult struct {
	Created bool
	Work    *Work
}

// EpisodeUpdate is the episode state written by the frequent task.
type EpisodeUpdate struct {
	// Previous is the last episode the caller read; the write only applies
	// while the stored value still matches it.
	Previous   *int
	Episode    int
	EpisodeURL string
	Finished   bool
}

// Subscriber is a recipient of episode notifications.
type Subscriber struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is an inbox message delivered to a subscriber.
type Notification struct {
	ID          int64     `json:"id"`
	Sender      string    `json:"sender"`
	Recipient   string    `json:"recipient"`
	Verb        string    `json:"verb"`
	Description string    `json:"description"`
	WorkID      int64     `json:"work_id"`
	Episode     int       `json:"episode"`
	Unread      bool      `json:"unread"`
	CreatedAt   time.Time `json:"created_at"`
}
