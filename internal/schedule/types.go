package schedule

import "errors"

var (
	// ErrUpstreamUnavailable reports a network failure or non-2xx response.
	ErrUpstreamUnavailable = errors.New("schedule upstream unavailable")
	// ErrMalformedSchedule reports a payload that could not be interpreted.
	ErrMalformedSchedule = errors.New("malformed schedule")
)

// Weekdays lists the upstream day keys in broadcast order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// NamedEntity is a {name} object such as a genre or producer.
type NamedEntity struct {
	Name string `json:"name"`
}

// WorkDescriptor is one upstream schedule entry.
type WorkDescriptor struct {
	MalID       int64         `json:"mal_id"`
	URL         string        `json:"url"`
	Title       string        `json:"title"`
	ImageURL    string        `json:"image_url"`
	Synopsis    string        `json:"synopsis"`
	Type        string        `json:"type"`
	Episodes    *int          `json:"episodes"`
	Members     int           `json:"members"`
	Source      string        `json:"source"`
	Score       *float64      `json:"score"`
	AiringStart string        `json:"airing_start"`
	Producers   []NamedEntity `json:"producers"`
	Genres      []NamedEntity `json:"genres"`
}

// Names flattens a list of named entities.
func Names(entities []NamedEntity) []string {
	out := make([]string, 0, len(entities))
	for _, entity := range entities {
		out = append(out, entity.Name)
	}
	return out
}

// Schedule maps an upstream weekday key to the works airing that day.
type Schedule map[string][]WorkDescriptor

// Entry pairs a descriptor with the weekday key it was listed under.
type Entry struct {
	Weekday    string
	Descriptor WorkDescriptor
}

// Entries flattens the schedule in weekday order, preserving upstream order
// within each day.
func (s Schedule) Entries() []Entry {
	var out []Entry
	for _, day := range Weekdays {
		for _, descriptor := range s[day] {
			out = append(out, Entry{Weekday: day, Descriptor: descriptor})
		}
	}
	return out
}

// Len returns the number of descriptors across all days.
func (s Schedule) Len() int {
	total := 0
	for _, day := range Weekdays {
		total += len(s[day])
	}
	return total
}
