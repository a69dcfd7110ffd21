package reconcile_test

import (
	"testing"

	"animetrack/internal/reconcile"
)

func TestSeasonForBoundaries(t *testing.T) {
	tests := []struct {
		date string
		want string
		year int
	}{
		{"2021-01-10T00:00:00+00:00", "Winter", 2021},
		{"2021-03-31T00:00:00+00:00", "Winter", 2021},
		{"2021-04-01T00:00:00+00:00", "Spring", 2021},
		{"2021-06-30", "Spring", 2021},
		{"2021-07-01", "Summer", 2021},
		{"2021-09-30", "Summer", 2021},
		{"2021-10-01", "Fall", 2021},
		{"2020-12-31", "Fall", 2020},
	}
	for _, tc := range tests {
		got := reconcile.SeasonFor(tc.date)
		if got == nil {
			t.Fatalf("SeasonFor(%q) returned nil", tc.date)
		}
		if got.Name != tc.want || got.Year != tc.year {
			t.Fatalf("SeasonFor(%q) = %s %d, want %s %d", tc.date, got.Name, got.Year, tc.want, tc.year)
		}
	}
}

func TestSeasonForInvalid(t *testing.T) {
	for _, date := range []string{"", "2021", "2021-13-01", "2021-00-01", "abcd-04-01", "20210401"} {
		if got := reconcile.SeasonFor(date); got != nil {
			t.Fatalf("SeasonFor(%q) = %#v, want nil", date, got)
		}
	}
}

func TestDayToken(t *testing.T) {
	tests := map[string]string{
		"monday":    "Mon",
		"TUESDAY":   "Tue",
		"sunday":    "Sun",
		" friday ":  "Fri",
		"mo":        "",
		"wednesday": "Wed",
	}
	for in, want := range tests {
		if got := reconcile.DayToken(in); got != want {
			t.Fatalf("DayToken(%q) = %q, want %q", in, got, want)
		}
	}
}
