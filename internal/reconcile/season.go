package reconcile

import (
	"strconv"

	"animetrack/internal/catalog"
)

// SeasonFor maps an ISO airing date ("2021-04-05T15:00:00+00:00" or
// "2021-04-05") to its broadcast season. It returns nil when the date is
// missing or unparsable.
func SeasonFor(airingStart string) *catalog.Season {
	if len(airingStart) < 7 || airingStart[4] != '-' {
		return nil
	}
	year, err := strconv.Atoi(airingStart[:4])
	if err != nil || year <= 0 {
		return nil
	}
	month, err := strconv.Atoi(airingStart[5:7])
	if err != nil {
		return nil
	}
	name := seasonName(month)
	if name == "" {
		return nil
	}
	return &catalog.Season{Name: name, Year: year}
}

func seasonName(month int) string {
	switch {
	case month >= 1 && month <= 3:
		return catalog.SeasonWinter
	case month >= 4 && month <= 6:
		return catalog.SeasonSpring
	case month >= 7 && month <= 9:
		return catalog.SeasonSummer
	case month >= 10 && month <= 12:
		return catalog.SeasonFall
	default:
		return ""
	}
}
