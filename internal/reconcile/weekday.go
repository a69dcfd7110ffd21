package reconcile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DayToken abbreviates an upstream weekday key to its index token:
// "monday" becomes "Mon". Keys shorter than three letters yield "".
func DayToken(weekday string) string {
	weekday = strings.TrimSpace(weekday)
	if len(weekday) < 3 {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(weekday[:3]))
}
