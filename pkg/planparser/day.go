// Package planparser turns raw plan pages into PlanEntry records: it
// resolves German date labels, associates each change table with the date
// label preceding it in the markup, and normalizes table rows.
package planparser

import (
	"regexp"
	"strconv"
	"time"
)

// datePattern matches the numeric day.month. fragment of a label like
// "25.8. Montag". The plan never prints a year.
var datePattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.`)

var germanWeekdays = [7]string{
	"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag",
}

// ResolvedDay is a date label resolved to a calendar day.
type ResolvedDay struct {
	ISO     string
	Weekday string
}

// ResolveDay parses a German date label into an ISO day and weekday name.
// The year is inferred from the school year, which starts in August: labels
// with month >= August belong to the base year, earlier months wrap into the
// next calendar year. now supplies the ingestion time so the heuristic is
// testable. Returns ok=false when the label carries no date fragment.
func ResolveDay(label string, now time.Time) (ResolvedDay, bool) {
	m := datePattern.FindStringSubmatch(label)
	if m == nil {
		return ResolvedDay{}, false
	}
	dayNum, _ := strconv.Atoi(m[1])
	monthNum, _ := strconv.Atoi(m[2])

	baseYear := now.Year()
	if int(now.Month()) < 8 {
		baseYear--
	}
	year := baseYear
	if monthNum < 8 {
		year = baseYear + 1
	}

	dt := time.Date(year, time.Month(monthNum), dayNum, 0, 0, 0, 0, time.UTC)
	return ResolvedDay{
		ISO:     dt.Format("2006-01-02"),
		Weekday: germanWeekdays[dt.Weekday()],
	}, true
}
