package planparser

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkoenig/vplan-tracker/models"
)

var (
	cancelledPattern   = regexp.MustCompile(`(?i)Entfall`)
	changedPattern     = regexp.MustCompile(`(?i)geändert`)
	placeholderPattern = regexp.MustCompile(`(?i)Keine Vertretungen|nicht freigegeben`)
	colorPattern       = regexp.MustCompile(`background-color:\s*([^;]+)`)
)

// ParsePage extracts every usable PlanEntry from one plan page. Tables
// without a resolvable date label are discarded entirely rather than stored
// under an unknown day. now drives both the school-year heuristic and the
// createdAt stamp.
func ParsePage(doc *goquery.Document, sourcePage string, now time.Time) []models.PlanEntry {
	weekType := strings.TrimSpace(doc.Find("#vertretung .title").First().Text())

	var entries []models.PlanEntry
	doc.Find("table.subst").Each(func(_ int, tbl *goquery.Selection) {
		entries = append(entries, parseTable(tbl, sourcePage, weekType, now)...)
	})
	return entries
}

func parseTable(tbl *goquery.Selection, sourcePage, weekType string, now time.Time) []models.PlanEntry {
	rows := tbl.Find("tr.list")
	if rows.Length() == 0 {
		return nil
	}
	// A lone placeholder row means the day has no changes or is not yet
	// released; skip the whole table.
	if rows.Length() == 1 && placeholderPattern.MatchString(rows.First().Text()) {
		return nil
	}

	if len(tbl.Nodes) == 0 {
		return nil
	}
	label := dayLabelFor(tbl.Nodes[0])
	if label == "" {
		return nil
	}
	day, ok := ResolveDay(label, now)
	if !ok {
		return nil
	}

	createdAt := now.UTC().Format(time.RFC3339)
	var entries []models.PlanEntry
	rows.Each(func(_ int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 {
			return // header row
		}
		cols := row.Find("td")
		if cols.Length() < 8 {
			return
		}

		var color string
		if style, exists := cols.First().Attr("style"); exists {
			if m := colorPattern.FindStringSubmatch(style); m != nil {
				color = strings.TrimSpace(m[1])
			}
		}

		cells := make([]string, 8)
		cols.Slice(0, 8).Each(func(i int, c *goquery.Selection) {
			cells[i] = cleanText(c.Text())
		})
		classesRaw, lesson, teacher, subject, originalSubject, room, changeType, text :=
			cells[0], cells[1], cells[2], cells[3], cells[4], cells[5], cells[6], cells[7]

		entries = append(entries, models.PlanEntry{
			Classes:         splitClasses(classesRaw),
			Lesson:          lesson,
			Teacher:         teacher,
			Subject:         subject,
			OriginalSubject: originalSubject,
			Room:            room,
			Type:            changeType,
			Text:            text,
			Day:             day.ISO,
			Weekday:         day.Weekday,
			WeekType:        weekType,
			SourcePage:      sourcePage,
			Color:           color,
			Cancelled:       cancelledPattern.MatchString(changeType) || cancelledPattern.MatchString(row.Text()),
			Changed:         changedPattern.MatchString(changeType),
			CreatedAt:       createdAt,
		})
	})
	return entries
}

// cleanText removes non-breaking-space artifacts and trims whitespace.
func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

// splitClasses splits the classes cell on commas, dropping empty tokens.
func splitClasses(raw string) []string {
	var classes []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			classes = append(classes, c)
		}
	}
	return classes
}
