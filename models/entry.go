// Package models defines the shared data structures of the tracker:
// plan entries, fetch-log records and query types.
package models

import "time"

// PlanEntry is one substitution-plan change for a day/lesson/class
// combination, as parsed from a plan page. Entries are append-only facts:
// a correction shows up as a new distinct entry, never as an update.
type PlanEntry struct {
	Classes         []string `json:"classes"`
	Lesson          string   `json:"lesson"`
	Teacher         string   `json:"teacher,omitempty"`
	Subject         string   `json:"subject,omitempty"`
	OriginalSubject string   `json:"originalSubject,omitempty"`
	Room            string   `json:"room,omitempty"`
	Type            string   `json:"type,omitempty"`
	Text            string   `json:"text,omitempty"`
	Day             string   `json:"day"`
	Weekday         string   `json:"weekday"`
	WeekType        string   `json:"weekType,omitempty"`
	SourcePage      string   `json:"sourcePage"`
	Color           string   `json:"color,omitempty"`
	Cancelled       bool     `json:"cancelled"`
	Changed         bool     `json:"changed"`
	CreatedAt       string   `json:"createdAt"`
}

// FetchLogEntry records one ingestion attempt.
type FetchLogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	PagesFetched int       `json:"pagesFetched"`
}

// Stats are aggregate numbers over the stored entries, computed on demand.
type Stats struct {
	TotalEntries int     `json:"totalEntries"`
	DaysTracked  int     `json:"daysTracked"`
	AvgPerDay    float64 `json:"avgPerDay"`
}

// SortAsc and SortDesc are the accepted sort directions for entry queries.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// EntryFilter selects and paginates stored entries. Class matches any entry
// whose normalized class key contains the token (case-insensitive). A
// non-positive Limit falls back to the store default.
type EntryFilter struct {
	Day    string
	Class  string
	Limit  int
	Offset int
	Sort   string
}

// EntryPage is one page of query results plus the total number of matching
// rows before pagination, echoing the effective limit and offset.
type EntryPage struct {
	Entries []PlanEntry `json:"entries"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

// FetchResult is what one ingestion run produces: every entry parsed from
// the page range, and how many page indices were attempted.
type FetchResult struct {
	Entries      []PlanEntry `json:"entries"`
	PagesFetched int         `json:"pagesFetched"`
}
