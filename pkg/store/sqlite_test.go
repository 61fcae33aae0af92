package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mkoenig/vplan-tracker/models"
)

// setupTestStore creates a throwaway SQLite database for one test.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "entries.sqlite"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(mutate func(*models.PlanEntry)) models.PlanEntry {
	e := models.PlanEntry{
		Classes:    []string{"5A"},
		Lesson:     "1",
		Teacher:    "MUE",
		Subject:    "M",
		Room:       "101",
		Type:       "Vertretung",
		Day:        "2025-08-25",
		Weekday:    "Montag",
		SourcePage: "w00001.htm",
		CreatedAt:  "2025-08-25T06:00:00Z",
	}
	if mutate != nil {
		mutate(&e)
	}
	return e
}

func TestAppendEntries_Idempotent(t *testing.T) {
	s := setupTestStore(t)

	entries := []models.PlanEntry{
		testEntry(nil),
		testEntry(func(e *models.PlanEntry) { e.Lesson = "2" }),
	}

	inserted, err := s.AppendEntries(entries)
	if err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}
	if inserted != 2 {
		t.Errorf("first AppendEntries() = %d, want 2", inserted)
	}

	inserted, err = s.AppendEntries(entries)
	if err != nil {
		t.Fatalf("AppendEntries() second run error = %v", err)
	}
	if inserted != 0 {
		t.Errorf("second AppendEntries() = %d, want 0", inserted)
	}
}

func TestAppendEntries_IdentityTuple(t *testing.T) {
	s := setupTestStore(t)

	// Same tuple, different class spellings: collapses to one row.
	a := testEntry(func(e *models.PlanEntry) { e.Classes = []string{"5a", "5B"} })
	b := testEntry(func(e *models.PlanEntry) { e.Classes = []string{"5B", "5A"} })
	inserted, err := s.AppendEntries([]models.PlanEntry{a, b})
	if err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}
	if inserted != 1 {
		t.Errorf("AppendEntries() = %d, want 1 (same normalized class key)", inserted)
	}

	// A differing room is a new fact.
	c := testEntry(func(e *models.PlanEntry) {
		e.Classes = []string{"5A", "5B"}
		e.Room = "202"
	})
	inserted, err = s.AppendEntries([]models.PlanEntry{c})
	if err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}
	if inserted != 1 {
		t.Errorf("AppendEntries() = %d, want 1 (different room)", inserted)
	}
}

func TestAppendEntries_EmptyOptionalFieldsStillDedup(t *testing.T) {
	s := setupTestStore(t)

	e := testEntry(func(e *models.PlanEntry) {
		e.Subject = ""
		e.Room = ""
		e.Type = ""
	})
	if _, err := s.AppendEntries([]models.PlanEntry{e}); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}
	inserted, err := s.AppendEntries([]models.PlanEntry{e})
	if err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}
	if inserted != 0 {
		t.Errorf("AppendEntries() = %d, want 0 (empty fields must not defeat dedup)", inserted)
	}
}

func TestEntries_ClassSubstringFilter(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.AppendEntries([]models.PlanEntry{
		testEntry(func(e *models.PlanEntry) { e.Classes = []string{"6c"} }),
		testEntry(func(e *models.PlanEntry) { e.Classes = []string{"7B"}; e.Lesson = "2" }),
	}); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}

	for _, token := range []string{"6C", "6c", "c"} {
		page, err := s.Entries(models.EntryFilter{Class: token})
		if err != nil {
			t.Fatalf("Entries(class=%q) error = %v", token, err)
		}
		if page.Total != 1 {
			t.Errorf("Entries(class=%q) total = %d, want 1", token, page.Total)
		}
		if len(page.Entries) != 1 || page.Entries[0].Classes[0] != "6C" {
			t.Errorf("Entries(class=%q) = %v, want the 6C row", token, page.Entries)
		}
	}
}

func TestEntries_ClassFilterLiteralWildcards(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.AppendEntries([]models.PlanEntry{
		testEntry(func(e *models.PlanEntry) { e.Classes = []string{"5A"} }),
		testEntry(func(e *models.PlanEntry) { e.Classes = []string{"5_X"}; e.Lesson = "2" }),
	}); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}

	// LIKE metacharacters in the token must match literally, not as
	// wildcards.
	page, err := s.Entries(models.EntryFilter{Class: "5_"})
	if err != nil {
		t.Fatalf("Entries(class=5_) error = %v", err)
	}
	if page.Total != 1 || len(page.Entries) != 1 || page.Entries[0].Classes[0] != "5_X" {
		t.Errorf("Entries(class=5_) = %+v, want only the 5_X row", page)
	}

	page, err = s.Entries(models.EntryFilter{Class: "%"})
	if err != nil {
		t.Fatalf("Entries(class=%%) error = %v", err)
	}
	if page.Total != 0 {
		t.Errorf("Entries(class=%%) total = %d, want 0", page.Total)
	}
}

func TestEntries_DayFilterAndSort(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.AppendEntries([]models.PlanEntry{
		testEntry(func(e *models.PlanEntry) { e.Day = "2025-08-25"; e.Lesson = "2" }),
		testEntry(func(e *models.PlanEntry) { e.Day = "2025-08-25"; e.Lesson = "1" }),
		testEntry(func(e *models.PlanEntry) { e.Day = "2025-08-26" }),
	}); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}

	page, err := s.Entries(models.EntryFilter{Day: "2025-08-25"})
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Entries(day) total = %d, want 2", page.Total)
	}
	if page.Entries[0].Lesson != "1" || page.Entries[1].Lesson != "2" {
		t.Errorf("ascending lessons = %q, %q; want 1, 2", page.Entries[0].Lesson, page.Entries[1].Lesson)
	}

	page, err = s.Entries(models.EntryFilter{Sort: models.SortDesc})
	if err != nil {
		t.Fatalf("Entries(desc) error = %v", err)
	}
	if page.Entries[0].Day != "2025-08-26" {
		t.Errorf("descending first day = %q, want 2025-08-26", page.Entries[0].Day)
	}
}

func TestEntries_Pagination(t *testing.T) {
	s := setupTestStore(t)

	var entries []models.PlanEntry
	for _, lesson := range []string{"1", "2", "3", "4", "5"} {
		l := lesson
		entries = append(entries, testEntry(func(e *models.PlanEntry) { e.Lesson = l }))
	}
	if _, err := s.AppendEntries(entries); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}

	for _, tt := range []struct {
		offset   int
		wantRows int
	}{
		{0, 2},
		{2, 2},
		{4, 1},
	} {
		page, err := s.Entries(models.EntryFilter{Limit: 2, Offset: tt.offset})
		if err != nil {
			t.Fatalf("Entries(offset=%d) error = %v", tt.offset, err)
		}
		if len(page.Entries) != tt.wantRows {
			t.Errorf("Entries(offset=%d) rows = %d, want %d", tt.offset, len(page.Entries), tt.wantRows)
		}
		if page.Total != 5 {
			t.Errorf("Entries(offset=%d) total = %d, want 5", tt.offset, page.Total)
		}
		if page.Limit != 2 || page.Offset != tt.offset {
			t.Errorf("Entries(offset=%d) echoed limit/offset = %d/%d", tt.offset, page.Limit, page.Offset)
		}
	}
}

func TestClasses(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.AppendEntries([]models.PlanEntry{
		testEntry(func(e *models.PlanEntry) { e.Classes = []string{"6C", "5A"} }),
		testEntry(func(e *models.PlanEntry) { e.Classes = []string{"5A", "5B"}; e.Lesson = "2" }),
	}); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}

	classes, err := s.Classes()
	if err != nil {
		t.Fatalf("Classes() error = %v", err)
	}
	want := []string{"5A", "5B", "6C"}
	if len(classes) != len(want) {
		t.Fatalf("Classes() = %v, want %v", classes, want)
	}
	for i := range want {
		if classes[i] != want[i] {
			t.Errorf("Classes()[%d] = %q, want %q", i, classes[i], want[i])
		}
	}
}

func TestStats(t *testing.T) {
	s := setupTestStore(t)

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalEntries != 0 || stats.DaysTracked != 0 || stats.AvgPerDay != 0 {
		t.Errorf("empty Stats() = %+v, want zeros", stats)
	}

	if _, err := s.AppendEntries([]models.PlanEntry{
		testEntry(nil),
		testEntry(func(e *models.PlanEntry) { e.Lesson = "2" }),
		testEntry(func(e *models.PlanEntry) { e.Day = "2025-08-26" }),
	}); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}

	stats, err = s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", stats.TotalEntries)
	}
	if stats.DaysTracked != 2 {
		t.Errorf("DaysTracked = %d, want 2", stats.DaysTracked)
	}
	if stats.AvgPerDay != 1.5 {
		t.Errorf("AvgPerDay = %v, want 1.5", stats.AvgPerDay)
	}
}

func TestFetchLog(t *testing.T) {
	s := setupTestStore(t)

	last, err := s.LastSuccessfulFetch()
	if err != nil {
		t.Fatalf("LastSuccessfulFetch() error = %v", err)
	}
	if last != nil {
		t.Errorf("LastSuccessfulFetch() on empty log = %+v, want nil", last)
	}

	base := time.Date(2025, time.August, 25, 6, 0, 0, 0, time.UTC)
	for i, e := range []models.FetchLogEntry{
		{Timestamp: base, Success: true, PagesFetched: 99},
		{Timestamp: base.Add(time.Hour), Success: false, Error: "boom", PagesFetched: 0},
		{Timestamp: base.Add(2 * time.Hour), Success: true, PagesFetched: 99},
	} {
		if err := s.LogFetch(e); err != nil {
			t.Fatalf("LogFetch(%d) error = %v", i, err)
		}
	}

	log, err := s.FetchLog(2)
	if err != nil {
		t.Fatalf("FetchLog() error = %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("FetchLog(2) returned %d entries, want 2", len(log))
	}
	// Newest first.
	if !log[0].Success || log[0].PagesFetched != 99 {
		t.Errorf("newest entry = %+v, want the latest success", log[0])
	}
	if log[1].Success || log[1].Error != "boom" {
		t.Errorf("second entry = %+v, want the failure", log[1])
	}

	last, err = s.LastSuccessfulFetch()
	if err != nil {
		t.Fatalf("LastSuccessfulFetch() error = %v", err)
	}
	if last == nil {
		t.Fatal("LastSuccessfulFetch() = nil, want entry")
	}
	if !last.Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("LastSuccessfulFetch() timestamp = %v, want %v", last.Timestamp, base.Add(2*time.Hour))
	}
}

func TestFetchLog_Trim(t *testing.T) {
	s := setupTestStore(t)

	base := time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC)
	for i := 0; i < fetchLogRetention+10; i++ {
		e := models.FetchLogEntry{
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			Success:      true,
			PagesFetched: i,
		}
		if err := s.LogFetch(e); err != nil {
			t.Fatalf("LogFetch(%d) error = %v", i, err)
		}
	}

	log, err := s.FetchLog(fetchLogRetention + 100)
	if err != nil {
		t.Fatalf("FetchLog() error = %v", err)
	}
	if len(log) != fetchLogRetention {
		t.Errorf("retained %d entries, want %d", len(log), fetchLogRetention)
	}
	// Oldest rows were dropped; the newest survives.
	if log[0].PagesFetched != fetchLogRetention+9 {
		t.Errorf("newest entry PagesFetched = %d, want %d", log[0].PagesFetched, fetchLogRetention+9)
	}
}
