package planparser

import (
	"testing"
	"time"
)

func TestResolveDay(t *testing.T) {
	tests := []struct {
		name        string
		label       string
		now         time.Time
		wantISO     string
		wantWeekday string
		wantOK      bool
	}{
		{
			name:        "august label during autumn term",
			label:       "25.8. Montag",
			now:         time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC),
			wantISO:     "2025-08-25",
			wantWeekday: "Montag",
			wantOK:      true,
		},
		{
			name:        "september label parsed in january belongs to previous year",
			label:       "15.9. Montag",
			now:         time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC),
			wantISO:     "2025-09-15",
			wantWeekday: "Montag",
			wantOK:      true,
		},
		{
			name:        "september label parsed in september stays in current year",
			label:       "15.9. Montag",
			now:         time.Date(2025, time.September, 20, 12, 0, 0, 0, time.UTC),
			wantISO:     "2025-09-15",
			wantWeekday: "Montag",
			wantOK:      true,
		},
		{
			name:        "spring label wraps into next calendar year",
			label:       "12.3. Donnerstag",
			now:         time.Date(2025, time.November, 3, 12, 0, 0, 0, time.UTC),
			wantISO:     "2026-03-12",
			wantWeekday: "Donnerstag",
			wantOK:      true,
		},
		{
			name:   "weekday derived from date, not from label text",
			label:  "25.8. Freitag",
			now:    time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC),
			wantOK: true,
			// 2025-08-25 is a Monday regardless of what the plan claims.
			wantISO:     "2025-08-25",
			wantWeekday: "Montag",
		},
		{
			name:        "two-digit day and month",
			label:       "24.12. Mittwoch",
			now:         time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC),
			wantISO:     "2025-12-24",
			wantWeekday: "Mittwoch",
			wantOK:      true,
		},
		{
			name:   "no date fragment",
			label:  "Vertretungsplan",
			now:    time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDay(tt.label, tt.now)
			if ok != tt.wantOK {
				t.Fatalf("ResolveDay(%q) ok = %v, want %v", tt.label, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.ISO != tt.wantISO {
				t.Errorf("ResolveDay(%q) ISO = %q, want %q", tt.label, got.ISO, tt.wantISO)
			}
			if got.Weekday != tt.wantWeekday {
				t.Errorf("ResolveDay(%q) Weekday = %q, want %q", tt.label, got.Weekday, tt.wantWeekday)
			}
		})
	}
}
