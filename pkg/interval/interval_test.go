package interval

import (
	"testing"
	"time"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start1   time.Time
		end1     time.Time
		start2   time.Time
		end2     time.Time
		expected bool
	}{
		{
			name:   "identical intervals overlap",
			start1: base, end1: base.Add(time.Hour),
			start2: base, end2: base.Add(time.Hour),
			expected: true,
		},
		{
			name:   "partial overlap at the tail",
			start1: base, end1: base.Add(time.Hour),
			start2: base.Add(30 * time.Minute), end2: base.Add(90 * time.Minute),
			expected: true,
		},
		{
			name:   "one interval contains the other",
			start1: base, end1: base.Add(4 * time.Hour),
			start2: base.Add(time.Hour), end2: base.Add(2 * time.Hour),
			expected: true,
		},
		{
			name:   "back to back does not overlap",
			start1: base, end1: base.Add(time.Hour),
			start2: base.Add(time.Hour), end2: base.Add(2 * time.Hour),
			expected: false,
		},
		{
			name:   "back to back in reverse order does not overlap",
			start1: base.Add(time.Hour), end1: base.Add(2 * time.Hour),
			start2: base, end2: base.Add(time.Hour),
			expected: false,
		},
		{
			name:   "disjoint intervals do not overlap",
			start1: base, end1: base.Add(time.Hour),
			start2: base.Add(3 * time.Hour), end2: base.Add(4 * time.Hour),
			expected: false,
		},
		{
			name:   "one minute of shared time overlaps",
			start1: base, end1: base.Add(61 * time.Minute),
			start2: base.Add(time.Hour), end2: base.Add(2 * time.Hour),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.start1, tt.end1, tt.start2, tt.end2); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
			// Overlap is symmetric.
			if got := Overlaps(tt.start2, tt.end2, tt.start1, tt.end1); got != tt.expected {
				t.Errorf("expected symmetric result %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestContains(t *testing.T) {
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name     string
		point    time.Time
		expected bool
	}{
		{"start is inside", start, true},
		{"midpoint is inside", start.Add(30 * time.Minute), true},
		{"end is outside", end, false},
		{"before start is outside", start.Add(-time.Minute), false},
		{"after end is outside", end.Add(time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(start, end, tt.point); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSameDay(t *testing.T) {
	utc := time.UTC
	madrid := mustLocation(t, "Europe/Madrid")

	tests := []struct {
		name     string
		a        time.Time
		b        time.Time
		loc      *time.Location
		expected bool
	}{
		{
			name:     "same UTC day",
			a:        time.Date(2026, 9, 7, 8, 0, 0, 0, utc),
			b:        time.Date(2026, 9, 7, 21, 59, 0, 0, utc),
			loc:      utc,
			expected: true,
		},
		{
			name:     "different UTC days",
			a:        time.Date(2026, 9, 7, 23, 0, 0, 0, utc),
			b:        time.Date(2026, 9, 8, 1, 0, 0, 0, utc),
			loc:      utc,
			expected: false,
		},
		{
			name: "UTC midnight straddle is one Madrid day",
			// 23:30 UTC on the 7th is 01:30 on the 8th in Madrid (CEST).
			a:        time.Date(2026, 9, 7, 23, 30, 0, 0, utc),
			b:        time.Date(2026, 9, 8, 6, 0, 0, 0, utc),
			loc:      madrid,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameDay(tt.a, tt.b, tt.loc); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDayKey(t *testing.T) {
	madrid := mustLocation(t, "Europe/Madrid")

	tests := []struct {
		name     string
		t        time.Time
		loc      *time.Location
		expected string
	}{
		{
			name:     "UTC day",
			t:        time.Date(2026, 9, 7, 14, 30, 0, 0, time.UTC),
			loc:      time.UTC,
			expected: "2026-09-07",
		},
		{
			name:     "late UTC evening rolls into the next Madrid day",
			t:        time.Date(2026, 9, 7, 23, 30, 0, 0, time.UTC),
			loc:      madrid,
			expected: "2026-09-08",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayKey(tt.t, tt.loc); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.UTC
	point := time.Date(2026, 9, 7, 14, 30, 45, 0, loc)

	start, end := DayBounds(point, loc)

	expectedStart := time.Date(2026, 9, 7, 0, 0, 0, 0, loc)
	expectedEnd := time.Date(2026, 9, 8, 0, 0, 0, 0, loc)

	if !start.Equal(expectedStart) {
		t.Errorf("expected start %v, got %v", expectedStart, start)
	}
	if !end.Equal(expectedEnd) {
		t.Errorf("expected end %v, got %v", expectedEnd, end)
	}
	if !Contains(start, end, point) {
		t.Error("expected the point to fall inside its own day bounds")
	}
}

func TestMinutesOfDay(t *testing.T) {
	tests := []struct {
		name     string
		t        time.Time
		expected int
	}{
		{"midnight", time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), 0},
		{"seven in the morning", time.Date(2026, 9, 7, 7, 0, 0, 0, time.UTC), 420},
		{"ten in the evening", time.Date(2026, 9, 7, 22, 0, 0, 0, time.UTC), 1320},
		{"half past nine", time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC), 570},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinutesOfDay(tt.t, time.UTC); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
