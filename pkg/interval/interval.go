// Package interval provides half-open time interval math shared by the
// booking validator, repository filters, and conflict checks. All intervals
// are [start, end): a meeting ending at 10:00 does not collide with one
// starting at 10:00.
package interval

import "time"

// Overlaps reports whether [start1, end1) and [start2, end2) share any
// instant. Touching endpoints do not overlap.
func Overlaps(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}

// Contains reports whether t falls inside [start, end).
func Contains(start, end, t time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DayKey renders the calendar day of t in loc as YYYY-MM-DD. Lock keys and
// schedule cache keys use it so that everything touching one room-day agrees
// on a single string.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// DayBounds returns midnight of t's day in loc and midnight of the next day.
// The pair forms the half-open window [start, end) covering the whole day.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// MinutesOfDay returns the minute offset of t from midnight in loc. Business
// hour checks compare this against the configured opening and closing minutes.
func MinutesOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}
