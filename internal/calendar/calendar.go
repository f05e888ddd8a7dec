// Package calendar provides day and week boundary arithmetic and a German
// public holiday oracle. Every function is pure; boundaries are computed with
// calendar-day arithmetic in the location of the input time, so days that are
// 23 or 25 hours long around DST changes are handled correctly.
package calendar

import "time"

// DayStart truncates t to midnight of the same calendar day in t's location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayBounds returns the half-open interval [start, end) of t's calendar day.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := DayStart(t)
	return start, start.AddDate(0, 0, 1)
}

// WeekBounds returns the half-open 7-day window [start, end) containing t.
// start is midnight of the most recent Monday (or Sunday when
// weekStartsMonday is false) on or before t.
func WeekBounds(t time.Time, weekStartsMonday bool) (time.Time, time.Time) {
	shift := int(t.Weekday()) // Sunday = 0
	if weekStartsMonday {
		shift = (shift + 6) % 7
	}
	y, m, d := t.Date()
	start := time.Date(y, m, d-shift, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 7)
}

// WeekdayIndex maps t's weekday onto 0 = Monday .. 6 = Sunday.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Easter returns Easter Sunday of the given Gregorian year at midnight in loc,
// using the anonymous Gregorian (Meeus/Jones/Butcher) algorithm.
func Easter(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	g := (8*b + 13) / 25
	h := (19*a + b - d - g + 15) % 30
	j := c / 4
	k := c % 4
	m := (a + 11*h) / 319
	r := (2*e + 2*j - k - h + m + 32) % 7
	month := (h - m + r + 90) / 25
	day := (h - m + r + month + 19) % 32
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}
