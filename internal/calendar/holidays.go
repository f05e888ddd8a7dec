package calendar

import (
	"sort"
	"strings"
	"time"
)

// Holiday is a named public holiday on a calendar day.
type Holiday struct {
	Date time.Time
	Name string
}

type holidayKind int

const (
	fixedDate holidayKind = iota
	easterRelative
	repentanceDay
)

type holidayRule struct {
	name   string
	kind   holidayKind
	month  time.Month
	day    int
	offset int      // days relative to Easter Sunday
	states []string // empty = nationwide
}

var states = []string{
	"BB", "BE", "BW", "BY", "HB", "HE", "HH", "MV",
	"NI", "NW", "RP", "SH", "SL", "SN", "ST", "TH",
}

var holidayRules = []holidayRule{
	{name: "Neujahr", kind: fixedDate, month: time.January, day: 1},
	{name: "Heilige Drei Könige", kind: fixedDate, month: time.January, day: 6, states: []string{"BW", "BY", "ST"}},
	{name: "Internationaler Frauentag", kind: fixedDate, month: time.March, day: 8, states: []string{"BE"}},
	{name: "Karfreitag", kind: easterRelative, offset: -2},
	{name: "Ostermontag", kind: easterRelative, offset: 1},
	{name: "Tag der Arbeit", kind: fixedDate, month: time.May, day: 1},
	{name: "Christi Himmelfahrt", kind: easterRelative, offset: 39},
	{name: "Pfingstmontag", kind: easterRelative, offset: 50},
	{name: "Fronleichnam", kind: easterRelative, offset: 60, states: []string{"BW", "BY", "HE", "NW", "RP", "SL"}},
	{name: "Mariä Himmelfahrt", kind: fixedDate, month: time.August, day: 15, states: []string{"BY", "SL"}},
	{name: "Weltkindertag", kind: fixedDate, month: time.September, day: 20, states: []string{"TH"}},
	{name: "Tag der Deutschen Einheit", kind: fixedDate, month: time.October, day: 3},
	{name: "Reformationstag", kind: fixedDate, month: time.October, day: 31, states: []string{"BB", "HB", "HH", "MV", "NI", "SN", "ST", "SH", "TH"}},
	{name: "Allerheiligen", kind: fixedDate, month: time.November, day: 1, states: []string{"BW", "BY", "NW", "RP", "SL"}},
	{name: "Buß- und Bettag", kind: repentanceDay, states: []string{"SN"}},
	{name: "1. Weihnachtstag", kind: fixedDate, month: time.December, day: 25},
	{name: "2. Weihnachtstag", kind: fixedDate, month: time.December, day: 26},
}

// States returns the supported region codes in alphabetical order.
func States() []string {
	out := make([]string, len(states))
	copy(out, states)
	return out
}

// ValidState reports whether code is one of the supported region codes.
func ValidState(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, s := range states {
		if s == code {
			return true
		}
	}
	return false
}

func (r holidayRule) appliesTo(state string) bool {
	if len(r.states) == 0 {
		return true
	}
	for _, s := range r.states {
		if s == state {
			return true
		}
	}
	return false
}

func (r holidayRule) date(year int, easter time.Time) time.Time {
	loc := easter.Location()
	switch r.kind {
	case easterRelative:
		return easter.AddDate(0, 0, r.offset)
	case repentanceDay:
		return RepentanceDay(year, loc)
	default:
		return time.Date(year, r.month, r.day, 0, 0, 0, 0, loc)
	}
}

// RepentanceDay returns the Wednesday before November 23 (Nov 16..22).
func RepentanceDay(year int, loc *time.Location) time.Time {
	d := time.Date(year, time.November, 22, 0, 0, 0, 0, loc)
	back := (int(d.Weekday()) - int(time.Wednesday) + 7) % 7
	return d.AddDate(0, 0, -back)
}

// Holidays lists the public holidays of year for the region stateCode, sorted
// by date, with dates at midnight in loc. Unknown region codes only get the
// nationwide holidays.
func Holidays(stateCode string, year int, loc *time.Location) []Holiday {
	if loc == nil {
		loc = time.Local
	}
	state := strings.ToUpper(strings.TrimSpace(stateCode))
	easter := Easter(year, loc)

	var out []Holiday
	for _, r := range holidayRules {
		if !r.appliesTo(state) {
			continue
		}
		out = append(out, Holiday{Date: r.date(year, easter), Name: r.name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// HolidayOn returns the holiday falling on t's calendar day, if any.
func HolidayOn(stateCode string, t time.Time) (Holiday, bool) {
	y, m, d := t.Date()
	for _, h := range Holidays(stateCode, y, t.Location()) {
		hy, hm, hd := h.Date.Date()
		if hy == y && hm == m && hd == d {
			return h, true
		}
	}
	return Holiday{}, false
}

// IsHoliday reports whether t's calendar day is a public holiday in stateCode.
func IsHoliday(stateCode string, t time.Time) bool {
	_, ok := HolidayOn(stateCode, t)
	return ok
}
