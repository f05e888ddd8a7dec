// Package aggregate computes effective worked time from sessions and their
// pauses. All functions are pure; storage is never consulted.
package aggregate

import (
	"sort"
	"time"

	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/store"
)

// Policy selects which sessions count toward a window sum.
type Policy int

const (
	// Clip counts the part of every session that overlaps the window.
	Clip Policy = iota
	// StartsInWindow counts whole sessions that start at or after the window
	// start and end (or are still running at now) before the window end.
	StartsInWindow
)

func (p Policy) String() string {
	switch p {
	case StartsInWindow:
		return "starts-in-window"
	default:
		return "clip"
	}
}

// EffectiveDuration is the session's wall-clock span minus paused time.
// Running sessions and open pauses are measured up to now.
func EffectiveDuration(s store.WorkSession, now time.Time) time.Duration {
	return effective(s, s.StartTime, sessionEnd(s, now), now)
}

// EffectiveWithin is the part of EffectiveDuration that falls inside [from, to).
func EffectiveWithin(s store.WorkSession, from, to, now time.Time) time.Duration {
	lo := s.StartTime
	if from.After(lo) {
		lo = from
	}
	hi := sessionEnd(s, now)
	if to.Before(hi) {
		hi = to
	}
	return effective(s, lo, hi, now)
}

// EffectiveSum totals the effective time of sessions for the window [from, to).
func EffectiveSum(sessions []store.WorkSession, from, to, now time.Time, policy Policy) time.Duration {
	var total time.Duration
	for _, s := range sessions {
		switch policy {
		case StartsInWindow:
			if !s.StartTime.Before(from) && sessionEnd(s, now).Before(to) {
				total += EffectiveDuration(s, now)
			}
		default:
			total += EffectiveWithin(s, from, to, now)
		}
	}
	return total
}

// DayTotal is the effective time worked on one calendar day.
type DayTotal struct {
	Day   time.Time
	Total time.Duration
}

// DailyTotals splits [from, to) into calendar days in from's location and
// returns the clipped effective time of each day, including empty days.
func DailyTotals(sessions []store.WorkSession, from, to, now time.Time) []DayTotal {
	var out []DayTotal
	for day := calendar.DayStart(from); day.Before(to); {
		next := day.AddDate(0, 0, 1)
		lo, hi := day, next
		if lo.Before(from) {
			lo = from
		}
		if hi.After(to) {
			hi = to
		}
		out = append(out, DayTotal{Day: day, Total: EffectiveSum(sessions, lo, hi, now, Clip)})
		day = next
	}
	return out
}

// ProjectTotal is the effective time booked on one project.
type ProjectTotal struct {
	ProjectID int64
	Total     time.Duration
}

// ByProject returns per-project clipped totals for [from, to), largest first.
// Projects without time in the window are omitted.
func ByProject(sessions []store.WorkSession, from, to, now time.Time) []ProjectTotal {
	sums := make(map[int64]time.Duration)
	for _, s := range sessions {
		if d := EffectiveWithin(s, from, to, now); d > 0 {
			sums[s.ProjectID] += d
		}
	}
	out := make([]ProjectTotal, 0, len(sums))
	for id, d := range sums {
		out = append(out, ProjectTotal{ProjectID: id, Total: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	return out
}

// Level grades a total against a target.
type Level int

const (
	Behind Level = iota
	Near
	Reached
)

func (l Level) String() string {
	switch l {
	case Reached:
		return "reached"
	case Near:
		return "near"
	default:
		return "behind"
	}
}

// Progress is Reached at or above the target, Near from three quarters of it.
func Progress(sum time.Duration, targetHours float64) Level {
	target := time.Duration(targetHours * float64(time.Hour))
	switch {
	case sum >= target:
		return Reached
	case sum*4 >= target*3:
		return Near
	default:
		return Behind
	}
}

func sessionEnd(s store.WorkSession, now time.Time) time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return now
}

func effective(s store.WorkSession, lo, hi, now time.Time) time.Duration {
	if !hi.After(lo) {
		return 0
	}
	d := hi.Sub(lo) - pausedWithin(s.Pauses, lo, hi, now)
	if d < 0 {
		return 0
	}
	return d
}

type span struct{ lo, hi time.Time }

// pausedWithin is the length of the union of pauses clipped to [lo, hi).
// Overlapping pauses are counted once.
func pausedWithin(pauses []store.PauseSegment, lo, hi, now time.Time) time.Duration {
	spans := make([]span, 0, len(pauses))
	for _, p := range pauses {
		a, b := p.StartTime, now
		if p.EndTime != nil {
			b = *p.EndTime
		}
		if a.Before(lo) {
			a = lo
		}
		if b.After(hi) {
			b = hi
		}
		if b.After(a) {
			spans = append(spans, span{a, b})
		}
	}
	if len(spans) == 0 {
		return 0
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo.Before(spans[j].lo) })

	var total time.Duration
	cur := spans[0]
	for _, sp := range spans[1:] {
		if sp.lo.After(cur.hi) {
			total += cur.hi.Sub(cur.lo)
			cur = sp
			continue
		}
		if sp.hi.After(cur.hi) {
			cur.hi = sp.hi
		}
	}
	return total + cur.hi.Sub(cur.lo)
}
