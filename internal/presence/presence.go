// Package presence decides whether the user's observed presence at the
// workplace network and the running session disagree with the schedule.
// Evaluate is pure: callers supply the sampled presence and the clock, and
// de-duplication of repeated events is left to the notification layer.
package presence

import (
	"regexp"
	"strconv"
	"time"

	"github.com/sadopc/worktime/internal/calendar"
)

type Kind string

const (
	// NotLoggedIn fires when the user is present but has not started a
	// session by the expected start plus the grace period.
	NotLoggedIn Kind = "not_logged_in"
	// LeftPresenceArea fires when a session runs but the user is not present.
	LeftPresenceArea Kind = "left_presence_area"
)

type Event struct {
	Kind  Kind
	Title string
	Body  string
	// Expected is the scheduled start used for NotLoggedIn.
	Expected time.Time
}

// Config holds the presence trigger switch and the workplace network.
type Config struct {
	Enabled bool
	Network string
}

// Input is everything one evaluation looks at.
type Input struct {
	Config Config
	// Schedule holds the expected start times as HH:MM, Monday first.
	Schedule  [7]string
	LateAfter time.Duration
	Running   bool
	Present   bool
	Now       time.Time
}

// Evaluate returns the events for one observation. Identical input always
// yields an identical result.
func Evaluate(in Input) []Event {
	if !in.Config.Enabled || in.Config.Network == "" {
		return nil
	}

	var events []Event
	if in.Present && !in.Running {
		expected := ExpectedStart(in.Schedule, in.Now)
		if in.Now.After(expected.Add(in.LateAfter)) {
			events = append(events, Event{
				Kind:     NotLoggedIn,
				Title:    "Not clocked in",
				Body:     "You are at the workplace (" + in.Config.Network + ") but no session is running.",
				Expected: expected,
			})
		}
	}
	if in.Running && !in.Present {
		events = append(events, Event{
			Kind:  LeftPresenceArea,
			Title: "Left the workplace",
			Body:  "Not connected to " + in.Config.Network + " any more while a session is running.",
		})
	}
	return events
}

var hhmm = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

// ParseHHMM parses an expected start time. Malformed input yields 09:00;
// out-of-range hours and minutes are clamped to 23 and 59.
func ParseHHMM(s string) (hour, minute int) {
	m := hhmm.FindStringSubmatch(s)
	if m == nil {
		return 9, 0
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return min(hour, 23), min(minute, 59)
}

// ExpectedStart returns today's scheduled start in now's location.
func ExpectedStart(schedule [7]string, now time.Time) time.Time {
	h, m := ParseHHMM(schedule[calendar.WeekdayIndex(now)])
	y, mo, d := now.Date()
	return time.Date(y, mo, d, h, m, 0, 0, now.Location())
}
