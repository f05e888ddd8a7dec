// Package rounding maps raw durations onto display granularities. It is a
// presentation transform only; stored timestamps are never rounded.
package rounding

import (
	"math"
	"strings"
	"time"
)

// Mode selects how a duration is snapped to the granularity grid.
type Mode string

const (
	None    Mode = "NONE"
	Nearest Mode = "NEAREST"
	Down    Mode = "DOWN"
	Up      Mode = "UP"
)

// Modes lists every supported mode.
var Modes = []Mode{None, Nearest, Down, Up}

// ParseMode parses a mode name case-insensitively. Unknown names yield None
// and ok = false.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case None:
		return None, true
	case Nearest:
		return Nearest, true
	case Down:
		return Down, true
	case Up:
		return Up, true
	}
	return None, false
}

// MaxGranularityMinutes is the largest grid Round accepts; coarser values
// leave the duration unchanged.
const MaxGranularityMinutes = 24 * 60

// Round snaps d to a multiple of granularityMinutes according to mode.
// Nearest rounds ties to even, so 7m30s at 5 minutes becomes 10m and 2m30s
// becomes 0. Granularities outside (0, MaxGranularityMinutes] disable
// rounding.
func Round(d time.Duration, granularityMinutes int, mode Mode) time.Duration {
	if granularityMinutes <= 0 || granularityMinutes > MaxGranularityMinutes || mode == None {
		return d
	}
	unit := float64(time.Duration(granularityMinutes) * time.Minute)
	q := float64(d) / unit

	var f float64
	switch mode {
	case Nearest:
		f = math.RoundToEven(q)
	case Down:
		f = math.Floor(q)
	case Up:
		f = math.Ceil(q)
	default:
		return d
	}
	return time.Duration(f * unit)
}
