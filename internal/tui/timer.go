package tui

import (
	"time"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/session"
)

// refreshEvery bounds how long the timer extrapolates before the status is
// read again.
const refreshEvery = time.Minute

// timerModel keeps the last status snapshot and advances the running
// session's effective time every second without touching the database.
type timerModel struct {
	snap session.Snapshot
	now  time.Time

	effective time.Duration
	today     time.Duration
	week      time.Duration
}

func (t *timerModel) set(snap session.Snapshot) {
	t.snap = snap
	t.now = snap.Now
	t.effective = snap.Effective
	t.today = snap.Today
	t.week = snap.Week
}

// tick recomputes the effective time at now. Today's and the week's totals
// grow by the same amount as the running session.
func (t *timerModel) tick(now time.Time) {
	t.now = now
	if t.snap.Session == nil {
		return
	}
	eff := aggregate.EffectiveDuration(*t.snap.Session, now)
	delta := eff - t.snap.Effective
	t.effective = eff
	t.today = t.snap.Today + delta
	t.week = t.snap.Week + delta
}

// stale reports whether the snapshot must be reloaded: it is old, or the
// day has changed since it was taken.
func (t timerModel) stale(now time.Time) bool {
	if t.snap.Now.IsZero() {
		return true
	}
	if now.Sub(t.snap.Now) >= refreshEvery {
		return true
	}
	return !calendar.DayStart(now).Equal(calendar.DayStart(t.snap.Now))
}

func (t timerModel) running() bool {
	return t.snap.State != session.NoActiveSession
}

func (t timerModel) paused() bool {
	return t.snap.State == session.RunningPaused
}
