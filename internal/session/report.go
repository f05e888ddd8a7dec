package session

import (
	"context"
	"time"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/metrics"
	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/store"
)

// Snapshot is a consistent view of the current state.
type Snapshot struct {
	Now   time.Time
	State State
	// Session and Project are nil when nothing runs.
	Session *store.WorkSession
	Project *store.Project
	// Effective is the running session's effective duration.
	Effective time.Duration
	Today     time.Duration
	Week      time.Duration
	Prefs     prefs.Prefs
}

// Status reads the running session and today's and this week's totals from a
// single transaction.
func (e *Engine) Status(ctx context.Context, now time.Time) (Snapshot, error) {
	snap := Snapshot{Now: now}
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		p, err := prefs.Load(ctx, tx)
		if err != nil {
			return err
		}
		snap.Prefs = p

		running, err := tx.GetRunningSession(ctx)
		if err != nil {
			return err
		}
		snap.State = StateOf(running)
		if running != nil {
			snap.Session = running
			snap.Effective = aggregate.EffectiveDuration(*running, now)
			if snap.Project, err = tx.GetProject(ctx, running.ProjectID); err != nil {
				return err
			}
		}

		dayFrom, dayTo := calendar.DayBounds(now)
		if snap.Today, err = e.window(ctx, tx, dayFrom, dayTo, now, nil); err != nil {
			return err
		}
		weekFrom, weekTo := p.WeekBounds(now)
		snap.Week, err = e.window(ctx, tx, weekFrom, weekTo, now, nil)
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}
	metrics.ObserveState(snap.State != NoActiveSession, snap.State == RunningPaused, snap.Today)
	return snap, nil
}

// Window sums effective time in [from, to), optionally for one project.
func (e *Engine) Window(ctx context.Context, from, to, now time.Time, projectID *int64) (time.Duration, error) {
	return e.window(ctx, e.store, from, to, now, projectID)
}

// Today is the effective time of now's calendar day.
func (e *Engine) Today(ctx context.Context, now time.Time) (time.Duration, error) {
	from, to := calendar.DayBounds(now)
	return e.Window(ctx, from, to, now, nil)
}

// Week is the effective time of the configured week containing now.
func (e *Engine) Week(ctx context.Context, now time.Time) (time.Duration, error) {
	p, err := prefs.Load(ctx, e.store)
	if err != nil {
		return 0, err
	}
	from, to := p.WeekBounds(now)
	return e.Window(ctx, from, to, now, nil)
}

// ProjectTotal is the all-time effective time booked on a project.
func (e *Engine) ProjectTotal(ctx context.Context, projectID int64, now time.Time) (time.Duration, error) {
	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return 0, err
	}
	sessions, err := e.store.ListSessions(ctx, store.SessionFilter{ProjectID: &projectID, Now: now})
	if err != nil {
		return 0, err
	}
	var total time.Duration
	for _, s := range sessions {
		total += aggregate.EffectiveDuration(s, now)
	}
	return total, nil
}

func (e *Engine) window(ctx context.Context, q *store.Store, from, to, now time.Time, projectID *int64) (time.Duration, error) {
	sessions, err := q.ListSessions(ctx, store.SessionFilter{ProjectID: projectID, From: &from, To: &to, Now: now})
	if err != nil {
		return 0, err
	}
	return aggregate.EffectiveSum(sessions, from, to, now, e.policy), nil
}

// DayReport is one row of a week report.
type DayReport struct {
	Day     time.Time
	Total   time.Duration
	Holiday string
}

// WeekReport summarizes the configured week containing t.
type WeekReport struct {
	From, To  time.Time
	Days      []DayReport
	Total     time.Duration
	Target    time.Duration
	Level     aggregate.Level
	ByProject []aggregate.ProjectTotal
	Prefs     prefs.Prefs
}

// WeekReport builds the report for the week containing t, measuring running
// sessions up to now.
func (e *Engine) WeekReport(ctx context.Context, t, now time.Time) (WeekReport, error) {
	p, err := prefs.Load(ctx, e.store)
	if err != nil {
		return WeekReport{}, err
	}
	from, to := p.WeekBounds(t)
	sessions, err := e.store.ListSessions(ctx, store.SessionFilter{From: &from, To: &to, Now: now})
	if err != nil {
		return WeekReport{}, err
	}

	r := WeekReport{
		From:      from,
		To:        to,
		Target:    time.Duration(p.WeekTargetHours * float64(time.Hour)),
		ByProject: aggregate.ByProject(sessions, from, to, now),
		Prefs:     p,
	}
	for _, d := range aggregate.DailyTotals(sessions, from, to, now) {
		row := DayReport{Day: d.Day, Total: d.Total}
		if h, ok := calendar.HolidayOn(p.HolidayState, d.Day); ok {
			row.Holiday = h.Name
		}
		r.Days = append(r.Days, row)
		r.Total += d.Total
	}
	if e.policy != aggregate.Clip {
		r.Total = aggregate.EffectiveSum(sessions, from, to, now, e.policy)
	}
	r.Level = aggregate.Progress(r.Total, p.WeekTargetHours)
	return r, nil
}

// Recent lists the latest sessions, newest first.
func (e *Engine) Recent(ctx context.Context, limit int, projectID *int64) ([]store.WorkSession, error) {
	return e.store.ListSessions(ctx, store.SessionFilter{ProjectID: projectID, Limit: limit, Descending: true})
}
