// Package session owns the work session lifecycle: starting, ending, pausing
// and switching sessions, audited retroactive edits, and the reports derived
// from stored sessions.
//
// Every mutation runs under a process-wide mutex and inside one SQLite
// transaction. The schema's partial unique indexes keep the single running
// session and single open pause invariants across processes as well.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/metrics"
	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/store"
)

// State is derived from the stored sessions; it is never persisted.
type State int

const (
	NoActiveSession State = iota
	Running
	RunningPaused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case RunningPaused:
		return "paused"
	default:
		return "idle"
	}
}

// StateOf derives the state from the running session, which may be nil.
func StateOf(running *store.WorkSession) State {
	switch {
	case running == nil:
		return NoActiveSession
	case running.OpenPause() != nil:
		return RunningPaused
	default:
		return Running
	}
}

// Engine serializes session mutations.
type Engine struct {
	mu     sync.Mutex
	store  *store.Store
	clock  calendar.Clock
	policy aggregate.Policy
	logger zerolog.Logger
}

type Option func(*Engine)

func WithClock(c calendar.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l.With().Str("component", "session").Logger() }
}

// WithPolicy selects how sessions crossing a report window are counted.
func WithPolicy(p aggregate.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		clock:  calendar.RealClock{},
		policy: aggregate.Clip,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store for read-only callers.
func (e *Engine) Store() *store.Store { return e.store }

// Clock returns the engine's time source.
func (e *Engine) Clock() calendar.Clock { return e.clock }

// Start begins a session for projectID at startTs (now when nil). When a
// session is already running nothing changes and its id is returned with
// started = false. An unknown project yields store.ErrNotFound.
func (e *Engine) Start(ctx context.Context, projectID int64, startTs *time.Time, manual bool) (int64, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.clock.Now()
	if startTs != nil {
		start = *startTs
	}

	var id int64
	var started bool
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		running, err := tx.GetRunningSession(ctx)
		if err != nil {
			return err
		}
		if running != nil {
			id = running.ID
			return nil
		}
		ws, err := startLocked(ctx, tx, projectID, start, manual)
		if err != nil {
			return err
		}
		id, started = ws.ID, true
		return nil
	})
	if errors.Is(err, store.ErrRunningExists) {
		// Another process won the race; report its session.
		running, rerr := e.store.GetRunningSession(ctx)
		if rerr == nil && running != nil {
			e.record("start", "noop")
			return running.ID, false, nil
		}
	}
	if err != nil {
		e.record("start", "error")
		return 0, false, fmt.Errorf("start session: %w", err)
	}

	if started {
		e.record("start", "ok")
		e.logger.Info().Int64("session", id).Int64("project", projectID).Time("start", start).Bool("manual", manual).Msg("Session started")
	} else {
		e.record("start", "noop")
		e.logger.Debug().Int64("session", id).Msg("Start ignored, session already running")
	}
	return id, started, nil
}

// End closes the running session at now, closing its open pause first.
// It returns the ended session id, or 0 when nothing was running.
func (e *Engine) End(ctx context.Context, now time.Time) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ended *store.WorkSession
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		ended, err = endLocked(ctx, tx, now)
		return err
	})
	if err != nil {
		e.record("end", "error")
		return 0, fmt.Errorf("end session: %w", err)
	}
	if ended == nil {
		e.record("end", "noop")
		return 0, nil
	}
	e.record("end", "ok")
	e.logger.Info().Int64("session", ended.ID).Time("end", now).Msg("Session ended")
	return ended.ID, nil
}

// TogglePause opens a pause on the running session or closes its open one.
// It returns the resulting state; with nothing running it is a no-op.
func (e *Engine) TogglePause(ctx context.Context, now time.Time) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := NoActiveSession
	var sessionID int64
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		running, err := tx.GetRunningSession(ctx)
		if err != nil || running == nil {
			return err
		}
		sessionID = running.ID
		at := later(now, running.StartTime)
		if open := running.OpenPause(); open != nil {
			state = Running
			return tx.SetPauseEnd(ctx, open.ID, later(at, open.StartTime))
		}
		state = RunningPaused
		_, err = tx.InsertPause(ctx, store.PauseSegment{SessionID: running.ID, StartTime: at})
		return err
	})
	if errors.Is(err, store.ErrPauseOpen) {
		e.record("pause", "noop")
		return RunningPaused, nil
	}
	if err != nil {
		e.record("pause", "error")
		return NoActiveSession, fmt.Errorf("toggle pause: %w", err)
	}
	if state == NoActiveSession {
		e.record("pause", "noop")
		return state, nil
	}
	e.record("pause", "ok")
	e.logger.Info().Int64("session", sessionID).Str("state", state.String()).Msg("Pause toggled")
	return state, nil
}

// SwitchProject ends the running session (if any) and starts a new one for
// projectID at the same instant, in one transaction.
func (e *Engine) SwitchProject(ctx context.Context, projectID int64, now time.Time) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var id int64
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetProject(ctx, projectID); err != nil {
			return err
		}
		if _, err := endLocked(ctx, tx, now); err != nil {
			return err
		}
		ws, err := startLocked(ctx, tx, projectID, now, false)
		if err != nil {
			return err
		}
		id = ws.ID
		return nil
	})
	if err != nil {
		e.record("switch", "error")
		return 0, fmt.Errorf("switch project: %w", err)
	}
	e.record("switch", "ok")
	e.logger.Info().Int64("session", id).Int64("project", projectID).Time("at", now).Msg("Project switched")
	return id, nil
}

func startLocked(ctx context.Context, tx *store.Store, projectID int64, start time.Time, manual bool) (*store.WorkSession, error) {
	if _, err := tx.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	ws, err := tx.InsertSession(ctx, store.WorkSession{
		ProjectID:       projectID,
		StartTime:       start,
		StartedManually: manual,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.SetSetting(ctx, prefs.KeyLastProjectID, strconv.FormatInt(projectID, 10)); err != nil {
		return nil, err
	}
	return ws, nil
}

// endLocked closes the running session and its open pause at now, clamped so
// the session does not end before it started. The pause ends exactly with the
// session; a pause starting later is pulled back to that instant.
func endLocked(ctx context.Context, tx *store.Store, now time.Time) (*store.WorkSession, error) {
	running, err := tx.GetRunningSession(ctx)
	if err != nil || running == nil {
		return nil, err
	}
	end := later(now, running.StartTime)
	if open := running.OpenPause(); open != nil {
		if open.StartTime.After(end) {
			if err := tx.SetPauseStart(ctx, open.ID, end); err != nil {
				return nil, err
			}
		}
		if err := tx.SetPauseEnd(ctx, open.ID, end); err != nil {
			return nil, err
		}
	}
	if err := tx.SetSessionEnd(ctx, running.ID, end); err != nil {
		return nil, err
	}
	return running, nil
}

func (e *Engine) record(op, result string) {
	metrics.LifecycleOps.WithLabelValues(op, result).Inc()
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
