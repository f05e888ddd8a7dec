package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/worktime/internal/metrics"
	"github.com/sadopc/worktime/internal/store"
)

// ErrInvalidEdit is returned when an edit would break start < end or move a
// pause outside its session.
var ErrInvalidEdit = errors.New("session: invalid edit")

// Audit field names.
const (
	AuditStart       = "startTs"
	AuditEnd         = "endTs"
	AuditPauseEdit   = "pause_edit"
	AuditPauseAdd    = "pause_add"
	AuditPauseDelete = "pause_delete"
)

type TargetKind int

const (
	SessionTarget TargetKind = iota
	PauseTarget
)

func (k TargetKind) String() string {
	if k == PauseTarget {
		return "pause"
	}
	return "session"
}

// Target names the record an edit applies to.
type Target struct {
	Kind TargetKind
	ID   int64
}

type Field int

const (
	FieldStart Field = iota
	FieldEnd
)

func (f Field) String() string {
	if f == FieldEnd {
		return "end"
	}
	return "start"
}

// EditTimestamp changes the start or end of a session or pause and appends
// one audit record in the same transaction. Setting the end of the running
// session ends it and closes its open pause at the same instant. Setting a
// field to its current value does nothing.
func (e *Engine) EditTimestamp(ctx context.Context, target Target, field Field, value time.Time, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		if target.Kind == PauseTarget {
			return editPause(ctx, tx, target.ID, field, value, reason, e.clock.Now())
		}
		return editSession(ctx, tx, target.ID, field, value, reason)
	})
	if err != nil {
		e.record("edit", "error")
		return fmt.Errorf("edit %s %d %s: %w", target.Kind, target.ID, field, err)
	}
	e.record("edit", "ok")
	e.logger.Info().Str("target", target.Kind.String()).Int64("id", target.ID).Str("field", field.String()).Time("value", value).Msg("Timestamp edited")
	return nil
}

func editSession(ctx context.Context, tx *store.Store, id int64, field Field, value time.Time, reason string) error {
	ws, err := tx.GetSession(ctx, id)
	if err != nil {
		return err
	}

	if field == FieldStart {
		if value.Equal(ws.StartTime) {
			return nil
		}
		if ws.EndTime != nil && !value.Before(*ws.EndTime) {
			return fmt.Errorf("start must be before end: %w", ErrInvalidEdit)
		}
		for _, p := range ws.Pauses {
			if p.StartTime.Before(value) {
				return fmt.Errorf("pause %d starts before the new start: %w", p.ID, ErrInvalidEdit)
			}
		}
		if err := tx.SetSessionStart(ctx, id, value); err != nil {
			return err
		}
		return audit(ctx, tx, id, AuditStart, millis(&ws.StartTime), millis(&value), reason)
	}

	if ws.EndTime != nil && value.Equal(*ws.EndTime) {
		return nil
	}
	if !value.After(ws.StartTime) {
		return fmt.Errorf("end must be after start: %w", ErrInvalidEdit)
	}
	for _, p := range ws.Pauses {
		if p.EndTime != nil && p.EndTime.After(value) {
			return fmt.Errorf("pause %d ends after the new end: %w", p.ID, ErrInvalidEdit)
		}
		if p.EndTime == nil && p.StartTime.After(value) {
			return fmt.Errorf("open pause %d starts after the new end: %w", p.ID, ErrInvalidEdit)
		}
	}

	if open := ws.OpenPause(); open != nil {
		if err := tx.SetPauseEnd(ctx, open.ID, value); err != nil {
			return err
		}
		closed := *open
		closed.EndTime = &value
		if err := audit(ctx, tx, id, AuditPauseEdit, pauseValue(*open), pauseValue(closed), reason); err != nil {
			return err
		}
	}
	if err := tx.SetSessionEnd(ctx, id, value); err != nil {
		return err
	}
	return audit(ctx, tx, id, AuditEnd, millis(ws.EndTime), millis(&value), reason)
}

// editPause moves one end of a pause. On a running session neither end may
// lie after now.
func editPause(ctx context.Context, tx *store.Store, id int64, field Field, value time.Time, reason string, now time.Time) error {
	p, err := tx.GetPause(ctx, id)
	if err != nil {
		return err
	}
	ws, err := tx.GetSession(ctx, p.SessionID)
	if err != nil {
		return err
	}

	updated := *p
	if field == FieldStart {
		if value.Equal(p.StartTime) {
			return nil
		}
		updated.StartTime = value
	} else {
		if p.EndTime != nil && value.Equal(*p.EndTime) {
			return nil
		}
		updated.EndTime = &value
	}
	if err := validatePause(*ws, updated.StartTime, updated.EndTime); err != nil {
		return err
	}
	if ws.EndTime == nil && value.After(now) {
		return fmt.Errorf("pause of a running session cannot move into the future: %w", ErrInvalidEdit)
	}

	if field == FieldStart {
		err = tx.SetPauseStart(ctx, id, value)
	} else {
		err = tx.SetPauseEnd(ctx, id, value)
	}
	if err != nil {
		return err
	}
	return audit(ctx, tx, ws.ID, AuditPauseEdit, pauseValue(*p), pauseValue(updated), reason)
}

// AddPause inserts a closed pause into a session.
func (e *Engine) AddPause(ctx context.Context, sessionID int64, start, end time.Time, reason string) (*store.PauseSegment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var added *store.PauseSegment
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		ws, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := validatePause(*ws, start, &end); err != nil {
			return err
		}
		if ws.EndTime == nil && end.After(e.clock.Now()) {
			return fmt.Errorf("pause of a running session cannot end in the future: %w", ErrInvalidEdit)
		}
		added, err = tx.InsertPause(ctx, store.PauseSegment{SessionID: sessionID, StartTime: start, EndTime: &end})
		if err != nil {
			return err
		}
		return audit(ctx, tx, sessionID, AuditPauseAdd, nil, pauseValue(*added), reason)
	})
	if err != nil {
		e.record("pause_add", "error")
		return nil, fmt.Errorf("add pause to session %d: %w", sessionID, err)
	}
	e.record("pause_add", "ok")
	return added, nil
}

// DefaultPauseSlot proposes 12:00 to 12:30 wall clock on the session's start
// day.
func DefaultPauseSlot(ws store.WorkSession) (time.Time, time.Time) {
	y, m, d := ws.StartTime.Date()
	loc := ws.StartTime.Location()
	return time.Date(y, m, d, 12, 0, 0, 0, loc), time.Date(y, m, d, 12, 30, 0, 0, loc)
}

// DeletePause removes a pause and audits its former span.
func (e *Engine) DeletePause(ctx context.Context, pauseID int64, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		p, err := tx.GetPause(ctx, pauseID)
		if err != nil {
			return err
		}
		if err := tx.DeletePause(ctx, pauseID); err != nil {
			return err
		}
		return audit(ctx, tx, p.SessionID, AuditPauseDelete, pauseValue(*p), nil, reason)
	})
	if err != nil {
		e.record("pause_delete", "error")
		return fmt.Errorf("delete pause %d: %w", pauseID, err)
	}
	e.record("pause_delete", "ok")
	return nil
}

// DeleteSession removes a session together with its pauses and edits.
func (e *Engine) DeleteSession(ctx context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.DeleteSession(ctx, id); err != nil {
		e.record("delete", "error")
		return err
	}
	e.record("delete", "ok")
	e.logger.Info().Int64("session", id).Msg("Session deleted")
	return nil
}

func (e *Engine) SetNote(ctx context.Context, id int64, note string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetSessionNote(ctx, id, note)
}

// Edits returns the audit trail of a session, newest first.
func (e *Engine) Edits(ctx context.Context, sessionID int64) ([]store.SessionEdit, error) {
	if _, err := e.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return e.store.ListEdits(ctx, sessionID)
}

// validatePause checks start < end and that the pause lies in the session.
func validatePause(ws store.WorkSession, start time.Time, end *time.Time) error {
	if end != nil && !start.Before(*end) {
		return fmt.Errorf("pause start must be before its end: %w", ErrInvalidEdit)
	}
	if start.Before(ws.StartTime) {
		return fmt.Errorf("pause starts before its session: %w", ErrInvalidEdit)
	}
	if ws.EndTime != nil {
		if end == nil || end.After(*ws.EndTime) {
			return fmt.Errorf("pause ends after its session: %w", ErrInvalidEdit)
		}
	}
	return nil
}

func audit(ctx context.Context, tx *store.Store, sessionID int64, field string, oldV, newV *string, reason string) error {
	_, err := tx.InsertEdit(ctx, store.SessionEdit{
		SessionID: sessionID,
		Field:     field,
		OldValue:  oldV,
		NewValue:  newV,
		Reason:    reason,
	})
	if err == nil {
		metrics.SessionEdits.WithLabelValues(field).Inc()
	}
	return err
}

// millis renders a timestamp as unix milliseconds; nil stays nil.
func millis(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := strconv.FormatInt(t.UnixMilli(), 10)
	return &v
}

// pauseValue renders a pause span as "<startMs>-<endMs|null>".
func pauseValue(p store.PauseSegment) *string {
	end := "null"
	if p.EndTime != nil {
		end = strconv.FormatInt(p.EndTime.UnixMilli(), 10)
	}
	v := strconv.FormatInt(p.StartTime.UnixMilli(), 10) + "-" + end
	return &v
}

// FormatAuditValue renders a stored audit value for display: a millisecond
// timestamp or a pause span. nil renders as "-".
func FormatAuditValue(v *string, layout string) string {
	if v == nil {
		return "-"
	}
	stamp := func(s string) string {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return s
		}
		return time.UnixMilli(ms).Format(layout)
	}
	if start, end, ok := strings.Cut(*v, "-"); ok {
		if end == "null" {
			return stamp(start) + " - open"
		}
		return stamp(start) + " - " + stamp(end)
	}
	return stamp(*v)
}
