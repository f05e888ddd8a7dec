package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const pauseColumns = `id, session_id, start_ms, end_ms`

// InsertPause stores a pause. Opening a second pause for the same session is
// rejected with ErrPauseOpen.
func (s *Store) InsertPause(ctx context.Context, p PauseSegment) (*PauseSegment, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pause_segments (session_id, start_ms, end_ms) VALUES (?, ?, ?)`,
		p.SessionID, toMillis(p.StartTime), nullMillis(p.EndTime),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrPauseOpen
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("insert pause for session %d: %w", p.SessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("insert pause: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetPause(ctx, id)
}

func (s *Store) GetPause(ctx context.Context, id int64) (*PauseSegment, error) {
	p, err := scanPause(s.db.QueryRowContext(ctx,
		`SELECT `+pauseColumns+` FROM pause_segments WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get pause %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pause %d: %w", id, err)
	}
	return p, nil
}

// GetOpenPause returns the session's pause without end timestamp, or nil.
func (s *Store) GetOpenPause(ctx context.Context, sessionID int64) (*PauseSegment, error) {
	p, err := scanPause(s.db.QueryRowContext(ctx,
		`SELECT `+pauseColumns+` FROM pause_segments WHERE session_id = ? AND end_ms IS NULL`, sessionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open pause of session %d: %w", sessionID, err)
	}
	return p, nil
}

func (s *Store) SetPauseStart(ctx context.Context, id int64, start time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pause_segments SET start_ms = ? WHERE id = ?`, toMillis(start), id,
	)
	if err != nil {
		return fmt.Errorf("set pause %d start: %w", id, err)
	}
	return affectedOrNotFound(res, "pause", id)
}

func (s *Store) SetPauseEnd(ctx context.Context, id int64, end time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pause_segments SET end_ms = ? WHERE id = ?`, toMillis(end), id,
	)
	if err != nil {
		return fmt.Errorf("set pause %d end: %w", id, err)
	}
	return affectedOrNotFound(res, "pause", id)
}

func (s *Store) DeletePause(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pause_segments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pause %d: %w", id, err)
	}
	return affectedOrNotFound(res, "pause", id)
}

// ListPauses returns a session's pauses ordered by start.
func (s *Store) ListPauses(ctx context.Context, sessionID int64) ([]PauseSegment, error) {
	m, err := s.pausesFor(ctx, []int64{sessionID})
	if err != nil {
		return nil, err
	}
	return m[sessionID], nil
}

func (s *Store) pausesFor(ctx context.Context, sessionIDs []int64) (map[int64][]PauseSegment, error) {
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pauseColumns+` FROM pause_segments WHERE session_id IN (`+placeholders(len(sessionIDs))+`) ORDER BY start_ms, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list pauses: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]PauseSegment, len(sessionIDs))
	for rows.Next() {
		p, err := scanPause(rows)
		if err != nil {
			return nil, err
		}
		out[p.SessionID] = append(out[p.SessionID], *p)
	}
	return out, rows.Err()
}

func scanPause(r rowScanner) (*PauseSegment, error) {
	p := &PauseSegment{}
	var start int64
	var end sql.NullInt64
	if err := r.Scan(&p.ID, &p.SessionID, &start, &end); err != nil {
		return nil, err
	}
	p.StartTime = fromMillis(start)
	p.EndTime = timePtr(end)
	return p, nil
}
