package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const sessionColumns = `id, project_id, start_ms, end_ms, started_manually, note`

// InsertSession stores a new session. A second running session is rejected
// with ErrRunningExists by the ux_sessions_running index.
func (s *Store) InsertSession(ctx context.Context, ws WorkSession) (*WorkSession, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO work_sessions (project_id, start_ms, end_ms, started_manually, note) VALUES (?, ?, ?, ?, ?)`,
		ws.ProjectID, toMillis(ws.StartTime), nullMillis(ws.EndTime), boolInt(ws.StartedManually), ws.Note,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRunningExists
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("insert session for project %d: %w", ws.ProjectID, ErrNotFound)
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetSession(ctx, id)
}

// GetSession returns the session with its pauses.
func (s *Store) GetSession(ctx context.Context, id int64) (*WorkSession, error) {
	ws, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	if ws.Pauses, err = s.ListPauses(ctx, id); err != nil {
		return nil, err
	}
	return ws, nil
}

// GetRunningSession returns the session without end timestamp, or nil.
func (s *Store) GetRunningSession(ctx context.Context) (*WorkSession, error) {
	ws, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions WHERE end_ms IS NULL ORDER BY start_ms DESC LIMIT 1`,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get running session: %w", err)
	}
	if ws.Pauses, err = s.ListPauses(ctx, ws.ID); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *Store) SetSessionStart(ctx context.Context, id int64, start time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE work_sessions SET start_ms = ? WHERE id = ?`, toMillis(start), id,
	)
	if err != nil {
		return fmt.Errorf("set session %d start: %w", id, err)
	}
	return affectedOrNotFound(res, "session", id)
}

func (s *Store) SetSessionEnd(ctx context.Context, id int64, end time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE work_sessions SET end_ms = ? WHERE id = ?`, toMillis(end), id,
	)
	if err != nil {
		return fmt.Errorf("set session %d end: %w", id, err)
	}
	return affectedOrNotFound(res, "session", id)
}

func (s *Store) SetSessionNote(ctx context.Context, id int64, note string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE work_sessions SET note = ? WHERE id = ?`, note, id,
	)
	if err != nil {
		return fmt.Errorf("set session %d note: %w", id, err)
	}
	return affectedOrNotFound(res, "session", id)
}

// DeleteSession removes a session; pauses and edits cascade.
func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM work_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	return affectedOrNotFound(res, "session", id)
}

// ListSessions returns sessions matching f, pauses included.
func (s *Store) ListSessions(ctx context.Context, f SessionFilter) ([]WorkSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM work_sessions WHERE 1=1`
	var args []any

	if f.ProjectID != nil {
		query += ` AND project_id = ?`
		args = append(args, *f.ProjectID)
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	if f.To != nil {
		query += ` AND start_ms < ?`
		args = append(args, toMillis(*f.To))
	}
	if f.From != nil {
		query += ` AND COALESCE(end_ms, ?) > ?`
		args = append(args, toMillis(now), toMillis(*f.From))
	}
	if f.Descending {
		query += ` ORDER BY start_ms DESC, id DESC`
	} else {
		query += ` ORDER BY start_ms, id`
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var sessions []WorkSession
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sessions = append(sessions, *ws)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// The single connection must be released before the pause query.
	rows.Close()

	if len(sessions) == 0 {
		return sessions, nil
	}
	ids := make([]int64, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].ID
	}
	pauses, err := s.pausesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].Pauses = pauses[sessions[i].ID]
	}
	return sessions, nil
}

func scanSession(r rowScanner) (*WorkSession, error) {
	ws := &WorkSession{}
	var start int64
	var end sql.NullInt64
	var manual int
	if err := r.Scan(&ws.ID, &ws.ProjectID, &start, &end, &manual, &ws.Note); err != nil {
		return nil, err
	}
	ws.StartTime = fromMillis(start)
	ws.EndTime = timePtr(end)
	ws.StartedManually = manual == 1
	return ws, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
