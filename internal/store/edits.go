package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertEdit appends an audit record. Edits are never updated.
func (s *Store) InsertEdit(ctx context.Context, e SessionEdit) (*SessionEdit, error) {
	if e.EditedAt.IsZero() {
		e.EditedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_edits (session_id, field, old_value, new_value, reason, edited_at_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Field, nullString(e.OldValue), nullString(e.NewValue), e.Reason, toMillis(e.EditedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("insert edit for session %d: %w", e.SessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("insert edit: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return &e, nil
}

// ListEdits returns a session's audit trail, newest first.
func (s *Store) ListEdits(ctx context.Context, sessionID int64) ([]SessionEdit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, field, old_value, new_value, reason, edited_at_ms
		 FROM session_edits WHERE session_id = ? ORDER BY edited_at_ms DESC, id DESC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer rows.Close()

	var edits []SessionEdit
	for rows.Next() {
		var e SessionEdit
		var oldV, newV sql.NullString
		var at int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Field, &oldV, &newV, &e.Reason, &at); err != nil {
			return nil, err
		}
		e.OldValue = stringPtr(oldV)
		e.NewValue = stringPtr(newV)
		e.EditedAt = fromMillis(at)
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
