package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const projectColumns = `id, name, number, archived, created_at`

func (s *Store) CreateProject(ctx context.Context, name, number string) (*Project, error) {
	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, number, created_at) VALUES (?, ?, ?)`,
		name, number, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert project %q: %w", name, ErrDuplicateName)
		}
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetProject(ctx, id)
}

func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

// GetProjectByName looks a project up by its exact name.
func (s *Store) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE name = ?`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %q: %w", name, err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, includeArchived bool) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY archived, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, id int64, name, number string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, number = ? WHERE id = ?`,
		name, number, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update project %d: %w", id, ErrDuplicateName)
		}
		return fmt.Errorf("update project %d: %w", id, err)
	}
	return affectedOrNotFound(res, "project", id)
}

func (s *Store) SetProjectArchived(ctx context.Context, id int64, archived bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET archived = ? WHERE id = ?`, boolInt(archived), id,
	)
	if err != nil {
		return fmt.Errorf("archive project %d: %w", id, err)
	}
	return affectedOrNotFound(res, "project", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(r rowScanner) (*Project, error) {
	p := &Project{}
	var archived int
	var createdAt int64
	if err := r.Scan(&p.ID, &p.Name, &p.Number, &archived, &createdAt); err != nil {
		return nil, err
	}
	p.Archived = archived == 1
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
