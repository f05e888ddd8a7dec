package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/store"
)

var ErrEmptyName = errors.New("session: project name is empty")

func (e *Engine) CreateProject(ctx context.Context, name, number string) (*store.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	p, err := e.store.CreateProject(ctx, name, strings.TrimSpace(number))
	if err != nil {
		return nil, err
	}
	e.logger.Info().Int64("project", p.ID).Str("name", p.Name).Msg("Project created")
	return p, nil
}

func (e *Engine) RenameProject(ctx context.Context, id int64, name, number string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return e.store.UpdateProject(ctx, id, name, strings.TrimSpace(number))
}

func (e *Engine) SetArchived(ctx context.Context, id int64, archived bool) error {
	return e.store.SetProjectArchived(ctx, id, archived)
}

// ToggleArchived flips the archived flag and returns the new value.
func (e *Engine) ToggleArchived(ctx context.Context, id int64) (bool, error) {
	var archived bool
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		archived = !p.Archived
		return tx.SetProjectArchived(ctx, id, archived)
	})
	if err != nil {
		return false, fmt.Errorf("toggle archive of project %d: %w", id, err)
	}
	return archived, nil
}

func (e *Engine) ListProjects(ctx context.Context, includeArchived bool) ([]store.Project, error) {
	return e.store.ListProjects(ctx, includeArchived)
}

// LastProject returns the most recently started project when it still exists
// and is not archived, otherwise nil.
func (e *Engine) LastProject(ctx context.Context) (*store.Project, error) {
	p, err := prefs.Load(ctx, e.store)
	if err != nil {
		return nil, err
	}
	if p.LastProjectID == 0 {
		return nil, nil
	}
	proj, err := e.store.GetProject(ctx, p.LastProjectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if proj.Archived {
		return nil, nil
	}
	return proj, nil
}
