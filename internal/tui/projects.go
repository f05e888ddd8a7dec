package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

type projectsModel struct {
	ctx    context.Context
	engine *session.Engine
	width  int
	height int

	projects     []store.Project
	cursor       int
	showArchived bool

	formActive bool
	form       *huh.Form
	formType   string // "project", "edit_project"

	// Form field pointers (survive value copies)
	formName   *string
	formNumber *string

	editingID int64 // project ID being edited
}

func newProjectsModel(ctx context.Context, e *session.Engine) projectsModel {
	name, number := "", ""
	return projectsModel{
		ctx:        ctx,
		engine:     e,
		formName:   &name,
		formNumber: &number,
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type projectsDataMsg struct {
	projects []store.Project
}

func (p projectsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		projects, err := p.engine.ListProjects(p.ctx, p.showArchived)
		if err != nil {
			return failed(err)
		}
		return projectsDataMsg{projects: projects}
	}
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case projectsDataMsg:
		p.projects = msg.projects
		if p.cursor >= len(p.projects) {
			p.cursor = max(0, len(p.projects)-1)
		}
		return p, nil

	case tea.KeyMsg:
		return p.updateProjectList(msg)
	}
	return p, nil
}

func (p projectsModel) updateProjectList(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.projects)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.New):
		return p.showProjectForm(nil)
	case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
		if len(p.projects) > 0 {
			proj := p.projects[p.cursor]
			return p.showProjectForm(&proj)
		}
	case key.Matches(msg, keys.Delete):
		if len(p.projects) > 0 {
			return p, p.toggleArchived(p.projects[p.cursor])
		}
	case key.Matches(msg, keys.Archived):
		p.showArchived = !p.showArchived
		return p, p.refresh()
	}
	return p, nil
}

func (p projectsModel) toggleArchived(proj store.Project) tea.Cmd {
	return func() tea.Msg {
		archived, err := p.engine.ToggleArchived(p.ctx, proj.ID)
		if err != nil {
			return failed(err)
		}
		if archived {
			return changedMsg{text: "Archived " + proj.Name}
		}
		return changedMsg{text: "Restored " + proj.Name}
	}
}

// showProjectForm opens the create form, or the edit form when proj is set.
func (p projectsModel) showProjectForm(proj *store.Project) (projectsModel, tea.Cmd) {
	*p.formName = ""
	*p.formNumber = ""
	p.formType = "project"
	if proj != nil {
		*p.formName = proj.Name
		*p.formNumber = proj.Number
		p.formType = "edit_project"
		p.editingID = proj.ID
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project Name").Value(p.formName).Validate(requireName),
			huh.NewInput().Title("Project Number").Description("Optional, e.g. a cost center").Value(p.formNumber),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func requireName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		return p, p.saveProject(p.formType, p.editingID, *p.formName, *p.formNumber)
	}

	return p, cmd
}

func (p projectsModel) saveProject(formType string, id int64, name, number string) tea.Cmd {
	return func() tea.Msg {
		if formType == "edit_project" {
			if err := p.engine.RenameProject(p.ctx, id, name, number); err != nil {
				return failed(err)
			}
			return changedMsg{text: "Updated " + strings.TrimSpace(name)}
		}
		proj, err := p.engine.CreateProject(p.ctx, name, number)
		if err != nil {
			return failed(err)
		}
		return changedMsg{text: "Created " + proj.Name}
	}
}

func (p projectsModel) view() string {
	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Project")
		if p.formType == "edit_project" {
			title = titleStyle.Render("Edit Project")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View())
		return panelStyle.Width(p.width - 4).Render(content)
	}
	return p.renderProjectList()
}

func (p projectsModel) renderProjectList() string {
	w := p.width - 4
	title := titleStyle.Render("Projects")
	if p.showArchived {
		title += mutedStyle.Render("  (including archived)")
	}

	if len(p.projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("  %-5s %-28s %-14s %s", "ID", "Name", "Number", "Status"))
	rows = append(rows, header)

	for i, proj := range p.projects {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		status := "active"
		if proj.Archived {
			status = "archived"
			if i != p.cursor {
				style = mutedStyle
			}
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-5d %-28s %-14s %s", cursor, proj.ID, proj.Name, proj.Number, status)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: archive/restore  v: show archived"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
