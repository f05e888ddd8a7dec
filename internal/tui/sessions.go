package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

const (
	recentSessions = 50
	editLayout     = "2006-01-02 15:04"
)

// sessionForm holds huh bindings; the model keeps a pointer so they survive
// value copies.
type sessionForm struct {
	start   string
	end     string
	reason  string
	note    string
	confirm bool
}

type sessionsModel struct {
	ctx    context.Context
	engine *session.Engine
	width  int
	height int

	sessions []store.WorkSession
	names    map[int64]string
	cursor   int

	detail      bool
	edits       []store.SessionEdit
	pauseCursor int

	formActive bool
	form       *huh.Form
	formType   string // "edit_session", "edit_pause", "note", "delete"
	values     *sessionForm
	target     session.Target
	original   [2]*time.Time
}

func newSessionsModel(ctx context.Context, e *session.Engine) sessionsModel {
	return sessionsModel{
		ctx:    ctx,
		engine: e,
		names:  map[int64]string{},
		values: &sessionForm{},
	}
}

func (s *sessionsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type sessionsDataMsg struct {
	sessions []store.WorkSession
	names    map[int64]string
	edits    []store.SessionEdit
}

func (s sessionsModel) selected() (store.WorkSession, bool) {
	if s.cursor < 0 || s.cursor >= len(s.sessions) {
		return store.WorkSession{}, false
	}
	return s.sessions[s.cursor], true
}

func (s sessionsModel) refresh() tea.Cmd {
	var detailID int64
	if ws, ok := s.selected(); ok && s.detail {
		detailID = ws.ID
	}
	return func() tea.Msg {
		sessions, err := s.engine.Recent(s.ctx, recentSessions, nil)
		if err != nil {
			return failed(err)
		}
		projects, err := s.engine.ListProjects(s.ctx, true)
		if err != nil {
			return failed(err)
		}
		names := make(map[int64]string, len(projects))
		for _, p := range projects {
			names[p.ID] = projectLabel(p)
		}
		msg := sessionsDataMsg{sessions: sessions, names: names}
		if detailID != 0 {
			msg.edits, err = s.engine.Edits(s.ctx, detailID)
			if err != nil {
				return failed(err)
			}
		}
		return msg
	}
}

func (s sessionsModel) update(msg tea.Msg) (sessionsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case sessionsDataMsg:
		s.sessions = msg.sessions
		s.names = msg.names
		s.edits = msg.edits
		if s.cursor >= len(s.sessions) {
			s.cursor = max(0, len(s.sessions)-1)
		}
		if len(s.sessions) == 0 {
			s.detail = false
		}
		if ws, ok := s.selected(); ok && s.pauseCursor >= len(ws.Pauses) {
			s.pauseCursor = max(0, len(ws.Pauses)-1)
		}
		return s, nil

	case tea.KeyMsg:
		if s.detail {
			return s.updateDetail(msg)
		}
		return s.updateList(msg)
	}
	return s, nil
}

func (s sessionsModel) updateList(msg tea.KeyMsg) (sessionsModel, tea.Cmd) {
	ws, ok := s.selected()
	switch {
	case key.Matches(msg, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(msg, keys.Down):
		if s.cursor < len(s.sessions)-1 {
			s.cursor++
		}
	case !ok:
		return s, nil
	case key.Matches(msg, keys.Enter):
		s.detail = true
		s.pauseCursor = 0
		s.edits = nil
		return s, s.refresh()
	case key.Matches(msg, keys.Edit):
		return s.showEditForm(session.Target{Kind: session.SessionTarget, ID: ws.ID}, ws.StartTime, ws.EndTime)
	case key.Matches(msg, keys.Note):
		return s.showNoteForm(ws)
	case key.Matches(msg, keys.AddPause):
		return s, s.addPause(ws)
	case key.Matches(msg, keys.Delete):
		return s.showDeleteForm(ws)
	}
	return s, nil
}

func (s sessionsModel) updateDetail(msg tea.KeyMsg) (sessionsModel, tea.Cmd) {
	ws, _ := s.selected()
	switch {
	case key.Matches(msg, keys.Back):
		s.detail = false
		s.edits = nil
	case key.Matches(msg, keys.Up):
		if s.pauseCursor > 0 {
			s.pauseCursor--
		}
	case key.Matches(msg, keys.Down):
		if s.pauseCursor < len(ws.Pauses)-1 {
			s.pauseCursor++
		}
	case key.Matches(msg, keys.AddPause):
		return s, s.addPause(ws)
	case key.Matches(msg, keys.Note):
		return s.showNoteForm(ws)
	case key.Matches(msg, keys.Edit):
		if len(ws.Pauses) > 0 {
			p := ws.Pauses[s.pauseCursor]
			return s.showEditForm(session.Target{Kind: session.PauseTarget, ID: p.ID}, p.StartTime, p.EndTime)
		}
		return s.showEditForm(session.Target{Kind: session.SessionTarget, ID: ws.ID}, ws.StartTime, ws.EndTime)
	case key.Matches(msg, keys.Delete):
		if len(ws.Pauses) > 0 {
			return s, s.deletePause(ws.Pauses[s.pauseCursor])
		}
	}
	return s, nil
}

// --- Forms ---

func (s sessionsModel) showEditForm(target session.Target, start time.Time, end *time.Time) (sessionsModel, tea.Cmd) {
	v := s.values
	v.start = start.Format(editLayout)
	v.end = ""
	if end != nil {
		v.end = end.Format(editLayout)
	}
	v.reason = ""
	startCopy := start
	s.original = [2]*time.Time{&startCopy, end}
	s.target = target
	s.formType = "edit_session"
	if target.Kind == session.PauseTarget {
		s.formType = "edit_pause"
	}

	loc := s.engine.Clock().Now().Location()
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Start").Description(editLayout).Value(&v.start).Validate(requireStamp(loc)),
			huh.NewInput().Title("End").Description("Leave empty while still open").Value(&v.end).Validate(optionalStamp(loc)),
			huh.NewInput().Title("Reason").Description("Stored in the audit log").Value(&v.reason),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s sessionsModel) showNoteForm(ws store.WorkSession) (sessionsModel, tea.Cmd) {
	s.values.note = ws.Note
	s.target = session.Target{Kind: session.SessionTarget, ID: ws.ID}
	s.formType = "note"
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().Title(fmt.Sprintf("Note for session #%d", ws.ID)).Value(&s.values.note),
		),
	).WithShowHelp(true)
	s.formActive = true
	return s, s.form.Init()
}

func (s sessionsModel) showDeleteForm(ws store.WorkSession) (sessionsModel, tea.Cmd) {
	s.values.confirm = false
	s.target = session.Target{Kind: session.SessionTarget, ID: ws.ID}
	s.formType = "delete"
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete session #%d?", ws.ID)).
				Description("Its pauses and audit records are removed too.").
				Affirmative("Delete").
				Negative("Keep").
				Value(&s.values.confirm),
		),
	)
	s.formActive = true
	return s, s.form.Init()
}

func parseStamp(v string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(editLayout, strings.TrimSpace(v), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("use %s", editLayout)
	}
	return t, nil
}

func requireStamp(loc *time.Location) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return errors.New("start is required")
		}
		_, err := parseStamp(v, loc)
		return err
	}
}

func optionalStamp(loc *time.Location) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return nil
		}
		_, err := parseStamp(v, loc)
		return err
	}
}

func (s sessionsModel) updateForm(msg tea.Msg) (sessionsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		v := *s.values
		switch s.formType {
		case "note":
			return s, s.saveNote(s.target.ID, v.note)
		case "delete":
			if !v.confirm {
				return s, nil
			}
			return s, s.deleteSession(s.target.ID)
		default:
			return s, s.saveEdit(s.target, s.original, v)
		}
	}

	return s, cmd
}

// --- Commands ---

// saveEdit applies only the fields that changed. An emptied end is left
// alone; ends cannot be reopened.
func (s sessionsModel) saveEdit(target session.Target, original [2]*time.Time, v sessionForm) tea.Cmd {
	return func() tea.Msg {
		loc := s.engine.Clock().Now().Location()
		applied := 0

		start, err := parseStamp(v.start, loc)
		if err != nil {
			return failed(err)
		}
		if original[0] == nil || !start.Equal(original[0].Truncate(time.Minute)) {
			if err := s.engine.EditTimestamp(s.ctx, target, session.FieldStart, start, v.reason); err != nil {
				return failed(err)
			}
			applied++
		}

		if strings.TrimSpace(v.end) != "" {
			end, err := parseStamp(v.end, loc)
			if err != nil {
				return failed(err)
			}
			if original[1] == nil || !end.Equal(original[1].Truncate(time.Minute)) {
				if err := s.engine.EditTimestamp(s.ctx, target, session.FieldEnd, end, v.reason); err != nil {
					return failed(err)
				}
				applied++
			}
		}

		if applied == 0 {
			return statusMsg{text: "Nothing changed"}
		}
		return changedMsg{text: fmt.Sprintf("Updated %s #%d", target.Kind, target.ID)}
	}
}

func (s sessionsModel) saveNote(id int64, note string) tea.Cmd {
	return func() tea.Msg {
		if err := s.engine.SetNote(s.ctx, id, note); err != nil {
			return failed(err)
		}
		return changedMsg{text: fmt.Sprintf("Saved note for session #%d", id)}
	}
}

func (s sessionsModel) addPause(ws store.WorkSession) tea.Cmd {
	return func() tea.Msg {
		start, end := session.DefaultPauseSlot(ws)
		p, err := s.engine.AddPause(s.ctx, ws.ID, start, end, "")
		if err != nil {
			return failed(err)
		}
		return changedMsg{text: fmt.Sprintf("Added pause #%d (%s-%s)", p.ID, start.Format("15:04"), end.Format("15:04"))}
	}
}

func (s sessionsModel) deletePause(p store.PauseSegment) tea.Cmd {
	return func() tea.Msg {
		if err := s.engine.DeletePause(s.ctx, p.ID, ""); err != nil {
			return failed(err)
		}
		return changedMsg{text: fmt.Sprintf("Deleted pause #%d", p.ID)}
	}
}

func (s sessionsModel) deleteSession(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := s.engine.DeleteSession(s.ctx, id); err != nil {
			return failed(err)
		}
		return changedMsg{text: fmt.Sprintf("Deleted session #%d", id)}
	}
}

// --- Views ---

func (s sessionsModel) view() string {
	w := s.width - 4
	if s.formActive && s.form != nil {
		var title string
		switch s.formType {
		case "edit_pause":
			title = fmt.Sprintf("Edit Pause #%d", s.target.ID)
		case "note":
			title = "Note"
		case "delete":
			title = "Delete Session"
		default:
			title = fmt.Sprintf("Edit Session #%d", s.target.ID)
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", s.form.View())
		return panelStyle.Width(w).Render(content)
	}
	if s.detail {
		return s.renderDetail(w)
	}
	return s.renderList(w)
}

func (s sessionsModel) renderList(w int) string {
	title := titleStyle.Render("Sessions")
	if len(s.sessions) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No sessions recorded yet."),
		))
	}

	now := s.engine.Clock().Now()
	rows := []string{title, ""}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-6s %-24s %-16s %-6s %-9s %s", "ID", "Project", "Start", "End", "Worked", "Note")))

	limit := len(s.sessions)
	if s.height > 8 && limit > s.height-8 {
		limit = s.height - 8
	}
	offset := 0
	if s.cursor >= limit {
		offset = s.cursor - limit + 1
	}
	for i := offset; i < len(s.sessions) && i < offset+limit; i++ {
		ws := s.sessions[i]
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		} else if ws.Running() {
			style = successStyle
		}
		name := truncate(s.names[ws.ProjectID], 24)
		worked := aggregate.EffectiveDuration(ws, now)
		rows = append(rows, style.Render(fmt.Sprintf("%s%-6d %-24s %-16s %-6s %-9s %s",
			cursor, ws.ID, name, ws.StartTime.Format(editLayout), stamp(ws.EndTime, "15:04"),
			formatHours(worked), truncate(firstLine(ws.Note), 30))))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: details  e: edit  m: note  a: add pause  d: delete"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (s sessionsModel) renderDetail(w int) string {
	ws, ok := s.selected()
	if !ok {
		return panelStyle.Width(w).Render(mutedStyle.Render("Session not found"))
	}
	now := s.engine.Clock().Now()

	rows := []string{
		titleStyle.Render(fmt.Sprintf("Session #%d", ws.ID)),
		"",
		fmt.Sprintf("  Project   %s", highlightStyle.Render(s.names[ws.ProjectID])),
		fmt.Sprintf("  Start     %s", ws.StartTime.Format(editLayout)),
		fmt.Sprintf("  End       %s", stamp(ws.EndTime, editLayout)),
		fmt.Sprintf("  Worked    %s", formatHours(aggregate.EffectiveDuration(ws, now))),
	}
	if ws.StartedManually {
		rows = append(rows, mutedStyle.Render("  Started manually"))
	}
	if ws.Note != "" {
		rows = append(rows, "", "  "+ws.Note)
	}

	rows = append(rows, "", subtitleStyle.Render("  Pauses"))
	if len(ws.Pauses) == 0 {
		rows = append(rows, mutedStyle.Render("  none"))
	}
	for i, p := range ws.Pauses {
		cursor := "  "
		style := normalItemStyle
		if i == s.pauseCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s#%-5d %s - %s", cursor, p.ID, p.StartTime.Format("15:04"), stamp(p.EndTime, "15:04"))))
	}

	rows = append(rows, "", subtitleStyle.Render("  Audit log"))
	if len(s.edits) == 0 {
		rows = append(rows, mutedStyle.Render("  no edits"))
	}
	for _, e := range s.edits {
		line := fmt.Sprintf("  %s  %-14s %s -> %s", e.EditedAt.Format(editLayout), e.Field, session.FormatAuditValue(e.OldValue, editLayout), session.FormatAuditValue(e.NewValue, editLayout))
		if e.Reason != "" {
			line += mutedStyle.Render("  " + e.Reason)
		}
		rows = append(rows, line)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  e: edit  a: add pause  d: delete pause  m: note  esc: back"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
