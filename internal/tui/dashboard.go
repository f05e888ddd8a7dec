package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

type dashboardModel struct {
	ctx    context.Context
	engine *session.Engine
	timer  timerModel
	width  int
	height int

	recent   []store.WorkSession
	projects []store.Project // active only
	names    map[int64]string

	// Project picker state
	picking      bool
	pickSwitch   bool
	pickerCursor int
}

func newDashboardModel(ctx context.Context, e *session.Engine) dashboardModel {
	return dashboardModel{
		ctx:    ctx,
		engine: e,
		names:  map[int64]string{},
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) isRunning() bool { return d.timer.running() }
func (d dashboardModel) isPaused() bool  { return d.timer.paused() }
func (d dashboardModel) elapsed() time.Duration {
	return d.timer.effective
}

type dashboardDataMsg struct {
	snap     session.Snapshot
	recent   []store.WorkSession
	projects []store.Project
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		snap, err := d.engine.Status(d.ctx, d.engine.Clock().Now())
		if err != nil {
			return failed(err)
		}
		recent, err := d.engine.Recent(d.ctx, 5, nil)
		if err != nil {
			return failed(err)
		}
		projects, err := d.engine.ListProjects(d.ctx, true)
		if err != nil {
			return failed(err)
		}
		return dashboardDataMsg{snap: snap, recent: recent, projects: projects}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.timer.set(msg.snap)
		d.recent = msg.recent
		d.projects = nil
		d.names = make(map[int64]string, len(msg.projects))
		for _, p := range msg.projects {
			d.names[p.ID] = p.Name
			if !p.Archived {
				d.projects = append(d.projects, p)
			}
		}
		return d, nil

	case tickMsg:
		now := d.engine.Clock().Now()
		if d.timer.stale(now) {
			return d, d.loadData()
		}
		d.timer.tick(now)
		return d, nil

	case tea.KeyMsg:
		if d.picking {
			return d.updatePicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Start):
			if d.timer.running() {
				return d, func() tea.Msg { return statusMsg{text: "A session is already running"} }
			}
			return d.openPicker(false)

		case key.Matches(msg, keys.Switch):
			if !d.timer.running() {
				return d, func() tea.Msg { return statusMsg{text: "Nothing running. Press s to start."} }
			}
			return d.openPicker(true)

		case key.Matches(msg, keys.Stop):
			return d, d.stop()

		case key.Matches(msg, keys.Pause):
			return d, d.togglePause()
		}
	}
	return d, nil
}

func (d dashboardModel) openPicker(switching bool) (dashboardModel, tea.Cmd) {
	if len(d.projects) == 0 {
		return d, func() tea.Msg {
			return statusMsg{text: "No projects yet. Press 3 to go to Projects and create one.", isError: true}
		}
	}
	d.picking = true
	d.pickSwitch = switching
	d.pickerCursor = 0
	for i, p := range d.projects {
		if p.ID == d.timer.snap.Prefs.LastProjectID {
			d.pickerCursor = i
		}
	}
	return d, nil
}

func (d dashboardModel) updatePicker(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.pickerCursor > 0 {
			d.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickerCursor < len(d.projects)-1 {
			d.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		p := d.projects[d.pickerCursor]
		d.picking = false
		if d.pickSwitch {
			return d, d.switchTo(p)
		}
		return d, d.start(p)
	case key.Matches(msg, keys.Back):
		d.picking = false
	}
	return d, nil
}

func (d dashboardModel) start(p store.Project) tea.Cmd {
	return func() tea.Msg {
		id, started, err := d.engine.Start(d.ctx, p.ID, nil, false)
		if err != nil {
			return failed(err)
		}
		if !started {
			return changedMsg{text: fmt.Sprintf("Session #%d is already running", id)}
		}
		return changedMsg{text: "Started " + p.Name}
	}
}

func (d dashboardModel) switchTo(p store.Project) tea.Cmd {
	return func() tea.Msg {
		if _, err := d.engine.SwitchProject(d.ctx, p.ID, d.engine.Clock().Now()); err != nil {
			return failed(err)
		}
		return changedMsg{text: "Switched to " + p.Name}
	}
}

func (d dashboardModel) stop() tea.Cmd {
	return func() tea.Msg {
		id, err := d.engine.End(d.ctx, d.engine.Clock().Now())
		if err != nil {
			return failed(err)
		}
		if id == 0 {
			return statusMsg{text: "No session running"}
		}
		return changedMsg{text: fmt.Sprintf("Stopped session #%d", id)}
	}
}

func (d dashboardModel) togglePause() tea.Cmd {
	return func() tea.Msg {
		state, err := d.engine.TogglePause(d.ctx, d.engine.Clock().Now())
		if err != nil {
			return failed(err)
		}
		switch state {
		case session.RunningPaused:
			return changedMsg{text: "Paused"}
		case session.Running:
			return changedMsg{text: "Resumed"}
		}
		return statusMsg{text: "No session running"}
	}
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	timerPanel := d.renderTimerPanel(contentWidth)
	summaryPanel := d.renderSummaryPanel(contentWidth)

	var bottomPanel string
	if d.picking {
		bottomPanel = d.renderProjectPicker(contentWidth)
	} else {
		bottomPanel = d.renderRecentPanel(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, summaryPanel, bottomPanel)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	snap := d.timer.snap
	if d.timer.running() && snap.Session != nil {
		timeStr := formatDuration(d.timer.effective)

		var timeDisplay, indicator string
		if d.timer.paused() {
			timeDisplay = timerPausedStyle.Width(w - 6).Render(timeStr)
			indicator = warningStyle.Render("⏸  PAUSED")
		} else {
			timeDisplay = timerRunningStyle.Width(w - 6).Render(timeStr)
			indicator = successStyle.Render("●  RUNNING")
		}

		projectLine := ""
		if snap.Project != nil {
			projectLine = highlightStyle.Render(projectLabel(*snap.Project))
		}
		projectLine += mutedStyle.Render(" since " + snap.Session.StartTime.Format("15:04"))

		content := lipgloss.JoinVertical(lipgloss.Center,
			timeDisplay,
			indicator,
			projectLine,
		)
		return activePanelStyle.Width(w).Render(content)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		timerStyle.Width(w-6).Render("00:00:00"),
		mutedStyle.Render("■  STOPPED"),
		mutedStyle.Render("Press s to start tracking"),
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	p := d.timer.snap.Prefs
	now := d.timer.now
	if now.IsZero() {
		now = d.engine.Clock().Now()
	}

	target := time.Duration(p.WeekTargetHours * float64(time.Hour))
	level := aggregate.Progress(d.timer.week, p.WeekTargetHours)

	rows := []string{
		fmt.Sprintf("%s  %s", titleStyle.Render("Today"), highlightStyle.Render(formatHours(p.Round(d.timer.today)))),
		fmt.Sprintf("%s   %s of %s  %s", titleStyle.Render("Week"),
			highlightStyle.Render(formatHours(p.Round(d.timer.week))), formatHours(target), levelStyle(level)),
	}
	if h, ok := calendar.HolidayOn(p.HolidayState, now); ok {
		rows = append(rows, accentStyle.Render("Public holiday: "+h.Name))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Sessions")
	if len(d.recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No sessions yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	now := d.timer.now
	var rows []string
	rows = append(rows, title)
	for _, ws := range d.recent {
		status := "✓"
		dur := formatHours(aggregate.EffectiveDuration(ws, now))
		if ws.Running() {
			status = "●"
			dur = "running"
		}
		row := fmt.Sprintf("  %s %s  %-16s %s", status, ws.StartTime.Format("Mon 15:04"), d.names[ws.ProjectID], dur)
		rows = append(rows, row)
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderProjectPicker(w int) string {
	title := titleStyle.Render("Select Project")
	if d.pickSwitch {
		title = titleStyle.Render("Switch To")
	}

	var rows []string
	rows = append(rows, title)
	for i, p := range d.projects {
		cursor := "  "
		style := normalItemStyle
		if i == d.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+projectLabel(p)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: select  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
