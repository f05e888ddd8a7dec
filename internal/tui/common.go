package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewSessions
	viewProjects
	viewReports
	viewSettings
)

var viewNames = []string{"Dashboard", "Sessions", "Projects", "Reports", "Settings"}

// --- Messages ---

// changedMsg reports a successful mutation; every view reloads.
type changedMsg struct {
	text string
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

func changed(format string, args ...any) tea.Cmd {
	return func() tea.Msg { return changedMsg{text: fmt.Sprintf(format, args...)} }
}

func failed(err error) tea.Msg {
	return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
}

// --- Helpers ---

// formatDuration renders a running clock "01:20:05".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatHours renders a total as "8h 40m".
func formatHours(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d / time.Minute)
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

func projectLabel(p store.Project) string {
	if p.Number != "" {
		return p.Name + " (" + p.Number + ")"
	}
	return p.Name
}

func levelStyle(l aggregate.Level) string {
	switch l {
	case aggregate.Reached:
		return successStyle.Render(l.String())
	case aggregate.Near:
		return warningStyle.Render(l.String())
	default:
		return errorStyle.Render(l.String())
	}
}

// stamp formats the end of a session or pause, "open" while unset.
func stamp(t *time.Time, layout string) string {
	if t == nil {
		return "open"
	}
	return t.Format(layout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
