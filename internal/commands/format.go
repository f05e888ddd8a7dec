package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

var errNoProject = errors.New("no project given and no project used before")

// timeLayouts are tried in order; layouts without a date use now's day.
var timeLayouts = []struct {
	layout string
	dated  bool
}{
	{"15:04", false},
	{"2006-01-02 15:04", true},
	{"2006-01-02T15:04", true},
	{time.RFC3339, true},
}

// parseTime reads HH:MM (today), "YYYY-MM-DD HH:MM" or RFC3339 in now's
// location.
func parseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		t, err := time.ParseInLocation(l.layout, s, now.Location())
		if err != nil {
			continue
		}
		if !l.dated {
			y, m, d := now.Date()
			t = time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, now.Location())
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use HH:MM, YYYY-MM-DD HH:MM or RFC3339", s)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// resolveProject accepts a project id or an exact name.
func resolveProject(ctx context.Context, e *session.Engine, arg string) (*store.Project, error) {
	if id, err := parseID(arg); err == nil {
		p, err := e.Store().GetProject(ctx, id)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return p, err
		}
	}
	p, err := e.Store().GetProjectByName(ctx, arg)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("project %q: %w", arg, err)
	}
	return p, err
}

// formatDuration renders whole minutes as "8h 40m".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int64(d / time.Minute)
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

// formatClock renders "01:20:05".
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return "running"
	}
	return t.Format("2006-01-02 15:04")
}

func projectLabel(p *store.Project) string {
	if p == nil {
		return "-"
	}
	if p.Number != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.Number)
	}
	return p.Name
}

func stateColor(s session.State) *color.Color {
	switch s {
	case session.Running:
		return green
	case session.RunningPaused:
		return yellow
	default:
		return faint
	}
}

func levelColor(l aggregate.Level) *color.Color {
	switch l {
	case aggregate.Reached:
		return green
	case aggregate.Near:
		return yellow
	default:
		return red
	}
}
