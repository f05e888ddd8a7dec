package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worktime/internal/session"
)

type reportsModel struct {
	ctx    context.Context
	engine *session.Engine
	width  int
	height int

	offset int // weeks back from the current one
	report session.WeekReport
	names  map[int64]string
	loaded bool

	chart barchart.Model
}

func newReportsModel(ctx context.Context, e *session.Engine) reportsModel {
	return reportsModel{
		ctx:    ctx,
		engine: e,
		names:  map[int64]string{},
		chart:  barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	if r.loaded {
		r.buildChart()
	}
}

type reportsDataMsg struct {
	report session.WeekReport
	names  map[int64]string
}

func (r reportsModel) refresh() tea.Cmd {
	offset := r.offset
	return func() tea.Msg {
		now := r.engine.Clock().Now()
		rep, err := r.engine.WeekReport(r.ctx, now.AddDate(0, 0, -7*offset), now)
		if err != nil {
			return failed(err)
		}
		projects, err := r.engine.ListProjects(r.ctx, true)
		if err != nil {
			return failed(err)
		}
		names := make(map[int64]string, len(projects))
		for _, p := range projects {
			names[p.ID] = p.Name
		}
		return reportsDataMsg{report: rep, names: names}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.report = msg.report
		r.names = msg.names
		r.loaded = true
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	p := r.report.Prefs
	var bars []barchart.BarData
	for _, d := range r.report.Days {
		label := d.Day.Format("Mon 02")
		style := barStyle
		if d.Holiday != "" {
			label += "*"
			style = accentStyle
		}
		bars = append(bars, barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{{
				Name:  d.Day.Format("2006-01-02"),
				Value: p.Round(d.Total).Hours(),
				Style: style,
			}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4
	rep := r.report

	dateLabel := ""
	if r.loaded {
		dateLabel = mutedStyle.Render(fmt.Sprintf("%s - %s", rep.From.Format("Jan 02"), rep.To.AddDate(0, 0, -1).Format("Jan 02, 2006")))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("Week"), "  ", dateLabel)

	p := rep.Prefs
	total := fmt.Sprintf("  Total %s of %s  %s",
		highlightStyle.Render(formatHours(p.Round(rep.Total))), formatHours(rep.Target), levelStyle(rep.Level))

	nav := mutedStyle.Render("  ←/→: previous/next week")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", total, r.renderHolidays(), "", r.renderProjectTable(w), "", nav,
		),
	)
}

func (r reportsModel) renderHolidays() string {
	var items []string
	for _, d := range r.report.Days {
		if d.Holiday != "" {
			items = append(items, accentStyle.Render("* "+d.Day.Format("Mon 02")+" "+d.Holiday))
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "  " + strings.Join(items, "  ")
}

func (r reportsModel) renderProjectTable(w int) string {
	if len(r.report.ByProject) == 0 {
		return mutedStyle.Render("  No time recorded in this week")
	}

	p := r.report.Prefs
	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-28s %10s %6s", "Project", "Duration", "Share")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 46))))
	for _, pt := range r.report.ByProject {
		share := 0.0
		if r.report.Total > 0 {
			share = float64(pt.Total) / float64(r.report.Total) * 100
		}
		rows = append(rows, fmt.Sprintf("  %-28s %10s %5.0f%%", r.names[pt.ProjectID], formatHours(p.Round(pt.Total)), share))
	}
	return strings.Join(rows, "\n")
}
