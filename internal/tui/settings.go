package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/rounding"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// settingsForm holds the form values; the model keeps a pointer so huh's
// bindings survive value copies of the model.
type settingsForm struct {
	weekStartMonday string
	holidayState    string
	roundingMinutes string
	roundingMode    string
	presenceEnabled bool
	presenceNetwork string
	checkMinutes    string
	lateAfter       string
	weekTarget      string
	standardStart   [7]string
}

func (f *settingsForm) load(p prefs.Prefs) {
	m := p.Map()
	f.weekStartMonday = m[prefs.KeyWeekStartMonday]
	f.holidayState = m[prefs.KeyHolidayState]
	f.roundingMinutes = m[prefs.KeyRoundingMinutes]
	f.roundingMode = m[prefs.KeyRoundingMode]
	f.presenceEnabled = p.PresenceEnabled
	f.presenceNetwork = m[prefs.KeyPresenceNetwork]
	f.checkMinutes = m[prefs.KeyTriggerCheckMin]
	f.lateAfter = m[prefs.KeyLateAfterMin]
	f.weekTarget = m[prefs.KeyWeekTargetHours]
	f.standardStart = p.StandardStart
}

func (f *settingsForm) values() map[string]string {
	m := map[string]string{
		prefs.KeyWeekStartMonday: f.weekStartMonday,
		prefs.KeyHolidayState:    f.holidayState,
		prefs.KeyRoundingMinutes: f.roundingMinutes,
		prefs.KeyRoundingMode:    f.roundingMode,
		prefs.KeyPresenceEnabled: strconv.FormatBool(f.presenceEnabled),
		prefs.KeyPresenceNetwork: f.presenceNetwork,
		prefs.KeyTriggerCheckMin: f.checkMinutes,
		prefs.KeyLateAfterMin:    f.lateAfter,
		prefs.KeyWeekTargetHours: f.weekTarget,
	}
	for i, key := range prefs.StandardStartKeys {
		m[key] = f.standardStart[i]
	}
	return m
}

type settingsModel struct {
	ctx    context.Context
	engine *session.Engine
	width  int
	height int

	prefs      prefs.Prefs
	formActive bool
	form       *huh.Form
	values     *settingsForm
}

func newSettingsModel(ctx context.Context, e *session.Engine) settingsModel {
	return settingsModel{
		ctx:    ctx,
		engine: e,
		prefs:  prefs.Defaults(),
		values: &settingsForm{},
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	prefs prefs.Prefs
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		p, err := prefs.Load(s.ctx, s.engine.Store())
		if err != nil {
			return failed(err)
		}
		return settingsDataMsg{prefs: p}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.prefs = msg.prefs
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func validator(key string) func(string) error {
	return func(v string) error {
		_, err := prefs.Validate(key, v)
		return err
	}
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	v := s.values
	v.load(s.prefs)

	stateOptions := make([]huh.Option[string], 0, len(calendar.States()))
	for _, st := range calendar.States() {
		stateOptions = append(stateOptions, huh.NewOption(st, st))
	}
	roundOptions := make([]huh.Option[string], 0, len(prefs.RoundingChoices))
	for _, m := range prefs.RoundingChoices {
		label := fmt.Sprintf("%d min", m)
		if m == 0 {
			label = "off"
		}
		roundOptions = append(roundOptions, huh.NewOption(label, strconv.Itoa(m)))
	}
	modeOptions := make([]huh.Option[string], 0, len(rounding.Modes))
	for _, m := range rounding.Modes {
		modeOptions = append(modeOptions, huh.NewOption(string(m), string(m)))
	}

	var startFields []huh.Field
	for i := range v.standardStart {
		startFields = append(startFields,
			huh.NewInput().Title(weekdayNames[i]).Value(&v.standardStart[i]).Validate(validator(prefs.StandardStartKeys[i])))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "true"),
					huh.NewOption("Sunday", "false"),
				).Value(&v.weekStartMonday),
			huh.NewSelect[string]().Title("Holiday region").Options(stateOptions...).Value(&v.holidayState),
			huh.NewInput().Title("Week target (hours)").Value(&v.weekTarget).Validate(validator(prefs.KeyWeekTargetHours)),
			huh.NewSelect[string]().Title("Display rounding").Options(roundOptions...).Value(&v.roundingMinutes),
			huh.NewSelect[string]().Title("Rounding mode").Options(modeOptions...).Value(&v.roundingMode),
		).Title("General"),
		huh.NewGroup(
			huh.NewConfirm().Title("Presence reminders").Value(&v.presenceEnabled),
			huh.NewInput().Title("Workplace Wi-Fi network").Value(&v.presenceNetwork),
			huh.NewInput().Title("Check interval (min)").Value(&v.checkMinutes).Validate(validator(prefs.KeyTriggerCheckMin)),
			huh.NewInput().Title("Remind after start (min)").Value(&v.lateAfter).Validate(validator(prefs.KeyLateAfterMin)),
		).Title("Presence"),
		huh.NewGroup(startFields...).Title("Standard start times"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
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
		return s, s.save(s.values.values())
	}

	return s, cmd
}

// save writes every value in one transaction; nothing is stored if one is
// invalid.
func (s settingsModel) save(values map[string]string) tea.Cmd {
	return func() tea.Msg {
		err := s.engine.Store().WithTx(s.ctx, func(tx *store.Store) error {
			for _, key := range prefs.Keys() {
				v, ok := values[key]
				if !ok {
					continue
				}
				if err := prefs.Set(s.ctx, tx, key, v); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return failed(err)
		}
		return changedMsg{text: "Settings saved"}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	p := s.prefs
	weekStart := "Sunday"
	if p.WeekStartsMonday {
		weekStart = "Monday"
	}
	roundLabel := "off"
	if p.RoundingMinutes > 0 && p.RoundingMode != rounding.None {
		roundLabel = fmt.Sprintf("%d min, %s", p.RoundingMinutes, p.RoundingMode)
	}
	presence := "off"
	if p.PresenceEnabled {
		presence = fmt.Sprintf("on, network %q, every %s", p.PresenceNetwork, p.CheckInterval())
	}

	rows := []string{title, ""}
	add := func(label, value string) {
		rows = append(rows, fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(26).Render(label), highlightStyle.Render(value)))
	}
	add("Week starts on", weekStart)
	add("Holiday region", p.HolidayState)
	add("Week target", fmt.Sprintf("%gh", p.WeekTargetHours))
	add("Display rounding", roundLabel)
	add("Presence reminders", presence)
	add("Remind after start", p.LateAfter().String())
	for i, name := range weekdayNames {
		add("Start "+name, p.StandardStart[i])
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
