package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

var t0 = time.Date(2025, 3, 12, 8, 0, 0, 0, time.Local) // a Wednesday

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEngine(t *testing.T) (*session.Engine, *calendar.TestClock, *store.Project) {
	t.Helper()
	clock := calendar.NewTestClock(t0)
	e := session.New(newTestStore(t), session.WithClock(clock))
	p, err := e.CreateProject(context.Background(), "Website", "P-100")
	if err != nil {
		t.Fatal(err)
	}
	return e, clock, p
}

// run executes a command that must produce a message.
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func keyRune(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func expectChanged(t *testing.T, msg tea.Msg) changedMsg {
	t.Helper()
	c, ok := msg.(changedMsg)
	if !ok {
		t.Fatalf("expected changedMsg, got %T %+v", msg, msg)
	}
	return c
}

// ============================================================
// Timer model
// ============================================================

func TestTimerTickExtrapolatesRunningSession(t *testing.T) {
	ws := store.WorkSession{ID: 1, ProjectID: 1, StartTime: t0}
	var tm timerModel
	tm.set(session.Snapshot{
		Now:       t0.Add(10 * time.Minute),
		State:     session.Running,
		Session:   &ws,
		Effective: 10 * time.Minute,
		Today:     70 * time.Minute,
		Week:      5 * time.Hour,
	})

	tm.tick(t0.Add(15 * time.Minute))
	if tm.effective != 15*time.Minute {
		t.Errorf("effective = %v, want 15m", tm.effective)
	}
	if tm.today != 75*time.Minute {
		t.Errorf("today = %v, want 1h15m", tm.today)
	}
	if tm.week != 5*time.Hour+5*time.Minute {
		t.Errorf("week = %v", tm.week)
	}
	if !tm.running() || tm.paused() {
		t.Error("expected running, not paused")
	}
}

func TestTimerTickIdleKeepsTotals(t *testing.T) {
	var tm timerModel
	tm.set(session.Snapshot{Now: t0, Today: time.Hour})
	tm.tick(t0.Add(30 * time.Second))
	if tm.today != time.Hour || tm.effective != 0 {
		t.Errorf("idle tick changed totals: today=%v effective=%v", tm.today, tm.effective)
	}
	if tm.running() {
		t.Error("idle timer reports running")
	}
}

func TestTimerStale(t *testing.T) {
	var tm timerModel
	if !tm.stale(t0) {
		t.Error("empty snapshot should be stale")
	}
	tm.set(session.Snapshot{Now: t0})
	if tm.stale(t0.Add(30 * time.Second)) {
		t.Error("fresh snapshot reported stale")
	}
	if !tm.stale(t0.Add(refreshEvery)) {
		t.Error("old snapshot not stale")
	}

	late := time.Date(2025, 3, 12, 23, 59, 50, 0, time.Local)
	tm.set(session.Snapshot{Now: late})
	if !tm.stale(late.Add(20 * time.Second)) {
		t.Error("snapshot from yesterday not stale")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Minute, "00:00:00"},
		{90 * time.Second, "00:01:30"},
		{8*time.Hour + 40*time.Minute + 5*time.Second, "08:40:05"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatHours(t *testing.T) {
	if got := formatHours(8*time.Hour + 40*time.Minute); got != "8h 40m" {
		t.Errorf("got %q", got)
	}
	if got := formatHours(5 * time.Minute); got != "0h 05m" {
		t.Errorf("got %q", got)
	}
}

func TestTextHelpers(t *testing.T) {
	if got := truncate("Website relaunch", 8); got != "Website…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 8); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := firstLine("one\ntwo"); got != "one" {
		t.Errorf("firstLine = %q", got)
	}
	if got := stamp(nil, "15:04"); got != "open" {
		t.Errorf("stamp(nil) = %q", got)
	}
	if got := projectLabel(store.Project{Name: "Website", Number: "P-100"}); got != "Website (P-100)" {
		t.Errorf("projectLabel = %q", got)
	}
}

func TestViewNamesMatchStates(t *testing.T) {
	if len(viewNames) != int(viewSettings)+1 {
		t.Fatalf("%d view names for %d views", len(viewNames), viewSettings+1)
	}
	if viewNames[viewSessions] != "Sessions" {
		t.Errorf("viewNames[viewSessions] = %q", viewNames[viewSessions])
	}
}

// ============================================================
// Dashboard
// ============================================================

func loadDashboard(t *testing.T, d dashboardModel) dashboardModel {
	t.Helper()
	msg := run(t, d.loadData())
	if _, ok := msg.(dashboardDataMsg); !ok {
		t.Fatalf("expected dashboardDataMsg, got %T %+v", msg, msg)
	}
	d, _ = d.update(msg)
	return d
}

func TestDashboardStartPauseStop(t *testing.T) {
	e, clock, p := newTestEngine(t)
	d := newDashboardModel(context.Background(), e)
	d.setSize(100, 40)
	d = loadDashboard(t, d)
	if d.isRunning() {
		t.Fatal("fresh dashboard reports running")
	}

	d, cmd := d.update(keyRune("s"))
	if cmd != nil || !d.picking {
		t.Fatal("start key should open the project picker")
	}
	if !strings.Contains(d.view(), "Website") {
		t.Error("picker does not list the project")
	}
	d, cmd = d.update(tea.KeyMsg{Type: tea.KeyEnter})
	if d.picking {
		t.Error("picker still open after enter")
	}
	if c := expectChanged(t, run(t, cmd)); c.text != "Started Website" {
		t.Errorf("status = %q", c.text)
	}

	d = loadDashboard(t, d)
	if !d.isRunning() || d.timer.snap.Project.ID != p.ID {
		t.Fatal("dashboard does not show the running session")
	}

	clock.Advance(30 * time.Minute)
	d, cmd = d.update(tea.KeyMsg{Type: tea.KeySpace})
	if c := expectChanged(t, run(t, cmd)); c.text != "Paused" {
		t.Errorf("status = %q", c.text)
	}
	d = loadDashboard(t, d)
	if !d.isPaused() {
		t.Error("expected paused")
	}
	if d.elapsed() != 30*time.Minute {
		t.Errorf("elapsed = %v, want 30m", d.elapsed())
	}

	clock.Advance(10 * time.Minute)
	d, cmd = d.update(keyRune("x"))
	expectChanged(t, run(t, cmd))
	d = loadDashboard(t, d)
	if d.isRunning() {
		t.Error("still running after stop")
	}
	if len(d.recent) != 1 {
		t.Errorf("recent = %d sessions, want 1", len(d.recent))
	}
}

func TestDashboardStopWhenIdle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	d := newDashboardModel(context.Background(), e)
	msg := run(t, d.stop())
	s, ok := msg.(statusMsg)
	if !ok || s.isError {
		t.Fatalf("expected plain statusMsg, got %+v", msg)
	}
}

func TestDashboardStartWithoutProjects(t *testing.T) {
	clock := calendar.NewTestClock(t0)
	e := session.New(newTestStore(t), session.WithClock(clock))
	d := newDashboardModel(context.Background(), e)
	d = loadDashboard(t, d)

	d, cmd := d.update(keyRune("s"))
	if d.picking {
		t.Error("picker opened without projects")
	}
	if s, ok := run(t, cmd).(statusMsg); !ok || !s.isError {
		t.Error("expected an error status")
	}
}

func TestDashboardTickReloadsStaleSnapshot(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	d := newDashboardModel(context.Background(), e)
	d = loadDashboard(t, d)

	_, cmd := d.update(tickMsg(clock.Now()))
	if cmd != nil {
		t.Error("fresh snapshot should not reload")
	}
	clock.Advance(2 * time.Minute)
	_, cmd = d.update(tickMsg(clock.Now()))
	if _, ok := run(t, cmd).(dashboardDataMsg); !ok {
		t.Error("stale snapshot should reload")
	}
}

func TestDashboardSwitchProject(t *testing.T) {
	e, clock, p := newTestEngine(t)
	ctx := context.Background()
	other, err := e.CreateProject(ctx, "Backoffice", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Start(ctx, p.ID, nil, false); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Hour)

	d := newDashboardModel(ctx, e)
	d = loadDashboard(t, d)
	d, _ = d.update(keyRune("w"))
	if !d.picking || !d.pickSwitch {
		t.Fatal("switch key should open the picker")
	}
	for i, proj := range d.projects {
		if proj.ID == other.ID {
			d.pickerCursor = i
		}
	}
	_, cmd := d.update(tea.KeyMsg{Type: tea.KeyEnter})
	expectChanged(t, run(t, cmd))

	snap, err := e.Status(ctx, clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Project == nil || snap.Project.ID != other.ID {
		t.Errorf("running project = %+v, want Backoffice", snap.Project)
	}
}

// ============================================================
// Projects
// ============================================================

func TestProjectsCreateRenameArchive(t *testing.T) {
	e, _, p := newTestEngine(t)
	pm := newProjectsModel(context.Background(), e)
	pm.setSize(100, 40)

	c := expectChanged(t, run(t, pm.saveProject("project", 0, "Backoffice", "B-7")))
	if c.text != "Created Backoffice" {
		t.Errorf("status = %q", c.text)
	}
	expectChanged(t, run(t, pm.saveProject("edit_project", p.ID, "Website 2", "P-100")))

	pm, _ = pm.update(run(t, pm.refresh()))
	if len(pm.projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(pm.projects))
	}
	view := pm.view()
	for _, want := range []string{"Website 2", "Backoffice", "B-7"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	pm.cursor = 0
	c = expectChanged(t, run(t, pm.toggleArchived(pm.projects[0])))
	if !strings.HasPrefix(c.text, "Archived") {
		t.Errorf("status = %q", c.text)
	}
	pm, _ = pm.update(run(t, pm.refresh()))
	if len(pm.projects) != 1 {
		t.Errorf("archived project still listed: %d", len(pm.projects))
	}

	pm, cmd := pm.update(keyRune("v"))
	pm, _ = pm.update(run(t, cmd))
	if len(pm.projects) != 2 {
		t.Errorf("show archived lists %d projects", len(pm.projects))
	}
}

func TestProjectsDuplicateNameFails(t *testing.T) {
	e, _, _ := newTestEngine(t)
	pm := newProjectsModel(context.Background(), e)
	msg := run(t, pm.saveProject("project", 0, "Website", ""))
	if s, ok := msg.(statusMsg); !ok || !s.isError {
		t.Errorf("expected error status, got %+v", msg)
	}
}

func TestProjectsFormOpensAndCancels(t *testing.T) {
	e, _, _ := newTestEngine(t)
	pm := newProjectsModel(context.Background(), e)
	pm.setSize(100, 40)
	pm, _ = pm.update(keyRune("n"))
	if !pm.formActive {
		t.Fatal("n should open the form")
	}
	if !strings.Contains(pm.view(), "New Project") {
		t.Error("form title missing")
	}
	pm, _ = pm.update(tea.KeyMsg{Type: tea.KeyEsc})
	if pm.formActive {
		t.Error("esc should close the form")
	}
}

func TestRequireName(t *testing.T) {
	if requireName("  ") == nil {
		t.Error("blank name accepted")
	}
	if requireName("Website") != nil {
		t.Error("valid name rejected")
	}
}

// ============================================================
// Sessions
// ============================================================

func newClosedSession(t *testing.T, e *session.Engine, clock *calendar.TestClock, p *store.Project) int64 {
	t.Helper()
	ctx := context.Background()
	id, _, err := e.Start(ctx, p.ID, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(9 * time.Hour)
	if _, err := e.End(ctx, clock.Now()); err != nil {
		t.Fatal(err)
	}
	return id
}

func TestSessionsListAndDetail(t *testing.T) {
	e, clock, p := newTestEngine(t)
	id := newClosedSession(t, e, clock, p)

	sm := newSessionsModel(context.Background(), e)
	sm.setSize(120, 40)
	sm, _ = sm.update(run(t, sm.refresh()))
	if len(sm.sessions) != 1 || sm.sessions[0].ID != id {
		t.Fatalf("sessions = %+v", sm.sessions)
	}
	if !strings.Contains(sm.view(), "Website (P-100)") {
		t.Error("list view missing project label")
	}

	sm, cmd := sm.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !sm.detail {
		t.Fatal("enter should open the detail view")
	}
	sm, _ = sm.update(run(t, cmd))
	view := sm.view()
	for _, want := range []string{"Session #", "Pauses", "Audit log", "no edits"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q", want)
		}
	}

	sm, _ = sm.update(tea.KeyMsg{Type: tea.KeyEsc})
	if sm.detail {
		t.Error("esc should leave the detail view")
	}
}

func TestSessionsAddAndDeletePause(t *testing.T) {
	e, clock, p := newTestEngine(t)
	newClosedSession(t, e, clock, p)

	sm := newSessionsModel(context.Background(), e)
	sm, _ = sm.update(run(t, sm.refresh()))

	sm, cmd := sm.update(keyRune("a"))
	c := expectChanged(t, run(t, cmd))
	if !strings.Contains(c.text, "12:00-12:30") {
		t.Errorf("status = %q", c.text)
	}
	sm, _ = sm.update(run(t, sm.refresh()))
	if len(sm.sessions[0].Pauses) != 1 {
		t.Fatalf("pauses = %d, want 1", len(sm.sessions[0].Pauses))
	}
	if got := aggregate.EffectiveDuration(sm.sessions[0], clock.Now()); got != 8*time.Hour+30*time.Minute {
		t.Errorf("worked = %v, want 8h30m", got)
	}

	sm.detail = true
	sm, cmd = sm.update(keyRune("d"))
	expectChanged(t, run(t, cmd))
	sm, _ = sm.update(run(t, sm.refresh()))
	if len(sm.sessions[0].Pauses) != 0 {
		t.Error("pause not deleted")
	}
	if len(sm.edits) != 2 {
		t.Errorf("audit records = %d, want 2", len(sm.edits))
	}
}

func TestSessionsEditWritesAudit(t *testing.T) {
	e, clock, p := newTestEngine(t)
	id := newClosedSession(t, e, clock, p)
	ctx := context.Background()

	sm := newSessionsModel(ctx, e)
	ws, err := e.Store().GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	target := session.Target{Kind: session.SessionTarget, ID: id}
	original := [2]*time.Time{&ws.StartTime, ws.EndTime}

	msg := run(t, sm.saveEdit(target, original, sessionForm{
		start:  "2025-03-12 07:30",
		end:    ws.EndTime.Format(editLayout),
		reason: "forgot to clock in",
	}))
	expectChanged(t, msg)

	edits, err := e.Edits(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(edits) != 1 || edits[0].Reason != "forgot to clock in" {
		t.Fatalf("edits = %+v", edits)
	}

	moved := time.Date(2025, 3, 12, 7, 30, 0, 0, time.Local)
	msg = run(t, sm.saveEdit(target, [2]*time.Time{&moved, ws.EndTime}, sessionForm{
		start: "2025-03-12 07:30",
		end:   ws.EndTime.Format(editLayout),
	}))
	if s, ok := msg.(statusMsg); !ok || s.text != "Nothing changed" {
		t.Errorf("unchanged form = %+v, want Nothing changed", msg)
	}
}

func TestSessionsEditRejectsInvertedRange(t *testing.T) {
	e, clock, p := newTestEngine(t)
	id := newClosedSession(t, e, clock, p)
	sm := newSessionsModel(context.Background(), e)

	start := t0
	msg := run(t, sm.saveEdit(session.Target{Kind: session.SessionTarget, ID: id}, [2]*time.Time{&start, nil}, sessionForm{
		start: "2025-03-12 18:00",
	}))
	if s, ok := msg.(statusMsg); !ok || !s.isError {
		t.Errorf("expected error status, got %+v", msg)
	}
}

func TestSessionsNoteAndDelete(t *testing.T) {
	e, clock, p := newTestEngine(t)
	id := newClosedSession(t, e, clock, p)
	ctx := context.Background()
	sm := newSessionsModel(ctx, e)

	expectChanged(t, run(t, sm.saveNote(id, "client workshop")))
	ws, err := e.Store().GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if ws.Note != "client workshop" {
		t.Errorf("note = %q", ws.Note)
	}

	expectChanged(t, run(t, sm.deleteSession(id)))
	sm, _ = sm.update(run(t, sm.refresh()))
	if len(sm.sessions) != 0 {
		t.Error("session not deleted")
	}
}

func TestStampValidators(t *testing.T) {
	if requireStamp(time.Local)("") == nil {
		t.Error("empty start accepted")
	}
	if requireStamp(time.Local)("12:00") == nil {
		t.Error("time without date accepted")
	}
	if optionalStamp(time.Local)("") != nil {
		t.Error("empty end rejected")
	}
	if optionalStamp(time.Local)("2025-03-12 17:00") != nil {
		t.Error("valid end rejected")
	}
}

// ============================================================
// Reports
// ============================================================

func TestReportsWeekChart(t *testing.T) {
	e, clock, p := newTestEngine(t)
	newClosedSession(t, e, clock, p)

	rm := newReportsModel(context.Background(), e)
	rm.setSize(120, 40)
	rm, _ = rm.update(run(t, rm.refresh()))
	if !rm.loaded {
		t.Fatal("report not loaded")
	}
	if rm.report.Total != 9*time.Hour {
		t.Errorf("total = %v, want 9h", rm.report.Total)
	}
	if len(rm.report.Days) != 7 {
		t.Errorf("days = %d, want 7", len(rm.report.Days))
	}
	view := rm.view()
	for _, want := range []string{"Week", "Total", "Website"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestReportsNavigation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	rm := newReportsModel(context.Background(), e)
	rm.setSize(120, 40)

	rm, cmd := rm.update(tea.KeyMsg{Type: tea.KeyLeft})
	if rm.offset != 1 {
		t.Errorf("offset = %d, want 1", rm.offset)
	}
	rm, _ = rm.update(run(t, cmd))
	wantFrom := time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local)
	if !rm.report.From.Equal(wantFrom) {
		t.Errorf("from = %v, want %v", rm.report.From, wantFrom)
	}

	rm, _ = rm.update(tea.KeyMsg{Type: tea.KeyRight})
	rm, _ = rm.update(tea.KeyMsg{Type: tea.KeyRight})
	if rm.offset != 0 {
		t.Errorf("offset = %d, want 0", rm.offset)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsSave(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	sm := newSettingsModel(ctx, e)
	sm.setSize(100, 40)

	sm, _ = sm.update(run(t, sm.refresh()))
	sm.values.load(sm.prefs)
	sm.values.holidayState = "BY"
	sm.values.roundingMinutes = "15"
	sm.values.roundingMode = "UP"
	sm.values.weekTarget = "38.5"

	c := expectChanged(t, run(t, sm.save(sm.values.values())))
	if c.text != "Settings saved" {
		t.Errorf("status = %q", c.text)
	}
	p, err := prefs.Load(ctx, e.Store())
	if err != nil {
		t.Fatal(err)
	}
	if p.HolidayState != "BY" || p.RoundingMinutes != 15 || p.WeekTargetHours != 38.5 {
		t.Errorf("prefs = %+v", p)
	}

	sm, _ = sm.update(run(t, sm.refresh()))
	if !strings.Contains(sm.view(), "15 min, UP") {
		t.Error("view does not show the rounding")
	}
}

func TestSettingsSaveIsAllOrNothing(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	sm := newSettingsModel(ctx, e)

	sm.values.load(prefs.Defaults())
	sm.values.holidayState = "BY"
	sm.values.checkMinutes = "5"

	msg := run(t, sm.save(sm.values.values()))
	if s, ok := msg.(statusMsg); !ok || !s.isError {
		t.Fatalf("expected error status, got %+v", msg)
	}
	p, err := prefs.Load(ctx, e.Store())
	if err != nil {
		t.Fatal(err)
	}
	if p.HolidayState != prefs.DefaultHolidayState {
		t.Errorf("holiday state = %q, want it unchanged", p.HolidayState)
	}
}

func TestSettingsFormOpens(t *testing.T) {
	e, _, _ := newTestEngine(t)
	sm := newSettingsModel(context.Background(), e)
	sm.setSize(100, 40)
	sm, _ = sm.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !sm.formActive || sm.form == nil {
		t.Fatal("enter should open the settings form")
	}
	if sm.values.weekStartMonday != "true" {
		t.Errorf("week start = %q, want true", sm.values.weekStartMonday)
	}
	sm, _ = sm.update(tea.KeyMsg{Type: tea.KeyEsc})
	if sm.formActive {
		t.Error("esc should close the form")
	}
}

// ============================================================
// App
// ============================================================

func sized(t *testing.T, a App) App {
	t.Helper()
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(App)
}

func TestAppLoadingBeforeSize(t *testing.T) {
	e, _, _ := newTestEngine(t)
	a := NewApp(context.Background(), e)
	if a.View() != "Loading..." {
		t.Errorf("view = %q", a.View())
	}
}

func TestAppHeaderAndTabs(t *testing.T) {
	e, _, _ := newTestEngine(t)
	a := sized(t, NewApp(context.Background(), e))

	view := a.View()
	if !strings.Contains(view, "worktime") {
		t.Error("header missing title")
	}
	for _, name := range viewNames {
		if !strings.Contains(view, name) {
			t.Errorf("header missing tab %q", name)
		}
	}

	m, cmd := a.Update(keyRune("2"))
	a = m.(App)
	if a.activeView != viewSessions {
		t.Errorf("active view = %v, want sessions", a.activeView)
	}
	if _, ok := run(t, cmd).(sessionsDataMsg); !ok {
		t.Error("switching views should refresh the view")
	}

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.(App).activeView != viewProjects {
		t.Errorf("tab should move to projects, got %v", m.(App).activeView)
	}
}

func TestAppChangedMsgSetsStatusAndReloads(t *testing.T) {
	e, _, _ := newTestEngine(t)
	a := sized(t, NewApp(context.Background(), e))

	m, cmd := a.Update(changedMsg{text: "Started Website"})
	a = m.(App)
	if a.status != "Started Website" || a.statusError {
		t.Errorf("status = %q error=%v", a.status, a.statusError)
	}
	if cmd == nil {
		t.Error("changedMsg should reload the dashboard")
	}
	if !strings.Contains(a.View(), "Started Website") {
		t.Error("footer missing status")
	}

	m, _ = a.Update(statusMsg{text: "Error: boom", isError: true})
	if !m.(App).statusError {
		t.Error("error status not flagged")
	}
}

func TestAppFooterShowsRunningTimer(t *testing.T) {
	e, clock, p := newTestEngine(t)
	ctx := context.Background()
	if _, _, err := e.Start(ctx, p.ID, nil, false); err != nil {
		t.Fatal(err)
	}
	clock.Advance(90 * time.Second)

	a := sized(t, NewApp(ctx, e))
	m, _ := a.Update(run(t, a.dashboard.loadData()))
	a = m.(App)
	if !strings.Contains(a.View(), "00:01:30") {
		t.Error("footer does not show the running timer")
	}
}

func TestAppFormCapturesKeys(t *testing.T) {
	e, _, _ := newTestEngine(t)
	a := sized(t, NewApp(context.Background(), e))
	m, _ := a.Update(keyRune("3"))
	a = m.(App)
	m, _ = a.Update(keyRune("n"))
	a = m.(App)
	if !a.isFormActive() {
		t.Fatal("project form not active")
	}
	m, _ = a.Update(keyRune("1"))
	if m.(App).activeView != viewProjects {
		t.Error("digits typed into a form must not switch views")
	}
}
