package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/store"
)

var t0 = time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC) // a Wednesday

type fixture struct {
	store  *store.Store
	clock  *calendar.TestClock
	engine *Engine
	a, b   *store.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clock := calendar.NewTestClock(t0)
	e := New(s, WithClock(clock))
	ctx := context.Background()
	a, err := e.CreateProject(ctx, "Alpha", "A-1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.CreateProject(ctx, "Beta", "")
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{store: s, clock: clock, engine: e, a: a, b: b}
}

func (f *fixture) running(t *testing.T) *store.WorkSession {
	t.Helper()
	ws, err := f.store.GetRunningSession(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

// ============================================================
// Start
// ============================================================

func TestStartCreatesRunningSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, started, err := f.engine.Start(ctx, f.a.ID, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if !started || id == 0 {
		t.Fatalf("expected a new session, got id=%d started=%v", id, started)
	}
	ws := f.running(t)
	if ws == nil || ws.ID != id || !ws.StartTime.Equal(t0) || !ws.StartedManually {
		t.Fatalf("unexpected running session: %+v", ws)
	}

	p, _ := prefs.Load(ctx, f.store)
	if p.LastProjectID != f.a.ID {
		t.Fatalf("last project = %d, want %d", p.LastProjectID, f.a.ID)
	}
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _, _ := f.engine.Start(ctx, f.a.ID, nil, false)
	at := t0.Add(time.Hour)
	second, started, err := f.engine.Start(ctx, f.b.ID, &at, true)
	if err != nil {
		t.Fatal(err)
	}
	if started || second != first {
		t.Fatalf("second start should be a no-op, got id=%d started=%v", second, started)
	}
	ws := f.running(t)
	if ws.ProjectID != f.a.ID || !ws.StartTime.Equal(t0) {
		t.Fatalf("running session changed: %+v", ws)
	}
}

func TestStartExplicitTimestamp(t *testing.T) {
	f := newFixture(t)
	at := t0.Add(-45 * time.Minute)
	if _, _, err := f.engine.Start(context.Background(), f.a.ID, &at, true); err != nil {
		t.Fatal(err)
	}
	if ws := f.running(t); !ws.StartTime.Equal(at) {
		t.Fatalf("start = %v, want %v", ws.StartTime, at)
	}
}

func TestStartUnknownProject(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.engine.Start(context.Background(), 999, nil, false)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.running(t) != nil {
		t.Fatal("no session should have been created")
	}
}

func TestConcurrentStartsCreateOneSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 16
	ids := make([]int64, n)
	startedCount := make(chan struct{}, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, started, err := f.engine.Start(ctx, f.a.ID, nil, false)
			if err != nil {
				t.Errorf("start %d: %v", i, err)
				return
			}
			ids[i] = id
			if started {
				startedCount <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(startedCount)

	if len(startedCount) != 1 {
		t.Fatalf("expected exactly one start, got %d", len(startedCount))
	}
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("all callers should observe the same session: %v", ids)
		}
	}
	sessions, _ := f.store.ListSessions(ctx, store.SessionFilter{})
	if len(sessions) != 1 {
		t.Fatalf("expected 1 stored session, got %d", len(sessions))
	}
}

// ============================================================
// End
// ============================================================

func TestEndWithoutRunningIsNoop(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.End(context.Background(), t0)
	if err != nil || id != 0 {
		t.Fatalf("End = %d, %v; want 0, nil", id, err)
	}
}

func TestEndClosesOpenPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, _, _ := f.engine.Start(ctx, f.a.ID, nil, false)
	if _, err := f.engine.TogglePause(ctx, t0.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	end := t0.Add(2 * time.Hour)
	ended, err := f.engine.End(ctx, end)
	if err != nil || ended != id {
		t.Fatalf("End = %d, %v", ended, err)
	}

	ws, _ := f.store.GetSession(ctx, id)
	if ws.Running() || !ws.EndTime.Equal(end) {
		t.Fatalf("session not ended at %v: %+v", end, ws)
	}
	if len(ws.Pauses) != 1 || ws.Pauses[0].Open() || !ws.Pauses[0].EndTime.Equal(end) {
		t.Fatalf("pause should be closed at the session end: %+v", ws.Pauses)
	}
	if f.running(t) != nil {
		t.Fatal("nothing should be running")
	}
}

func TestEndBeforeStartIsClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _, _ := f.engine.Start(ctx, f.a.ID, nil, false)
	if _, err := f.engine.End(ctx, t0.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	ws, _ := f.store.GetSession(ctx, id)
	if !ws.EndTime.Equal(ws.StartTime) {
		t.Fatalf("end should be clamped to start: %+v", ws)
	}
}

// ============================================================
// Pause
// ============================================================

func TestTogglePauseCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.engine.TogglePause(ctx, t0)
	if err != nil || state != NoActiveSession {
		t.Fatalf("toggle without session = %v, %v", state, err)
	}

	f.engine.Start(ctx, f.a.ID, nil, false)
	state, _ = f.engine.TogglePause(ctx, t0.Add(time.Hour))
	if state != RunningPaused {
		t.Fatalf("expected paused, got %v", state)
	}
	if StateOf(f.running(t)) != RunningPaused {
		t.Fatal("stored state should be paused")
	}
	state, _ = f.engine.TogglePause(ctx, t0.Add(time.Hour+20*time.Minute))
	if state != Running {
		t.Fatalf("expected running, got %v", state)
	}

	ws := f.running(t)
	if len(ws.Pauses) != 1 || ws.OpenPause() != nil {
		t.Fatalf("expected one closed pause: %+v", ws.Pauses)
	}
	if got := ws.Pauses[0].EndTime.Sub(ws.Pauses[0].StartTime); got != 20*time.Minute {
		t.Fatalf("pause length = %v", got)
	}
}

func TestAtMostOneOpenPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.Start(ctx, f.a.ID, nil, false)

	for i := 0; i < 7; i++ {
		f.engine.TogglePause(ctx, t0.Add(time.Duration(i+1)*time.Minute))
		open := 0
		for _, p := range f.running(t).Pauses {
			if p.Open() {
				open++
			}
		}
		if open > 1 {
			t.Fatalf("iteration %d: %d open pauses", i, open)
		}
	}
}

// ============================================================
// Switch
// ============================================================

func TestSwitchProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	startA := t0.Add(-3 * time.Hour)
	aID, _, _ := f.engine.Start(ctx, f.a.ID, &startA, false)
	f.engine.TogglePause(ctx, t0.Add(-time.Hour))

	bID, err := f.engine.SwitchProject(ctx, f.b.ID, t0)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := f.store.GetSession(ctx, aID)
	if a.Running() || !a.EndTime.Equal(t0) || a.OpenPause() != nil {
		t.Fatalf("session A not closed cleanly: %+v", a)
	}
	b := f.running(t)
	if b == nil || b.ID != bID || b.ProjectID != f.b.ID || !b.StartTime.Equal(t0) || b.StartedManually {
		t.Fatalf("session B not started at switch instant: %+v", b)
	}
}

func TestSwitchProjectSumHasNoGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	T := t0
	startA := T.Add(-3 * time.Hour)
	f.engine.Start(ctx, f.a.ID, &startA, false)
	if _, err := f.engine.SwitchProject(ctx, f.b.ID, T); err != nil {
		t.Fatal(err)
	}
	now := T.Add(time.Hour)
	got, err := f.engine.Window(ctx, T.Add(-3*time.Hour), T.Add(time.Hour), now, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 4*time.Hour {
		t.Fatalf("sum = %v, want 4h", got)
	}
}

func TestSwitchProjectUnknownLeavesSessionRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _, _ := f.engine.Start(ctx, f.a.ID, nil, false)

	_, err := f.engine.SwitchProject(ctx, 404, t0.Add(time.Hour))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ws := f.running(t)
	if ws == nil || ws.ID != id {
		t.Fatal("original session must keep running after a failed switch")
	}
}

func TestSwitchProjectWithoutRunning(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.SwitchProject(context.Background(), f.b.ID, t0)
	if err != nil || id == 0 {
		t.Fatalf("switch = %d, %v", id, err)
	}
	if ws := f.running(t); ws == nil || ws.ProjectID != f.b.ID {
		t.Fatalf("expected B running: %+v", ws)
	}
}

// ============================================================
// Projects
// ============================================================

func TestProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.CreateProject(ctx, "  ", ""); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := f.engine.RenameProject(ctx, f.b.ID, "Gamma", "G-3"); err != nil {
		t.Fatal(err)
	}
	archived, err := f.engine.ToggleArchived(ctx, f.b.ID)
	if err != nil || !archived {
		t.Fatalf("toggle = %v, %v", archived, err)
	}
	active, _ := f.engine.ListProjects(ctx, false)
	if len(active) != 1 || active[0].ID != f.a.ID {
		t.Fatalf("unexpected active projects: %+v", active)
	}
	archived, _ = f.engine.ToggleArchived(ctx, f.b.ID)
	if archived {
		t.Fatal("second toggle should unarchive")
	}
	if _, err := f.engine.ToggleArchived(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLastProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.engine.LastProject(ctx)
	if err != nil || p != nil {
		t.Fatalf("expected no last project, got %+v, %v", p, err)
	}
	f.engine.Start(ctx, f.b.ID, nil, false)
	p, _ = f.engine.LastProject(ctx)
	if p == nil || p.ID != f.b.ID {
		t.Fatalf("last project = %+v", p)
	}
	f.engine.SetArchived(ctx, f.b.ID, true)
	p, _ = f.engine.LastProject(ctx)
	if p != nil {
		t.Fatal("archived project should not be offered")
	}
}
