package session

import (
	"context"
	"testing"
	"time"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/store"
)

func TestStatusSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.engine.Status(ctx, t0)
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != NoActiveSession || snap.Session != nil || snap.Today != 0 {
		t.Fatalf("unexpected idle snapshot: %+v", snap)
	}

	f.engine.Start(ctx, f.a.ID, nil, false)
	f.engine.TogglePause(ctx, t0.Add(time.Hour))
	f.engine.TogglePause(ctx, t0.Add(time.Hour+20*time.Minute))
	f.engine.TogglePause(ctx, t0.Add(3*time.Hour))

	snap, err = f.engine.Status(ctx, t0.Add(4*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != RunningPaused || snap.Project == nil || snap.Project.ID != f.a.ID {
		t.Fatalf("unexpected running snapshot: %+v", snap)
	}
	want := 4*time.Hour - 20*time.Minute - time.Hour
	if snap.Effective != want || snap.Today != want || snap.Week != want {
		t.Fatalf("effective=%v today=%v week=%v, want %v", snap.Effective, snap.Today, snap.Week, want)
	}
}

func TestEffectiveDurationScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, _, _ := f.engine.Start(ctx, f.a.ID, nil, false)
	f.engine.TogglePause(ctx, t0.Add(time.Hour))
	f.engine.TogglePause(ctx, t0.Add(time.Hour+20*time.Minute))
	f.engine.End(ctx, t0.Add(9*time.Hour))

	ws, _ := f.store.GetSession(ctx, id)
	if got := aggregate.EffectiveDuration(*ws, t0.Add(48*time.Hour)); got != 8*time.Hour+40*time.Minute {
		t.Fatalf("effective = %v, want 8h40m", got)
	}
	total, err := f.engine.ProjectTotal(ctx, f.a.ID, t0.Add(48*time.Hour))
	if err != nil || total != 8*time.Hour+40*time.Minute {
		t.Fatalf("project total = %v, %v", total, err)
	}
}

func TestTodayAndWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Monday of t0's week and the Sunday before it.
	monday := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	insert := func(start time.Time, d time.Duration) {
		end := start.Add(d)
		if _, err := f.store.InsertSession(ctx, store.WorkSession{ProjectID: f.a.ID, StartTime: start, EndTime: &end}); err != nil {
			t.Fatal(err)
		}
	}
	insert(monday, 8*time.Hour)
	insert(monday.AddDate(0, 0, -1), 2*time.Hour)
	insert(t0, 3*time.Hour)

	now := t0.Add(10 * time.Hour)
	today, _ := f.engine.Today(ctx, now)
	if today != 3*time.Hour {
		t.Fatalf("today = %v", today)
	}
	week, _ := f.engine.Week(ctx, now)
	if week != 11*time.Hour {
		t.Fatalf("monday week = %v, want 11h", week)
	}

	f.store.SetSetting(ctx, "week_start_monday", "false")
	week, _ = f.engine.Week(ctx, now)
	if week != 13*time.Hour {
		t.Fatalf("sunday week = %v, want 13h", week)
	}
}

func TestWeekReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SetSetting(ctx, "week_target_hours", "10")

	// Good Friday 2025 in a week with work on Monday and Tuesday.
	mon := time.Date(2025, 4, 14, 8, 0, 0, 0, time.UTC)
	for i, p := range []int64{f.a.ID, f.b.ID} {
		start := mon.AddDate(0, 0, i)
		end := start.Add(4 * time.Hour)
		if _, err := f.store.InsertSession(ctx, store.WorkSession{ProjectID: p, StartTime: start, EndTime: &end}); err != nil {
			t.Fatal(err)
		}
	}

	r, err := f.engine.WeekReport(ctx, mon.AddDate(0, 0, 3), mon.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(r.Days))
	}
	if r.Total != 8*time.Hour || r.Level != aggregate.Near {
		t.Fatalf("total=%v level=%v", r.Total, r.Level)
	}
	if r.Days[4].Holiday != "Karfreitag" {
		t.Fatalf("friday holiday = %q", r.Days[4].Holiday)
	}
	if len(r.ByProject) != 2 {
		t.Fatalf("by project: %+v", r.ByProject)
	}
}

func TestRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		start := t0.Add(time.Duration(i) * 24 * time.Hour)
		end := start.Add(time.Hour)
		f.store.InsertSession(ctx, store.WorkSession{ProjectID: f.a.ID, StartTime: start, EndTime: &end})
	}
	got, err := f.engine.Recent(ctx, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0].StartTime.After(got[1].StartTime) {
		t.Fatalf("unexpected recent list: %+v", got)
	}
}

func TestFollowEmitsUntilCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.engine.Start(context.Background(), f.a.ID, nil, false)
	f.clock.Advance(30 * time.Minute)

	ch := f.engine.Follow(ctx, 10*time.Millisecond)
	snap, ok := <-ch
	if !ok {
		t.Fatal("channel closed early")
	}
	if snap.State != Running || snap.Effective != 30*time.Minute {
		t.Fatalf("unexpected first snapshot: %+v", snap)
	}

	f.clock.Advance(time.Minute)
	var next Snapshot
	select {
	case next = <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after tick")
	}
	if next.Effective < snap.Effective {
		t.Fatalf("effective decreased: %v < %v", next.Effective, snap.Effective)
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
