package aggregate

import (
	"testing"
	"time"

	"github.com/sadopc/worktime/internal/store"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return t0.Add(d) }

func ptr(t time.Time) *time.Time { return &t }

func closedPause(from, to time.Duration) store.PauseSegment {
	return store.PauseSegment{StartTime: at(from), EndTime: ptr(at(to))}
}

func TestEffectiveDurationWithPause(t *testing.T) {
	s := store.WorkSession{
		StartTime: t0,
		EndTime:   ptr(at(9 * time.Hour)),
		Pauses:    []store.PauseSegment{closedPause(time.Hour, time.Hour+20*time.Minute)},
	}
	got := EffectiveDuration(s, at(24*time.Hour))
	if want := 8*time.Hour + 40*time.Minute; got != want {
		t.Fatalf("EffectiveDuration = %v, want %v", got, want)
	}
}

func TestEffectiveDurationClosedIsExact(t *testing.T) {
	s := store.WorkSession{
		StartTime: t0,
		EndTime:   ptr(at(8 * time.Hour)),
		Pauses: []store.PauseSegment{
			closedPause(2*time.Hour, 2*time.Hour+15*time.Minute),
			closedPause(4*time.Hour, 4*time.Hour+30*time.Minute),
		},
	}
	want := 8*time.Hour - 45*time.Minute
	for _, now := range []time.Time{at(8 * time.Hour), at(100 * time.Hour)} {
		if got := EffectiveDuration(s, now); got != want {
			t.Fatalf("now=%v: got %v, want %v", now, got, want)
		}
	}
}

func TestEffectiveDurationRunningAndOpenPause(t *testing.T) {
	s := store.WorkSession{
		StartTime: t0,
		Pauses:    []store.PauseSegment{{StartTime: at(2 * time.Hour)}},
	}
	tests := []struct {
		now  time.Duration
		want time.Duration
	}{
		{0, 0},
		{time.Hour, time.Hour},
		{2 * time.Hour, 2 * time.Hour},
		{3 * time.Hour, 2 * time.Hour}, // paused since 2h
	}
	for _, tt := range tests {
		if got := EffectiveDuration(s, at(tt.now)); got != tt.want {
			t.Errorf("now=+%v: got %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestEffectiveDurationOverlappingPausesCountedOnce(t *testing.T) {
	s := store.WorkSession{
		StartTime: t0,
		EndTime:   ptr(at(4 * time.Hour)),
		Pauses: []store.PauseSegment{
			closedPause(time.Hour, 2*time.Hour),
			closedPause(90*time.Minute, 150*time.Minute),
			closedPause(-time.Hour, 10*time.Minute), // starts before the session
		},
	}
	want := 4*time.Hour - 90*time.Minute - 10*time.Minute
	if got := EffectiveDuration(s, at(5*time.Hour)); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEffectiveDurationMonotonicAndBounded(t *testing.T) {
	s := store.WorkSession{
		StartTime: t0,
		Pauses: []store.PauseSegment{
			closedPause(30*time.Minute, 45*time.Minute),
			closedPause(40*time.Minute, 50*time.Minute),
			{StartTime: at(2 * time.Hour)},
		},
	}
	var prev time.Duration
	for step := time.Duration(0); step <= 4*time.Hour; step += 7 * time.Minute {
		now := at(step)
		got := EffectiveDuration(s, now)
		if got < prev {
			t.Fatalf("not monotonic at +%v: %v < %v", step, got, prev)
		}
		if got > now.Sub(s.StartTime) {
			t.Fatalf("exceeds elapsed at +%v: %v", step, got)
		}
		prev = got
	}
}

func TestEffectiveDurationNeverNegative(t *testing.T) {
	// End before start after a bad manual edit.
	s := store.WorkSession{StartTime: at(time.Hour), EndTime: ptr(t0)}
	if got := EffectiveDuration(s, at(2*time.Hour)); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestSwitchProjectSumHasNoGapOrOverlap(t *testing.T) {
	T := at(3 * time.Hour)
	a := store.WorkSession{ProjectID: 1, StartTime: T.Add(-3 * time.Hour), EndTime: ptr(T)}
	b := store.WorkSession{ProjectID: 2, StartTime: T}
	sessions := []store.WorkSession{a, b}
	now := T.Add(time.Hour)

	got := EffectiveSum(sessions, T.Add(-3*time.Hour), T.Add(time.Hour), now, Clip)
	if want := 4 * time.Hour; got != want {
		t.Fatalf("Clip sum = %v, want %v", got, want)
	}

	// The legacy policy drops B because it is still running at the window end.
	legacy := EffectiveSum(sessions, T.Add(-3*time.Hour), T.Add(time.Hour), now, StartsInWindow)
	if legacy != 3*time.Hour {
		t.Fatalf("StartsInWindow sum = %v, want 3h", legacy)
	}
}

func TestEffectiveWithinClipsPauses(t *testing.T) {
	// 22:00 to 02:00 with a pause 23:30 to 00:30.
	start := time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC)
	s := store.WorkSession{
		StartTime: start,
		EndTime:   ptr(start.Add(4 * time.Hour)),
		Pauses: []store.PauseSegment{{
			StartTime: start.Add(90 * time.Minute),
			EndTime:   ptr(start.Add(150 * time.Minute)),
		}},
	}
	midnight := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now := midnight.Add(12 * time.Hour)

	before := EffectiveWithin(s, midnight.AddDate(0, 0, -1), midnight, now)
	after := EffectiveWithin(s, midnight, midnight.AddDate(0, 0, 1), now)
	if before != 90*time.Minute || after != 90*time.Minute {
		t.Fatalf("before=%v after=%v, want 1h30m each", before, after)
	}
	if before+after != EffectiveDuration(s, now) {
		t.Fatal("clipped parts should add up to the whole")
	}
	if got := EffectiveWithin(s, now, now.Add(time.Hour), now); got != 0 {
		t.Fatalf("disjoint window: got %v", got)
	}
}

func TestDailyTotals(t *testing.T) {
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 3)
	sessions := []store.WorkSession{
		{StartTime: from.Add(8 * time.Hour), EndTime: ptr(from.Add(12 * time.Hour))},
		{StartTime: from.Add(46 * time.Hour), EndTime: ptr(from.Add(50 * time.Hour))}, // day 2 22:00 to day 3 02:00
	}
	got := DailyTotals(sessions, from, to, to)
	want := []time.Duration{4 * time.Hour, 2 * time.Hour, 2 * time.Hour}
	if len(got) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Total != want[i] {
			t.Errorf("day %d: got %v, want %v", i, got[i].Total, want[i])
		}
		if !got[i].Day.Equal(from.AddDate(0, 0, i)) {
			t.Errorf("day %d starts at %v", i, got[i].Day)
		}
	}
}

func TestByProject(t *testing.T) {
	from, to := t0, at(24*time.Hour)
	sessions := []store.WorkSession{
		{ProjectID: 1, StartTime: t0, EndTime: ptr(at(time.Hour))},
		{ProjectID: 2, StartTime: at(time.Hour), EndTime: ptr(at(4 * time.Hour))},
		{ProjectID: 1, StartTime: at(5 * time.Hour), EndTime: ptr(at(6 * time.Hour))},
		{ProjectID: 3, StartTime: at(-5 * time.Hour), EndTime: ptr(at(-4 * time.Hour))},
	}
	got := ByProject(sessions, from, to, to)
	if len(got) != 2 {
		t.Fatalf("expected 2 projects, got %+v", got)
	}
	if got[0].ProjectID != 2 || got[0].Total != 3*time.Hour {
		t.Fatalf("unexpected first: %+v", got[0])
	}
	if got[1].ProjectID != 1 || got[1].Total != 2*time.Hour {
		t.Fatalf("unexpected second: %+v", got[1])
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		sum  time.Duration
		want Level
	}{
		{40 * time.Hour, Reached},
		{41 * time.Hour, Reached},
		{30 * time.Hour, Near},
		{29*time.Hour + 59*time.Minute, Behind},
		{0, Behind},
	}
	for _, tt := range tests {
		if got := Progress(tt.sum, 40); got != tt.want {
			t.Errorf("Progress(%v) = %v, want %v", tt.sum, got, tt.want)
		}
	}
	if Progress(0, 0) != Reached {
		t.Error("zero target is always reached")
	}
}
