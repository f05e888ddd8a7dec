// Package prefs maps the settings table onto typed user preferences.
// Loading never fails on a malformed value; each key falls back to its
// default independently.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/rounding"
	"github.com/sadopc/worktime/internal/store"
)

const (
	KeyWeekStartMonday = "week_start_monday"
	KeyHolidayState    = "holiday_state"
	KeyRoundingMinutes = "rounding_minutes"
	KeyRoundingMode    = "rounding_mode"
	KeyPresenceEnabled = "presence_enabled"
	KeyPresenceNetwork = "presence_network"
	KeyTriggerCheckMin = "trigger_check_min"
	KeyLateAfterMin    = "late_after_min"
	KeyWeekTargetHours = "week_target_hours"
	KeyLastProjectID   = "last_project_id"
)

// StandardStartKeys holds the expected start keys, Monday first.
var StandardStartKeys = [7]string{
	"std_start_mon", "std_start_tue", "std_start_wed", "std_start_thu",
	"std_start_fri", "std_start_sat", "std_start_sun",
}

const (
	DefaultStart        = "09:00"
	DefaultHolidayState = "BY"
	DefaultCheckMinutes = 15
	DefaultLateAfter    = 10
	DefaultWeekTarget   = 40.0
	MinCheckMinutes     = 15
	MaxCheckMinutes     = 60
	maxLateAfterMinutes = 24 * 60
	maxWeekTargetHours  = 7 * 24
)

// RoundingChoices are the granularities offered in the UI.
var RoundingChoices = []int{0, 5, 10, 15}

var (
	ErrUnknownKey   = errors.New("prefs: unknown key")
	ErrInvalidValue = errors.New("prefs: invalid value")
)

// KV is the subset of the store used for preferences.
type KV interface {
	GetAllSettings(ctx context.Context) ([]store.Setting, error)
	SetSetting(ctx context.Context, key, value string) error
}

type Prefs struct {
	WeekStartsMonday    bool
	HolidayState        string
	RoundingMinutes     int
	RoundingMode        rounding.Mode
	PresenceEnabled     bool
	PresenceNetwork     string
	TriggerCheckMinutes int
	LateAfterMinutes    int
	WeekTargetHours     float64
	// StandardStart holds HH:MM strings, Monday first.
	StandardStart [7]string
	// LastProjectID is 0 when no project was used yet.
	LastProjectID int64
}

// Defaults returns the preferences of a fresh installation.
func Defaults() Prefs {
	p := Prefs{
		WeekStartsMonday:    true,
		HolidayState:        DefaultHolidayState,
		RoundingMode:        rounding.None,
		TriggerCheckMinutes: DefaultCheckMinutes,
		LateAfterMinutes:    DefaultLateAfter,
		WeekTargetHours:     DefaultWeekTarget,
	}
	for i := range p.StandardStart {
		p.StandardStart[i] = DefaultStart
	}
	return p
}

// Load reads all preferences. Only storage errors are returned.
func Load(ctx context.Context, kv KV) (Prefs, error) {
	settings, err := kv.GetAllSettings(ctx)
	if err != nil {
		return Defaults(), fmt.Errorf("load prefs: %w", err)
	}
	values := make(map[string]string, len(settings))
	for _, s := range settings {
		values[s.Key] = s.Value
	}
	return FromMap(values), nil
}

// FromMap builds preferences from raw key/value pairs.
func FromMap(values map[string]string) Prefs {
	p := Defaults()
	if v, ok := parseBool(values[KeyWeekStartMonday]); ok {
		p.WeekStartsMonday = v
	}
	if v := strings.ToUpper(strings.TrimSpace(values[KeyHolidayState])); calendar.ValidState(v) {
		p.HolidayState = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(values[KeyRoundingMinutes])); err == nil && containsInt(RoundingChoices, v) {
		p.RoundingMinutes = v
	}
	if m, ok := rounding.ParseMode(values[KeyRoundingMode]); ok {
		p.RoundingMode = m
	}
	if v, ok := parseBool(values[KeyPresenceEnabled]); ok {
		p.PresenceEnabled = v
	}
	p.PresenceNetwork = strings.TrimSpace(values[KeyPresenceNetwork])
	if v, err := strconv.Atoi(strings.TrimSpace(values[KeyTriggerCheckMin])); err == nil && v > 0 {
		p.TriggerCheckMinutes = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(values[KeyLateAfterMin])); err == nil && v >= 0 && v <= maxLateAfterMinutes {
		p.LateAfterMinutes = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(values[KeyWeekTargetHours]), 64); err == nil && v >= 0 && v <= maxWeekTargetHours {
		p.WeekTargetHours = v
	}
	for i, key := range StandardStartKeys {
		if v, ok := values[key]; ok && strings.TrimSpace(v) != "" {
			p.StandardStart[i] = strings.TrimSpace(v)
		}
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(values[KeyLastProjectID]), 10, 64); err == nil && v > 0 {
		p.LastProjectID = v
	}
	return p
}

// Map renders the preferences as stored key/value pairs.
func (p Prefs) Map() map[string]string {
	m := map[string]string{
		KeyWeekStartMonday: strconv.FormatBool(p.WeekStartsMonday),
		KeyHolidayState:    p.HolidayState,
		KeyRoundingMinutes: strconv.Itoa(p.RoundingMinutes),
		KeyRoundingMode:    string(p.RoundingMode),
		KeyPresenceEnabled: strconv.FormatBool(p.PresenceEnabled),
		KeyPresenceNetwork: p.PresenceNetwork,
		KeyTriggerCheckMin: strconv.Itoa(p.TriggerCheckMinutes),
		KeyLateAfterMin:    strconv.Itoa(p.LateAfterMinutes),
		KeyWeekTargetHours: strconv.FormatFloat(p.WeekTargetHours, 'f', -1, 64),
	}
	for i, key := range StandardStartKeys {
		m[key] = p.StandardStart[i]
	}
	if p.LastProjectID > 0 {
		m[KeyLastProjectID] = strconv.FormatInt(p.LastProjectID, 10)
	}
	return m
}

// Save validates and writes every preference.
func Save(ctx context.Context, kv KV, p Prefs) error {
	m := p.Map()
	for _, key := range sortedKeys(m) {
		if err := Set(ctx, kv, key, m[key]); err != nil {
			return err
		}
	}
	return nil
}

// Set validates a single value and stores it in canonical form.
func Set(ctx context.Context, kv KV, key, value string) error {
	canonical, err := Validate(key, value)
	if err != nil {
		return err
	}
	return kv.SetSetting(ctx, key, canonical)
}

// CheckInterval is the trigger interval clamped to [15, 60] minutes.
func (p Prefs) CheckInterval() time.Duration {
	m := p.TriggerCheckMinutes
	if m < MinCheckMinutes {
		m = MinCheckMinutes
	}
	if m > MaxCheckMinutes {
		m = MaxCheckMinutes
	}
	return time.Duration(m) * time.Minute
}

func (p Prefs) LateAfter() time.Duration {
	return time.Duration(p.LateAfterMinutes) * time.Minute
}

// Round applies the configured display rounding.
func (p Prefs) Round(d time.Duration) time.Duration {
	return rounding.Round(d, p.RoundingMinutes, p.RoundingMode)
}

// WeekBounds returns the configured week containing t.
func (p Prefs) WeekBounds(t time.Time) (time.Time, time.Time) {
	return calendar.WeekBounds(t, p.WeekStartsMonday)
}

// Keys lists every known key in sorted order.
func Keys() []string {
	keys := []string{
		KeyWeekStartMonday, KeyHolidayState, KeyRoundingMinutes, KeyRoundingMode,
		KeyPresenceEnabled, KeyPresenceNetwork, KeyTriggerCheckMin, KeyLateAfterMin,
		KeyWeekTargetHours, KeyLastProjectID,
	}
	keys = append(keys, StandardStartKeys[:]...)
	sort.Strings(keys)
	return keys
}

// Validate checks value for key and returns its canonical form.
func Validate(key, value string) (string, error) {
	v := strings.TrimSpace(value)
	invalid := func(reason string) (string, error) {
		return "", fmt.Errorf("%s=%q: %s: %w", key, value, reason, ErrInvalidValue)
	}

	switch key {
	case KeyWeekStartMonday, KeyPresenceEnabled:
		b, ok := parseBool(v)
		if !ok {
			return invalid("expected true or false")
		}
		return strconv.FormatBool(b), nil
	case KeyHolidayState:
		v = strings.ToUpper(v)
		if !calendar.ValidState(v) {
			return invalid("expected one of " + strings.Join(calendar.States(), " "))
		}
		return v, nil
	case KeyRoundingMinutes:
		n, err := strconv.Atoi(v)
		if err != nil || !containsInt(RoundingChoices, n) {
			return invalid("expected 0, 5, 10 or 15")
		}
		return strconv.Itoa(n), nil
	case KeyRoundingMode:
		m, ok := rounding.ParseMode(v)
		if !ok {
			return invalid("expected NONE, NEAREST, DOWN or UP")
		}
		return string(m), nil
	case KeyPresenceNetwork:
		return v, nil
	case KeyTriggerCheckMin:
		n, err := strconv.Atoi(v)
		if err != nil || n < MinCheckMinutes || n > MaxCheckMinutes {
			return invalid(fmt.Sprintf("expected minutes between %d and %d", MinCheckMinutes, MaxCheckMinutes))
		}
		return strconv.Itoa(n), nil
	case KeyLateAfterMin:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxLateAfterMinutes {
			return invalid("expected non-negative minutes")
		}
		return strconv.Itoa(n), nil
	case KeyWeekTargetHours:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > maxWeekTargetHours {
			return invalid("expected hours between 0 and 168")
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case KeyLastProjectID:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return invalid("expected a project id")
		}
		return strconv.FormatInt(n, 10), nil
	}

	for _, k := range StandardStartKeys {
		if key == k {
			t, err := time.Parse("15:04", v)
			if err != nil {
				return invalid("expected HH:MM")
			}
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("%q: %w", key, ErrUnknownKey)
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

func containsInt(xs []int, n int) bool {
	for _, x := range xs {
		if x == n {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
