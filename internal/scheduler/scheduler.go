package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadopc/worktime/internal/metrics"
	"github.com/sadopc/worktime/internal/notify"
	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/presence"
	"github.com/sadopc/worktime/internal/session"
)

// Scheduler periodically evaluates the presence trigger.
type Scheduler struct {
	engine  *session.Engine
	sampler presence.Sampler
	sink    notify.Sink
	logger  zerolog.Logger

	// Interval derives the tick interval from the current preferences.
	Interval func(p prefs.Prefs) time.Duration
}

// New creates a new trigger scheduler
func New(engine *session.Engine, sampler presence.Sampler, sink notify.Sink, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		sampler:  sampler,
		sink:     sink,
		logger:   logger.With().Str("component", "trigger-scheduler").Logger(),
		Interval: prefs.Prefs.CheckInterval,
	}
}

// Tick runs one evaluation at now and dispatches the resulting events.
// Sampling and delivery failures are logged, never returned.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) ([]presence.Event, error) {
	started := time.Now()
	defer func() { metrics.TriggerDuration.Observe(time.Since(started).Seconds()) }()

	snap, err := s.engine.Status(ctx, now)
	if err != nil {
		metrics.TriggerEvaluations.WithLabelValues("error").Inc()
		return nil, err
	}
	p := snap.Prefs
	if !p.PresenceEnabled || p.PresenceNetwork == "" {
		metrics.TriggerEvaluations.WithLabelValues("disabled").Inc()
		return nil, nil
	}

	present := false
	observed, err := s.sampler.CurrentNetworkIdentifier(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Presence sampling failed, assuming absent")
	} else {
		present = presence.Present(observed, p.PresenceNetwork)
	}

	events := presence.Evaluate(presence.Input{
		Config:    presence.Config{Enabled: p.PresenceEnabled, Network: p.PresenceNetwork},
		Schedule:  p.StandardStart,
		LateAfter: p.LateAfter(),
		Running:   snap.State != session.NoActiveSession,
		Present:   present,
		Now:       now,
	})
	metrics.TriggerEvaluations.WithLabelValues("ok").Inc()

	s.logger.Debug().
		Str("observed", observed).
		Bool("present", present).
		Str("state", snap.State.String()).
		Int("events", len(events)).
		Msg("Presence evaluated")

	for _, ev := range events {
		metrics.TriggerEvents.WithLabelValues(string(ev.Kind)).Inc()
		if err := s.sink.Notify(ctx, string(ev.Kind), ev.Title, ev.Body); err != nil {
			s.logger.Error().Err(err).Str("kind", string(ev.Kind)).Msg("Failed to deliver notification")
		}
	}
	return events, nil
}

// Run ticks immediately and then on the configured interval until ctx is
// done. Preferences are re-read on every tick; a changed interval resets the
// ticker.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.interval(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("Trigger scheduler started")
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Trigger scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
			if next := s.interval(ctx); next != interval {
				s.logger.Info().Dur("old", interval).Dur("new", next).Msg("Trigger interval changed")
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.Tick(ctx, s.engine.Clock().Now()); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("Trigger evaluation failed")
	}
}

func (s *Scheduler) interval(ctx context.Context) time.Duration {
	p, err := prefs.Load(ctx, s.engine.Store())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load preferences, using defaults")
	}
	return s.Interval(p)
}
