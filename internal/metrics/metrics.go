package metrics

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session lifecycle metrics
	LifecycleOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_lifecycle_ops_total",
			Help: "Session lifecycle operations by operation and result",
		},
		[]string{"op", "result"},
	)

	SessionEdits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_session_edits_total",
			Help: "Audited retroactive edits by field",
		},
		[]string{"field"},
	)

	SessionRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worktime_session_running",
			Help: "1 while a work session is running, 0 otherwise",
		},
	)

	SessionPaused = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worktime_session_paused",
			Help: "1 while the running session has an open pause",
		},
	)

	EffectiveTodaySeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worktime_effective_today_seconds",
			Help: "Effective worked time of the current day in seconds",
		},
	)

	// Presence trigger metrics
	TriggerEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_trigger_evaluations_total",
			Help: "Presence trigger evaluations by outcome",
		},
		[]string{"outcome"},
	)

	TriggerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_trigger_events_total",
			Help: "Presence trigger events by kind",
		},
		[]string{"kind"},
	)

	TriggerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worktime_trigger_duration_seconds",
			Help:    "Duration of one trigger evaluation including presence sampling",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// Notification metrics
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_notifications_total",
			Help: "Notifications by sink and result",
		},
		[]string{"sink", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		LifecycleOps,
		SessionEdits,
		SessionRunning,
		SessionPaused,
		EffectiveTodaySeconds,
		TriggerEvaluations,
		TriggerEvents,
		TriggerDuration,
		Notifications,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}

// Result maps an error onto the "result" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func boolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}

// ObserveState publishes the current session state gauges.
func ObserveState(running, paused bool, today time.Duration) {
	boolGauge(SessionRunning, running)
	boolGauge(SessionPaused, paused)
	EffectiveTodaySeconds.Set(today.Seconds())
}
