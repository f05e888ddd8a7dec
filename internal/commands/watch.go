package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sadopc/worktime/internal/config"
	"github.com/sadopc/worktime/internal/metrics"
	"github.com/sadopc/worktime/internal/notify"
	"github.com/sadopc/worktime/internal/presence"
	"github.com/sadopc/worktime/internal/scheduler"
	"github.com/sadopc/worktime/internal/systemd"
)

func newWatchCmd(c *cli) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the presence trigger scheduler in the foreground",
		Long: `Run the presence trigger scheduler until interrupted.

Every check interval the current Wi-Fi network is compared with the
configured workplace network and the expected start time of the day. When
you are present but not clocked in, or clocked in but gone, a notification is
sent. The daemon notifies systemd when ready, serves Prometheus metrics when
enabled and reloads the log level when the config file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Evaluate the trigger once, print the events and exit")
	return cmd
}

func (c *cli) runWatch(cmd *cobra.Command, once bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := c.logger.With().Str("component", "watch").Logger()

	e, err := c.openEngine(c.logger)
	if err != nil {
		return err
	}
	defer e.Store().Close()

	sink, closeSink := c.buildSink(ctx, logger)
	defer closeSink()
	sched := scheduler.New(e, c.buildSampler(), sink, c.logger)

	if once {
		events, err := sched.Tick(ctx, c.clock.Now())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			faint.Fprintln(out, "No trigger events")
		}
		for _, ev := range events {
			yellow.Fprint(out, ev.Title)
			fmt.Fprintf(out, ": %s\n", ev.Body)
		}
		return nil
	}

	if _, err := config.Watch(c.configPath, logger, func(next *config.Config) {
		zerolog.SetGlobalLevel(config.ParseLevel(next.Logging.Level))
	}); err != nil {
		logger.Warn().Err(err).Msg("Config watching disabled")
	}

	if c.cfg.Metrics.Enabled {
		listeners, err := systemd.GetListeners()
		if err != nil {
			return err
		}
		srv := metrics.NewServer(c.cfg.Metrics.Addr, c.logger)
		if listeners.Metrics != nil {
			srv.SetListener(listeners.Metrics)
		}
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()
	}

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}
	if interval := systemd.WatchdogInterval(); interval > 0 {
		go runWatchdog(ctx, interval, logger)
	}

	logger.Info().Str("database", c.cfg.Database.Path).Msg("Watching presence")
	err = sched.Run(ctx)

	if nerr := systemd.NotifyStopping(); nerr != nil {
		logger.Warn().Err(nerr).Msg("Failed to notify systemd")
	}
	return err
}

// buildSink assembles log, desktop and de-duplication layers. An unreachable
// Redis falls back to in-process de-duplication.
func (c *cli) buildSink(ctx context.Context, logger zerolog.Logger) (notify.Sink, func()) {
	sinks := notify.Multi{notify.NewLogSink(c.logger)}
	if c.cfg.Notify.Desktop {
		sinks = append(sinks, notify.NewDesktopSink())
	}

	if c.cfg.Redis.Enabled {
		opts := notify.RedisOptions{
			Addr:     c.cfg.Redis.Addr,
			Password: c.cfg.Redis.Password,
			DB:       c.cfg.Redis.DB,
			TTL:      config.ParseDuration(c.cfg.Redis.TTL, time.Hour),
		}
		client, err := notify.OpenRedis(ctx, opts)
		if err == nil {
			return notify.NewRedisDedup(client, sinks, opts, c.logger), func() { _ = client.Close() }
		}
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable, de-duplicating in process")
	}

	window := config.ParseDuration(c.cfg.Notify.DedupWindow, time.Hour)
	return notify.NewDedup(sinks, window, c.cfg.Notify.DedupSize), func() {}
}

func (c *cli) buildSampler() presence.Sampler {
	if c.cfg.Presence.Sampler == "static" {
		return presence.StaticSampler{Network: c.cfg.Presence.StaticNetwork}
	}
	return presence.NewCommandSampler()
}

func runWatchdog(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := systemd.NotifyWatchdog(); err != nil {
				logger.Warn().Err(err).Msg("Watchdog notification failed")
			}
		}
	}
}
