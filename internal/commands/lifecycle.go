package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

func newStartCmd(c *cli) *cobra.Command {
	var at string
	var manual bool

	cmd := &cobra.Command{
		Use:   "start [project]",
		Short: "Start a session (defaults to the last used project)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				now := c.clock.Now()

				var project *store.Project
				var err error
				if len(args) == 1 {
					project, err = resolveProject(ctx, e, args[0])
				} else {
					project, err = e.LastProject(ctx)
					if err == nil && project == nil {
						err = errNoProject
					}
				}
				if err != nil {
					return err
				}

				var startTs *time.Time
				if at != "" {
					t, err := parseTime(at, now)
					if err != nil {
						return err
					}
					if t.After(now) {
						return fmt.Errorf("start time %s is in the future", t.Format("15:04"))
					}
					startTs = &t
				}

				id, started, err := e.Start(ctx, project.ID, startTs, manual)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !started {
					yellow.Fprintf(out, "Session #%d is already running\n", id)
					return nil
				}
				green.Fprintf(out, "Started session #%d", id)
				fmt.Fprintf(out, " on %s\n", projectLabel(project))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Start time (HH:MM, YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().BoolVar(&manual, "manual", false, "Record the session as started manually")
	return cmd
}

func newStopCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "End the running session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				now := c.clock.Now()
				id, err := e.End(ctx, now)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if id == 0 {
					faint.Fprintln(out, "No session running")
					return nil
				}
				ws, err := e.Store().GetSession(ctx, id)
				if err != nil {
					return err
				}
				green.Fprintf(out, "Stopped session #%d", id)
				fmt.Fprintf(out, " after %s\n", formatDuration(aggregate.EffectiveDuration(*ws, now)))
				return nil
			})
		},
	}
}

func newPauseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the running session, or resume it when paused",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				state, err := e.TogglePause(ctx, c.clock.Now())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch state {
				case session.RunningPaused:
					yellow.Fprintln(out, "Paused")
				case session.Running:
					green.Fprintln(out, "Resumed")
				default:
					faint.Fprintln(out, "No session running")
				}
				return nil
			})
		},
	}
}

func newSwitchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <project>",
		Short: "End the running session and start one for another project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				project, err := resolveProject(ctx, e, args[0])
				if err != nil {
					return err
				}
				id, err := e.SwitchProject(ctx, project.ID, c.clock.Now())
				if err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Switched to %s", projectLabel(project))
				fmt.Fprintf(cmd.OutOrStdout(), " (session #%d)\n", id)
				return nil
			})
		},
	}
}

func newStatusCmd(c *cli) *cobra.Command {
	var follow bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running session and today's and this week's totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				out := cmd.OutOrStdout()
				if !follow {
					snap, err := e.Status(ctx, c.clock.Now())
					if err != nil {
						return err
					}
					printSnapshot(out, snap)
					return nil
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				for snap := range e.Follow(ctx, interval) {
					printFollowLine(out, snap)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing the status until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Refresh interval for --follow")
	return cmd
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	p := snap.Prefs
	bold.Fprint(w, "State:    ")
	stateColor(snap.State).Fprintln(w, snap.State)
	if snap.Session != nil {
		bold.Fprint(w, "Project:  ")
		fmt.Fprintln(w, projectLabel(snap.Project))
		bold.Fprint(w, "Session:  ")
		fmt.Fprintf(w, "#%d since %s\n", snap.Session.ID, snap.Session.StartTime.Format("2006-01-02 15:04"))
		bold.Fprint(w, "Elapsed:  ")
		fmt.Fprintln(w, formatClock(snap.Effective))
	}
	bold.Fprint(w, "Today:    ")
	fmt.Fprintln(w, formatDuration(p.Round(snap.Today)))
	bold.Fprint(w, "Week:     ")
	fmt.Fprintf(w, "%s of %gh\n", formatDuration(p.Round(snap.Week)), p.WeekTargetHours)
}

func printFollowLine(w io.Writer, snap session.Snapshot) {
	fmt.Fprint(w, snap.Now.Format("15:04:05"), "  ")
	stateColor(snap.State).Fprintf(w, "%-7s", snap.State)
	if snap.Session != nil {
		fmt.Fprintf(w, "  %s  %s", projectLabel(snap.Project), formatClock(snap.Effective))
	}
	fmt.Fprintf(w, "  today %s\n", formatDuration(snap.Prefs.Round(snap.Today)))
}
