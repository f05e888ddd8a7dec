package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

func newReportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report effective worked time",
	}
	cmd.AddCommand(
		newReportTodayCmd(c),
		newReportWeekCmd(c),
		newReportProjectCmd(c),
	)
	return cmd
}

func newReportTodayCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Effective time of today, per project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				now := c.clock.Now()
				snap, err := e.Status(ctx, now)
				if err != nil {
					return err
				}
				from, to := calendar.DayBounds(now)
				sessions, err := e.Store().ListSessions(ctx, store.SessionFilter{From: &from, To: &to, Now: now})
				if err != nil {
					return err
				}
				names, err := projectNames(ctx, e)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				bold.Fprintf(out, "Today %s: %s\n", now.Format("Mon 2006-01-02"), formatDuration(snap.Prefs.Round(snap.Today)))
				if h, ok := calendar.HolidayOn(snap.Prefs.HolidayState, now); ok {
					cyan.Fprintf(out, "Public holiday: %s\n", h.Name)
				}
				for _, pt := range aggregate.ByProject(sessions, from, to, now) {
					fmt.Fprintf(out, "  %-24s %s\n", names[pt.ProjectID], formatDuration(snap.Prefs.Round(pt.Total)))
				}
				return nil
			})
		},
	}
}

func newReportWeekCmd(c *cli) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Per-day totals of a week against the weekly target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := c.clock.Now()
			t := now
			if date != "" {
				var err error
				if t, err = time.ParseInLocation("2006-01-02", date, now.Location()); err != nil {
					return fmt.Errorf("invalid date %q: use YYYY-MM-DD", date)
				}
			}
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				r, err := e.WeekReport(ctx, t, now)
				if err != nil {
					return err
				}
				names, err := projectNames(ctx, e)
				if err != nil {
					return err
				}
				return printWeekReport(cmd, r, names)
			})
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Any day of the week to report (YYYY-MM-DD, default today)")
	return cmd
}

func printWeekReport(cmd *cobra.Command, r session.WeekReport, names map[int64]string) error {
	out := cmd.OutOrStdout()
	p := r.Prefs
	bold.Fprintf(out, "Week %s - %s\n", r.From.Format("2006-01-02"), r.To.AddDate(0, 0, -1).Format("2006-01-02"))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, d := range r.Days {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Day.Format("Mon 01-02"), formatDuration(p.Round(d.Total)), d.Holiday)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Total: %s of %s  ", formatDuration(p.Round(r.Total)), formatDuration(r.Target))
	levelColor(r.Level).Fprintln(out, r.Level)

	if len(r.ByProject) > 0 {
		bold.Fprintln(out, "By project")
		for _, pt := range r.ByProject {
			fmt.Fprintf(out, "  %-24s %s\n", names[pt.ProjectID], formatDuration(p.Round(pt.Total)))
		}
	}
	return nil
}

func newReportProjectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "project <project>",
		Short: "All-time and this week's effective time of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				now := c.clock.Now()
				project, err := resolveProject(ctx, e, args[0])
				if err != nil {
					return err
				}
				p, err := prefs.Load(ctx, e.Store())
				if err != nil {
					return err
				}
				total, err := e.ProjectTotal(ctx, project.ID, now)
				if err != nil {
					return err
				}
				from, to := p.WeekBounds(now)
				week, err := e.Window(ctx, from, to, now, &project.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				bold.Fprintln(out, projectLabel(project))
				fmt.Fprintf(out, "  This week: %s\n", formatDuration(p.Round(week)))
				fmt.Fprintf(out, "  All time:  %s\n", formatDuration(p.Round(total)))
				return nil
			})
		},
	}
}

func newHolidaysCmd(c *cli) *cobra.Command {
	var state string
	var year int

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List the public holidays of a German state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := c.clock.Now()
			if year == 0 {
				year = now.Year()
			}
			if state == "" {
				err := c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
					p, err := prefs.Load(ctx, e.Store())
					state = p.HolidayState
					return err
				})
				if err != nil {
					return err
				}
			}
			state = strings.ToUpper(state)
			if !calendar.ValidState(state) {
				return fmt.Errorf("unknown state %q: use one of %s", state, strings.Join(calendar.States(), " "))
			}

			out := cmd.OutOrStdout()
			bold.Fprintf(out, "Public holidays %d (%s)\n", year, state)
			for _, h := range calendar.Holidays(state, year, now.Location()) {
				fmt.Fprintf(out, "  %s  %s\n", h.Date.Format("Mon 2006-01-02"), h.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&state, "state", "s", "", "State code such as BY or NW (default from settings)")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Year (default current year)")
	return cmd
}
