package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

func newSessionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Inspect and maintain recorded sessions",
	}
	cmd.AddCommand(
		newSessionListCmd(c),
		newSessionShowCmd(c),
		newSessionNoteCmd(c),
		newSessionDeleteCmd(c),
	)
	return cmd
}

func newSessionListCmd(c *cli) *cobra.Command {
	var limit int
	var projectArg string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				var projectID *int64
				if projectArg != "" {
					p, err := resolveProject(ctx, e, projectArg)
					if err != nil {
						return err
					}
					projectID = &p.ID
				}
				sessions, err := e.Recent(ctx, limit, projectID)
				if err != nil {
					return err
				}
				names, err := projectNames(ctx, e)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					faint.Fprintln(out, "No sessions recorded")
					return nil
				}
				now := c.clock.Now()
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPROJECT\tSTART\tEND\tPAUSES\tEFFECTIVE\tNOTE")
				for _, ws := range sessions {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
						ws.ID, names[ws.ProjectID], formatStamp(&ws.StartTime), formatStamp(ws.EndTime),
						len(ws.Pauses), formatDuration(aggregate.EffectiveDuration(ws, now)), ws.Note)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions")
	cmd.Flags().StringVarP(&projectArg, "project", "p", "", "Only sessions of this project")
	return cmd
}

func newSessionShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session with its pauses and edit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				ws, err := e.Store().GetSession(ctx, id)
				if err != nil {
					return err
				}
				project, err := e.Store().GetProject(ctx, ws.ProjectID)
				if err != nil {
					return err
				}
				edits, err := e.Edits(ctx, id)
				if err != nil {
					return err
				}
				printSession(cmd.OutOrStdout(), *ws, project, edits, c.clock.Now())
				return nil
			})
		},
	}
}

func printSession(w io.Writer, ws store.WorkSession, project *store.Project, edits []store.SessionEdit, now time.Time) {
	bold.Fprintf(w, "Session #%d\n", ws.ID)
	fmt.Fprintf(w, "  Project:   %s\n", projectLabel(project))
	fmt.Fprintf(w, "  Start:     %s\n", formatStamp(&ws.StartTime))
	fmt.Fprintf(w, "  End:       %s\n", formatStamp(ws.EndTime))
	fmt.Fprintf(w, "  Effective: %s\n", formatDuration(aggregate.EffectiveDuration(ws, now)))
	if ws.StartedManually {
		fmt.Fprintln(w, "  Started manually")
	}
	if ws.Note != "" {
		fmt.Fprintf(w, "  Note:      %s\n", ws.Note)
	}

	if len(ws.Pauses) > 0 {
		bold.Fprintln(w, "Pauses")
		for _, p := range ws.Pauses {
			fmt.Fprintf(w, "  #%-4d %s - %s\n", p.ID, p.StartTime.Format("15:04"), pauseEnd(p))
		}
	}
	if len(edits) > 0 {
		bold.Fprintln(w, "Edits")
		for _, ed := range edits {
			fmt.Fprintf(w, "  %s  %-12s %s -> %s", ed.EditedAt.Format("2006-01-02 15:04"), ed.Field,
				auditValue(ed.OldValue), auditValue(ed.NewValue))
			if ed.Reason != "" {
				faint.Fprintf(w, "  (%s)", ed.Reason)
			}
			fmt.Fprintln(w)
		}
	}
}

func pauseEnd(p store.PauseSegment) string {
	if p.EndTime == nil {
		return "open"
	}
	return p.EndTime.Format("15:04")
}

func auditValue(v *string) string {
	return session.FormatAuditValue(v, "2006-01-02 15:04")
}

func newSessionNoteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Set the note of a session (empty text clears it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				if err := e.SetNote(ctx, id, args[1]); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Note of session #%d updated\n", id)
				return nil
			})
		},
	}
}

func newSessionDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session with its pauses and edit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				if err := e.DeleteSession(ctx, id); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Deleted session #%d\n", id)
				return nil
			})
		},
	}
}

func newEditCmd(c *cli) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "edit <session|pause> <id> <start|end> <time>",
		Short: "Correct a start or end timestamp (recorded in the edit history)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target session.Target
			switch args[0] {
			case "session":
				target.Kind = session.SessionTarget
			case "pause":
				target.Kind = session.PauseTarget
			default:
				return fmt.Errorf("unknown edit target %q: use session or pause", args[0])
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			target.ID = id

			var field session.Field
			switch args[2] {
			case "start":
				field = session.FieldStart
			case "end":
				field = session.FieldEnd
			default:
				return fmt.Errorf("unknown field %q: use start or end", args[2])
			}
			value, err := parseTime(args[3], c.clock.Now())
			if err != nil {
				return err
			}

			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				if err := e.EditTimestamp(ctx, target, field, value, reason); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Set %s of %s #%d to %s\n", field, target.Kind, id, value.Format("2006-01-02 15:04"))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded with the edit")
	return cmd
}

func newPauseAddCmd(c *cli) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "pause-add <session-id> [start end]",
		Short: "Add a pause to a session (defaults to 12:00-12:30 on its day)",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return fmt.Errorf("give both start and end, or neither")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				ws, err := e.Store().GetSession(ctx, id)
				if err != nil {
					return err
				}
				start, end := session.DefaultPauseSlot(*ws)
				if len(args) == 3 {
					// Clock times refer to the session's day.
					day := ws.StartTime
					if start, err = parseTime(args[1], day); err != nil {
						return err
					}
					if end, err = parseTime(args[2], day); err != nil {
						return err
					}
				}
				p, err := e.AddPause(ctx, id, start, end, reason)
				if err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Added pause #%d to session #%d (%s - %s)\n",
					p.ID, id, p.StartTime.Format("15:04"), pauseEnd(*p))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded with the edit")
	return cmd
}

func newPauseDeleteCmd(c *cli) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "pause-delete <pause-id>",
		Short: "Delete a pause (recorded in the edit history)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				if err := e.DeletePause(ctx, id, reason); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Deleted pause #%d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded with the edit")
	return cmd
}

func projectNames(ctx context.Context, e *session.Engine) (map[int64]string, error) {
	projects, err := e.ListProjects(ctx, true)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return names, nil
}
