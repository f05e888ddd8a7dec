package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sadopc/worktime/internal/session"
)

func newProjectCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(
		newProjectAddCmd(c),
		newProjectListCmd(c),
		newProjectRenameCmd(c),
		newProjectArchiveCmd(c, "archive", true),
		newProjectArchiveCmd(c, "unarchive", false),
	)
	return cmd
}

func newProjectAddCmd(c *cli) *cobra.Command {
	var number string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				p, err := e.CreateProject(ctx, args[0], number)
				if err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Created project #%d", p.ID)
				fmt.Fprintf(cmd.OutOrStdout(), " %s\n", projectLabel(p))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&number, "number", "n", "", "Project number")
	return cmd
}

func newProjectListCmd(c *cli) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				projects, err := e.ListProjects(ctx, all)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(projects) == 0 {
					faint.Fprintln(out, "No projects yet. Create one with: worktime project add <name>")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tNUMBER\tSTATUS")
				for _, p := range projects {
					status := "active"
					if p.Archived {
						status = "archived"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Number, status)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include archived projects")
	return cmd
}

func newProjectRenameCmd(c *cli) *cobra.Command {
	var number string
	cmd := &cobra.Command{
		Use:   "rename <project> <name>",
		Short: "Rename a project or change its number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				p, err := resolveProject(ctx, e, args[0])
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("number") {
					number = p.Number
				}
				if err := e.RenameProject(ctx, p.ID, args[1], number); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Renamed project #%d to %s\n", p.ID, args[1])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&number, "number", "n", "", "New project number")
	return cmd
}

func newProjectArchiveCmd(c *cli, use string, archived bool) *cobra.Command {
	short := "Archive a project"
	if !archived {
		short = "Restore an archived project"
	}
	return &cobra.Command{
		Use:   use + " <project>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				p, err := resolveProject(ctx, e, args[0])
				if err != nil {
					return err
				}
				if err := e.SetArchived(ctx, p.ID, archived); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Project #%d %sd\n", p.ID, use)
				return nil
			})
		},
	}
}
