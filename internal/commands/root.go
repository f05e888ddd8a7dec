package commands

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sadopc/worktime/internal/aggregate"
	"github.com/sadopc/worktime/internal/calendar"
	"github.com/sadopc/worktime/internal/config"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
	"github.com/sadopc/worktime/internal/tui"
)

var version = "dev"

// cli carries what every subcommand needs after flag parsing.
type cli struct {
	configPath string
	clock      calendar.Clock

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCommand builds the worktime command tree.
func NewRootCommand() *cobra.Command {
	return newRoot(&cli{clock: calendar.RealClock{}})
}

func newRoot(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "worktime",
		Short: "Track work time against projects",
		Long: `worktime records work sessions with pauses against projects, reports
effective worked time per day, week and project, and can watch the current
Wi-Fi network to remind you when you forgot to clock in or out.

Run without a subcommand to open the terminal UI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to configuration file (default "+config.DefaultPath()+")")

	root.AddCommand(
		newStartCmd(c),
		newStopCmd(c),
		newPauseCmd(c),
		newSwitchCmd(c),
		newStatusCmd(c),
		newProjectCmd(c),
		newSessionCmd(c),
		newEditCmd(c),
		newPauseAddCmd(c),
		newPauseDeleteCmd(c),
		newReportCmd(c),
		newHolidaysCmd(c),
		newSettingsCmd(c),
		newWatchCmd(c),
	)
	return root
}

// Execute runs the root command and exits 1 on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	return nil
}

func (c *cli) policy() aggregate.Policy {
	if c.cfg.Report.Policy == "starts_in_window" {
		return aggregate.StartsInWindow
	}
	return aggregate.Clip
}

func (c *cli) openEngine(logger zerolog.Logger) (*session.Engine, error) {
	s, err := store.New(c.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return session.New(s,
		session.WithClock(c.clock),
		session.WithLogger(logger),
		session.WithPolicy(c.policy()),
	), nil
}

// withEngine opens the database for the duration of fn.
func (c *cli) withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *session.Engine) error) error {
	e, err := c.openEngine(c.logger)
	if err != nil {
		return err
	}
	defer e.Store().Close()
	return fn(cmd.Context(), e)
}

func (c *cli) runTUI(cmd *cobra.Command) error {
	// Log output would corrupt the alternate screen.
	e, err := c.openEngine(zerolog.Nop())
	if err != nil {
		return err
	}
	defer e.Store().Close()

	app := tui.NewApp(cmd.Context(), e)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
