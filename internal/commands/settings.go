package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/worktime/internal/prefs"
	"github.com/sadopc/worktime/internal/session"
	"github.com/sadopc/worktime/internal/store"
)

func newSettingsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change preferences stored in the database",
	}
	cmd.AddCommand(
		newSettingsListCmd(c),
		newSettingsGetCmd(c),
		newSettingsSetCmd(c),
		newSettingsExportCmd(c),
		newSettingsImportCmd(c),
	)
	return cmd
}

func newSettingsListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every preference with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				p, err := prefs.Load(ctx, e.Store())
				if err != nil {
					return err
				}
				m := p.Map()
				out := cmd.OutOrStdout()
				for _, key := range prefs.Keys() {
					cyan.Fprintf(out, "%-20s", key)
					fmt.Fprintf(out, " %s\n", m[key])
				}
				return nil
			})
		},
	}
}

func newSettingsGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !knownKey(args[0]) {
				return fmt.Errorf("%q: %w", args[0], prefs.ErrUnknownKey)
			}
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				p, err := prefs.Load(ctx, e.Store())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.Map()[args[0]])
				return nil
			})
		},
	}
}

func newSettingsSetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Validate and store a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				if err := prefs.Set(ctx, e.Store(), args[0], args[1]); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
				return nil
			})
		},
	}
}

func newSettingsExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the preferences as YAML (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				p, err := prefs.Load(ctx, e.Store())
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return writeSettings(cmd.OutOrStdout(), p.Map())
				}

				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("create %s: %w", args[0], err)
				}
				if err := writeSettings(f, p.Map()); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "Exported settings to %s\n", args[0])
				return nil
			})
		},
	}
}

func newSettingsImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load preferences from a YAML file; nothing changes if any value is invalid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			values, err := readSettings(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			for key, v := range values {
				if _, err := prefs.Validate(key, v); err != nil {
					return err
				}
			}
			return c.withEngine(cmd, func(ctx context.Context, e *session.Engine) error {
				err := e.Store().WithTx(ctx, func(tx *store.Store) error {
					for _, key := range sortedSettingKeys(values) {
						if err := prefs.Set(ctx, tx, key, values[key]); err != nil {
							return err
						}
					}
					return nil
				})
				if err != nil {
					return fmt.Errorf("import settings: %w", err)
				}
				green.Fprintf(cmd.OutOrStdout(), "Imported %d settings\n", len(values))
				return nil
			})
		},
	}
}

func writeSettings(w io.Writer, m map[string]string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

// readSettings accepts any YAML scalar and keeps its textual form.
func readSettings(data []byte) (map[string]string, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(raw))
	for key, node := range raw {
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%s: expected a scalar value", key)
		}
		values[key] = node.Value
	}
	return values, nil
}

func knownKey(key string) bool {
	for _, k := range prefs.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func sortedSettingKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
