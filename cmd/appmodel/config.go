// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/invowk/appmodel/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `appmodel config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage appmodel configuration",
		Long: `Manage appmodel configuration.

Configuration is stored in:
  - Linux: ~/.config/appmodel/config.cue
  - macOS: ~/Library/Application Support/appmodel/config.cue
  - Windows: %APPDATA%\appmodel\config.cue

Every key can be overridden with an APPMODEL_ environment variable, for
example APPMODEL_MODE=dev or APPMODEL_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context())
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Configuration file:"), path)
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: app.flags.cfgFile})
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		}),
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context) error {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.cfgFile})
	if err != nil {
		return err
	}
	a.applyFlags(cfg)

	if a.flags.output != outputText {
		return writeStructured(a.stdout, a.flags.output, cfg)
	}

	source := configSource(ctx, a.flags.cfgFile)
	if source == "" {
		source = SubtitleStyle.Render("(using defaults)")
	}

	rows := [][2]string{
		{"config file", source},
		{"repository.local", orDefault(cfg.Repository.Local, "(default)")},
	}
	for _, r := range cfg.Repository.Remotes {
		rows = append(rows, [2]string{"repository.remotes", r.ID + " " + r.URL})
	}
	rows = append(rows,
		[2]string{"workspace.manifest", orDefault(cfg.Workspace.Manifest, "(none)")},
		[2]string{"mode", cfg.Mode.String()},
		[2]string{"allow_pending_modules", strconv.FormatBool(cfg.AllowPendingModules)},
	)
	for _, p := range cfg.ExcludedArtifacts {
		rows = append(rows, [2]string{"excluded_artifacts", p.String()})
	}
	rows = append(rows,
		[2]string{"log.level", cfg.Log.Level.String()},
		[2]string{"log.dependency_tree", strconv.FormatBool(cfg.Log.DependencyTree)},
		[2]string{"log.dependency_tree_verbose", strconv.FormatBool(cfg.Log.DependencyTreeVerbose)},
	)

	fmt.Fprintln(a.stdout, TitleStyle.Render("Current Configuration"))
	writeConfigRows(a.stdout, rows)
	return nil
}

// writeConfigRows prints key: value lines with the values aligned.
func writeConfigRows(w io.Writer, rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		key := CoordsStyle.Render(r[0] + ":")
		fmt.Fprintf(w, "%s%s %s\n", key, strings.Repeat(" ", width-len(r[0])), SuccessStyle.Render(r[1]))
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// configSource returns the config file read for cfgFile, or the empty string
// when only defaults and the environment apply.
func configSource(ctx context.Context, cfgFile string) string {
	_, path, err := config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return ""
	}
	return path
}
