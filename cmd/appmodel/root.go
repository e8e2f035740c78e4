// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/invowk/appmodel/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "appmodel",
		Short: "Resolve application dependency models",
		Long: TitleStyle.Render("appmodel") + SubtitleStyle.Render(" - Resolve application dependency models") + `

appmodel resolves the dependency graph of an application: it applies managed
version constraints, filters scopes for the build mode, picks one version per
package and substitutes local workspace modules for published packages.

` + SubtitleStyle.Render("Examples:") + `
  appmodel resolve org.acme:app:1.0          Resolve an application model
  appmodel module org.acme:web --watch       Resolve a workspace module and follow its outputs
  appmodel artifact org.acme:lib:[1.0,2.0)   Locate a single artifact
  appmodel versions latest org.acme:lib:1.0  Show the latest published version
  appmodel config show                       Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutput(app.flags.output)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&app.flags.cfgFile, "config", "", "config file (default is $HOME/.config/appmodel/config.cue)")
	flags.StringVarP(&app.flags.output, "output", "o", outputText, "output format: text, json or yaml")
	flags.StringVar(&app.flags.mode, "mode", "", "build mode: normal, dev or test (overrides config)")
	flags.StringVar(&app.flags.manifest, "workspace", "", "workspace manifest (overrides config)")
	flags.StringVar(&app.flags.repository, "repository", "", "local repository directory (overrides config)")
	flags.BoolVar(&app.flags.allowPending, "allow-pending", false, "allow workspace modules that are not built yet")

	rootCmd.AddCommand(newResolveCommand(app))
	rootCmd.AddCommand(newModuleCommand(app))
	rootCmd.AddCommand(newArtifactCommand(app))
	rootCmd.AddCommand(newVersionsCommand(app))
	rootCmd.AddCommand(newArchiveCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the command line.
// This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	// fang overrides rootCmd.Version, so the version is passed explicitly.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// runE adapts a handler so failures carry their issue catalog entry and exit
// code. The entry is rendered to stderr before the error is returned to cobra.
func (a *App) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			svcErr = newServiceError(err, classifyError(err))
		}
		if a.flags.verbose {
			fmt.Fprintln(a.stderr, formatErrorForDisplay(err, true))
		}
		renderServiceError(a.stderr, svcErr)
		return &ExitError{Code: exitCodeFor(svcErr.IssueID), Err: svcErr}
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
