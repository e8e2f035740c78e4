// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/invowk/appmodel/internal/config"
	"github.com/invowk/appmodel/pkg/appmodel"
	"github.com/invowk/appmodel/pkg/constraints"
	"github.com/invowk/appmodel/pkg/pathtree"
	"github.com/invowk/appmodel/pkg/repository"
	"github.com/invowk/appmodel/pkg/workspace"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root of the CLI layer: every command handler receives an App and builds
	// a session from it.
	App struct {
		Config     ConfigProvider
		Repository repository.Repository
		Archives   *pathtree.Registry
		Defaults   *constraints.Defaults
		stdout     io.Writer
		stderr     io.Writer
		flags      rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		// Repository replaces the local repository named by the configuration.
		Repository repository.Repository
		Archives   *pathtree.Registry
		Defaults   *constraints.Defaults
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlags are the persistent flags shared by every command. Values
	// set on the command line take precedence over the configuration.
	rootFlags struct {
		verbose      bool
		cfgFile      string
		output       string
		mode         string
		manifest     string
		repository   string
		allowPending bool
	}

	// session is the state of one command invocation.
	session struct {
		cfg       *config.Config
		logger    *log.Logger
		workspace *workspace.Workspace
		resolver  *appmodel.Resolver
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Archives == nil {
		deps.Archives = pathtree.NewRegistry()
	}
	if deps.Defaults == nil {
		// No default constraints ship with the CLI; the table is shared by
		// every resolution of the process.
		deps.Defaults = constraints.NewDefaults(nil)
	}

	return &App{
		Config:     deps.Config,
		Repository: deps.Repository,
		Archives:   deps.Archives,
		Defaults:   deps.Defaults,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}, nil
}

// newSession loads the configuration, applies flag overrides and builds the
// resolver.
func (a *App) newSession(ctx context.Context, extra ...appmodel.Option) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.cfgFile})
	if err != nil {
		return nil, err
	}
	a.applyFlags(cfg)
	if valid, errs := cfg.IsValid(); !valid {
		return nil, errs[0]
	}

	logger := newLogger(a.stderr, cfg.Log.Level, a.flags.verbose)

	mode, err := cfg.Mode.Scope()
	if err != nil {
		return nil, err
	}
	exclusions, err := cfg.Exclusions()
	if err != nil {
		return nil, err
	}

	repo := a.Repository
	if repo == nil {
		root := cfg.Repository.Local
		if root == "" {
			if root, err = repository.DefaultLocalRoot(); err != nil {
				return nil, err
			}
		}
		repo = repository.NewLocal(root, repository.WithArchiveRegistry(a.Archives))
		logger.Debug("using local repository", "root", root)
	}

	s := &session{cfg: cfg, logger: logger}
	opts := []appmodel.Option{
		appmodel.WithMode(mode),
		appmodel.WithAllowPendingModules(cfg.AllowPendingModules),
		appmodel.WithDefaults(a.Defaults),
		appmodel.WithRemotes(cfg.Repository.RemoteList()...),
		appmodel.WithExcludedArtifacts(exclusions...),
		appmodel.WithLogger(logger),
		appmodel.WithArchiveRegistry(a.Archives),
	}
	if cfg.Workspace.Manifest != "" {
		ws, err := workspace.LoadManifest(cfg.Workspace.Manifest)
		if err != nil {
			return nil, fmt.Errorf("load workspace %s: %w", cfg.Workspace.Manifest, err)
		}
		s.workspace = ws
		opts = append(opts, appmodel.WithWorkspace(ws))
		logger.Debug("loaded workspace", "manifest", cfg.Workspace.Manifest, "modules", ws.Len())
	}
	if cfg.Log.DependencyTree {
		opts = append(opts, appmodel.WithDependencyTree(func(line string) {
			logger.Info(line)
		}, cfg.Log.DependencyTreeVerbose))
	}

	s.resolver = appmodel.NewResolver(repo, append(opts, extra...)...)
	return s, nil
}

func (a *App) applyFlags(cfg *config.Config) {
	if a.flags.mode != "" {
		cfg.Mode = config.BuildMode(a.flags.mode)
	}
	if a.flags.manifest != "" {
		cfg.Workspace.Manifest = a.flags.manifest
	}
	if a.flags.repository != "" {
		cfg.Repository.Local = a.flags.repository
	}
	if a.flags.allowPending {
		cfg.AllowPendingModules = true
	}
	if a.flags.verbose {
		cfg.Log.Level = config.LogLevelDebug
	}
}

// newLogger returns the CLI logger writing to w.
func newLogger(w io.Writer, level config.LogLevel, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          config.AppName,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
		return logger
	}
	lvl, err := log.ParseLevel(string(level))
	if err != nil {
		lvl = log.WarnLevel
	}
	logger.SetLevel(lvl)
	return logger
}
