// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/invowk/appmodel/internal/metrics"
	"github.com/invowk/appmodel/pkg/appmodel"
	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/workspace"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// errNoWorkspace is returned by module commands when no manifest is configured.
var errNoWorkspace = errors.New("no workspace manifest configured (set workspace.manifest or --workspace)")

type moduleFlags struct {
	watch       bool
	debounce    time.Duration
	metricsAddr string
}

func newModuleCommand(app *App) *cobra.Command {
	var mf moduleFlags

	cmd := &cobra.Command{
		Use:   "module <group:name>",
		Short: "Resolve the application model of a workspace module",
		Long: `Resolve the application model of a workspace module.

With --watch the command keeps running and resolves the model again whenever
the build output of a reloadable module changes.`,
		Args: cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			key, err := coords.ParseKey(args[0])
			if err != nil {
				return err
			}
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return err
			}
			if s.workspace == nil {
				return errNoWorkspace
			}
			m, ok := s.workspace.Lookup(key, "")
			if !ok {
				return fmt.Errorf("workspace %s has no module %s", s.workspace.Root(), key)
			}
			order, err := s.workspace.BuildOrder()
			if err != nil {
				return err
			}
			s.logger.Debug("workspace build order", "modules", moduleKeys(order))

			model, err := s.resolver.ResolveModuleModel(cmd.Context(), m)
			if err != nil {
				return err
			}
			if err := writeModel(app.stdout, app.flags.output, model, app.flags.verbose); err != nil {
				return err
			}
			if !mf.watch {
				return nil
			}
			return app.watchModule(cmd.Context(), s, m, model, mf)
		}),
	}

	cmd.Flags().BoolVarP(&mf.watch, "watch", "w", false, "resolve again when reloadable module outputs change")
	cmd.Flags().DurationVar(&mf.debounce, "debounce", 500*time.Millisecond, "quiet period before reacting to output changes")
	cmd.Flags().StringVar(&mf.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while watching")

	return cmd
}

// watchModule follows the outputs of the reloadable modules of model and
// prints the model again after every change. The watched set follows the
// reloadable set of the latest resolution. It blocks until ctx is done.
func (a *App) watchModule(ctx context.Context, s *session, m *workspace.Module, model *appmodel.ApplicationModel, mf moduleFlags) error {
	if mf.metricsAddr != "" {
		stop, err := serveMetrics(mf.metricsAddr, s)
		if err != nil {
			return err
		}
		defer stop()
	}

	reloadable := model.Reloadable
	for {
		next, changed, err := a.watchReloadable(ctx, s, m, reloadable, mf.debounce)
		if err != nil || !changed || ctx.Err() != nil {
			return err
		}
		reloadable = next
	}
}

// watchReloadable watches the outputs of reloadable until ctx is done or a
// resolution yields a different reloadable set, which it returns.
func (a *App) watchReloadable(ctx context.Context, s *session, m *workspace.Module, reloadable []coords.PackageKey, debounce time.Duration) ([]coords.PackageKey, bool, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		next    []coords.PackageKey
		changed bool
	)
	watcher, err := workspace.NewWatcher(s.workspace, workspace.WatchConfig{
		Modules:  reloadable,
		Debounce: debounce,
		Logger:   s.logger,
		OnChange: func(ctx context.Context, keys []coords.PackageKey) error {
			s.logger.Info("module outputs changed", "modules", keyStrings(keys))
			model, err := s.resolver.ResolveModuleModel(ctx, m)
			if err != nil {
				// Failures are logged and the watch continues.
				s.logger.Error("resolution failed", "err", err)
				return nil
			}
			if err := writeModel(a.stdout, a.flags.output, model, a.flags.verbose); err != nil {
				return err
			}
			if !slices.Equal(model.Reloadable, reloadable) {
				mu.Lock()
				next, changed = model.Reloadable, true
				mu.Unlock()
				cancel()
			}
			return nil
		},
	})
	if err != nil {
		return nil, false, err
	}

	if len(reloadable) == 0 {
		s.logger.Warn("no reloadable modules to watch")
	} else {
		s.logger.Info("watching reloadable modules", "modules", keyStrings(watcher.Modules()))
	}
	if err := watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return nil, false, err
	}

	mu.Lock()
	defer mu.Unlock()
	return next, changed, nil
}

// serveMetrics exposes the resolver collectors over HTTP until stop is called.
func serveMetrics(addr string, s *session) (stop func(), err error) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "err", err)
		}
	}()
	s.logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func moduleKeys(modules []*workspace.Module) []string {
	out := make([]string, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.Key().String())
	}
	return out
}
