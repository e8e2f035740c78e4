// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/invowk/appmodel/internal/watch"
	"github.com/invowk/appmodel/pkg/coords"

	"github.com/charmbracelet/log"
)

type (
	// WatchConfig configures a Watcher.
	WatchConfig struct {
		// Modules selects the modules whose outputs are watched, usually the
		// reloadable set of a resolved model. Empty watches nothing.
		Modules []coords.PackageKey
		// Debounce is the quiet period before OnChange fires.
		Debounce time.Duration
		// OnChange receives the keys of modules whose outputs changed, in
		// workspace order.
		OnChange func(ctx context.Context, changed []coords.PackageKey) error
		Logger   *log.Logger
	}

	// Watcher reports modules whose output directories change, which is how
	// reloadable modules are detected without resolving the model again.
	Watcher struct {
		inner   *watch.Watcher
		outputs []moduleOutput
	}

	moduleOutput struct {
		key coords.PackageKey
		dir string
	}
)

// NewWatcher watches the output directories of the selected modules.
func NewWatcher(ws *Workspace, cfg WatchConfig) (*Watcher, error) {
	w := &Watcher{}
	var roots []string
	for _, m := range ws.Modules() {
		if !slices.Contains(cfg.Modules, m.Key()) {
			continue
		}
		for _, classifier := range sortedClassifiers(m) {
			for _, dir := range m.Sources[classifier].OutputDirs() {
				if slices.Contains(roots, dir) {
					continue
				}
				roots = append(roots, dir)
				w.outputs = append(w.outputs, moduleOutput{key: m.Key(), dir: dir})
			}
		}
	}

	inner, err := watch.New(watch.Config{
		Roots:    roots,
		Debounce: cfg.Debounce,
		Logger:   cfg.Logger,
		OnChange: func(ctx context.Context, changed []string) error {
			keys := w.modulesFor(changed)
			if len(keys) == 0 || cfg.OnChange == nil {
				return nil
			}
			return cfg.OnChange(ctx, keys)
		},
	})
	if err != nil {
		return nil, err
	}
	w.inner = inner
	return w, nil
}

// Modules returns the keys of the watched modules in workspace order.
func (w *Watcher) Modules() []coords.PackageKey {
	var keys []coords.PackageKey
	for _, out := range w.outputs {
		if !slices.Contains(keys, out.key) {
			keys = append(keys, out.key)
		}
	}
	return keys
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	return w.inner.Run(ctx)
}

// modulesFor maps changed paths to module keys, each key once, in the order
// the outputs were registered.
func (w *Watcher) modulesFor(changed []string) []coords.PackageKey {
	var keys []coords.PackageKey
	for _, out := range w.outputs {
		if slices.Contains(keys, out.key) {
			continue
		}
		for _, p := range changed {
			if within(out.dir, p) {
				keys = append(keys, out.key)
				break
			}
		}
	}
	return keys
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// sortedClassifiers returns the classifiers of m with the main artifact first.
func sortedClassifiers(m *Module) []string {
	var out []string
	if _, ok := m.Sources[MainClassifier]; ok {
		out = append(out, MainClassifier)
	}
	var rest []string
	for c := range m.Sources {
		if c != MainClassifier {
			rest = append(rest, c)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}
