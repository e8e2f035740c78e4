// SPDX-License-Identifier: MPL-2.0

// Package watch reports changes below a set of output directories.
//
// Changes are filtered with doublestar globs and batched: the callback
// receives every path that changed, once per quiet period.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not set.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrInvalidPattern is returned for malformed watch or ignore globs.
	ErrInvalidPattern = errors.New("invalid glob pattern")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are watched recursively. A root that does not exist yet, such
		// as the output directory of an unbuilt module, is skipped.
		Roots []string
		// Patterns select reported files. Empty reports every file that is
		// not ignored.
		Patterns []string
		// Ignore extends the built-in ignore patterns.
		Ignore []string
		// Debounce defaults to DefaultDebounce.
		Debounce time.Duration
		// OnChange receives the changed absolute paths, sorted. An error is
		// logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error
		// Logger defaults to a discarding logger.
		Logger *log.Logger
	}

	// Watcher watches Config.Roots. Run may be called once.
	Watcher struct {
		fsw      *fsnotify.Watcher
		filter   pathFilter
		debounce time.Duration
		onChange func(ctx context.Context, changed []string) error
		logger   *log.Logger
		started  atomic.Bool
	}
)

// Validate checks every glob of cfg.
func (cfg Config) Validate() error {
	return errors.Join(validatePatterns("watch", cfg.Patterns), validatePatterns("ignore", cfg.Ignore))
}

// New validates cfg and registers every existing directory below its roots.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Watcher{
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		logger:   cfg.Logger,
		filter: pathFilter{
			patterns: cfg.Patterns,
			ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		},
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}
	for _, r := range cfg.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve root %q: %w", r, err)
		}
		w.filter.roots = append(w.filter.roots, abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	for _, root := range w.filter.roots {
		if err := w.watchTree(root); err != nil {
			w.closeFsnotify()
			return nil, err
		}
	}
	return w, nil
}

// Roots returns the absolute roots.
func (w *Watcher) Roots() []string { return slices.Clone(w.filter.roots) }

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string { return slices.Clone(defaultIgnores) }

// Run dispatches batched changes until ctx is cancelled, then returns nil.
// It fails when fsnotify stops delivering events.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.closeFsnotify()

	batch := newBatcher(w.debounce, func(changed []string) {
		if ctx.Err() != nil || w.onChange == nil {
			return
		}
		if err := w.onChange(ctx, changed); err != nil {
			w.logger.Error("change callback failed", "err", err)
		}
	})
	defer batch.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Create) {
				w.watchNewDir(evt.Name)
			}
			if w.filter.reports(evt.Name) {
				batch.add(evt.Name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if watcherExhausted(err) {
				return fmt.Errorf("watch: watcher resources exhausted: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// watchTree registers root and every directory below it that is not ignored.
func (w *Watcher) watchTree(root string) error {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		w.logger.Debug("skipping missing watch root", "root", root)
		return nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		switch {
		case walkErr != nil:
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // inaccessible directories are not watched
		case !d.IsDir():
			return nil
		case path != root && w.filter.ignored(root, path):
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", root, err)
	}
	return nil
}

// watchNewDir extends the watch to a directory created after startup, such
// as a package directory written by the first compilation.
func (w *Watcher) watchNewDir(path string) {
	root := w.filter.rootOf(path)
	if root == "" || w.filter.ignored(root, path) {
		return
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("add new directory", "path", path, "err", err)
	}
}

func (w *Watcher) closeFsnotify() {
	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("close fsnotify", "err", err)
	}
}
