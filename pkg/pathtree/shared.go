// SPDX-License-Identifier: MPL-2.0

package pathtree

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/invowk/appmodel/internal/metrics"
)

var defaultRegistry = NewRegistry()

type (
	// Registry maps absolute archive paths to shared archive trees.
	// Entries are created on first lookup and never evicted.
	Registry struct {
		mu      sync.Mutex
		entries map[string]*SharedArchiveTree
	}

	// SharedArchiveTree is an archive PathTree whose zip reader is shared by
	// every open handle. The reader is opened when the first handle is handed
	// out and closed when the last handle is closed; the tree itself stays in
	// its registry and can be reopened.
	//
	// mu serializes the unopened/open transition together with handle
	// handout and release. Reads through a handle never take mu: a handle keeps
	// the reader it was given, and that reader cannot be closed while the
	// handle is counted in users.
	SharedArchiveTree struct {
		path string

		mu      sync.Mutex
		users   int
		current *zip.ReadCloser
	}

	// sharedHandle is one counted user of a SharedArchiveTree.
	sharedHandle struct {
		tree   *SharedArchiveTree
		reader *zip.ReadCloser
		closed atomic.Bool
	}
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*SharedArchiveTree)}
}

// ForPath returns the shared tree for path from the process-wide registry.
func ForPath(path string) (*SharedArchiveTree, error) {
	return defaultRegistry.ForPath(path)
}

// ForPath returns the shared tree for path, creating the entry if needed.
// The archive is not opened until the first call to Open.
func (r *Registry) ForPath(path string) (*SharedArchiveTree, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("pathtree: resolve archive path %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.entries[abs]; ok {
		return t, nil
	}
	t := &SharedArchiveTree{path: abs}
	r.entries[abs] = t
	return t, nil
}

// Len returns the number of registered archive paths.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Path returns the absolute archive path.
func (t *SharedArchiveTree) Path() string { return t.path }

// Roots returns the archive path.
func (t *SharedArchiveTree) Roots() []string { return []string{t.path} }

// IsArchive always returns true.
func (t *SharedArchiveTree) IsArchive() bool { return true }

// Users returns the number of handles currently open.
func (t *SharedArchiveTree) Users() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.users
}

// Open returns a counted handle, opening the shared reader if no handle is
// currently open. An open failure leaves the tree unopened and is returned
// to this caller only.
func (t *SharedArchiveTree) Open() (OpenPathTree, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		rc, err := openZip(t.path)
		if err != nil {
			return nil, err
		}
		t.current = rc
		metrics.ArchiveOpened()
	}
	t.users++
	return &sharedHandle{tree: t, reader: t.current}, nil
}

// release drops one user and closes the reader when none remain.
func (t *SharedArchiveTree) release(reader *zip.ReadCloser) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.users--
	if t.users > 0 || t.current != reader {
		return nil
	}
	t.current = nil
	metrics.ArchiveClosed()
	if err := reader.Close(); err != nil {
		return fmt.Errorf("pathtree: close archive %s: %w", t.path, err)
	}
	return nil
}

// Walk visits every archive entry through a temporary handle.
func (t *SharedArchiveTree) Walk(fn WalkFunc) error {
	return withOpen(t, func(o OpenPathTree) error { return o.Walk(fn) })
}

// Apply visits a single archive entry through a temporary handle.
func (t *SharedArchiveTree) Apply(rel string, fn WalkFunc) error {
	return withOpen(t, func(o OpenPathTree) error { return o.Apply(rel, fn) })
}

// Contains reports whether the archive holds rel.
func (t *SharedArchiveTree) Contains(rel string) bool {
	found := false
	_ = withOpen(t, func(o OpenPathTree) error {
		found = o.Contains(rel)
		return nil
	})
	return found
}

func (h *sharedHandle) Roots() []string { return h.tree.Roots() }

func (h *sharedHandle) IsArchive() bool { return true }

func (h *sharedHandle) IsOpen() bool { return !h.closed.Load() }

// Open hands out another counted handle on the same tree.
func (h *sharedHandle) Open() (OpenPathTree, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	return h.tree.Open()
}

// FS serves the shared reader until the handle is closed. Files opened
// earlier stay readable only while another handle keeps the reader open.
func (h *sharedHandle) FS() fs.FS { return handleFS{h: h} }

// handleFS rejects opens once its handle is closed.
type handleFS struct{ h *sharedHandle }

func (f handleFS) Open(name string) (fs.File, error) {
	if f.h.closed.Load() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrClosed}
	}
	return f.h.reader.Open(name)
}

func (h *sharedHandle) Walk(fn WalkFunc) error {
	if h.closed.Load() {
		return ErrClosed
	}
	return walkFS(h.reader, h.tree.path, nil, fn)
}

func (h *sharedHandle) Apply(rel string, fn WalkFunc) error {
	if h.closed.Load() {
		return ErrClosed
	}
	visit, err := statFS(h.reader, h.tree.path, nil, rel)
	if err != nil {
		return err
	}
	return fn(visit)
}

func (h *sharedHandle) Contains(rel string) bool {
	if h.closed.Load() {
		return false
	}
	_, err := statFS(h.reader, h.tree.path, nil, rel)
	return err == nil
}

func (h *sharedHandle) ReadFile(rel string) ([]byte, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	return readFS(h.reader, nil, rel)
}

// Close releases the handle. Closing twice is a no-op.
func (h *sharedHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.tree.release(h.reader)
}
