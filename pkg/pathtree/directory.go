// SPDX-License-Identifier: MPL-2.0

package pathtree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

type (
	// DirectoryTree is a PathTree over a directory on disk.
	DirectoryTree struct {
		dir    string
		filter *PathFilter
	}

	// openView is the OpenPathTree shared by every tree type. closeFn releases
	// the resources behind fsys and runs at most once.
	openView struct {
		roots   []string
		archive bool
		fsys    fs.FS
		filter  *PathFilter
		closeFn func() error
		closed  atomic.Bool
	}
)

// NewDirectoryTree returns a tree over dir. A nil filter exposes every entry.
func NewDirectoryTree(dir string, filter *PathFilter) *DirectoryTree {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &DirectoryTree{dir: dir, filter: filter}
}

// Roots returns the directory.
func (t *DirectoryTree) Roots() []string { return []string{t.dir} }

// IsArchive always returns false.
func (t *DirectoryTree) IsArchive() bool { return false }

// Open returns a view over the directory. The directory must exist.
func (t *DirectoryTree) Open() (OpenPathTree, error) {
	info, err := os.Stat(t.dir)
	if err != nil {
		return nil, fmt.Errorf("pathtree: open directory %s: %w", t.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("pathtree: %s is not a directory", t.dir)
	}
	return &openView{roots: []string{t.dir}, fsys: os.DirFS(t.dir), filter: t.filter}, nil
}

// Walk visits every entry of the directory.
func (t *DirectoryTree) Walk(fn WalkFunc) error {
	return withOpen(t, func(o OpenPathTree) error { return o.Walk(fn) })
}

// Apply visits a single entry.
func (t *DirectoryTree) Apply(rel string, fn WalkFunc) error {
	return withOpen(t, func(o OpenPathTree) error { return o.Apply(rel, fn) })
}

// Contains reports whether rel exists in the directory.
func (t *DirectoryTree) Contains(rel string) bool {
	clean, err := cleanRel(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(t.dir, filepath.FromSlash(clean)))
	if err != nil {
		return false
	}
	return info.IsDir() || t.filter.Matches(clean)
}

func (v *openView) Roots() []string { return append([]string(nil), v.roots...) }

func (v *openView) IsArchive() bool { return v.archive }

func (v *openView) IsOpen() bool { return !v.closed.Load() }

// Open returns a non-owning view over the same resources. Closing it does not
// close the receiver.
func (v *openView) Open() (OpenPathTree, error) {
	if v.closed.Load() {
		return nil, ErrClosed
	}
	return &openView{roots: v.roots, archive: v.archive, fsys: v.fsys, filter: v.filter}, nil
}

func (v *openView) FS() fs.FS { return v.fsys }

func (v *openView) Walk(fn WalkFunc) error {
	if v.closed.Load() {
		return ErrClosed
	}
	return walkFS(v.fsys, v.roots[0], v.filter, fn)
}

func (v *openView) Apply(rel string, fn WalkFunc) error {
	if v.closed.Load() {
		return ErrClosed
	}
	visit, err := statFS(v.fsys, v.roots[0], v.filter, rel)
	if err != nil {
		return err
	}
	return fn(visit)
}

func (v *openView) Contains(rel string) bool {
	if v.closed.Load() {
		return false
	}
	_, err := statFS(v.fsys, v.roots[0], v.filter, rel)
	return err == nil
}

func (v *openView) ReadFile(rel string) ([]byte, error) {
	if v.closed.Load() {
		return nil, ErrClosed
	}
	return readFS(v.fsys, v.filter, rel)
}

func (v *openView) Close() error {
	if !v.closed.CompareAndSwap(false, true) {
		return nil
	}
	if v.closeFn != nil {
		return v.closeFn()
	}
	return nil
}
