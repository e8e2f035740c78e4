// SPDX-License-Identifier: MPL-2.0

package pathtree

import (
	"archive/zip"
	"fmt"
	"path/filepath"
)

// ArchiveTree is a PathTree over a zip archive. Every Open creates a private
// zip reader; use a Registry to share one reader between openers.
type ArchiveTree struct {
	path   string
	filter *PathFilter
}

// NewArchiveTree returns a tree over the archive at path.
func NewArchiveTree(path string, filter *PathFilter) *ArchiveTree {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &ArchiveTree{path: path, filter: filter}
}

// Path returns the absolute archive path.
func (t *ArchiveTree) Path() string { return t.path }

// Roots returns the archive path.
func (t *ArchiveTree) Roots() []string { return []string{t.path} }

// IsArchive always returns true.
func (t *ArchiveTree) IsArchive() bool { return true }

// Open opens a private reader over the archive.
func (t *ArchiveTree) Open() (OpenPathTree, error) {
	rc, err := openZip(t.path)
	if err != nil {
		return nil, err
	}
	return &openView{
		roots:   []string{t.path},
		archive: true,
		fsys:    rc,
		filter:  t.filter,
		closeFn: rc.Close,
	}, nil
}

// Walk visits every archive entry.
func (t *ArchiveTree) Walk(fn WalkFunc) error {
	return withOpen(t, func(o OpenPathTree) error { return o.Walk(fn) })
}

// Apply visits a single archive entry.
func (t *ArchiveTree) Apply(rel string, fn WalkFunc) error {
	return withOpen(t, func(o OpenPathTree) error { return o.Apply(rel, fn) })
}

// Contains reports whether the archive holds rel.
func (t *ArchiveTree) Contains(rel string) bool {
	found := false
	_ = withOpen(t, func(o OpenPathTree) error {
		found = o.Contains(rel)
		return nil
	})
	return found
}

func openZip(path string) (*zip.ReadCloser, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("pathtree: open archive %s: %w", path, err)
	}
	return rc, nil
}
