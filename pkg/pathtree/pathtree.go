// SPDX-License-Identifier: MPL-2.0

// Package pathtree provides read-only, closeable views over directories and
// archives.
//
// A [PathTree] describes where content lives. Calling Open returns an
// [OpenPathTree] that holds whatever resources are needed to read it and must
// be closed. Archives opened through a [Registry] are shared: every opener of
// the same absolute path reuses a single reference-counted zip reader.
package pathtree

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrClosed is returned by operations on a closed OpenPathTree.
var ErrClosed = errors.New("path tree is closed")

type (
	// PathTree is a read-only view over one or more roots.
	// Walk, Apply and Contains open the tree for the duration of the call.
	PathTree interface {
		// Roots returns the filesystem locations backing the tree.
		Roots() []string
		// IsArchive reports whether the tree is backed by a single archive file.
		IsArchive() bool
		// Open returns a handle that must be closed by the caller.
		Open() (OpenPathTree, error)
		// Walk visits every entry in lexical order.
		Walk(fn WalkFunc) error
		// Apply visits a single entry. It returns an error wrapping
		// fs.ErrNotExist if the entry is absent or filtered out.
		Apply(rel string, fn WalkFunc) error
		// Contains reports whether the entry exists and passes the filter.
		Contains(rel string) bool
	}

	// OpenPathTree is a PathTree whose resources are held open until Close.
	OpenPathTree interface {
		PathTree
		IsOpen() bool
		ReadFile(rel string) ([]byte, error)
		// FS exposes the tree as an fs.FS. It is only valid until Close.
		FS() fs.FS
		Close() error
	}

	// WalkFunc is called for every visited entry. Returning fs.SkipDir or
	// fs.SkipAll has the same meaning as in fs.WalkDir.
	WalkFunc func(v PathVisit) error

	// PathVisit describes one visited entry.
	PathVisit struct {
		root  string
		rel   string
		entry fs.DirEntry
		fsys  fs.FS
	}

	// PathFilter restricts the entries a tree exposes. Patterns are doublestar
	// globs over slash-separated relative paths. Directories are never filtered.
	PathFilter struct {
		Includes []string
		Excludes []string
	}
)

// Root returns the root the entry was found under.
func (v PathVisit) Root() string { return v.root }

// RelativePath returns the slash-separated path relative to the root.
func (v PathVisit) RelativePath() string { return v.rel }

// IsDir reports whether the entry is a directory.
func (v PathVisit) IsDir() bool { return v.entry != nil && v.entry.IsDir() }

// Open opens the visited entry for reading. Only valid while the visit callback runs.
func (v PathVisit) Open() (fs.File, error) { return v.fsys.Open(v.rel) }

// ReadFile reads the visited entry. Only valid while the visit callback runs.
func (v PathVisit) ReadFile() ([]byte, error) { return fs.ReadFile(v.fsys, v.rel) }

// Matches reports whether rel passes the filter. A nil filter matches everything.
func (f *PathFilter) Matches(rel string) bool {
	if f == nil {
		return true
	}
	if len(f.Includes) > 0 && !matchAny(f.Includes, rel) {
		return false
	}
	return !matchAny(f.Excludes, rel)
}

// Validate checks every pattern is a valid glob.
func (f *PathFilter) Validate() error {
	if f == nil {
		return nil
	}
	for _, p := range append(append([]string(nil), f.Includes...), f.Excludes...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("pathtree: invalid filter pattern %q", p)
		}
	}
	return nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// cleanRel converts a caller supplied relative path into an fs.FS path.
func cleanRel(rel string) (string, error) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return ".", nil
	}
	rel = path.Clean(rel)
	if !fs.ValidPath(rel) {
		return "", &fs.PathError{Op: "open", Path: rel, Err: fs.ErrInvalid}
	}
	return rel, nil
}

func walkFS(fsys fs.FS, root string, filter *PathFilter, fn WalkFunc) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if !d.IsDir() && !filter.Matches(p) {
			return nil
		}
		return fn(PathVisit{root: root, rel: p, entry: d, fsys: fsys})
	})
}

func statFS(fsys fs.FS, root string, filter *PathFilter, rel string) (PathVisit, error) {
	clean, err := cleanRel(rel)
	if err != nil {
		return PathVisit{}, err
	}
	info, err := fs.Stat(fsys, clean)
	if err != nil {
		return PathVisit{}, err
	}
	if !info.IsDir() && !filter.Matches(clean) {
		return PathVisit{}, &fs.PathError{Op: "open", Path: clean, Err: fs.ErrNotExist}
	}
	return PathVisit{root: root, rel: clean, entry: fs.FileInfoToDirEntry(info), fsys: fsys}, nil
}

func readFS(fsys fs.FS, filter *PathFilter, rel string) ([]byte, error) {
	clean, err := cleanRel(rel)
	if err != nil {
		return nil, err
	}
	if !filter.Matches(clean) {
		return nil, &fs.PathError{Op: "open", Path: clean, Err: fs.ErrNotExist}
	}
	return fs.ReadFile(fsys, clean)
}

// withOpen runs fn against a freshly opened tree and closes it afterwards.
func withOpen(t PathTree, fn func(OpenPathTree) error) (err error) {
	open, err := t.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := open.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(open)
}
