// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnores are files compilers and editors leave in output
// directories that never change what a module provides.
var defaultIgnores = []string{
	"**/*.tmp",
	"**/*~",
	"**/*.swp",
	"**/.DS_Store",
	"**/.lock",
}

// pathFilter decides which paths under the watched roots are reported.
// Patterns and ignores are doublestar globs matched against the
// slash-separated path relative to the root.
type pathFilter struct {
	roots    []string
	patterns []string
	ignores  []string
}

// rootOf returns the watched root containing path, or "".
func (f pathFilter) rootOf(path string) string {
	for _, root := range f.roots {
		if path == root || strings.HasPrefix(path, root+string(os.PathSeparator)) {
			return root
		}
	}
	return ""
}

// ignored reports whether path, below root, is ignored. Directory patterns
// such as "generated/**" also match the directory itself.
func (f pathFilter) ignored(root, path string) bool {
	rel := relSlash(root, path)
	return matchAny(f.ignores, rel) || matchAny(f.ignores, rel+"/")
}

// reports decides whether a change to path reaches the callback.
func (f pathFilter) reports(path string) bool {
	root := f.rootOf(path)
	switch {
	case root == "" || f.ignored(root, path):
		return false
	case len(f.patterns) == 0:
		return true
	default:
		return matchAny(f.patterns, relSlash(root, path))
	}
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(kind string, patterns []string) error {
	for _, pat := range patterns {
		if pat == "" || !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: %s pattern %q: %w", kind, pat, ErrInvalidPattern)
		}
	}
	return nil
}
