// SPDX-License-Identifier: MPL-2.0

package appmodel

import (
	"errors"
	"slices"
	"strings"

	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/pathtree"
	"github.com/invowk/appmodel/pkg/scope"
	"github.com/invowk/appmodel/pkg/workspace"
)

const (
	// PathsArchive is a single packaged artifact file.
	PathsArchive PathKind = iota
	// PathsDirectories are the output directories of a workspace module.
	PathsDirectories
	// PathsPending marks a workspace module that is not built yet.
	PathsPending
)

const (
	// FlagDirect marks dependencies declared by the application root or the caller.
	FlagDirect DependencyFlags = 1 << iota
	// FlagOptional marks dependencies reachable only through optional edges.
	FlagOptional
	// FlagRuntimeClasspath marks dependencies on the runtime classpath.
	FlagRuntimeClasspath
	// FlagWorkspaceModule marks dependencies backed by a workspace module.
	FlagWorkspaceModule
	// FlagReloadable marks workspace modules whose output may change between requests.
	FlagReloadable
	// FlagCompileOnly marks provided dependencies kept for compilation in dev mode.
	FlagCompileOnly
)

// ErrNoContent is returned by ContentTree for pending workspace modules.
var ErrNoContent = errors.New("dependency has no content yet")

var flagNames = []struct {
	flag DependencyFlags
	name string
}{
	{FlagDirect, "direct"},
	{FlagOptional, "optional"},
	{FlagRuntimeClasspath, "runtime-cp"},
	{FlagWorkspaceModule, "workspace"},
	{FlagReloadable, "reloadable"},
	{FlagCompileOnly, "compile-only"},
}

type (
	// PathKind tells which field of ResolvedPaths is set.
	PathKind int

	// ResolvedPaths is where the content of a dependency lives.
	ResolvedPaths struct {
		Kind    PathKind
		Archive string
		Dirs    []string
	}

	// DependencyFlags is a set of dependency attributes.
	DependencyFlags uint32

	// ResolvedDependency is a node of an application model. It must not be
	// modified once returned.
	ResolvedDependency struct {
		Coords coords.PackageCoords
		Scope  coords.Scope
		Flags  DependencyFlags
		Paths  ResolvedPaths
		// Module is the workspace module backing the dependency, if any.
		Module *workspace.Module
		// Dependencies are the keys of the selected dependencies of this node.
		Dependencies []coords.PackageKey

		archives *pathtree.Registry
	}

	// ApplicationModel is a resolved, deduplicated and scope-filtered
	// dependency graph.
	ApplicationModel struct {
		App *ResolvedDependency
		// Dependencies holds every selected package except App, nearest first.
		Dependencies []*ResolvedDependency
		// CompileOnly are provided dependencies resolved for compilation in
		// dev mode. They are not on the runtime classpath.
		CompileOnly []*ResolvedDependency
		// Reloadable are the keys of workspace modules that can be reloaded, sorted.
		Reloadable []coords.PackageKey
		Mode       scope.Mode
		// RequestID identifies the resolution in logs.
		RequestID string
	}
)

// ArchivePaths returns paths for a packaged artifact.
func ArchivePaths(path string) ResolvedPaths {
	return ResolvedPaths{Kind: PathsArchive, Archive: path}
}

// DirectoryPaths returns paths for workspace module outputs.
func DirectoryPaths(dirs ...string) ResolvedPaths {
	return ResolvedPaths{Kind: PathsDirectories, Dirs: slices.Clone(dirs)}
}

// PendingPaths returns paths for a module that is not built yet.
func PendingPaths() ResolvedPaths {
	return ResolvedPaths{Kind: PathsPending}
}

// All returns every path in order: the archive, or the directories.
func (p ResolvedPaths) All() []string {
	switch p.Kind {
	case PathsArchive:
		return []string{p.Archive}
	case PathsDirectories:
		return slices.Clone(p.Dirs)
	default:
		return nil
	}
}

// String renders the paths separated by ", ".
func (p ResolvedPaths) String() string {
	if p.Kind == PathsPending {
		return "<pending>"
	}
	return strings.Join(p.All(), ", ")
}

// Has reports whether every flag in mask is set.
func (f DependencyFlags) Has(mask DependencyFlags) bool { return f&mask == mask }

// String lists the set flags.
func (f DependencyFlags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ", ")
}

// Key returns the package key of the dependency.
func (d *ResolvedDependency) Key() coords.PackageKey { return d.Coords.Key() }

// IsOptional reports whether the dependency is optional.
func (d *ResolvedDependency) IsOptional() bool { return d.Flags.Has(FlagOptional) }

// IsDirect reports whether the dependency is direct.
func (d *ResolvedDependency) IsDirect() bool { return d.Flags.Has(FlagDirect) }

// IsWorkspaceModule reports whether the dependency is backed by a workspace module.
func (d *ResolvedDependency) IsWorkspaceModule() bool { return d.Flags.Has(FlagWorkspaceModule) }

// IsReloadable reports whether the dependency is a reloadable workspace module.
func (d *ResolvedDependency) IsReloadable() bool { return d.Flags.Has(FlagReloadable) }

// ContentTree returns a path tree over the dependency content: the shared
// archive tree for packaged artifacts, a directory tree for module outputs.
// Pending modules fail with ErrNoContent.
func (d *ResolvedDependency) ContentTree() (pathtree.PathTree, error) {
	switch d.Paths.Kind {
	case PathsArchive:
		if d.archives != nil {
			return d.archives.ForPath(d.Paths.Archive)
		}
		return pathtree.ForPath(d.Paths.Archive)
	case PathsDirectories:
		if len(d.Paths.Dirs) == 1 {
			return pathtree.NewDirectoryTree(d.Paths.Dirs[0], nil), nil
		}
		trees := make([]pathtree.PathTree, 0, len(d.Paths.Dirs))
		for _, dir := range d.Paths.Dirs {
			trees = append(trees, pathtree.NewDirectoryTree(dir, nil))
		}
		return pathtree.NewMultiRootTree(trees...), nil
	default:
		return nil, ErrNoContent
	}
}

// Dependency returns the runtime or compile-only dependency with key.
func (m *ApplicationModel) Dependency(key coords.PackageKey) (*ResolvedDependency, bool) {
	key = key.Normalize()
	for _, list := range [][]*ResolvedDependency{m.Dependencies, m.CompileOnly} {
		for _, d := range list {
			if d.Key() == key {
				return d, true
			}
		}
	}
	return nil, false
}

// Keys returns the keys of Dependencies in order.
func (m *ApplicationModel) Keys() []coords.PackageKey {
	out := make([]coords.PackageKey, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		out = append(out, d.Key())
	}
	return out
}

// IsReloadable reports whether key is in the reloadable set.
func (m *ApplicationModel) IsReloadable(key coords.PackageKey) bool {
	_, found := slices.BinarySearchFunc(m.Reloadable, key.Normalize(), coords.PackageKey.Compare)
	return found
}

// RuntimeDependencies returns the dependencies on the runtime classpath.
func (m *ApplicationModel) RuntimeDependencies() []*ResolvedDependency {
	var out []*ResolvedDependency
	for _, d := range m.Dependencies {
		if d.Flags.Has(FlagRuntimeClasspath) {
			out = append(out, d)
		}
	}
	return out
}
