// SPDX-License-Identifier: MPL-2.0

package appmodel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/invowk/appmodel/internal/metrics"
	"github.com/invowk/appmodel/pkg/constraints"
	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/graph"
	"github.com/invowk/appmodel/pkg/repository"
	"github.com/invowk/appmodel/pkg/scope"
	"github.com/invowk/appmodel/pkg/workspace"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

type (
	// ModelRequest describes an application model resolution.
	ModelRequest struct {
		// Root is the application artifact.
		Root coords.PackageCoords
		// Direct are dependencies added to the root's own. A dependency with
		// the same key as a declared one replaces it; an empty version keeps
		// the declared version.
		Direct []coords.Dependency
		// Managing names a package whose managed section constrains the model
		// after Constraints.
		Managing *coords.PackageCoords
		// Constraints take precedence over every other constraint source.
		Constraints []coords.Dependency
		// Reloadable, when not nil, replaces the computed reloadable set.
		Reloadable []coords.PackageKey
	}

	// rootSpec is the application root of one resolution.
	rootSpec struct {
		coords   coords.PackageCoords
		local    bool
		module   *workspace.Module
		declared []coords.Dependency
		managed  []coords.Dependency
		remotes  []repository.Remote
	}

	// assembly accumulates the model of one request.
	assembly struct {
		r       *Resolver
		logger  *log.Logger
		remotes []repository.Remote
		byKey   map[coords.PackageKey]*ResolvedDependency
	}
)

// ResolveModel resolves the application model of req.Root. Any failure is
// terminal and no partial model is returned.
func (r *Resolver) ResolveModel(ctx context.Context, req ModelRequest) (model *ApplicationModel, err error) {
	started := time.Now()
	defer func() { metrics.ObserveResolution(r.mode.String(), started, err) }()

	id := uuid.NewString()
	logger := r.logger.With("request", id, "root", req.Root)

	root, err := r.describeRoot(ctx, req.Root)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, id, logger, root, req)
}

// ResolveModuleModel resolves the application model of a workspace module.
// The module declaration is the root descriptor.
func (r *Resolver) ResolveModuleModel(ctx context.Context, m *workspace.Module) (model *ApplicationModel, err error) {
	started := time.Now()
	defer func() { metrics.ObserveResolution(r.mode.String(), started, err) }()

	id := uuid.NewString()
	logger := r.logger.With("request", id, "root", m.ID)

	root := rootSpec{
		coords:   m.ID.WithVersion(m.ID.Version),
		local:    true,
		module:   m,
		declared: m.Dependencies,
		managed:  m.Managed,
	}
	return r.resolve(ctx, id, logger, root, ModelRequest{Root: m.ID})
}

// describeRoot reads the root descriptor from the workspace or the repository.
func (r *Resolver) describeRoot(ctx context.Context, c coords.PackageCoords) (rootSpec, error) {
	c = c.WithVersion(c.Version)
	if c.Version == "" {
		return rootSpec{}, &MissingVersionError{Key: c.Key()}
	}
	resolved, err := r.resolveVersion(ctx, c.Key(), c.Version, r.remotes)
	if err != nil {
		return rootSpec{}, err
	}
	c.Version = resolved

	if m, ok := r.ws.Lookup(c.Key(), c.Version); ok {
		return rootSpec{coords: c, local: true, module: m, declared: m.Dependencies, managed: m.Managed}, nil
	}

	d, err := r.repo.ResolveDescriptor(ctx, c, r.remotes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return rootSpec{}, &PackageNotFoundError{Coords: c, Err: err}
		}
		return rootSpec{}, &DescriptorResolutionError{Coords: c, Err: err}
	}
	return rootSpec{coords: c, declared: d.Dependencies, managed: d.Managed, remotes: d.Remotes}, nil
}

func (r *Resolver) resolve(ctx context.Context, id string, logger *log.Logger, root rootSpec, req ModelRequest) (*ApplicationModel, error) {
	remotes := repository.MergeRemotes(r.remotes, root.remotes...)
	src := describer{r: r, remotes: remotes}

	table, err := r.constraintTable(ctx, src, root, req)
	if err != nil {
		return nil, err
	}

	direct := mergeDirect(root.declared, req.Direct)
	filtered := scope.Filter(direct, r.mode)
	for _, d := range filtered.Excluded {
		logger.Debug("dependency excluded by mode", "dependency", d.Coords, "scope", d.Scope, "mode", r.mode)
	}

	collector := graph.NewCollector(src, src, graph.WithLogger(logger))
	g, err := collector.Collect(ctx, graph.Request{
		Root:       root.coords,
		RootLocal:  root.local,
		Direct:     filtered.Kept,
		Managed:    table,
		Exclusions: r.excluded,
	})
	if err != nil {
		return nil, err
	}
	if err := g.Cycles(); err != nil {
		return nil, err
	}

	a := &assembly{r: r, logger: logger, remotes: remotes, byKey: make(map[coords.PackageKey]*ResolvedDependency)}
	model := &ApplicationModel{Mode: r.mode, RequestID: id}

	model.App, err = a.rootDependency(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, n := range g.Nodes() {
		dep, err := a.dependency(ctx, n, FlagRuntimeClasspath)
		if err != nil {
			return nil, err
		}
		model.Dependencies = append(model.Dependencies, dep)
	}
	model.App.Dependencies = g.Root().Children

	if len(filtered.CompileOnly) > 0 {
		model.CompileOnly, err = a.compileOnly(ctx, collector, g, root, table, filtered.CompileOnly)
		if err != nil {
			return nil, err
		}
	}

	model.Reloadable = reloadable(g, req.Reloadable)
	for _, key := range model.Reloadable {
		if key == model.App.Key() {
			model.App.Flags |= FlagReloadable
		}
		if dep, ok := a.byKey[key]; ok {
			dep.Flags |= FlagReloadable
		}
	}

	logger.Info("application model resolved",
		"mode", r.mode,
		"dependencies", len(model.Dependencies),
		"compile_only", len(model.CompileOnly),
		"reloadable", len(model.Reloadable))
	if r.treeConsumer != nil {
		for _, line := range renderTree(model, r.treeVerbose) {
			r.treeConsumer(line)
		}
	}
	return model, nil
}

// constraintTable builds the managed constraints of a request. Sources are
// consulted in priority order: caller constraints, the managing package, the
// root's managed section, then the defaults.
func (r *Resolver) constraintTable(ctx context.Context, src describer, root rootSpec, req ModelRequest) (*constraints.Table, error) {
	sources := []constraints.Source{constraints.Explicit(req.Constraints...)}
	if req.Managing != nil {
		sources = append(sources, constraints.Import(*req.Managing))
	}
	sources = append(sources, constraints.Explicit(root.managed...))

	table, err := constraints.Build(ctx, src, sources...)
	if err != nil {
		return nil, err
	}
	defaults, err := r.defaults.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("build default constraints: %w", err)
	}
	return constraints.Merge(table, defaults), nil
}

// mergeDirect combines declared root dependencies with caller supplied ones
// by key. A caller dependency takes the place of the declared one.
func mergeDirect(declared, extra []coords.Dependency) []coords.Dependency {
	out := make([]coords.Dependency, 0, len(declared)+len(extra))
	index := make(map[coords.PackageKey]int, len(declared))
	for _, d := range declared {
		d = d.Normalize()
		if _, dup := index[d.Key()]; dup {
			continue
		}
		index[d.Key()] = len(out)
		out = append(out, d)
	}
	for _, d := range extra {
		d = d.Normalize()
		i, ok := index[d.Key()]
		if !ok {
			index[d.Key()] = len(out)
			out = append(out, d)
			continue
		}
		if d.Coords.Version == "" {
			d.Coords.Version = out[i].Coords.Version
		}
		out[i] = d
	}
	return out
}

// compileOnly collects the provided direct dependencies of dev mode. Versions
// selected by the runtime graph take precedence over every other constraint.
func (a *assembly) compileOnly(ctx context.Context, collector *graph.Collector, runtime *graph.Graph, root rootSpec, table *constraints.Table, provided []coords.Dependency) ([]*ResolvedDependency, error) {
	selected := make([]coords.Dependency, 0, runtime.Len())
	for _, n := range runtime.Nodes() {
		selected = append(selected, n.Dependency)
	}

	g, err := collector.Collect(ctx, graph.Request{
		Root:       root.coords,
		RootLocal:  root.local,
		Direct:     provided,
		Managed:    constraints.Merge(constraints.Of(selected...), table),
		Exclusions: a.r.excluded,
	})
	if err != nil {
		return nil, err
	}
	if err := g.Cycles(); err != nil {
		return nil, err
	}

	var out []*ResolvedDependency
	for _, n := range g.Nodes() {
		if _, onRuntime := runtime.Node(n.Key()); onRuntime {
			continue
		}
		dep, err := a.dependency(ctx, n, FlagCompileOnly)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

func (a *assembly) rootDependency(ctx context.Context, root rootSpec) (*ResolvedDependency, error) {
	dep := &ResolvedDependency{
		Coords:   root.coords,
		Scope:    coords.ScopeCompile,
		Flags:    FlagRuntimeClasspath,
		Module:   root.module,
		archives: a.r.archives,
	}
	var err error
	if root.module != nil {
		dep.Flags |= FlagWorkspaceModule
		dep.Paths, err = a.r.modulePaths(root.module, root.coords.Classifier)
	} else {
		dep.Paths, _, err = a.r.resolvePaths(ctx, root.coords, a.remotes)
	}
	if err != nil {
		return nil, err
	}
	return dep, nil
}

func (a *assembly) dependency(ctx context.Context, n *graph.Node, flags DependencyFlags) (*ResolvedDependency, error) {
	paths, module, err := a.r.resolvePaths(ctx, n.Coords(), a.remotes)
	if err != nil {
		return nil, err
	}
	if n.Dependency.Direct {
		flags |= FlagDirect
	}
	if n.Dependency.Optional {
		flags |= FlagOptional
	}
	if module != nil {
		flags |= FlagWorkspaceModule
	}
	dep := &ResolvedDependency{
		Coords:       n.Coords(),
		Scope:        n.Dependency.Scope,
		Flags:        flags,
		Paths:        paths,
		Module:       module,
		Dependencies: n.Children,
		archives:     a.r.archives,
	}
	a.byKey[dep.Key()] = dep
	a.logger.Debug("dependency resolved", "dependency", dep.Coords, "scope", dep.Scope, "flags", dep.Flags, "paths", paths)
	return dep, nil
}

// reloadable returns the sorted keys of workspace modules reachable from the
// root through workspace modules only. A non-nil override replaces the
// computed set.
func reloadable(g *graph.Graph, override []coords.PackageKey) []coords.PackageKey {
	if override != nil {
		keys := make([]coords.PackageKey, 0, len(override))
		for _, k := range override {
			keys = append(keys, k.Normalize())
		}
		coords.SortKeys(keys)
		return slices.Compact(keys)
	}

	root := g.Root()
	seen := make(map[coords.PackageKey]bool)
	var keys []coords.PackageKey
	queue := []*graph.Node{root}
	if root.Local {
		seen[root.Key()] = true
		keys = append(keys, root.Key())
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, childKey := range n.Children {
			child, ok := g.Node(childKey)
			if !ok || !child.Local || seen[childKey] {
				continue
			}
			seen[childKey] = true
			keys = append(keys, childKey)
			queue = append(queue, child)
		}
	}
	coords.SortKeys(keys)
	return keys
}
