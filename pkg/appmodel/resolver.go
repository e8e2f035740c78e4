// SPDX-License-Identifier: MPL-2.0

// Package appmodel resolves application models: the deduplicated,
// conflict-resolved and scope-filtered dependency graph of an application,
// with every node mapped to a packaged artifact or to the output directories
// of a workspace module.
package appmodel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/invowk/appmodel/internal/metrics"
	"github.com/invowk/appmodel/pkg/constraints"
	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/graph"
	"github.com/invowk/appmodel/pkg/pathtree"
	"github.com/invowk/appmodel/pkg/repository"
	"github.com/invowk/appmodel/pkg/scope"
	"github.com/invowk/appmodel/pkg/version"
	"github.com/invowk/appmodel/pkg/workspace"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

type (
	// Resolver resolves application models against a repository and an
	// optional workspace. It starts no goroutines and is safe for concurrent
	// use; only the single artifact cache is shared between calls.
	Resolver struct {
		repo         repository.Repository
		ws           *workspace.Workspace
		mode         scope.Mode
		allowPending bool
		defaults     *constraints.Defaults
		remotes      []repository.Remote
		excluded     []coords.Exclusion
		logger       *log.Logger
		archives     *pathtree.Registry

		treeConsumer func(string)
		treeVerbose  bool

		artifacts sync.Map
		inflight  singleflight.Group
	}

	// Option configures a Resolver.
	Option func(*Resolver)
)

// WithWorkspace substitutes the modules of ws for matching graph nodes.
func WithWorkspace(ws *workspace.Workspace) Option {
	return func(r *Resolver) { r.ws = ws }
}

// WithMode sets the build mode. Normal is the default.
func WithMode(m scope.Mode) Option {
	return func(r *Resolver) { r.mode = m }
}

// WithAllowPendingModules resolves unbuilt workspace modules to pending paths
// instead of failing with ModuleNotBuiltError.
func WithAllowPendingModules(allow bool) Option {
	return func(r *Resolver) { r.allowPending = allow }
}

// WithDefaults sets the managed constraints of the default configuration,
// applied with the lowest priority.
func WithDefaults(d *constraints.Defaults) Option {
	return func(r *Resolver) { r.defaults = d }
}

// WithRemotes sets the remote repositories passed to the repository.
func WithRemotes(remotes ...repository.Remote) Option {
	return func(r *Resolver) { r.remotes = remotes }
}

// WithExcludedArtifacts excludes matching packages from every model.
func WithExcludedArtifacts(exclusions ...coords.Exclusion) Option {
	return func(r *Resolver) { r.excluded = exclusions }
}

// WithLogger sets the logger. Logging is discarded by default.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithArchiveRegistry sets the registry backing ContentTree of packaged
// dependencies. The process-wide registry is used by default.
func WithArchiveRegistry(reg *pathtree.Registry) Option {
	return func(r *Resolver) { r.archives = reg }
}

// WithDependencyTree hands every line of the rendered dependency tree of
// each resolved model to consumer. Verbose lines carry the dependency flags.
func WithDependencyTree(consumer func(string), verbose bool) Option {
	return func(r *Resolver) {
		r.treeConsumer = consumer
		r.treeVerbose = verbose
	}
}

// NewResolver returns a resolver over repo.
func NewResolver(repo repository.Repository, opts ...Option) *Resolver {
	r := &Resolver{repo: repo}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	if r.defaults == nil {
		r.defaults = constraints.Static(constraints.NewTable())
	}
	return r
}

// Mode returns the build mode.
func (r *Resolver) Mode() scope.Mode { return r.mode }

// Resolve resolves a single artifact without expanding its dependencies.
// Results are cached per coordinate for the life of the resolver and
// concurrent calls for the same coordinate share one lookup. Failures are
// not cached.
func (r *Resolver) Resolve(ctx context.Context, c coords.PackageCoords) (*ResolvedDependency, error) {
	c = c.WithVersion(c.Version)
	id := c.String()
	if cached, ok := r.artifacts.Load(id); ok {
		metrics.ArtifactCacheResult(true)
		return cached.(*ResolvedDependency), nil
	}

	v, err, _ := r.inflight.Do(id, func() (any, error) {
		if cached, ok := r.artifacts.Load(id); ok {
			return cached, nil
		}
		resolved, err := r.resolveVersion(ctx, c.Key(), c.Version, r.remotes)
		if err != nil {
			return nil, err
		}
		sel := c.WithVersion(resolved)
		paths, module, err := r.resolvePaths(ctx, sel, r.remotes)
		if err != nil {
			return nil, err
		}
		dep := &ResolvedDependency{
			Coords:   sel,
			Scope:    coords.ScopeCompile,
			Flags:    FlagDirect | FlagRuntimeClasspath,
			Paths:    paths,
			Module:   module,
			archives: r.archives,
		}
		if module != nil {
			dep.Flags |= FlagWorkspaceModule
		}
		r.artifacts.Store(id, dep)
		metrics.ArtifactCacheResult(false)
		return dep, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ResolvedDependency), nil
}

// resolveVersion selects the highest published version for a range
// expression and returns other expressions unchanged.
func (r *Resolver) resolveVersion(ctx context.Context, key coords.PackageKey, expr string, remotes []repository.Remote) (string, error) {
	isRange, err := version.CheckRange(expr)
	if err != nil {
		return "", fmt.Errorf("resolve version of %s: %w", key, err)
	}
	if !isRange {
		return expr, nil
	}
	versions, err := r.repo.ResolveVersionRange(ctx, key, expr, remotes)
	if err != nil {
		return "", fmt.Errorf("resolve %s of %s: %w", expr, key, err)
	}
	best := version.Max(versions)
	if best == "" {
		return "", &VersionRangeEmptyError{Key: key, Range: expr}
	}
	return best, nil
}

// resolvePaths maps c to workspace module outputs or to a repository artifact.
func (r *Resolver) resolvePaths(ctx context.Context, c coords.PackageCoords, remotes []repository.Remote) (ResolvedPaths, *workspace.Module, error) {
	if m, ok := r.ws.Lookup(c.Key(), c.Version); ok {
		paths, err := r.modulePaths(m, c.Classifier)
		return paths, m, err
	}

	path, err := r.repo.ResolveArtifactFile(ctx, c, remotes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ResolvedPaths{}, nil, &PackageNotFoundError{Coords: c, Err: err}
		}
		return ResolvedPaths{}, nil, fmt.Errorf("resolve artifact %s: %w", c, err)
	}
	return ArchivePaths(path), nil, nil
}

// modulePaths returns the output directories of a module artifact.
func (r *Resolver) modulePaths(m *workspace.Module, classifier string) (ResolvedPaths, error) {
	sources, ok := m.ArtifactSources(classifier)
	if ok && sources.IsBuilt() {
		if sources.IsStale() {
			r.logger.Warn("workspace module output is older than its sources", "module", m.ID)
		}
		return DirectoryPaths(sources.OutputDirs()...), nil
	}
	if r.allowPending {
		return PendingPaths(), nil
	}
	return ResolvedPaths{}, &ModuleNotBuiltError{Module: m.ID, Classifier: classifier, Dir: m.Dir}
}

// describer is the graph.DescriptorSource of one request: workspace modules
// first, then the repository.
type describer struct {
	r       *Resolver
	remotes []repository.Remote
}

func (s describer) Describe(ctx context.Context, c coords.PackageCoords) (*graph.Description, error) {
	if m, ok := s.r.ws.Lookup(c.Key(), c.Version); ok {
		return &graph.Description{Dependencies: m.Dependencies, Local: true}, nil
	}
	d, err := s.r.repo.ResolveDescriptor(ctx, c, s.remotes)
	if err != nil {
		return nil, err
	}
	return &graph.Description{Dependencies: d.Dependencies}, nil
}

func (s describer) ResolveVersionRange(ctx context.Context, key coords.PackageKey, expr string) ([]string, error) {
	return s.r.repo.ResolveVersionRange(ctx, key, expr, s.remotes)
}

// ResolveManaged returns the managed section of a bill of materials.
func (s describer) ResolveManaged(ctx context.Context, bom coords.PackageCoords) ([]coords.Dependency, error) {
	if m, ok := s.r.ws.Lookup(bom.Key(), bom.Version); ok {
		return m.Managed, nil
	}
	d, err := s.r.repo.ResolveDescriptor(ctx, bom, s.remotes)
	if err != nil {
		return nil, err
	}
	return d.Managed, nil
}
