// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/invowk/appmodel/pkg/constraints"
	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/repository"
	"github.com/invowk/appmodel/pkg/version"

	"github.com/charmbracelet/log"
)

type (
	// Description is what the collector needs to know about a package.
	Description struct {
		Dependencies []coords.Dependency
		// Local is set for packages backed by a workspace module.
		Local bool
	}

	// DescriptorSource describes packages. Errors for absent packages must
	// wrap repository.ErrNotFound.
	DescriptorSource interface {
		Describe(ctx context.Context, c coords.PackageCoords) (*Description, error)
	}

	// RangeResolver lists the published versions of key matching rangeExpr.
	RangeResolver interface {
		ResolveVersionRange(ctx context.Context, key coords.PackageKey, rangeExpr string) ([]string, error)
	}

	// Request describes one collection.
	Request struct {
		Root coords.PackageCoords
		// RootLocal marks the root as a workspace module.
		RootLocal bool
		// Direct are the root's dependencies after scope filtering.
		Direct []coords.Dependency
		// Managed supplies versions for dependencies that declare none and
		// overrides the versions of transitive dependencies.
		Managed *constraints.Table
		// Exclusions apply to the whole graph.
		Exclusions []coords.Exclusion
	}

	// Collector builds conflict-resolved dependency graphs. It holds no state
	// between collections and is safe for concurrent use.
	Collector struct {
		source DescriptorSource
		ranges RangeResolver
		logger *log.Logger
	}

	// CollectorOption configures a Collector.
	CollectorOption func(*Collector)

	// pending is a dependency edge waiting in the breadth-first queue.
	pending struct {
		dep        coords.Dependency
		parent     *Node
		depth      int
		exclusions []coords.Exclusion
	}

	collection struct {
		*Collector
		req       Request
		graph     *Graph
		queue     []pending
		rangeMemo map[string]string
	}
)

// WithLogger sets the logger used for warnings.
func WithLogger(l *log.Logger) CollectorOption {
	return func(c *Collector) { c.logger = l }
}

// NewCollector returns a collector reading descriptors from source and
// resolving version ranges with ranges.
func NewCollector(source DescriptorSource, ranges RangeResolver, opts ...CollectorOption) *Collector {
	c := &Collector{source: source, ranges: ranges}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Collect builds the graph of req. Packages are selected breadth-first in
// declaration order: the first occurrence of a key is the nearest one and
// wins; later occurrences only add edges to it. Any failure aborts the
// collection.
func (c *Collector) Collect(ctx context.Context, req Request) (*Graph, error) {
	root := &Node{
		Dependency: coords.Dependency{Coords: req.Root.WithVersion(req.Root.Version), Scope: coords.ScopeCompile},
		Requested:  req.Root.Version,
		Local:      req.RootLocal,
	}
	col := &collection{
		Collector: c,
		req:       req,
		graph:     newGraph(root, c.logger),
		rangeMemo: make(map[string]string),
	}

	for _, d := range req.Direct {
		d = d.Normalize()
		d.Direct = true
		if m, ok := req.Managed.Lookup(d.Key()); ok {
			if d.Coords.Version == "" {
				d.Coords.Version = m.Version
			}
			d.Exclusions = appendExclusions(d.Exclusions, m.Exclusions)
		}
		if d.Coords.Version == "" {
			return nil, &MissingVersionError{Key: d.Key()}
		}
		col.queue = append(col.queue, pending{dep: d, parent: root, depth: 1, exclusions: d.Exclusions})
	}

	for len(col.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := col.queue[0]
		col.queue = col.queue[1:]
		if err := col.visit(ctx, next); err != nil {
			return nil, err
		}
	}

	col.graph.settle()
	return col.graph, nil
}

func (col *collection) visit(ctx context.Context, p pending) error {
	key := p.dep.Key()
	if coords.ExcludedBy(col.req.Exclusions, key) {
		return nil
	}

	if winner, ok := col.graph.byKey[key]; ok {
		col.graph.link(p.parent, winner, p.dep)
		return nil
	}

	dep := p.dep
	if !dep.Direct {
		if m, ok := col.req.Managed.Lookup(key); ok && m.Version != "" {
			dep.Coords.Version = m.Version
		}
		if dep.Coords.Version == "" {
			return &MissingVersionError{Key: key, Via: p.parent.Dependency.Coords}
		}
	}
	requested := dep.Coords.Version
	resolved, err := col.resolveVersion(ctx, key, requested)
	if err != nil {
		return err
	}
	dep.Coords.Version = resolved

	desc, err := col.source.Describe(ctx, dep.Coords)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &PackageNotFoundError{Coords: dep.Coords, Via: viaOf(p.parent), Err: err}
		}
		return &DescriptorResolutionError{Coords: dep.Coords, Err: err}
	}

	node := &Node{
		Dependency: dep,
		Requested:  requested,
		Depth:      p.depth,
		Local:      desc.Local,
	}
	col.graph.add(node)
	col.graph.link(p.parent, node, dep)

	for _, child := range desc.Dependencies {
		child = child.Normalize()
		if child.Optional || !child.Scope.IsTransitive() {
			continue
		}
		if coords.ExcludedBy(p.exclusions, child.Key()) {
			continue
		}
		if m, ok := col.req.Managed.Lookup(child.Key()); ok {
			child.Exclusions = appendExclusions(child.Exclusions, m.Exclusions)
		}
		child.Direct = false
		col.queue = append(col.queue, pending{
			dep:        child,
			parent:     node,
			depth:      p.depth + 1,
			exclusions: appendExclusions(p.exclusions, child.Exclusions),
		})
	}
	return nil
}

// resolveVersion returns expr unchanged unless it is a range, in which case
// the highest published version within the range is selected.
func (col *collection) resolveVersion(ctx context.Context, key coords.PackageKey, expr string) (string, error) {
	isRange, err := version.CheckRange(expr)
	if err != nil {
		return "", fmt.Errorf("resolve version of %s: %w", key, err)
	}
	if !isRange {
		return expr, nil
	}
	memo := key.String() + "@" + expr
	if v, ok := col.rangeMemo[memo]; ok {
		return v, nil
	}
	if col.ranges == nil {
		return "", fmt.Errorf("resolve %s of %s: no range resolver configured", expr, key)
	}
	versions, err := col.ranges.ResolveVersionRange(ctx, key, expr)
	if err != nil {
		return "", fmt.Errorf("resolve %s of %s: %w", expr, key, err)
	}
	best := version.Max(versions)
	if best == "" {
		return "", &VersionRangeEmptyError{Key: key, Range: expr}
	}
	col.rangeMemo[memo] = best
	return best, nil
}

func viaOf(parent *Node) coords.PackageCoords {
	if parent.Depth == 0 {
		return coords.PackageCoords{}
	}
	return parent.Dependency.Coords
}

func appendExclusions(base, extra []coords.Exclusion) []coords.Exclusion {
	if len(extra) == 0 {
		return base
	}
	return append(slices.Clip(base), extra...)
}
