// SPDX-License-Identifier: MPL-2.0

// Package graph collects conflict-resolved transitive dependency graphs and
// walks them leaves first.
package graph

import (
	"slices"

	"github.com/invowk/appmodel/pkg/coords"

	"github.com/charmbracelet/log"
)

type (
	// Node is a selected package.
	Node struct {
		// Dependency holds the selected coordinates, the effective scope and
		// optional flag, and the exclusions declared on the winning edge.
		Dependency coords.Dependency
		// Requested is the version expression before range resolution.
		Requested string
		// Depth is the distance from the root; the root has depth 0.
		Depth int
		// Local is set for workspace modules.
		Local bool
		// Children are the selected packages this node depends on, in
		// declaration order.
		Children []coords.PackageKey

		in []edge
	}

	edge struct {
		parent   *Node
		scope    coords.Scope
		optional bool
	}

	// Graph is the result of a collection. It is not modified after Collect returns.
	Graph struct {
		root   *Node
		order  []*Node
		byKey  map[coords.PackageKey]*Node
		logger *log.Logger
	}
)

func newGraph(root *Node, logger *log.Logger) *Graph {
	return &Graph{
		root:   root,
		byKey:  map[coords.PackageKey]*Node{root.Key(): root},
		logger: logger,
	}
}

// Key returns the package key of the node.
func (n *Node) Key() coords.PackageKey { return n.Dependency.Key() }

// Coords returns the selected coordinates of the node.
func (n *Node) Coords() coords.PackageCoords { return n.Dependency.Coords }

// Root returns the root node.
func (g *Graph) Root() *Node { return g.root }

// Nodes returns every node except the root in selection order.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.order) }

// Len returns the number of nodes excluding the root.
func (g *Graph) Len() int { return len(g.order) }

// Node returns the node selected for key, including the root.
func (g *Graph) Node(key coords.PackageKey) (*Node, bool) {
	n, ok := g.byKey[key.Normalize()]
	return n, ok
}

func (g *Graph) add(n *Node) {
	g.byKey[n.Key()] = n
	g.order = append(g.order, n)
}

// link records that parent depends on child through the declared edge d.
func (g *Graph) link(parent, child *Node, d coords.Dependency) {
	child.in = append(child.in, edge{parent: parent, scope: d.Scope.Normalize(), optional: d.Optional})
	if !slices.Contains(parent.Children, child.Key()) {
		parent.Children = append(parent.Children, child.Key())
	}
}

// settle computes the effective scope and optional flag of every node from
// all the paths reaching it. Direct dependencies keep their declared scope.
// A transitive node takes the widest scope any path gives it, and is optional
// only when every path to it is optional.
func (g *Graph) settle() {
	for _, n := range g.order {
		if !n.Dependency.Direct {
			n.Dependency.Scope = coords.ScopeTest
		}
		n.Dependency.Optional = true
	}
	g.root.Dependency.Optional = false

	for changed := true; changed; {
		changed = false
		for _, n := range g.order {
			sc := n.Dependency.Scope
			opt := true
			for _, in := range n.in {
				if !n.Dependency.Direct {
					sc = coords.Widest(sc, in.parent.Dependency.Scope.Inherit(in.scope))
				}
				if !in.optional && !in.parent.Dependency.Optional {
					opt = false
				}
			}
			if sc != n.Dependency.Scope || opt != n.Dependency.Optional {
				n.Dependency.Scope = sc
				n.Dependency.Optional = opt
				changed = true
			}
		}
	}
}

// Walk visits every node reachable from the root depth first, children
// before parents, the root last. Each node is visited once. A dependency
// cycle through a workspace module fails with CyclicModuleDependencyError;
// cycles among published packages are logged and the closing edge is skipped.
// An error returned by visit stops the walk.
func (g *Graph) Walk(visit func(*Node) error) error {
	w := &walker{
		graph:   g,
		visit:   visit,
		done:    make(map[coords.PackageKey]bool),
		onStack: make(map[coords.PackageKey]bool),
	}
	return w.walk(g.root)
}

// Cycles reports whether the graph holds a workspace module cycle by walking
// it without visiting.
func (g *Graph) Cycles() error {
	return g.Walk(func(*Node) error { return nil })
}

type walker struct {
	graph   *Graph
	visit   func(*Node) error
	done    map[coords.PackageKey]bool
	onStack map[coords.PackageKey]bool
	stack   []coords.PackageKey
}

func (w *walker) walk(n *Node) error {
	key := n.Key()
	w.onStack[key] = true
	w.stack = append(w.stack, key)

	for _, childKey := range n.Children {
		if w.onStack[childKey] {
			cycle := w.cycleTo(childKey)
			if w.involvesLocal(cycle) {
				return &CyclicModuleDependencyError{Cycle: cycle}
			}
			w.graph.logger.Warn("skipping dependency cycle", "from", key, "to", childKey)
			continue
		}
		if w.done[childKey] {
			continue
		}
		if err := w.walk(w.graph.byKey[childKey]); err != nil {
			return err
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	delete(w.onStack, key)
	w.done[key] = true
	return w.visit(n)
}

// cycleTo returns the active path from key to the top of the stack, closed
// by key again.
func (w *walker) cycleTo(key coords.PackageKey) []coords.PackageKey {
	start := slices.Index(w.stack, key)
	cycle := slices.Clone(w.stack[start:])
	return append(cycle, key)
}

func (w *walker) involvesLocal(cycle []coords.PackageKey) bool {
	for _, k := range cycle {
		if n, ok := w.graph.byKey[k]; ok && n.Local {
			return true
		}
	}
	return false
}
