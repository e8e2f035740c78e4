// SPDX-License-Identifier: MPL-2.0

// Package dag computes the build order of workspace modules.
package dag

import (
	"errors"
	"slices"
	"strings"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle detected")

type (
	// Node is the constraint on graph node identifiers.
	Node interface {
		comparable
		String() string
	}

	// CycleError reports one cycle of the graph. Cycle starts and ends with
	// the same node.
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph where an edge from A to B means A is built
	// before B. Orders are deterministic: ties are broken by the order in
	// which nodes were first added.
	Graph[K Node] struct {
		succ  map[K][]K
		order []K
	}
)

func (e *CycleError) Error() string {
	return ErrCycle.Error() + ": " + strings.Join(e.Cycle, " -> ")
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New[K Node]() *Graph[K] {
	return &Graph[K]{succ: make(map[K][]K)}
}

// AddNode adds n unless it is already present.
func (g *Graph[K]) AddNode(n K) {
	if _, ok := g.succ[n]; ok {
		return
	}
	g.succ[n] = nil
	g.order = append(g.order, n)
}

// AddEdge records that from is built before to, adding both nodes.
func (g *Graph[K]) AddEdge(from, to K) {
	g.AddNode(from)
	g.AddNode(to)
	if !slices.Contains(g.succ[from], to) {
		g.succ[from] = append(g.succ[from], to)
	}
}

// Len returns the number of nodes.
func (g *Graph[K]) Len() int { return len(g.order) }

// TopologicalSort returns every node after all of its predecessors, or a
// *CycleError naming one cycle when no such order exists.
func (g *Graph[K]) TopologicalSort() ([]K, error) {
	if len(g.order) == 0 {
		return nil, nil
	}

	indegree := make(map[K]int, len(g.order))
	for _, n := range g.order {
		for _, s := range g.succ[n] {
			indegree[s]++
		}
	}

	sorted := make([]K, 0, len(g.order))
	for _, n := range g.order {
		if indegree[n] == 0 {
			sorted = append(sorted, n)
		}
	}
	// sorted doubles as the work queue.
	for i := 0; i < len(sorted); i++ {
		for _, s := range g.succ[sorted[i]] {
			if indegree[s]--; indegree[s] == 0 {
				sorted = append(sorted, s)
			}
		}
	}

	if len(sorted) < len(g.order) {
		return nil, &CycleError{Cycle: g.findCycle(indegree)}
	}
	return sorted, nil
}

// findCycle returns one cycle among the unsorted nodes. Each of them keeps
// an unsorted predecessor, so walking predecessors from the first one
// repeats a node within Len steps; the walk is reversed into build order.
func (g *Graph[K]) findCycle(indegree map[K]int) []string {
	unsorted := func(n K) bool { return indegree[n] > 0 }
	predecessor := func(n K) K {
		var pred K
		for _, p := range g.order {
			if unsorted(p) && slices.Contains(g.succ[p], n) {
				pred = p
				break
			}
		}
		return pred
	}

	var walk []K
	seen := make(map[K]int)
	n := g.order[slices.IndexFunc(g.order, unsorted)]
	for {
		if at, ok := seen[n]; ok {
			walk = append(walk[at:], n)
			break
		}
		seen[n] = len(walk)
		walk = append(walk, n)
		n = predecessor(n)
	}

	slices.Reverse(walk)
	cycle := make([]string, len(walk))
	for i, k := range walk {
		cycle[i] = k.String()
	}
	return cycle
}
