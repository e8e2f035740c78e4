// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"fmt"

	"github.com/invowk/appmodel/internal/dag"
	"github.com/invowk/appmodel/pkg/coords"
)

// ErrDuplicateModule is the sentinel error wrapped by DuplicateModuleError.
var ErrDuplicateModule = errors.New("duplicate workspace module")

type (
	// Workspace is an immutable set of local modules.
	Workspace struct {
		root    string
		modules []*Module
		byName  map[string][]*Module
	}

	// DuplicateModuleError is returned when two modules share coordinates.
	DuplicateModuleError struct {
		ID coords.PackageCoords
	}
)

// New returns a workspace holding modules in the given order.
func New(root string, modules ...*Module) (*Workspace, error) {
	ws := &Workspace{root: root, byName: make(map[string][]*Module)}
	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		m.ID = m.ID.WithVersion(m.ID.Version)
		id := m.ID.String()
		if seen[id] {
			return nil, &DuplicateModuleError{ID: m.ID}
		}
		seen[id] = true
		ws.modules = append(ws.modules, m)
		ga := m.ID.GroupName()
		ws.byName[ga] = append(ws.byName[ga], m)
	}
	return ws, nil
}

// Root returns the workspace directory.
func (ws *Workspace) Root() string { return ws.root }

// Modules returns the modules in declaration order.
func (ws *Workspace) Modules() []*Module {
	return append([]*Module(nil), ws.modules...)
}

// Len returns the number of modules.
func (ws *Workspace) Len() int {
	if ws == nil {
		return 0
	}
	return len(ws.modules)
}

// Lookup returns the module with the group and name of key. When both
// version and the module version are set they must be equal.
func (ws *Workspace) Lookup(key coords.PackageKey, version string) (*Module, bool) {
	if ws == nil {
		return nil, false
	}
	for _, m := range ws.byName[key.GroupName()] {
		if version == "" || m.ID.Version == "" || m.ID.Version == version {
			return m, true
		}
	}
	return nil, false
}

// BuildOrder returns the modules ordered so that every module comes after the
// workspace modules it depends on. A dependency cycle fails with *dag.CycleError.
func (ws *Workspace) BuildOrder() ([]*Module, error) {
	g := dag.New[coords.PackageKey]()
	byKey := make(map[coords.PackageKey]*Module, len(ws.modules))
	for _, m := range ws.modules {
		g.AddNode(m.Key())
		byKey[m.Key()] = m
	}
	for _, m := range ws.modules {
		for _, d := range m.Dependencies {
			if dep, ok := ws.Lookup(d.Key(), d.Coords.Version); ok && dep != m {
				g.AddEdge(dep.Key(), m.Key())
			}
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	out := make([]*Module, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out, nil
}

// Error implements the error interface for DuplicateModuleError.
func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("workspace module %s declared more than once", e.ID)
}

// Unwrap returns ErrDuplicateModule for errors.Is() compatibility.
func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }
