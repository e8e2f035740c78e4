// SPDX-License-Identifier: MPL-2.0

package appmodel

import (
	"strings"

	"github.com/invowk/appmodel/pkg/coords"

	"github.com/charmbracelet/lipgloss/tree"
)

// repeatedSuffix marks a dependency already expanded elsewhere in the tree.
const repeatedSuffix = " (*)"

// RenderTree renders the dependency tree of m. Every dependency is expanded
// once; later occurrences are marked with (*). Verbose labels carry the
// scope and flags of each dependency.
func RenderTree(m *ApplicationModel, verbose bool) string {
	byKey := make(map[coords.PackageKey]*ResolvedDependency, len(m.Dependencies))
	for _, d := range m.Dependencies {
		byKey[d.Key()] = d
	}
	expanded := map[coords.PackageKey]bool{m.App.Key(): true}

	root := tree.Root(treeLabel(m.App, verbose)).Enumerator(tree.RoundedEnumerator)
	addChildren(root, m.App, byKey, expanded, verbose)
	return root.String()
}

func addChildren(t *tree.Tree, d *ResolvedDependency, byKey map[coords.PackageKey]*ResolvedDependency, expanded map[coords.PackageKey]bool, verbose bool) {
	for _, key := range d.Dependencies {
		child, ok := byKey[key]
		if !ok {
			continue
		}
		label := treeLabel(child, verbose)
		if expanded[key] {
			t.Child(label + repeatedSuffix)
			continue
		}
		expanded[key] = true
		if len(child.Dependencies) == 0 {
			t.Child(label)
			continue
		}
		sub := tree.Root(label).Enumerator(tree.RoundedEnumerator)
		addChildren(sub, child, byKey, expanded, verbose)
		t.Child(sub)
	}
}

func treeLabel(d *ResolvedDependency, verbose bool) string {
	label := d.Coords.String()
	if !verbose {
		return label
	}
	attrs := []string{d.Scope.String()}
	if d.Flags != 0 {
		attrs = append(attrs, d.Flags.String())
	}
	return label + " (" + strings.Join(attrs, ", ") + ")"
}

func renderTree(m *ApplicationModel, verbose bool) []string {
	lines := strings.Split(RenderTree(m, verbose), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return lines
}
