// SPDX-License-Identifier: MPL-2.0

package constraints

import (
	"github.com/invowk/appmodel/pkg/coords"
)

type (
	// Managed is the constraint recorded for one package key.
	Managed struct {
		Version    string
		Scope      coords.Scope
		Exclusions []coords.Exclusion
	}

	// Table maps package keys to managed constraints, keeping the order in
	// which keys were first added. A Table returned by Build or Merge must not
	// be modified.
	Table struct {
		keys    []coords.PackageKey
		entries map[coords.PackageKey]Managed
	}
)

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[coords.PackageKey]Managed)}
}

// Of returns a table holding deps, first occurrence per key winning.
// Import-scoped entries are ignored.
func Of(deps ...coords.Dependency) *Table {
	t := NewTable()
	for _, d := range deps {
		if d.Scope == coords.ScopeImport {
			continue
		}
		t.add(d)
	}
	return t
}

// add records d unless its key is already present and reports whether it did.
func (t *Table) add(d coords.Dependency) bool {
	key := d.Key()
	if _, exists := t.entries[key]; exists {
		return false
	}
	t.keys = append(t.keys, key)
	t.entries[key] = Managed{
		Version:    d.Coords.Version,
		Scope:      d.Scope,
		Exclusions: d.Exclusions,
	}
	return true
}

// Len returns the number of keys in the table. A nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []coords.PackageKey {
	if t == nil {
		return nil
	}
	return append([]coords.PackageKey(nil), t.keys...)
}

// Lookup returns the constraint for key.
func (t *Table) Lookup(key coords.PackageKey) (Managed, bool) {
	if t == nil {
		return Managed{}, false
	}
	m, ok := t.entries[key.Normalize()]
	return m, ok
}

// Version returns the managed version for key, or "" when key is unmanaged.
func (t *Table) Version(key coords.PackageKey) string {
	m, _ := t.Lookup(key)
	return m.Version
}

// Dependencies returns the table as managed dependency entries in insertion order.
func (t *Table) Dependencies() []coords.Dependency {
	if t == nil {
		return nil
	}
	out := make([]coords.Dependency, 0, len(t.keys))
	for _, k := range t.keys {
		m := t.entries[k]
		out = append(out, coords.Dependency{
			Coords:     k.WithVersion(m.Version),
			Scope:      m.Scope,
			Exclusions: m.Exclusions,
		})
	}
	return out
}

// Merge returns a table with the entries of every table, the first table
// mentioning a key winning. Nil tables are skipped.
func Merge(tables ...*Table) *Table {
	out := NewTable()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, k := range t.keys {
			if _, exists := out.entries[k]; exists {
				continue
			}
			out.keys = append(out.keys, k)
			out.entries[k] = t.entries[k]
		}
	}
	return out
}
