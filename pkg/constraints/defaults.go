// SPDX-License-Identifier: MPL-2.0

package constraints

import (
	"context"
	"sync"
	"sync/atomic"
)

type (
	// BuildFunc builds a table on demand.
	BuildFunc func(ctx context.Context) (*Table, error)

	// Defaults holds the table of the default configuration. It is built on
	// the first Get and shared by every later caller. A failed build is not
	// remembered, so the next Get tries again.
	Defaults struct {
		build BuildFunc
		mu    sync.Mutex
		table atomic.Pointer[Table]
	}
)

// NewDefaults returns a Defaults that builds its table with build.
func NewDefaults(build BuildFunc) *Defaults {
	return &Defaults{build: build}
}

// Static returns a Defaults holding t.
func Static(t *Table) *Defaults {
	d := &Defaults{}
	d.table.Store(t)
	return d
}

// Get returns the default table, building it if needed. Concurrent callers
// wait for a single build.
func (d *Defaults) Get(ctx context.Context) (*Table, error) {
	if t := d.table.Load(); t != nil {
		return t, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if t := d.table.Load(); t != nil {
		return t, nil
	}
	if d.build == nil {
		t := NewTable()
		d.table.Store(t)
		return t, nil
	}
	t, err := d.build(ctx)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = NewTable()
	}
	d.table.Store(t)
	return t, nil
}

// Built reports whether the table has been built.
func (d *Defaults) Built() bool {
	return d.table.Load() != nil
}
