// SPDX-License-Identifier: MPL-2.0

package pathtree

import (
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"
)

type (
	// MultiRootTree overlays several trees. Lookups return the first tree
	// that holds the entry; walks visit every tree in order.
	MultiRootTree struct {
		trees []PathTree
	}

	openMulti struct {
		trees  []OpenPathTree
		closed atomic.Bool
	}
)

// NewMultiRootTree returns a tree over the given trees in priority order.
func NewMultiRootTree(trees ...PathTree) *MultiRootTree {
	return &MultiRootTree{trees: trees}
}

// Roots returns the roots of every tree in order.
func (m *MultiRootTree) Roots() []string {
	var roots []string
	for _, t := range m.trees {
		roots = append(roots, t.Roots()...)
	}
	return roots
}

// IsArchive always returns false.
func (m *MultiRootTree) IsArchive() bool { return false }

// Open opens every tree. If any tree fails to open, the ones already opened
// are closed again.
func (m *MultiRootTree) Open() (OpenPathTree, error) {
	return openAll(m.trees)
}

// Walk visits every tree in order.
func (m *MultiRootTree) Walk(fn WalkFunc) error {
	return withOpen(m, func(o OpenPathTree) error { return o.Walk(fn) })
}

// Apply visits rel in the first tree that holds it.
func (m *MultiRootTree) Apply(rel string, fn WalkFunc) error {
	return withOpen(m, func(o OpenPathTree) error { return o.Apply(rel, fn) })
}

// Contains reports whether any tree holds rel.
func (m *MultiRootTree) Contains(rel string) bool {
	for _, t := range m.trees {
		if t.Contains(rel) {
			return true
		}
	}
	return false
}

func (o *openMulti) Roots() []string {
	var roots []string
	for _, t := range o.trees {
		roots = append(roots, t.Roots()...)
	}
	return roots
}

func (o *openMulti) IsArchive() bool { return false }

func (o *openMulti) IsOpen() bool { return !o.closed.Load() }

func (o *openMulti) Open() (OpenPathTree, error) {
	if o.closed.Load() {
		return nil, ErrClosed
	}
	trees := make([]PathTree, len(o.trees))
	for i, t := range o.trees {
		trees[i] = t
	}
	return openAll(trees)
}

// FS returns the first tree's filesystem. Use ReadFile for overlay lookups.
func (o *openMulti) FS() fs.FS {
	if len(o.trees) == 0 {
		return nil
	}
	return o.trees[0].FS()
}

func (o *openMulti) Walk(fn WalkFunc) error {
	if o.closed.Load() {
		return ErrClosed
	}
	for _, t := range o.trees {
		if err := t.Walk(fn); err != nil {
			if errors.Is(err, fs.SkipAll) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (o *openMulti) Apply(rel string, fn WalkFunc) error {
	if o.closed.Load() {
		return ErrClosed
	}
	for _, t := range o.trees {
		if t.Contains(rel) {
			return t.Apply(rel, fn)
		}
	}
	return &fs.PathError{Op: "open", Path: rel, Err: fs.ErrNotExist}
}

func (o *openMulti) Contains(rel string) bool {
	if o.closed.Load() {
		return false
	}
	for _, t := range o.trees {
		if t.Contains(rel) {
			return true
		}
	}
	return false
}

func (o *openMulti) ReadFile(rel string) ([]byte, error) {
	if o.closed.Load() {
		return nil, ErrClosed
	}
	for _, t := range o.trees {
		if t.Contains(rel) {
			return t.ReadFile(rel)
		}
	}
	return nil, &fs.PathError{Op: "open", Path: rel, Err: fs.ErrNotExist}
}

func (o *openMulti) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	for _, t := range o.trees {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("pathtree: close multi-root tree: %w", errors.Join(errs...))
	}
	return nil
}

func openAll(trees []PathTree) (OpenPathTree, error) {
	opened := make([]OpenPathTree, 0, len(trees))
	for _, t := range trees {
		o, err := t.Open()
		if err != nil {
			for _, prev := range opened {
				_ = prev.Close()
			}
			return nil, err
		}
		opened = append(opened, o)
	}
	return &openMulti{trees: opened}, nil
}
