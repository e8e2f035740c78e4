// SPDX-License-Identifier: MPL-2.0

package constraints

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/appmodel/pkg/coords"
)

// ErrMissingConstraintSource is the sentinel error wrapped by MissingConstraintSourceError.
var ErrMissingConstraintSource = errors.New("managed constraint source cannot be resolved")

type (
	// ManagedResolver returns the managed section of a bill of materials.
	ManagedResolver interface {
		ResolveManaged(ctx context.Context, bom coords.PackageCoords) ([]coords.Dependency, error)
	}

	// ManagedResolverFunc adapts a function to ManagedResolver.
	ManagedResolverFunc func(ctx context.Context, bom coords.PackageCoords) ([]coords.Dependency, error)

	// Source is one entry of the ordered source list given to Build.
	Source struct {
		deps []coords.Dependency
		bom  *coords.PackageCoords
	}

	// MissingConstraintSourceError is returned when a bill of materials
	// cannot be resolved.
	MissingConstraintSourceError struct {
		BOM coords.PackageCoords
		Err error
	}

	builder struct {
		resolver ManagedResolver
		table    *Table
		imported map[string]bool
	}
)

// ResolveManaged calls f.
func (f ManagedResolverFunc) ResolveManaged(ctx context.Context, bom coords.PackageCoords) ([]coords.Dependency, error) {
	return f(ctx, bom)
}

// Explicit returns a source holding deps. Entries with coords.ScopeImport
// are imported after the other entries of the source.
func Explicit(deps ...coords.Dependency) Source {
	return Source{deps: deps}
}

// Import returns a source importing the managed section of bom.
func Import(bom coords.PackageCoords) Source {
	return Source{bom: &bom}
}

// String describes the source for logs.
func (s Source) String() string {
	if s.bom != nil {
		return "import " + s.bom.String()
	}
	return fmt.Sprintf("%d explicit entries", len(s.deps))
}

// Build merges sources in order into a table. The first source mentioning a
// key wins. Bills of materials are resolved only when reached; the entries of
// a bill of materials are added before the ones it imports, and a bill of
// materials already imported during this build is skipped.
func Build(ctx context.Context, resolver ManagedResolver, sources ...Source) (*Table, error) {
	b := &builder{
		resolver: resolver,
		table:    NewTable(),
		imported: make(map[string]bool),
	}
	for _, s := range sources {
		var err error
		if s.bom != nil {
			err = b.importBOM(ctx, *s.bom)
		} else {
			err = b.addAll(ctx, s.deps)
		}
		if err != nil {
			return nil, err
		}
	}
	return b.table, nil
}

func (b *builder) addAll(ctx context.Context, deps []coords.Dependency) error {
	var imports []coords.PackageCoords
	for _, d := range deps {
		d = d.Normalize()
		if d.Scope == coords.ScopeImport {
			imports = append(imports, d.Coords)
			continue
		}
		b.table.add(d)
	}
	for _, bom := range imports {
		if err := b.importBOM(ctx, bom); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) importBOM(ctx context.Context, bom coords.PackageCoords) error {
	id := bom.String()
	if b.imported[id] {
		return nil
	}
	b.imported[id] = true

	if err := ctx.Err(); err != nil {
		return err
	}
	if b.resolver == nil {
		return &MissingConstraintSourceError{BOM: bom, Err: errors.New("no resolver configured")}
	}
	deps, err := b.resolver.ResolveManaged(ctx, bom)
	if err != nil {
		return &MissingConstraintSourceError{BOM: bom, Err: err}
	}
	return b.addAll(ctx, deps)
}

// Error implements the error interface for MissingConstraintSourceError.
func (e *MissingConstraintSourceError) Error() string {
	return fmt.Sprintf("failed to import managed constraints from %s: %v", e.BOM, e.Err)
}

// Unwrap returns ErrMissingConstraintSource and the underlying cause.
func (e *MissingConstraintSourceError) Unwrap() []error {
	return []error{ErrMissingConstraintSource, e.Err}
}
