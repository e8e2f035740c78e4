// SPDX-License-Identifier: MPL-2.0

// Package repository defines the transport through which package descriptors,
// artifact files and published versions are obtained, together with a local
// filesystem implementation and an in-memory implementation.
package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invowk/appmodel/pkg/coords"
)

// ErrNotFound is returned, wrapped, when a coordinate has no descriptor or artifact.
var ErrNotFound = errors.New("not found in repository")

type (
	// Remote is a remote repository a descriptor asks to be resolved against.
	Remote struct {
		ID  string
		URL string
	}

	// Descriptor is the published metadata of one package version.
	Descriptor struct {
		Coords coords.PackageCoords
		// Dependencies are the declared dependency edges in declaration order.
		Dependencies []coords.Dependency
		// Managed are version constraints. Entries with ScopeImport import a
		// bill of materials.
		Managed []coords.Dependency
		Remotes []Remote
	}

	// Repository resolves descriptors, artifact files and version ranges.
	// Implementations must be safe for concurrent use. Failures caused by an
	// absent coordinate must wrap ErrNotFound.
	Repository interface {
		ResolveDescriptor(ctx context.Context, c coords.PackageCoords, remotes []Remote) (*Descriptor, error)
		ResolveArtifactFile(ctx context.Context, c coords.PackageCoords, remotes []Remote) (string, error)
		// ResolveVersionRange returns the published versions of key matching
		// rangeExpr in ascending order.
		ResolveVersionRange(ctx context.Context, key coords.PackageKey, rangeExpr string, remotes []Remote) ([]string, error)
	}

	// NotFoundError reports a coordinate absent from a repository.
	NotFoundError struct {
		Coords coords.PackageCoords
		What   string
	}
)

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s for %s not found in repository", e.What, e.Coords)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ManagedImports returns the bill of materials imports declared in the managed section.
func (d *Descriptor) ManagedImports() []coords.PackageCoords {
	var out []coords.PackageCoords
	for _, m := range d.Managed {
		if m.Scope == coords.ScopeImport {
			out = append(out, m.Coords)
		}
	}
	return out
}

// MergeRemotes appends the remotes of extra not already present by ID.
func MergeRemotes(base []Remote, extra ...Remote) []Remote {
	out := append([]Remote(nil), base...)
	for _, r := range extra {
		dup := false
		for _, existing := range out {
			if existing.ID == r.ID {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

// LayoutDir returns the directory holding every file of c under root:
// <root>/<group with dots as separators>/<name>/<version>.
func LayoutDir(root string, c coords.PackageCoords) string {
	parts := append([]string{root}, strings.Split(c.Group, ".")...)
	parts = append(parts, c.Name, c.Version)
	return filepath.Join(parts...)
}

// ArtifactFileName returns <name>-<version>[-<classifier>].<type>.
func ArtifactFileName(c coords.PackageCoords) string {
	k := c.Key()
	name := k.Name + "-" + c.Version
	if k.Classifier != "" {
		name += "-" + k.Classifier
	}
	return name + "." + k.Type
}

// DescriptorFileName returns <name>-<version>.cue.
func DescriptorFileName(c coords.PackageCoords) string {
	return c.Name + "-" + c.Version + ".cue"
}
