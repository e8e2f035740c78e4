// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/appmodel/pkg/coords"
)

var (
	// ErrPackageNotFound is the sentinel error wrapped by PackageNotFoundError.
	ErrPackageNotFound = errors.New("package not found")
	// ErrVersionRangeEmpty is the sentinel error wrapped by VersionRangeEmptyError.
	ErrVersionRangeEmpty = errors.New("version range matches no published version")
	// ErrDescriptorResolution is the sentinel error wrapped by DescriptorResolutionError.
	ErrDescriptorResolution = errors.New("descriptor resolution failed")
	// ErrMissingVersion is the sentinel error wrapped by MissingVersionError.
	ErrMissingVersion = errors.New("dependency has no version")
	// ErrCyclicModuleDependency is the sentinel error wrapped by CyclicModuleDependencyError.
	ErrCyclicModuleDependency = errors.New("cyclic module dependency")
)

type (
	// PackageNotFoundError is returned when a coordinate resolves to nothing.
	PackageNotFoundError struct {
		Coords coords.PackageCoords
		// Via is the package that declared the dependency, empty for the root.
		Via coords.PackageCoords
		Err error
	}

	// VersionRangeEmptyError is returned when a range matches no published version.
	VersionRangeEmptyError struct {
		Key   coords.PackageKey
		Range string
	}

	// DescriptorResolutionError is returned when the descriptor of a graph
	// node cannot be read or parsed.
	DescriptorResolutionError struct {
		Coords coords.PackageCoords
		Err    error
	}

	// MissingVersionError is returned when a dependency declares no version
	// and no managed constraint supplies one.
	MissingVersionError struct {
		Key coords.PackageKey
		Via coords.PackageCoords
	}

	// CyclicModuleDependencyError is returned when workspace modules depend
	// on each other. Cycle starts and ends with the same key.
	CyclicModuleDependencyError struct {
		Cycle []coords.PackageKey
	}
)

// Error implements the error interface for PackageNotFoundError.
func (e *PackageNotFoundError) Error() string {
	msg := fmt.Sprintf("package %s not found", e.Coords)
	if e.Via.Name != "" {
		msg += " (required by " + e.Via.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrPackageNotFound and the underlying cause.
func (e *PackageNotFoundError) Unwrap() []error {
	return []error{ErrPackageNotFound, e.Err}
}

// Error implements the error interface for VersionRangeEmptyError.
func (e *VersionRangeEmptyError) Error() string {
	return fmt.Sprintf("no published version of %s matches %s", e.Key, e.Range)
}

// Unwrap returns ErrVersionRangeEmpty for errors.Is() compatibility.
func (e *VersionRangeEmptyError) Unwrap() error { return ErrVersionRangeEmpty }

// Error implements the error interface for DescriptorResolutionError.
func (e *DescriptorResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve descriptor of %s: %v", e.Coords, e.Err)
}

// Unwrap returns ErrDescriptorResolution and the underlying cause.
func (e *DescriptorResolutionError) Unwrap() []error {
	return []error{ErrDescriptorResolution, e.Err}
}

// Error implements the error interface for MissingVersionError.
func (e *MissingVersionError) Error() string {
	msg := fmt.Sprintf("dependency %s declares no version and none is managed", e.Key)
	if e.Via.Name != "" {
		msg += " (declared by " + e.Via.String() + ")"
	}
	return msg
}

// Unwrap returns ErrMissingVersion for errors.Is() compatibility.
func (e *MissingVersionError) Unwrap() error { return ErrMissingVersion }

// Error implements the error interface for CyclicModuleDependencyError.
func (e *CyclicModuleDependencyError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, k := range e.Cycle {
		parts[i] = k.GroupName()
	}
	return "cyclic module dependency detected: " + strings.Join(parts, " -> ")
}

// Unwrap returns ErrCyclicModuleDependency for errors.Is() compatibility.
func (e *CyclicModuleDependencyError) Unwrap() error { return ErrCyclicModuleDependency }
