// SPDX-License-Identifier: MPL-2.0

package appmodel

import (
	"errors"
	"fmt"

	"github.com/invowk/appmodel/pkg/constraints"
	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/graph"
)

// Every resolution error is terminal: no partial model is returned. The
// error types are defined by the packages that detect them and re-exported
// here so callers only need this package.
type (
	// PackageNotFoundError reports a coordinate that resolves to nothing.
	PackageNotFoundError = graph.PackageNotFoundError
	// VersionRangeEmptyError reports a range matching no published version.
	VersionRangeEmptyError = graph.VersionRangeEmptyError
	// DescriptorResolutionError reports a descriptor that cannot be read or parsed.
	DescriptorResolutionError = graph.DescriptorResolutionError
	// MissingVersionError reports a dependency without a version.
	MissingVersionError = graph.MissingVersionError
	// CyclicModuleDependencyError reports workspace modules depending on each other.
	CyclicModuleDependencyError = graph.CyclicModuleDependencyError
	// MissingConstraintSourceError reports a bill of materials that cannot be imported.
	MissingConstraintSourceError = constraints.MissingConstraintSourceError

	// ModuleNotBuiltError is returned when a workspace module is selected but
	// its outputs do not exist and pending modules are not allowed.
	ModuleNotBuiltError struct {
		Module     coords.PackageCoords
		Classifier string
		Dir        string
	}
)

var (
	// ErrPackageNotFound is wrapped by PackageNotFoundError.
	ErrPackageNotFound = graph.ErrPackageNotFound
	// ErrVersionRangeEmpty is wrapped by VersionRangeEmptyError.
	ErrVersionRangeEmpty = graph.ErrVersionRangeEmpty
	// ErrDescriptorResolution is wrapped by DescriptorResolutionError.
	ErrDescriptorResolution = graph.ErrDescriptorResolution
	// ErrMissingVersion is wrapped by MissingVersionError.
	ErrMissingVersion = graph.ErrMissingVersion
	// ErrCyclicModuleDependency is wrapped by CyclicModuleDependencyError.
	ErrCyclicModuleDependency = graph.ErrCyclicModuleDependency
	// ErrMissingConstraintSource is wrapped by MissingConstraintSourceError.
	ErrMissingConstraintSource = constraints.ErrMissingConstraintSource
	// ErrModuleNotBuilt is wrapped by ModuleNotBuiltError.
	ErrModuleNotBuilt = errors.New("workspace module is not built")
)

// Error implements the error interface for ModuleNotBuiltError.
func (e *ModuleNotBuiltError) Error() string {
	artifact := "main artifact"
	if e.Classifier != "" {
		artifact = e.Classifier + " artifact"
	}
	return fmt.Sprintf("workspace module %s (%s) has no build output in %s", e.Module, artifact, e.Dir)
}

// Unwrap returns ErrModuleNotBuilt for errors.Is() compatibility.
func (e *ModuleNotBuiltError) Unwrap() error { return ErrModuleNotBuilt }
