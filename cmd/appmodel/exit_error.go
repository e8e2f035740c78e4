// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strconv"

	"github.com/invowk/appmodel/internal/issue"
)

// Process exit codes. Scripts branch on them to tell a missing package from
// a broken workspace without parsing stderr.
const (
	exitFailure    = 1
	exitNotFound   = 3
	exitConflict   = 4
	exitWorkspace  = 5
	exitConfigLoad = 6
)

// ExitError carries the process exit code of a failed command to Execute.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitCodeFor maps an issue catalog entry to its exit code.
func exitCodeFor(id issue.Id) int {
	switch id {
	case issue.PackageNotFoundId, issue.VersionRangeEmptyId:
		return exitNotFound
	case issue.MissingVersionId, issue.MissingConstraintSourceId, issue.CyclicModuleDependencyId:
		return exitConflict
	case issue.ModuleNotBuiltId, issue.WorkspaceManifestInvalidId:
		return exitWorkspace
	case issue.ConfigLoadFailedId:
		return exitConfigLoad
	default:
		return exitFailure
	}
}
