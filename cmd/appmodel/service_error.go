// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/invowk/appmodel/internal/dag"
	"github.com/invowk/appmodel/internal/issue"
	"github.com/invowk/appmodel/pkg/appmodel"
	"github.com/invowk/appmodel/pkg/workspace"
)

// ServiceError is a command failure together with the issue catalog entry
// explaining it. Create it with newServiceError.
type ServiceError struct {
	Err error
	// IssueID is 0 when the catalog has no entry for Err.
	IssueID issue.Id
}

// issueBySentinel maps sentinel errors to catalog entries. The first match
// wins, so more specific sentinels come first.
var issueBySentinel = []struct {
	sentinel error
	id       issue.Id
}{
	{appmodel.ErrPackageNotFound, issue.PackageNotFoundId},
	{appmodel.ErrVersionRangeEmpty, issue.VersionRangeEmptyId},
	{appmodel.ErrDescriptorResolution, issue.DescriptorResolutionId},
	{appmodel.ErrMissingVersion, issue.MissingVersionId},
	{appmodel.ErrMissingConstraintSource, issue.MissingConstraintSourceId},
	{appmodel.ErrCyclicModuleDependency, issue.CyclicModuleDependencyId},
	{dag.ErrCycle, issue.CyclicModuleDependencyId},
	{appmodel.ErrModuleNotBuilt, issue.ModuleNotBuiltId},
	{workspace.ErrInvalidManifest, issue.WorkspaceManifestInvalidId},
	{workspace.ErrDuplicateModule, issue.WorkspaceManifestInvalidId},
}

func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

func (e *ServiceError) Error() string { return e.Err.Error() }

func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError returns the catalog entry for err, preferring the one an
// ActionableError names, or 0.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}
	for _, m := range issueBySentinel {
		if errors.Is(err, m.sentinel) {
			return m.id
		}
	}
	return 0
}

// renderServiceError writes the catalog guidance of svcErr to stderr.
func renderServiceError(stderr io.Writer, svcErr *ServiceError) {
	if svcErr == nil || svcErr.IssueID == 0 {
		return
	}
	entry := issue.Get(svcErr.IssueID)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", err)
		return
	}
	fmt.Fprint(stderr, rendered)
}
