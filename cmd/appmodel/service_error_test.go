// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/invowk/appmodel/internal/dag"
	"github.com/invowk/appmodel/internal/issue"
	"github.com/invowk/appmodel/pkg/appmodel"
	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/workspace"
)

func TestNewServiceError_PanicsOnNilErr(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r != "ServiceError: Err must not be nil" {
			t.Fatalf("unexpected panic value: %v", r)
		}
	}()

	newServiceError(nil, 0)
}

func TestServiceError_ErrorAndUnwrap(t *testing.T) {
	t.Parallel()

	underlying := errors.New("underlying error")
	svcErr := newServiceError(underlying, issue.PackageNotFoundId)

	if svcErr.Error() != "underlying error" {
		t.Errorf("Error() = %q", svcErr.Error())
	}
	if !errors.Is(svcErr, underlying) {
		t.Error("errors.Is should find underlying error via Unwrap")
	}
}

func TestRenderServiceError_NoIssue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderServiceError(&buf, nil)
	renderServiceError(&buf, newServiceError(errors.New("plain"), 0))
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	c := coords.NewCoords("org.acme", "lib", "1.0")
	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"not found", &appmodel.PackageNotFoundError{Coords: c}, issue.PackageNotFoundId},
		{"wrapped not found", fmt.Errorf("resolve: %w", &appmodel.PackageNotFoundError{Coords: c}), issue.PackageNotFoundId},
		{"range empty", appmodel.ErrVersionRangeEmpty, issue.VersionRangeEmptyId},
		{"descriptor", appmodel.ErrDescriptorResolution, issue.DescriptorResolutionId},
		{"missing version", appmodel.ErrMissingVersion, issue.MissingVersionId},
		{"missing bom", appmodel.ErrMissingConstraintSource, issue.MissingConstraintSourceId},
		{"module cycle", appmodel.ErrCyclicModuleDependency, issue.CyclicModuleDependencyId},
		{"build order cycle", dag.ErrCycle, issue.CyclicModuleDependencyId},
		{"not built", &appmodel.ModuleNotBuiltError{Module: c}, issue.ModuleNotBuiltId},
		{"manifest", workspace.ErrInvalidManifest, issue.WorkspaceManifestInvalidId},
		{"actionable", issue.NewErrorContext().WithOperation("load configuration").WithIssue(issue.ConfigLoadFailedId).Wrap(errors.New("boom")).BuildError(), issue.ConfigLoadFailedId},
		{"unknown", errors.New("boom"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseDependency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in              string
		versionOptional bool
		want            string
		scope           coords.Scope
		wantErr         bool
	}{
		{"org.acme:lib:1.0", false, "org.acme:lib:1.0", coords.ScopeCompile, false},
		{"org.acme:lib:[1.0,2.0)@runtime", false, "org.acme:lib:[1.0,2.0)", coords.ScopeRuntime, false},
		{"org.acme:lib", true, "org.acme:lib:", coords.ScopeCompile, false},
		{"org.acme:lib", false, "", "", true},
		{"org.acme:lib:1.0@bundled", false, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			d, err := parseDependency(tt.in, tt.versionOptional)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDependency(%q) err = %v", tt.in, err)
			}
			if err != nil {
				return
			}
			if d.Coords.String() != tt.want || d.Scope != tt.scope {
				t.Errorf("parseDependency(%q) = %s@%s", tt.in, d.Coords, d.Scope)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   issue.Id
		want int
	}{
		{0, exitFailure},
		{issue.DescriptorResolutionId, exitFailure},
		{issue.PackageNotFoundId, exitNotFound},
		{issue.VersionRangeEmptyId, exitNotFound},
		{issue.MissingVersionId, exitConflict},
		{issue.CyclicModuleDependencyId, exitConflict},
		{issue.ModuleNotBuiltId, exitWorkspace},
		{issue.WorkspaceManifestInvalidId, exitWorkspace},
		{issue.ConfigLoadFailedId, exitConfigLoad},
	}

	for _, tt := range tests {
		if got := exitCodeFor(tt.id); got != tt.want {
			t.Errorf("exitCodeFor(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}

	err := &ExitError{Code: exitNotFound}
	if err.Error() != "exit status 3" || err.Unwrap() != nil {
		t.Errorf("ExitError without cause = %q", err.Error())
	}
}
