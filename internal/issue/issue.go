// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	PackageNotFoundId Id = iota + 1
	VersionRangeEmptyId
	DescriptorResolutionId
	MissingVersionId
	MissingConstraintSourceId
	CyclicModuleDependencyId
	ModuleNotBuiltId
	WorkspaceManifestInvalidId
	ConfigLoadFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a known failure with Markdown remediation guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guidance for a terminal with the glamour style at
// stylePath ("" picks the default style).
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not found!

A package of the dependency graph has no descriptor or artifact in the repository.

## Things you can try:
- Check the coordinates for typos (group:name:version)
- Check that the local repository holds the package:
~~~
$ appmodel versions range <group:name> "[0,)"
~~~
- Point the resolver at another repository with 'repository.local' in your config`,
	}

	versionRangeEmptyIssue = &Issue{
		id: VersionRangeEmptyId,
		mdMsg: `
# No version matches the range!

A dependency declares a version range and no published version falls inside it.

## Things you can try:
- List the published versions:
~~~
$ appmodel versions range <group:name> "[0,)"
~~~
- Widen the range or pin a concrete version with a constraint`,
	}

	descriptorResolutionIssue = &Issue{
		id: DescriptorResolutionId,
		mdMsg: `
# Package descriptor could not be read!

A descriptor exists but cannot be read or does not match the descriptor schema.

## Things you can try:
- Check the descriptor file next to the artifact for CUE syntax errors
- Check that every scope is one of compile, runtime, provided, test or import`,
	}

	missingVersionIssue = &Issue{
		id: MissingVersionId,
		mdMsg: `
# Dependency without a version!

A dependency declares no version and no managed constraint supplies one.

## Things you can try:
- Declare the version on the dependency
- Import a bill of materials that manages the package
- Pass a constraint with '--constraint group:name:version'`,
	}

	missingConstraintSourceIssue = &Issue{
		id: MissingConstraintSourceId,
		mdMsg: `
# Bill of materials could not be imported!

A managed section imports a bill of materials that cannot be resolved.

## Things you can try:
- Check the coordinates of the imported package
- Check that the repository holds its descriptor`,
	}

	cyclicModuleDependencyIssue = &Issue{
		id: CyclicModuleDependencyId,
		mdMsg: `
# Workspace modules depend on each other!

The modules listed in the error form a dependency cycle. Workspace modules must form
a directed acyclic graph.

## Things you can try:
- Move the shared code into a new module both can depend on
- Remove one of the dependencies from the workspace manifest`,
	}

	moduleNotBuiltIssue = &Issue{
		id: ModuleNotBuiltId,
		mdMsg: `
# Workspace module is not built!

A workspace module was selected but its output directories do not exist.

## Things you can try:
- Build the module and retry
- Resolve with '--allow-pending' to record the module as pending`,
	}

	workspaceManifestInvalidIssue = &Issue{
		id: WorkspaceManifestInvalidId,
		mdMsg: `
# Workspace manifest is invalid!

The workspace manifest could not be parsed.

## Example manifest:
~~~toml
[[module]]
coords = "org.acme:app:1.0-SNAPSHOT"
dir = "app"

[[module.dependency]]
coords = "org.acme:lib:1.0-SNAPSHOT"
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check the config file for CUE syntax errors
- Show the effective configuration:
~~~
$ appmodel config show
~~~`,
	}

	issues = map[Id]*Issue{
		packageNotFoundIssue.Id():          packageNotFoundIssue,
		versionRangeEmptyIssue.Id():        versionRangeEmptyIssue,
		descriptorResolutionIssue.Id():     descriptorResolutionIssue,
		missingVersionIssue.Id():           missingVersionIssue,
		missingConstraintSourceIssue.Id():  missingConstraintSourceIssue,
		cyclicModuleDependencyIssue.Id():   cyclicModuleDependencyIssue,
		moduleNotBuiltIssue.Id():           moduleNotBuiltIssue,
		workspaceManifestInvalidIssue.Id(): workspaceManifestInvalidIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id - b.id) })
}

func Get(id Id) *Issue {
	return issues[id]
}
