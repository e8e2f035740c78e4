// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/invowk/appmodel/pkg/appmodel"
	"github.com/invowk/appmodel/pkg/coords"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type (
	// dependencyView is the serialized form of a resolved dependency.
	dependencyView struct {
		Coords       string   `json:"coords" yaml:"coords"`
		Scope        string   `json:"scope" yaml:"scope"`
		Flags        []string `json:"flags,omitempty" yaml:"flags,omitempty"`
		Paths        []string `json:"paths,omitempty" yaml:"paths,omitempty"`
		Pending      bool     `json:"pending,omitempty" yaml:"pending,omitempty"`
		Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	}

	// modelView is the serialized form of an application model.
	modelView struct {
		RequestID    string           `json:"request_id" yaml:"request_id"`
		Mode         string           `json:"mode" yaml:"mode"`
		App          dependencyView   `json:"app" yaml:"app"`
		Dependencies []dependencyView `json:"dependencies" yaml:"dependencies"`
		CompileOnly  []dependencyView `json:"compile_only,omitempty" yaml:"compile_only,omitempty"`
		Reloadable   []string         `json:"reloadable,omitempty" yaml:"reloadable,omitempty"`
	}

	// versionsView is the serialized form of a version query.
	versionsView struct {
		Package  string   `json:"package" yaml:"package"`
		Versions []string `json:"versions" yaml:"versions"`
	}
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want %s, %s or %s)", format, outputText, outputJSON, outputYAML)
	}
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func newDependencyView(d *appmodel.ResolvedDependency) dependencyView {
	v := dependencyView{
		Coords:       d.Coords.String(),
		Scope:        d.Scope.String(),
		Paths:        d.Paths.All(),
		Pending:      d.Paths.Kind == appmodel.PathsPending,
		Dependencies: keyStrings(d.Dependencies),
	}
	if flags := d.Flags.String(); flags != "" {
		v.Flags = strings.Split(flags, ", ")
	}
	return v
}

func newModelView(m *appmodel.ApplicationModel) modelView {
	v := modelView{
		RequestID:    m.RequestID,
		Mode:         m.Mode.String(),
		App:          newDependencyView(m.App),
		Dependencies: make([]dependencyView, 0, len(m.Dependencies)),
		Reloadable:   keyStrings(m.Reloadable),
	}
	for _, d := range m.Dependencies {
		v.Dependencies = append(v.Dependencies, newDependencyView(d))
	}
	for _, d := range m.CompileOnly {
		v.CompileOnly = append(v.CompileOnly, newDependencyView(d))
	}
	return v
}

func keyStrings(keys []coords.PackageKey) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}

// writeModel prints m in format. The text form is the dependency tree
// followed by the content location of every dependency.
func writeModel(w io.Writer, format string, m *appmodel.ApplicationModel, verbose bool) error {
	if format != outputText {
		return writeStructured(w, format, newModelView(m))
	}

	fmt.Fprintf(w, "%s %s\n\n", TitleStyle.Render("Application model"), SubtitleStyle.Render("("+m.Mode.String()+" mode)"))
	fmt.Fprintln(w, appmodel.RenderTree(m, verbose))

	if len(m.Dependencies) > 0 {
		fmt.Fprintf(w, "\n%s\n", TitleStyle.Render("Runtime classpath"))
		for _, d := range m.RuntimeDependencies() {
			writeDependencyLine(w, d)
		}
	}
	if len(m.CompileOnly) > 0 {
		fmt.Fprintf(w, "\n%s\n", TitleStyle.Render("Compile only"))
		for _, d := range m.CompileOnly {
			writeDependencyLine(w, d)
		}
	}
	if len(m.Reloadable) > 0 {
		fmt.Fprintf(w, "\n%s\n", TitleStyle.Render("Reloadable modules"))
		for _, k := range m.Reloadable {
			fmt.Fprintf(w, "  %s\n", CoordsStyle.Render(k.String()))
		}
	}
	return nil
}

func writeDependencyLine(w io.Writer, d *appmodel.ResolvedDependency) {
	paths := SuccessStyle.Render(d.Paths.String())
	if d.Paths.Kind == appmodel.PathsPending {
		paths = WarningStyle.Render(d.Paths.String())
	}
	fmt.Fprintf(w, "  %s %s\n", CoordsStyle.Render(d.Coords.String()), paths)
}

// writeDependency prints a single resolved artifact.
func writeDependency(w io.Writer, format string, d *appmodel.ResolvedDependency) error {
	if format != outputText {
		return writeStructured(w, format, newDependencyView(d))
	}
	writeDependencyLine(w, d)
	return nil
}

// writeVersions prints the result of a version query, one version per line.
func writeVersions(w io.Writer, format string, c coords.PackageCoords, versions []string) error {
	if format != outputText {
		if versions == nil {
			versions = []string{}
		}
		return writeStructured(w, format, versionsView{Package: c.Key().String(), Versions: versions})
	}
	if len(versions) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("no matching versions of "+c.Key().String()))
		return nil
	}
	for _, v := range versions {
		fmt.Fprintln(w, v)
	}
	return nil
}
