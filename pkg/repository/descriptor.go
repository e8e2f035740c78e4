// SPDX-License-Identifier: MPL-2.0

package repository

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/invowk/appmodel/pkg/coords"
	"github.com/invowk/appmodel/pkg/cueutil"
)

// EmbeddedDescriptorPath is where an artifact archive carries its own descriptor.
const EmbeddedDescriptorPath = "META-INF/appmodel/package.cue"

//go:embed descriptor_schema.cue
var descriptorSchemaSource []byte

var descriptorSchema = cueutil.MustCompileSchema(descriptorSchemaSource, "#Descriptor")

type (
	descriptorFile struct {
		Coords       string           `json:"coords"`
		Dependencies []dependencyFile `json:"dependencies,omitempty"`
		Managed      []dependencyFile `json:"managed,omitempty"`
		Remotes      []remoteFile     `json:"remotes,omitempty"`
	}

	dependencyFile struct {
		Coords     string   `json:"coords"`
		Scope      string   `json:"scope,omitempty"`
		Optional   bool     `json:"optional,omitempty"`
		Exclusions []string `json:"exclusions,omitempty"`
	}

	remoteFile struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
)

// ParseDescriptor decodes a CUE descriptor document. filename is used in
// error messages only.
func ParseDescriptor(data []byte, filename string) (*Descriptor, error) {
	f, err := cueutil.Decode[descriptorFile](descriptorSchema, data, cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}

	c, err := coords.ParseCoords(f.Coords)
	if err != nil {
		return nil, fmt.Errorf("%s: coords: %w", filename, err)
	}
	d := &Descriptor{Coords: c}

	for i, dep := range f.Dependencies {
		parsed, depErr := dep.toDependency()
		if depErr != nil {
			return nil, fmt.Errorf("%s: dependencies[%d]: %w", filename, i, depErr)
		}
		d.Dependencies = append(d.Dependencies, parsed)
	}
	for i, dep := range f.Managed {
		parsed, depErr := dep.toDependency()
		if depErr != nil {
			return nil, fmt.Errorf("%s: managed[%d]: %w", filename, i, depErr)
		}
		d.Managed = append(d.Managed, parsed)
	}
	for _, r := range f.Remotes {
		d.Remotes = append(d.Remotes, Remote(r))
	}
	return d, nil
}

func (f dependencyFile) toDependency() (coords.Dependency, error) {
	c, err := coords.ParseCoords(f.Coords)
	if err != nil {
		return coords.Dependency{}, err
	}
	scope, err := coords.ParseScope(f.Scope)
	if err != nil {
		return coords.Dependency{}, err
	}
	dep := coords.Dependency{Coords: c, Scope: scope, Optional: f.Optional}
	for _, raw := range f.Exclusions {
		e, exclErr := coords.ParseExclusion(raw)
		if exclErr != nil {
			return coords.Dependency{}, exclErr
		}
		dep.Exclusions = append(dep.Exclusions, e)
	}
	return dep, nil
}

// MarshalDescriptor renders d as a CUE document accepted by ParseDescriptor.
func MarshalDescriptor(d *Descriptor) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "coords: %q\n", d.Coords.String())
	writeDeps(&sb, "dependencies", d.Dependencies)
	writeDeps(&sb, "managed", d.Managed)
	if len(d.Remotes) > 0 {
		sb.WriteString("remotes: [\n")
		for _, r := range d.Remotes {
			fmt.Fprintf(&sb, "\t{id: %q, url: %q},\n", r.ID, r.URL)
		}
		sb.WriteString("]\n")
	}
	return []byte(sb.String())
}

func writeDeps(sb *strings.Builder, field string, deps []coords.Dependency) {
	if len(deps) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s: [\n", field)
	for _, dep := range deps {
		fmt.Fprintf(sb, "\t{coords: %q", dep.Coords.String())
		if sc := dep.Scope.Normalize(); sc != coords.ScopeCompile {
			fmt.Fprintf(sb, ", scope: %q", sc)
		}
		if dep.Optional {
			sb.WriteString(", optional: true")
		}
		if len(dep.Exclusions) > 0 {
			sb.WriteString(", exclusions: [")
			for i, e := range dep.Exclusions {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(sb, "%q", e.String())
			}
			sb.WriteString("]")
		}
		sb.WriteString("},\n")
	}
	sb.WriteString("]\n")
}
