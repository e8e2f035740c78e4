// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/invowk/appmodel/pkg/appmodel"
	"github.com/invowk/appmodel/pkg/coords"

	"github.com/spf13/cobra"
)

type resolveFlags struct {
	deps        []string
	constraints []string
	managing    string
	reloadable  []string
}

func newResolveCommand(app *App) *cobra.Command {
	var rf resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve <group:name:version>",
		Short: "Resolve the application model of a published package",
		Long: `Resolve the application model of a published package.

The root version may be a range, in which case the highest published version
in the range is used. Direct dependencies given with --dep replace the
declared dependencies with the same key; a dependency without a version keeps
the declared one.

Dependencies are written group:name:version with an optional @scope suffix,
for example org.acme:servlet-api:4.0@provided.`,
		Args: cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			root, err := coords.ParseCoords(args[0])
			if err != nil {
				return err
			}
			req, err := rf.request(root)
			if err != nil {
				return err
			}

			s, err := app.newSession(cmd.Context())
			if err != nil {
				return err
			}
			model, err := s.resolver.ResolveModel(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeModel(app.stdout, app.flags.output, model, app.flags.verbose)
		}),
	}

	cmd.Flags().StringArrayVar(&rf.deps, "dep", nil, "direct dependency group:name[:version][@scope] (repeatable)")
	cmd.Flags().StringArrayVar(&rf.constraints, "constraint", nil, "managed constraint group:name:version[@scope] with the highest priority (repeatable)")
	cmd.Flags().StringVar(&rf.managing, "managing", "", "bill of materials group:name:version whose constraints apply")
	cmd.Flags().StringArrayVar(&rf.reloadable, "reloadable", nil, "mark group:name as reloadable instead of the computed set (repeatable)")

	return cmd
}

func (rf resolveFlags) request(root coords.PackageCoords) (appmodel.ModelRequest, error) {
	req := appmodel.ModelRequest{Root: root}

	var err error
	if req.Direct, err = parseDependencies(rf.deps, true); err != nil {
		return req, err
	}
	if req.Constraints, err = parseDependencies(rf.constraints, false); err != nil {
		return req, err
	}
	if rf.managing != "" {
		bom, err := coords.ParseCoords(rf.managing)
		if err != nil {
			return req, err
		}
		req.Managing = &bom
	}
	for _, s := range rf.reloadable {
		key, err := coords.ParseKey(s)
		if err != nil {
			return req, err
		}
		req.Reloadable = append(req.Reloadable, key)
	}
	return req, nil
}

// parseDependency parses group:name:version[@scope]. When versionOptional is
// set, group:name is accepted too.
func parseDependency(s string, versionOptional bool) (coords.Dependency, error) {
	ref, scopeName, hasScope := strings.Cut(s, "@")

	var c coords.PackageCoords
	if strings.Count(ref, ":") == 1 && versionOptional {
		key, err := coords.ParseKey(ref)
		if err != nil {
			return coords.Dependency{}, err
		}
		c = key.WithVersion("")
	} else {
		var err error
		if c, err = coords.ParseCoords(ref); err != nil {
			return coords.Dependency{}, err
		}
	}

	d := coords.NewDependency(c)
	if hasScope {
		sc, err := coords.ParseScope(scopeName)
		if err != nil {
			return coords.Dependency{}, fmt.Errorf("dependency %s: %w", s, err)
		}
		d.Scope = sc
	}
	return d, nil
}

func parseDependencies(values []string, versionOptional bool) ([]coords.Dependency, error) {
	deps := make([]coords.Dependency, 0, len(values))
	for _, v := range values {
		d, err := parseDependency(v, versionOptional)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, nil
}
