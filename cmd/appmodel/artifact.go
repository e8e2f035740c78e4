// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/invowk/appmodel/pkg/coords"

	"github.com/spf13/cobra"
)

func newArtifactCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "artifact <group:name:version>",
		Short: "Locate the content of a single artifact",
		Long: `Locate the content of a single artifact.

The version may be a range. Workspace modules resolve to their build output
directories; published packages resolve to their archive in the repository.`,
		Args: cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			c, err := coords.ParseCoords(args[0])
			if err != nil {
				return err
			}
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return err
			}
			d, err := s.resolver.Resolve(cmd.Context(), c)
			if err != nil {
				return err
			}
			return writeDependency(app.stdout, app.flags.output, d)
		}),
	}
}
