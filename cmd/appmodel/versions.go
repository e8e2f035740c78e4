// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/invowk/appmodel/pkg/coords"

	"github.com/spf13/cobra"
)

type versionBounds struct {
	upTo          string
	upToInclusive bool
	from          string
	fromInclusive bool
}

func newVersionsCommand(app *App) *cobra.Command {
	versionsCmd := &cobra.Command{
		Use:   "versions",
		Short: "Query published versions of a package",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var later versionBounds
	laterCmd := &cobra.Command{
		Use:   "later <group:name:version>",
		Short: "List the versions newer than the given one",
		Args:  cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			return app.queryVersions(cmd, args[0], func(s *session, c coords.PackageCoords) ([]string, error) {
				return s.resolver.ListLaterVersions(cmd.Context(), c, later.upTo, later.upToInclusive)
			})
		}),
	}
	addUpToFlags(laterCmd, &later)

	var next versionBounds
	nextCmd := &cobra.Command{
		Use:   "next <group:name:version>",
		Short: "Show the lowest version after --from (default: the given version)",
		Args:  cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			return app.queryVersions(cmd, args[0], func(s *session, c coords.PackageCoords) ([]string, error) {
				from := next.from
				if from == "" {
					from = c.Version
				}
				v, err := s.resolver.NextVersion(cmd.Context(), c, from, next.fromInclusive, next.upTo, next.upToInclusive)
				return single(v), err
			})
		}),
	}
	addUpToFlags(nextCmd, &next)
	nextCmd.Flags().StringVar(&next.from, "from", "", "lower bound")
	nextCmd.Flags().BoolVar(&next.fromInclusive, "from-inclusive", false, "include the lower bound")

	var latest versionBounds
	latestCmd := &cobra.Command{
		Use:   "latest <group:name[:version]>",
		Short: "Show the highest published version",
		Args:  cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			return app.queryVersions(cmd, args[0], func(s *session, c coords.PackageCoords) ([]string, error) {
				v, err := s.resolver.LatestVersion(cmd.Context(), c, latest.upTo, latest.upToInclusive)
				return single(v), err
			})
		}),
	}
	addUpToFlags(latestCmd, &latest)

	rangeCmd := &cobra.Command{
		Use:   "range <group:name:range>",
		Short: "Show the highest published version matching a range",
		Args:  cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			return app.queryVersions(cmd, args[0], func(s *session, c coords.PackageCoords) ([]string, error) {
				v, err := s.resolver.LatestVersionFromRange(cmd.Context(), c, c.Version)
				return single(v), err
			})
		}),
	}

	versionsCmd.AddCommand(laterCmd, nextCmd, latestCmd, rangeCmd)
	return versionsCmd
}

func addUpToFlags(cmd *cobra.Command, b *versionBounds) {
	cmd.Flags().StringVar(&b.upTo, "up-to", "", "upper bound (default: unbounded)")
	cmd.Flags().BoolVar(&b.upToInclusive, "up-to-inclusive", false, "include the upper bound")
}

// queryVersions parses arg, runs query and prints the versions found. A
// group:name argument is accepted and queried without a version.
func (a *App) queryVersions(cmd *cobra.Command, arg string, query func(*session, coords.PackageCoords) ([]string, error)) error {
	d, err := parseDependency(arg, true)
	if err != nil {
		return err
	}
	s, err := a.newSession(cmd.Context())
	if err != nil {
		return err
	}
	versions, err := query(s, d.Coords)
	if err != nil {
		return err
	}
	return writeVersions(a.stdout, a.flags.output, d.Coords, versions)
}

func single(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
