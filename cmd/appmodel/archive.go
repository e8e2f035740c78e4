// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/appmodel/pkg/pathtree"

	"github.com/spf13/cobra"
)

func newArchiveCommand(app *App) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect artifact archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var filter pathtree.PathFilter
	lsCmd := &cobra.Command{
		Use:   "ls <archive>",
		Short: "List the entries of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			if err := filter.Validate(); err != nil {
				return err
			}
			tree, err := app.Archives.ForPath(args[0])
			if err != nil {
				return err
			}
			var entries []string
			err = tree.Walk(func(v pathtree.PathVisit) error {
				if v.IsDir() || !filter.Matches(v.RelativePath()) {
					return nil
				}
				entries = append(entries, v.RelativePath())
				return nil
			})
			if err != nil {
				return err
			}
			if app.flags.output != outputText {
				return writeStructured(app.stdout, app.flags.output, entries)
			}
			for _, e := range entries {
				fmt.Fprintln(app.stdout, e)
			}
			return nil
		}),
	}
	lsCmd.Flags().StringArrayVar(&filter.Includes, "include", nil, "only list entries matching this glob (repeatable)")
	lsCmd.Flags().StringArrayVar(&filter.Excludes, "exclude", nil, "skip entries matching this glob (repeatable)")

	catCmd := &cobra.Command{
		Use:   "cat <archive> <entry>",
		Short: "Print an archive entry",
		Args:  cobra.ExactArgs(2),
		RunE: app.runE(func(cmd *cobra.Command, args []string) (err error) {
			tree, err := app.Archives.ForPath(args[0])
			if err != nil {
				return err
			}
			open, err := tree.Open()
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := open.Close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			data, err := open.ReadFile(args[1])
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(data)
			return err
		}),
	}

	archiveCmd.AddCommand(lsCmd, catCmd)
	return archiveCmd
}
