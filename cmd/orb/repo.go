// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	repoCmd = &cobra.Command{
		Use:   "repo",
		Short: "Manage user-added package repositories",
		Long: `Manage the repositories searched in addition to the official one.

User-added repositories are only ever consulted when a command is run
with --insecure: adding a repository states that it exists, not that it
is trusted by default.`,
	}

	repoAddCmd = &cobra.Command{
		Use:   "add <url>",
		Short: "Register a repository by URL",
		Long: `Register a repository. The URL must serve a parseable orb.config at
its root on the main or master branch; anything else is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp()
			if err != nil {
				return fail(cmd, err)
			}

			if err := a.registry().Add(cmd.Context(), args[0]); err != nil {
				return fail(cmd, err)
			}

			cmd.Printf("%s Added %s\n", SuccessStyle.Render("✓"), PkgStyle.Render(args[0]))
			cmd.Println(SubtitleStyle.Render("It will be searched when you pass --insecure."))
			return nil
		},
	}

	repoListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp()
			if err != nil {
				return fail(cmd, err)
			}

			repos, err := a.registry().List()
			if err != nil {
				return fail(cmd, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n",
				PkgStyle.Render(a.paths.OfficialRepo), SubtitleStyle.Render("[official]"))
			for _, url := range repos {
				fmt.Fprintln(out, PkgStyle.Render(url))
			}
			return nil
		},
	}
)

func init() {
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoListCmd)
}
