// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/orbpkg/orb/internal/install"
	"github.com/orbpkg/orb/internal/tui"
)

var (
	uninstallGlobal bool
	uninstallForce  bool

	uninstallCmd = &cobra.Command{
		Use:   "uninstall <package>",
		Short: "Remove every installed version of a package",
		Long: `Remove a package's whole install tree from the project (or user-wide
with --global), including every version, its metadata log, and the
project's dependency entry.

You are asked to confirm unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp()
			if err != nil {
				return fail(cmd, err)
			}

			inst := install.New(a.paths, a.fetcher,
				install.WithLogger(a.logger),
				install.WithPrompter(tui.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())),
			)

			scope := scopeOf(uninstallGlobal)
			if err := inst.Uninstall(cmd.Context(), args[0], scope, uninstallForce); err != nil {
				return fail(cmd, err)
			}

			cmd.Printf("%s Removed %s (%s scope)\n",
				SuccessStyle.Render("✓"), PkgStyle.Render(args[0]), scope)
			return nil
		},
	}
)

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallGlobal, "global", "g", false, "remove from the user-wide tree")
	uninstallCmd.Flags().BoolVarP(&uninstallForce, "force", "f", false, "skip the confirmation prompt")
}
