// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/install"
)

var (
	listGlobal bool

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List installed packages and their versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp()
			if err != nil {
				return fail(cmd, err)
			}

			scope := scopeOf(listGlobal)
			packages, err := a.installer().List(scope)
			if err != nil {
				return fail(cmd, err)
			}

			printListing(cmd.OutOrStdout(), scope, packages)
			return nil
		},
	}
)

func init() {
	listCmd.Flags().BoolVarP(&listGlobal, "global", "g", false, "list the user-wide tree instead of the project's")
}

func printListing(w io.Writer, scope config.Scope, packages []install.Installed) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Installed packages (%s scope)", scope)))
	if len(packages) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  (none)"))
		return
	}
	for _, pkg := range packages {
		fmt.Fprintf(w, "  %s %s\n",
			PkgStyle.Render(pkg.Name), strings.Join(pkg.Versions, ", "))
	}
}
