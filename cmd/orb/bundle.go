// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/orbpkg/orb/internal/bundler"
)

// bundleCmd expands import directives in a script into one shippable file.
var bundleCmd = &cobra.Command{
	Use:   "bundle <script> [output]",
	Short: "Expand a script's imports into a single self-contained file",
	Long: `Read a shell script and replace every '# orb import <name> [<version>]'
line with the imported package's installed content, local tree first,
then global. The result is written executable; the default output for
script.sh is script_bundled.sh.

Expansion is single-pass: imports inside imported packages are not
expanded in turn.`,
	Example: `  orb bundle deploy.sh
  orb bundle deploy.sh dist/deploy.sh`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true

		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}

		output := ""
		if len(args) > 1 {
			output = args[1]
		}
		if output == "" {
			output = bundler.DefaultOutputPath(args[0])
		}

		if err := a.bundler().Bundle(cmd.Context(), args[0], output); err != nil {
			return fail(cmd, err)
		}

		cmd.Printf("%s Wrote %s\n", SuccessStyle.Render("✓"), PkgStyle.Render(output))
		return nil
	},
}
