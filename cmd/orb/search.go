// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchInsecure bool

	searchCmd = &cobra.Command{
		Use:   "search <package>",
		Short: "Find which repositories carry a package",
		Long: `Search the official repository (and, with --insecure, your added
repositories) for a package by exact name and show every match.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp()
			if err != nil {
				return fail(cmd, err)
			}

			matches, err := a.resolver().Resolve(cmd.Context(), args[0], searchInsecure)
			if err != nil {
				return fail(cmd, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render(fmt.Sprintf("%q is available from:", args[0])))
			for _, m := range matches {
				desc := m.Manifest.Description
				if desc == "" {
					desc = "(no description)"
				}
				fmt.Fprintf(out, "  %s %s\n    %s %s\n",
					PkgStyle.Render(m.PackageURL),
					SubtitleStyle.Render(fmt.Sprintf("[%s]", m.Origin)),
					m.Manifest.Version,
					SubtitleStyle.Render(desc))
			}
			return nil
		},
	}
)

func init() {
	searchCmd.Flags().BoolVar(&searchInsecure, "insecure", false, "also search repositories added with 'orb repo add'")
}
