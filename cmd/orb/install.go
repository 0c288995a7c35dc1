// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/install"
	"github.com/orbpkg/orb/internal/resolve"
	"github.com/orbpkg/orb/internal/tui"
)

var (
	installGlobal   bool
	installInsecure bool

	installCmd = &cobra.Command{
		Use:   "install <package> [version]",
		Short: "Install a package into the project or user-wide tree",
		Long: `Install a package into the project's .orb tree, or user-wide with
--global.

Only the official repository is searched unless --insecure also admits
the repositories you added with 'orb repo add'. When several permitted
repositories carry the package you pick one interactively.

A local install records the package in the project's orb.toml.`,
		Example: `  orb install greet
  orb install greet 2.1.0
  orb install --global greet
  orb install --insecure greet`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp()
			if err != nil {
				return fail(cmd, err)
			}

			version := ""
			if len(args) > 1 {
				version = args[1]
			}

			p := installParams{
				stdout:    cmd.OutOrStdout(),
				resolver:  a.resolver(),
				installer: a.installer(),
				prompter:  a.prompter(),
				name:      args[0],
				version:   version,
				scope:     scopeOf(installGlobal),
				insecure:  installInsecure,
			}
			if err := runInstall(cmd.Context(), p); err != nil {
				return fail(cmd, err)
			}
			return nil
		},
	}
)

func init() {
	installCmd.Flags().BoolVarP(&installGlobal, "global", "g", false, "install user-wide instead of into the project")
	installCmd.Flags().BoolVar(&installInsecure, "insecure", false, "also search repositories added with 'orb repo add'")
}

// installParams bundles the dependencies and flags for the install
// command, enabling the core logic in runInstall to be tested without a
// real Cobra command.
type installParams struct {
	stdout    io.Writer
	resolver  *resolve.Resolver
	installer *install.Installer
	prompter  *tui.Prompter
	name      string
	version   string
	scope     config.Scope
	insecure  bool
}

// runInstall resolves, disambiguates, and installs one package.
//
// Flow:
//  1. Resolve the name against the permitted repositories.
//  2. With more than one match, ask the user to pick; there is no
//     implicit default, declining aborts.
//  3. Install from the chosen repository.
func runInstall(ctx context.Context, p installParams) error {
	matches, err := p.resolver.Resolve(ctx, p.name, p.insecure)
	if err != nil {
		return err
	}

	chosen := matches[0]
	if len(matches) > 1 {
		options := make([]string, len(matches))
		for i, m := range matches {
			options[i] = fmt.Sprintf("%s (%s)", m.PackageURL, m.Origin)
		}
		idx, err := p.prompter.ChooseIndex(
			fmt.Sprintf("Several repositories carry %q:", p.name), options)
		if err != nil {
			return err
		}
		chosen = matches[idx]
	}

	got, err := p.installer.Install(ctx, install.Request{
		Name:      p.name,
		Version:   p.version,
		Scope:     p.scope,
		SourceURL: chosen.PackageURL,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "%s Installed %s %s (%s scope)\n",
		SuccessStyle.Render("✓"), PkgStyle.Render(got.Name), got.Version, got.Scope)
	if len(got.FailedFiles) > 0 {
		fmt.Fprintf(p.stdout, "%s %d file(s) could not be fetched and are missing: %v\n",
			WarningStyle.Render("!"), len(got.FailedFiles), got.FailedFiles)
	}
	return nil
}
