// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/orbpkg/orb/internal/selfupdate"
	"github.com/orbpkg/orb/internal/tui"
)

// upgradeParams bundles the dependencies and flags for the upgrade
// command, enabling the core logic in runUpgrade to be tested without a
// real Cobra command or network access.
type upgradeParams struct {
	stdout   io.Writer
	updater  *selfupdate.Updater
	prompter *tui.Prompter
	check    bool // --check mode: report availability without installing
	force    bool // --force flag: overwrite even when versions match
	yes      bool // --yes flag: skip confirmation prompt
}

// newUpgradeCommand creates the `orb upgrade` command, which replaces the
// running binary with the official repository's current one.
func newUpgradeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Update orb itself from the official repository",
		Long: `Update orb to the version published in the official repository.

Versions are compared by plain string equality against the remote
version marker: any difference counts as an available update. The
previous binary is kept beside the new one as a timestamped backup.`,
		Example: `  # Check without installing
  orb upgrade --check

  # Upgrade, skipping the confirmation prompt
  orb upgrade --yes

  # Reinstall even when the versions already match
  orb upgrade --force --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			a, err := newApp()
			if err != nil {
				return fail(cmd, err)
			}

			checkFlag, _ := cmd.Flags().GetBool("check")
			forceFlag, _ := cmd.Flags().GetBool("force")
			yesFlag, _ := cmd.Flags().GetBool("yes")

			p := upgradeParams{
				stdout:   cmd.OutOrStdout(),
				updater:  a.updater(),
				prompter: tui.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
				check:    checkFlag,
				force:    forceFlag,
				yes:      yesFlag,
			}
			if err := runUpgrade(cmd.Context(), p); err != nil {
				return fail(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("check", false, "check for an available update without installing")
	cmd.Flags().Bool("force", false, "overwrite the binary even when the versions match")
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

// runUpgrade is the core upgrade logic, separated from Cobra for
// testability. All user-facing output goes through p.stdout.
//
// Flow:
//  1. Fetch the remote version marker and compare by string equality.
//  2. If --check, report and return.
//  3. If up-to-date and not --force, report and return.
//  4. Confirm with the user (unless --yes), back up, and overwrite.
func runUpgrade(ctx context.Context, p upgradeParams) error {
	res, err := p.updater.Check(ctx)
	if err != nil {
		return fmt.Errorf("checking for update: %w", err)
	}

	if p.check {
		if res.UpdateAvailable {
			fmt.Fprintf(p.stdout, "Update available: %s (current: %s)\n",
				PkgStyle.Render(res.RemoteVersion), res.CurrentVersion)
		} else {
			fmt.Fprintf(p.stdout, "%s orb %s is up to date\n",
				SuccessStyle.Render("✓"), res.CurrentVersion)
		}
		return nil
	}

	if !res.UpdateAvailable && !p.force {
		fmt.Fprintf(p.stdout, "%s orb %s is up to date\n",
			SuccessStyle.Render("✓"), res.CurrentVersion)
		return nil
	}

	if !p.yes {
		target := res.RemoteVersion
		if target == "" {
			target = "the published version"
		}
		ok, err := p.prompter.Confirm(fmt.Sprintf("Replace orb %s with %s?", res.CurrentVersion, target))
		if err != nil && !errors.Is(err, tui.ErrNoSelection) {
			return err
		}
		if !ok {
			fmt.Fprintln(p.stdout, "Upgrade cancelled.")
			return nil
		}
	}

	if err := p.updater.Update(ctx, p.force); err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "%s Updated to %s\n",
		SuccessStyle.Render("✓"), PkgStyle.Render(res.RemoteVersion))
	return nil
}
