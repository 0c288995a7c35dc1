// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for orb.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/orbpkg/orb/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "orb",
		Short: "A package manager for shell scripts",
		Long: TitleStyle.Render("orb") + SubtitleStyle.Render(" - A package manager for shell scripts") + `

orb installs shell script packages from git-hosted repositories,
version-scoped and per-project or user-wide, and bundles your scripts
with their imports into single self-contained files.

Packages are described by plain-text orb.config manifests; the official
repository is always consulted first, and repositories you add yourself
are only searched when you explicitly allow it.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'orb init' in your project directory
  2. Install packages with 'orb install <name>'
  3. Import them in scripts with '# orb import <name>'
  4. Ship one file with 'orb bundle my-script.sh'

` + SubtitleStyle.Render("Examples:") + `
  orb search greet          Find the greet package
  orb install greet         Install greet into ./.orb
  orb install -g greet      Install greet user-wide
  orb bundle deploy.sh      Expand imports into deploy_bundled.sh
  orb repo add <url>        Register a repository you trust`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <config-dir>/orb/config.toml)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(newUpgradeCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		dispatchUpdateCheck(cmd)
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// dispatchUpdateCheck fires the advisory background update check. It is
// skipped for the upgrade command itself, which performs its own explicit
// check, and whenever the app cannot even be constructed: this path must
// never produce an error the user has to see.
func dispatchUpdateCheck(cmd *cobra.Command) {
	if cmd.Name() == "upgrade" {
		return
	}
	a, err := newApp()
	if err != nil || !a.cfg.UpdateCheck {
		return
	}
	a.updater().MaybeCheckInBackground(context.Background())
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
