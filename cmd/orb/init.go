// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/orbpkg/orb/internal/project"
)

var (
	initForce bool

	// initCmd creates a new project manifest
	initCmd = &cobra.Command{
		Use:   "init [name]",
		Short: "Create an orb.toml project manifest in the current directory",
		Long: `Create an orb.toml project manifest in the current directory.

The project name defaults to the directory name. Local installs record
their dependency pins in this file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing orb.toml")
}

func runInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	a, err := newApp()
	if err != nil {
		return fail(cmd, err)
	}

	path := a.paths.ProjectManifest()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fail(cmd, fmt.Errorf("%s already exists, use --force to overwrite", path))
	}

	f := project.Skeleton()
	if len(args) > 0 {
		f.Package.Name = args[0]
	} else if base := filepath.Base(a.paths.ProjectDir); base != "." && base != string(filepath.Separator) {
		f.Package.Name = base
	}

	if err := f.Save(path); err != nil {
		return fail(cmd, err)
	}

	cmd.Printf("%s Created %s\n", SuccessStyle.Render("✓"), path)
	cmd.Println()
	cmd.Println(SubtitleStyle.Render("Next steps:"))
	cmd.Println("  1. Install packages with 'orb install <name>'")
	cmd.Println("  2. Import them in scripts with '# orb import <name>'")
	cmd.Println("  3. Ship one file with 'orb bundle <script>'")
	return nil
}
