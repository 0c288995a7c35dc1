// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scope selects between the project-relative and the user-wide install
// tree.
type Scope string

const (
	// ScopeLocal installs into the project's .orb directory and is
	// recorded in the project manifest.
	ScopeLocal Scope = "local"
	// ScopeGlobal installs into the user-wide root and never touches the
	// project manifest.
	ScopeGlobal Scope = "global"
)

// Other returns the opposite scope, used for not-installed hints.
func (s Scope) Other() Scope {
	if s == ScopeLocal {
		return ScopeGlobal
	}
	return ScopeLocal
}

const (
	// localDirName is the project-relative directory holding local
	// installs and state.
	localDirName = ".orb"
	// packagesDirName holds version-scoped package trees under a root.
	packagesDirName = "packages"
	// metaDirName holds per-package metadata logs under a root; it lives
	// beside the package trees so uninstall can remove a package's log
	// without touching its siblings.
	metaDirName = ".meta"
	// repositoriesDirName holds one file per registered user repository.
	repositoriesDirName = "repositories"
	// ProjectManifestName is the project manifest file at the project root.
	ProjectManifestName = "orb.toml"
)

// Paths is the explicit filesystem layout handed to every component.
// Nothing in orb reads install locations from process-wide state.
type Paths struct {
	// ProjectDir is the project root; the local install tree and the
	// project manifest live beneath it.
	ProjectDir string
	// GlobalDir is the user-wide orb directory (default ~/.orb).
	GlobalDir string
	// ConfigDir holds the registry and advisory state files.
	ConfigDir string
	// OfficialRepo is the official repository URL in effect.
	OfficialRepo string
}

// NewPaths builds the layout for a project directory and loaded config.
// An empty projectDir means the current working directory.
func NewPaths(projectDir string, cfg *Config) (Paths, error) {
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Paths{}, fmt.Errorf("determining working directory: %w", err)
		}
		projectDir = wd
	}

	globalDir := cfg.GlobalRoot
	if globalDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("determining home directory: %w", err)
		}
		globalDir = filepath.Join(home, localDirName)
	}

	cfgDir, err := ConfigDir()
	if err != nil {
		return Paths{}, err
	}

	return Paths{
		ProjectDir:   projectDir,
		GlobalDir:    globalDir,
		ConfigDir:    cfgDir,
		OfficialRepo: cfg.OfficialRepo,
	}, nil
}

// InstallRoot returns the version-scoped package root for a scope. A
// package foo at version 1.0.0 lives at <InstallRoot>/foo/1.0.0.
func (p Paths) InstallRoot(scope Scope) string {
	if scope == ScopeLocal {
		return filepath.Join(p.ProjectDir, localDirName, packagesDirName)
	}
	return filepath.Join(p.GlobalDir, packagesDirName)
}

// PackageDir returns the directory holding every installed version of a
// package in a scope.
func (p Paths) PackageDir(scope Scope, name string) string {
	return filepath.Join(p.InstallRoot(scope), name)
}

// VersionDir returns the install target for one (package, version) pair.
func (p Paths) VersionDir(scope Scope, name, version string) string {
	return filepath.Join(p.PackageDir(scope, name), version)
}

// MetadataLog returns the append-only install log for a (package, scope)
// pair.
func (p Paths) MetadataLog(scope Scope, name string) string {
	root := p.GlobalDir
	if scope == ScopeLocal {
		root = filepath.Join(p.ProjectDir, localDirName)
	}
	return filepath.Join(root, metaDirName, name+".log")
}

// RepositoriesDir returns the directory of registered user repositories,
// one file per repository.
func (p Paths) RepositoriesDir() string {
	return filepath.Join(p.ConfigDir, repositoriesDirName)
}

// ProjectManifest returns the path of the project manifest.
func (p Paths) ProjectManifest() string {
	return filepath.Join(p.ProjectDir, ProjectManifestName)
}

// UpdateStampFile returns the advisory timestamp file gating the
// opportunistic self-update check.
func (p Paths) UpdateStampFile() string {
	return filepath.Join(p.ConfigDir, "last-update-check")
}
