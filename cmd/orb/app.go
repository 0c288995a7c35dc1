// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/orbpkg/orb/internal/bundler"
	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/fetch"
	"github.com/orbpkg/orb/internal/install"
	"github.com/orbpkg/orb/internal/registry"
	"github.com/orbpkg/orb/internal/resolve"
	"github.com/orbpkg/orb/internal/selfupdate"
	"github.com/orbpkg/orb/internal/tui"
)

// app wires the shared dependencies of every command: loaded config, the
// filesystem layout, one fetcher, one logger. Each command constructs the
// components it needs from here instead of reaching for globals.
type app struct {
	cfg    *config.Config
	paths  config.Paths
	logger *log.Logger

	fetcher *fetch.Fetcher
}

// newApp loads configuration and builds the shared dependency set. The
// project directory is the working directory; there is no flag to point
// orb at another project.
func newApp() (*app, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return nil, err
	}

	paths, err := config.NewPaths("", cfg)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if verbose || cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	return &app{
		cfg:     cfg,
		paths:   paths,
		logger:  logger,
		fetcher: fetch.New(fetch.WithLogger(logger)),
	}, nil
}

func (a *app) registry() *registry.Registry {
	return registry.New(a.paths.RepositoriesDir(), a.paths.OfficialRepo, a.fetcher)
}

func (a *app) resolver() *resolve.Resolver {
	return resolve.New(a.registry(), a.fetcher, a.logger)
}

func (a *app) installer() *install.Installer {
	return install.New(a.paths, a.fetcher, install.WithLogger(a.logger))
}

func (a *app) bundler() *bundler.Bundler {
	return bundler.New(a.paths, bundler.WithLogger(a.logger))
}

func (a *app) updater() *selfupdate.Updater {
	return selfupdate.New(a.paths, a.fetcher, Version, selfupdate.WithLogger(a.logger))
}

func (a *app) prompter() *tui.Prompter {
	return tui.NewPrompter(nil, nil)
}

// scopeOf maps the conventional --global flag onto a Scope.
func scopeOf(global bool) config.Scope {
	if global {
		return config.ScopeGlobal
	}
	return config.ScopeLocal
}
