// SPDX-License-Identifier: MPL-2.0

// Package install materializes packages into the version-scoped install
// tree and removes them again.
//
// An install is not transactional: individual file fetches that fail are
// logged and skipped, and the partially-populated version directory is an
// accepted terminal state. Reinstalling a (name, version) pair replaces
// the previous tree without comparison.
package install

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/fetch"
	"github.com/orbpkg/orb/internal/manifest"
	"github.com/orbpkg/orb/internal/project"
	"github.com/orbpkg/orb/internal/tui"
)

var (
	// ErrManifestMismatch is returned when the fetched manifest does not
	// declare the requested package.
	ErrManifestMismatch = errors.New("manifest does not match requested package")

	// ErrNotInstalled is returned by Uninstall when the package directory
	// is absent from the requested scope.
	ErrNotInstalled = errors.New("package not installed")

	// ErrAborted is returned when the user declines the uninstall
	// confirmation.
	ErrAborted = errors.New("aborted")
)

// sourceFileName is the origin marker persisted beside the manifest copy.
const sourceFileName = ".source"

// timeNow is a seam for the metadata log timestamp.
var timeNow = time.Now

type (
	// Request describes one install. SourceURL is the package repository
	// chosen during resolution; the installer fetches the manifest from
	// it fresh rather than trusting a previously-parsed copy.
	Request struct {
		Name      string
		Version   string // empty means the manifest's own version
		Scope     config.Scope
		SourceURL string
	}

	// InstalledPackage reports what an install produced.
	InstalledPackage struct {
		Name    string
		Version string
		Scope   config.Scope
		Dir     string

		// FailedFiles lists declared relative paths whose fetch failed.
		// The install still succeeded; these files are simply absent.
		FailedFiles []string

		// BundlePath is the synthesized package bundle, empty when the
		// manifest does not request one.
		BundlePath string
	}

	// Installed is one package of a scope's install tree, as reported by
	// List.
	Installed struct {
		Name     string
		Versions []string
	}

	// Installer performs installs and uninstalls against one Paths layout.
	Installer struct {
		paths    config.Paths
		fetcher  *fetch.Fetcher
		prompter *tui.Prompter
		logger   *log.Logger
	}

	// Option configures an Installer.
	Option func(*Installer)
)

// WithLogger sets the logger used for skipped-file warnings.
func WithLogger(l *log.Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// WithPrompter overrides the interactive prompter, useful for tests.
func WithPrompter(p *tui.Prompter) Option {
	return func(i *Installer) { i.prompter = p }
}

// New creates an Installer over the given layout and fetcher.
func New(paths config.Paths, fetcher *fetch.Fetcher, opts ...Option) *Installer {
	i := &Installer{
		paths:    paths,
		fetcher:  fetcher,
		prompter: tui.NewPrompter(nil, nil),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install fetches and materializes one package version.
//
// The manifest is fetched from the request's source repository with branch
// fallback and must declare the requested package. The target directory is
// <root>/packages/<name>/<version>; an existing tree for the same pair is
// replaced. Declared files that fail to fetch are logged and skipped. On
// success one line is appended to the package's metadata log, and a local
// install records the dependency in the project manifest.
func (i *Installer) Install(ctx context.Context, req Request) (*InstalledPackage, error) {
	body, err := i.fetcher.FetchFallback(ctx, req.SourceURL, manifest.FileName)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest for %s: %w", req.Name, err)
	}
	m, err := manifest.Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing manifest for %s: %w", req.Name, err)
	}
	if err := m.ValidatePackage(req.Name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestMismatch, err)
	}

	version := req.Version
	if version == "" {
		version = m.Version
	}
	if version == "" {
		return nil, fmt.Errorf("package %s declares no version and none was requested", req.Name)
	}

	target := i.paths.VersionDir(req.Scope, req.Name, version)
	if err := os.RemoveAll(target); err != nil {
		return nil, fmt.Errorf("clearing previous install of %s@%s: %w", req.Name, version, err)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("creating install directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(target, sourceFileName), []byte(req.SourceURL+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("writing source marker: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, manifest.FileName), body, 0o644); err != nil {
		return nil, fmt.Errorf("writing manifest copy: %w", err)
	}

	installed := &InstalledPackage{
		Name:    req.Name,
		Version: version,
		Scope:   req.Scope,
		Dir:     target,
	}

	for _, fe := range m.Files {
		dest, err := securePath(target, fe.RelativePath)
		if err != nil {
			i.logger.Warn("skipping file with unsafe path",
				"package", req.Name, "path", fe.RelativePath)
			installed.FailedFiles = append(installed.FailedFiles, fe.RelativePath)
			continue
		}
		if err := i.fetcher.FetchToFile(ctx, fe.SourceURL, dest); err != nil {
			i.logger.Warn("skipping file that failed to fetch",
				"package", req.Name, "path", fe.RelativePath, "err", err)
			installed.FailedFiles = append(installed.FailedFiles, fe.RelativePath)
		}
	}

	if m.BundleFiles {
		bundlePath, err := synthesizeBundle(target, req.Name, m.BundleName())
		if err != nil {
			return nil, fmt.Errorf("synthesizing bundle for %s: %w", req.Name, err)
		}
		installed.BundlePath = bundlePath
	}

	if err := i.appendMetadata(req.Scope, req.Name, version, req.SourceURL); err != nil {
		return nil, err
	}

	if req.Scope == config.ScopeLocal {
		if err := project.Upsert(i.paths.ProjectManifest(), req.Name, version); err != nil {
			return nil, fmt.Errorf("recording dependency: %w", err)
		}
	}

	return installed, nil
}

// Uninstall removes every installed version of a package from a scope,
// its metadata log, and (for the local scope) its project manifest entry.
// Unless force is set the user must confirm interactively. When the
// package is absent from the requested scope but present in the other,
// the error says so.
func (i *Installer) Uninstall(ctx context.Context, name string, scope config.Scope, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pkgDir := i.paths.PackageDir(scope, name)
	versions, err := subdirNames(pkgDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if other, _ := subdirNames(i.paths.PackageDir(scope.Other(), name)); len(other) > 0 {
				return fmt.Errorf("%w: %s not found in %s scope, but it is installed in %s scope",
					ErrNotInstalled, name, scope, scope.Other())
			}
			return fmt.Errorf("%w: %s", ErrNotInstalled, name)
		}
		return fmt.Errorf("reading install tree for %s: %w", name, err)
	}

	if !force {
		question := fmt.Sprintf("Remove %s (%s) from %s scope?", name, strings.Join(versions, ", "), scope)
		ok, err := i.prompter.Confirm(question)
		if err != nil && !errors.Is(err, tui.ErrNoSelection) {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}

	if err := os.RemoveAll(pkgDir); err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	if err := os.Remove(i.paths.MetadataLog(scope, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing metadata log for %s: %w", name, err)
	}

	if scope == config.ScopeLocal {
		if err := project.Remove(i.paths.ProjectManifest(), name); err != nil {
			return fmt.Errorf("removing dependency entry: %w", err)
		}
	}
	return nil
}

// List enumerates the packages installed in a scope with their versions.
// An absent install root is an empty listing, not an error.
func (i *Installer) List(scope config.Scope) ([]Installed, error) {
	root := i.paths.InstallRoot(scope)
	names, err := subdirNames(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading install root: %w", err)
	}

	out := make([]Installed, 0, len(names))
	for _, name := range names {
		versions, err := subdirNames(filepath.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("reading versions of %s: %w", name, err)
		}
		out = append(out, Installed{Name: name, Versions: versions})
	}
	return out, nil
}

// appendMetadata records one install in the package's append-only log.
func (i *Installer) appendMetadata(scope config.Scope, name, version, source string) error {
	logPath := i.paths.MetadataLog(scope, name)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening metadata log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s\t%s\t%s\n", version, source, timeNow().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending to metadata log: %w", err)
	}
	return nil
}

// synthesizeBundle concatenates every regular file of the install tree
// except the manifest copy, the source marker, and the bundle itself into
// one script, each file between provenance header and footer markers.
// Files are visited in lexical walk order. Returns the bundle path.
func synthesizeBundle(dir, pkgName, bundleName string) (string, error) {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString(fmt.Sprintf("# Generated bundle of package %s. Do not edit.\n", pkgName))

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == manifest.FileName || rel == sourceFileName || rel == bundleName {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		b.WriteString(ProvenanceHeader(pkgName, rel) + "\n")
		b.Write(content)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteString(ProvenanceFooter(pkgName, rel) + "\n")
		return nil
	})
	if err != nil {
		return "", err
	}

	bundlePath := filepath.Join(dir, bundleName)
	if err := os.WriteFile(bundlePath, []byte(b.String()), 0o755); err != nil {
		return "", err
	}
	return bundlePath, nil
}

// ProvenanceHeader marks the start of one inlined file in generated
// bundles.
func ProvenanceHeader(pkgName, rel string) string {
	return fmt.Sprintf("# >>> %s: %s", pkgName, rel)
}

// ProvenanceFooter marks the end of one inlined file in generated
// bundles.
func ProvenanceFooter(pkgName, rel string) string {
	return fmt.Sprintf("# <<< %s: %s", pkgName, rel)
}

// securePath joins rel onto root and rejects paths that escape it.
func securePath(root, rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the install directory", rel)
	}
	return filepath.Join(root, cleaned), nil
}

// subdirNames returns the sorted names of a directory's subdirectories.
// The fs.ErrNotExist from a missing dir passes through for callers to
// branch on.
func subdirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
