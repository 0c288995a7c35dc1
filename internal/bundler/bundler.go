// SPDX-License-Identifier: MPL-2.0

// Package bundler expands import directives in a shell script by inlining
// installed package content, producing one self-contained executable
// output.
//
// Expansion is single-pass: directives inside imported content are copied
// through literally, never expanded in turn.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/install"
	"github.com/orbpkg/orb/internal/manifest"
	"github.com/orbpkg/orb/pkg/version"
)

var (
	// ErrImportNotFound is returned when an imported package is installed
	// in neither the local nor the global tree.
	ErrImportNotFound = errors.New("imported package not installed")

	// ErrNoValidVersion is returned when a package directory exists but
	// holds no version-shaped subdirectory to pick from.
	ErrNoValidVersion = errors.New("no valid installed version")
)

// directiveRegex matches one import directive line:
// `# orb import <packageName> [<version>]`.
var directiveRegex = regexp.MustCompile(`^#\s*orb import\s+(\S+)(?:\s+(\S+))?\s*$`)

// sourceFileName mirrors the install tree's origin marker, which is never
// inlined.
const sourceFileName = ".source"

type (
	// Bundler expands scripts against one Paths layout.
	Bundler struct {
		paths  config.Paths
		logger *log.Logger
	}

	// Option configures a Bundler.
	Option func(*Bundler)
)

// WithLogger sets the logger used for the output syntax warning.
func WithLogger(l *log.Logger) Option {
	return func(b *Bundler) { b.logger = l }
}

// New creates a Bundler over the given layout.
func New(paths config.Paths, opts ...Option) *Bundler {
	b := &Bundler{paths: paths, logger: log.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefaultOutputPath derives the output path from the input:
// script.sh becomes script_bundled.sh.
func DefaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_bundled" + ext
}

// Bundle reads inputPath line by line, replaces every import directive
// with the imported package's content, and writes the executable result to
// outputPath (empty means DefaultOutputPath). Lines that are not
// directives are copied verbatim.
//
// After writing, the output is parsed as shell; a parse failure is only a
// warning since the input may never have been valid shell to begin with.
func (b *Bundler) Bundle(ctx context.Context, inputPath, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = DefaultOutputPath(inputPath)
	}

	input, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input script: %w", err)
	}

	// Non-directive lines are reproduced byte for byte, separators
	// included, so a script without directives round-trips unchanged.
	// Expansions carry their own terminators.
	lines := strings.Split(string(input), "\n")
	var out strings.Builder
	for i, line := range lines {
		sub := directiveRegex.FindStringSubmatch(line)
		if sub == nil {
			out.WriteString(line)
			if i < len(lines)-1 {
				out.WriteByte('\n')
			}
			continue
		}

		expanded, err := b.expand(sub[1], sub[2])
		if err != nil {
			return err
		}
		out.WriteString(expanded)
	}
	content := out.String()

	if err := os.WriteFile(outputPath, []byte(content), 0o755); err != nil {
		return fmt.Errorf("writing bundled script: %w", err)
	}

	if _, err := syntax.NewParser().Parse(strings.NewReader(content), filepath.Base(outputPath)); err != nil {
		b.logger.Warn("bundled output does not parse as shell", "output", outputPath, "err", err)
	}
	return nil
}

// expand returns the inlined content for one directive. The local install
// tree is searched before the global one; the first tree carrying the
// package wins and is searched exclusively. A requested version missing
// from that tree fails rather than falling through, so a local install
// never silently resolves to a global one it shadows.
func (b *Bundler) expand(name, requested string) (string, error) {
	for _, scope := range []config.Scope{config.ScopeLocal, config.ScopeGlobal} {
		pkgDir := b.paths.PackageDir(scope, name)
		versions, err := subdirNames(pkgDir)
		if err != nil || len(versions) == 0 {
			continue
		}

		picked, err := pickVersion(versions, requested)
		if err != nil {
			return "", fmt.Errorf("%w for %s in %s scope", err, name, scope)
		}
		return b.inline(filepath.Join(pkgDir, picked), name, picked)
	}

	return "", fmt.Errorf("%w: %s", ErrImportNotFound, name)
}

// pickVersion chooses among a package directory's version subdirectories.
// A requested version must be present exactly; otherwise the highest
// version-shaped name wins by dotted-numeric comparison.
func pickVersion(versions []string, requested string) (string, error) {
	if requested != "" {
		for _, v := range versions {
			if v == requested {
				return v, nil
			}
		}
		return "", ErrNoValidVersion
	}

	latest, ok := version.Latest(versions)
	if !ok {
		return "", ErrNoValidVersion
	}
	return latest, nil
}

// inline produces the replacement text for one imported package version.
// When the manifest's bundle file exists it is used verbatim; otherwise
// every regular file except the manifest copy, the source marker, and the
// bundle file is inlined behind a provenance comment, in lexical walk
// order.
func (b *Bundler) inline(dir, name, pickedVersion string) (string, error) {
	m, err := loadManifest(dir)
	if err != nil {
		return "", fmt.Errorf("reading manifest of %s@%s: %w", name, pickedVersion, err)
	}
	bundleName := m.BundleName()
	origin := name + "@" + pickedVersion

	if raw, err := os.ReadFile(filepath.Join(dir, bundleName)); err == nil {
		var out strings.Builder
		out.WriteString(install.ProvenanceHeader(origin, bundleName) + "\n")
		out.Write(raw)
		if len(raw) > 0 && raw[len(raw)-1] != '\n' {
			out.WriteByte('\n')
		}
		return out.String(), nil
	}

	var out strings.Builder
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
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

		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out.WriteString(install.ProvenanceHeader(origin, rel) + "\n")
		out.Write(raw)
		if len(raw) > 0 && raw[len(raw)-1] != '\n' {
			out.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("inlining %s@%s: %w", name, pickedVersion, err)
	}
	return out.String(), nil
}

// loadManifest parses the manifest copy inside one installed version
// directory.
func loadManifest(dir string) (*manifest.Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return nil, err
	}
	return manifest.Parse(string(raw))
}

// subdirNames returns the names of a directory's subdirectories.
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
	return names, nil
}
