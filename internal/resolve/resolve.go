// SPDX-License-Identifier: MPL-2.0

// Package resolve maps package names to candidate repositories.
//
// The official repository is always searched first. User repositories are
// consulted only when the caller explicitly allows insecure sources; a
// package that exists only in a user repository is NotFound otherwise.
// Every candidate manifest is fetched fresh on every resolution — there is
// no cross-call cache to go stale.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/orbpkg/orb/internal/fetch"
	"github.com/orbpkg/orb/internal/manifest"
	"github.com/orbpkg/orb/internal/registry"
)

// ErrNotFound is returned when no permitted repository carries the
// package. When insecure repositories were not consulted this is terminal
// even if the package exists in one of them.
var ErrNotFound = errors.New("package not found in any permitted repository")

// Origin says which kind of repository a match came from.
type Origin string

const (
	// OriginOfficial marks a match from the official repository.
	OriginOfficial Origin = "official"
	// OriginUnofficial marks a match from a user-added repository.
	OriginUnofficial Origin = "unofficial"
)

type (
	// Match is one repository that carries the requested package. A name
	// may legitimately exist in several repositories; callers receiving
	// multiple matches must ask the user for an explicit selection.
	Match struct {
		Origin     Origin
		RepoURL    string // repository the package was discovered through
		PackageURL string // the package's own repository URL
		Manifest   *manifest.Manifest
	}

	// Resolver searches the registry's repositories for packages.
	Resolver struct {
		registry *registry.Registry
		fetcher  *fetch.Fetcher
		logger   *log.Logger
	}
)

// New creates a Resolver over the given registry and fetcher.
func New(reg *registry.Registry, fetcher *fetch.Fetcher, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{registry: reg, fetcher: fetcher, logger: logger}
}

// Resolve returns every repository carrying a package named name, in
// discovery order: official first, then registered user repositories in
// registry order. User repositories are consulted only when allowInsecure
// is set. Returns ErrNotFound when no permitted repository matches.
func (r *Resolver) Resolve(ctx context.Context, name string, allowInsecure bool) ([]Match, error) {
	matches, err := r.searchRepo(ctx, r.registry.Official(), OriginOfficial, name)
	if err != nil {
		return nil, err
	}

	if allowInsecure {
		repos, err := r.registry.List()
		if err != nil {
			return nil, fmt.Errorf("listing user repositories: %w", err)
		}
		for _, repoURL := range repos {
			found, err := r.searchRepo(ctx, repoURL, OriginUnofficial, name)
			if err != nil {
				return nil, err
			}
			matches = append(matches, found...)
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return matches, nil
}

// searchRepo scans one repository index for packages named name. Candidate
// packages whose index entry cannot be fetched or parsed are skipped with a
// warning: one broken listing must not block the rest of the search.
func (r *Resolver) searchRepo(ctx context.Context, repoURL string, origin Origin, name string) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index, err := r.fetchManifest(ctx, repoURL)
	if err != nil {
		// An unreachable user repository is skipped; the official
		// repository being unreachable fails the whole resolution.
		if origin == OriginOfficial {
			return nil, fmt.Errorf("searching official repository: %w", err)
		}
		r.logger.Warn("skipping unreachable repository", "repo", repoURL, "err", err)
		return nil, nil
	}

	var matches []Match
	for _, pkgURL := range index.PackageURLs() {
		m, err := r.fetchManifest(ctx, pkgURL)
		if err != nil {
			r.logger.Warn("skipping unreadable package listing",
				"repo", repoURL, "package", pkgURL, "err", err)
			continue
		}
		if !m.IsPackage() || m.Name != name {
			continue
		}
		matches = append(matches, Match{
			Origin:     origin,
			RepoURL:    repoURL,
			PackageURL: pkgURL,
			Manifest:   m,
		})
	}
	return matches, nil
}

// fetchManifest retrieves and parses a repository's orb.config with branch
// fallback.
func (r *Resolver) fetchManifest(ctx context.Context, repoURL string) (*manifest.Manifest, error) {
	body, err := r.fetcher.FetchFallback(ctx, repoURL, manifest.FileName)
	if err != nil {
		return nil, err
	}
	return manifest.Parse(string(body))
}
