// SPDX-License-Identifier: MPL-2.0

// Package registry tracks the repositories orb resolves packages from.
//
// There is exactly one official repository, fixed by configuration. User
// repositories are opt-in ("insecure"): each is persisted as a single file
// in the registry directory, named from the last path segment of its URL
// and holding the URL string. Entries are created by an explicit add and
// never removed automatically.
package registry

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"

	"github.com/orbpkg/orb/internal/fetch"
	"github.com/orbpkg/orb/internal/manifest"
)

// ErrInvalidRepository is returned when a candidate repository has no
// fetchable orb.config or its manifest lacks a type key.
var ErrInvalidRepository = errors.New("invalid repository: no valid orb.config manifest")

// Registry knows the official repository and every user-added one.
type Registry struct {
	dir      string
	official string
	fetcher  *fetch.Fetcher
}

// New creates a Registry persisting user repositories under dir, with the
// given official repository URL.
func New(dir, officialRepo string, fetcher *fetch.Fetcher) *Registry {
	return &Registry{
		dir:      dir,
		official: officialRepo,
		fetcher:  fetcher,
	}
}

// Official returns the official repository URL.
func (r *Registry) Official() string {
	return r.official
}

// Add validates url by fetching its orb.config (branch fallback) and
// parsing it, then persists the repository entry. An unfetchable or
// malformed manifest yields ErrInvalidRepository.
func (r *Registry) Add(ctx context.Context, url string) error {
	body, err := r.fetcher.FetchFallback(ctx, url, manifest.FileName)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRepository, url, err)
	}

	if _, err := manifest.Parse(string(body)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRepository, url, err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	entry := filepath.Join(r.dir, EntryName(url))
	if err := os.WriteFile(entry, []byte(url+"\n"), 0o644); err != nil {
		return fmt.Errorf("persisting repository entry: %w", err)
	}
	return nil
}

// List returns the registered user repository URLs in filesystem
// enumeration order. The order is not guaranteed stable; resolution
// searches exhaustively, so position never matters.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading registry directory: %w", err)
	}

	var urls []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading repository entry %s: %w", e.Name(), err)
		}
		if url := strings.TrimSpace(string(data)); url != "" {
			urls = append(urls, url)
		}
	}
	return urls, nil
}

// EntryName derives the persisted file name for a repository URL: the last
// path segment minus any .git suffix. Segments that cannot safely name a
// file inside the registry directory (empty, ".", "..", or carrying a
// separator) fall back to a checksum of the URL.
func EntryName(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	segment := trimmed[strings.LastIndex(trimmed, "/")+1:]
	segment = strings.TrimSuffix(segment, ".git")
	if segment == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, `\`) {
		return fmt.Sprintf("repo-%08x", crc32.ChecksumIEEE([]byte(url)))
	}
	return segment
}
