// SPDX-License-Identifier: MPL-2.0

// Package project reads and writes the per-project manifest (orb.toml).
//
// The manifest records the project's identity and its local-scope
// dependency pins. It is created lazily from a fixed skeleton on the first
// local install; global operations never touch it.
package project

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// File is the project manifest document.
type File struct {
	Package      Package           `toml:"package"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
}

// Package holds the project's own metadata.
type Package struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description,omitempty"`
	License     string `toml:"license,omitempty"`
}

// Skeleton returns the fixed document a lazily-created manifest starts
// from.
func Skeleton() *File {
	return &File{
		Package: Package{
			Name:    "my-project",
			Version: "0.1.0",
		},
		Dependencies: map[string]string{},
	}
}

// Load reads the manifest at path. A missing file returns os.ErrNotExist
// unwrapped for the caller to branch on.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing project manifest %s: %w", path, err)
	}
	if f.Dependencies == nil {
		f.Dependencies = map[string]string{}
	}
	return &f, nil
}

// Save writes the manifest to path.
func (f *File) Save(path string) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding project manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing project manifest %s: %w", path, err)
	}
	return nil
}

// Upsert records name at version in the manifest at path, creating the
// manifest from the skeleton when absent. An existing entry is
// overwritten.
func Upsert(path, name, version string) error {
	f, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		f = Skeleton()
	} else if err != nil {
		return err
	}

	f.Dependencies[name] = version
	return f.Save(path)
}

// Remove drops the dependency entry for name. A missing manifest or a
// missing entry is not an error — there is simply nothing to remove.
func Remove(path, name string) error {
	f, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, ok := f.Dependencies[name]; !ok {
		return nil
	}
	delete(f.Dependencies, name)
	return f.Save(path)
}
