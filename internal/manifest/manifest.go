// SPDX-License-Identifier: MPL-2.0

// Package manifest parses orb.config manifest text.
//
// The format is line-oriented: a header of key=value pairs (values
// optionally quoted), then an optional "files:" section listing one
// `"relative/path" <url>` entry per line. Both package manifests and
// repository indexes use this format; a repository index carries its
// package listing as sequential packageN=<url> header keys.
package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// FileName is the canonical manifest file name for packages and
// repositories alike.
const FileName = "orb.config"

// ErrMalformed is returned when manifest text carries no type= key.
var ErrMalformed = errors.New("malformed manifest: missing type key")

var (
	keyValueRegex  = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*?)\s*$`)
	filesLineRegex = regexp.MustCompile(`^\s*files:\s*$`)
	fileEntryRegex = regexp.MustCompile(`^\s*"([^"]+)"\s+(\S+)\s*$`)

	// packageKeyRegex matches the sequential package listing keys of a
	// repository index (package0, package1, ...).
	packageKeyRegex = regexp.MustCompile(`^package(\d+)$`)
)

type (
	// FileEntry is one declared file of a package: where it lives inside
	// the install tree and where its content is fetched from.
	FileEntry struct {
		RelativePath string
		SourceURL    string
	}

	// Manifest is the parsed form of one orb.config. It describes either a
	// package or a repository index; Type distinguishes the two. Manifests
	// are transient — reparsed fresh on every fetch, never cached.
	Manifest struct {
		Type             string
		Name             string
		Description      string
		Version          string
		Author           string
		License          string
		Repository       string
		CompatibleShells []string
		Dependencies     []string // declared but not used for resolution
		BundleFiles      bool
		BundleFileName   string
		Bundlable        bool

		// Files lists declared files in manifest order.
		Files []FileEntry

		// Keys holds every recovered header key verbatim, including keys
		// placed after the files section. Repository index lookups go
		// through here.
		Keys map[string]string
	}
)

// parsePhase is the state of the two-phase line scan.
type parsePhase int

const (
	phaseHeader parsePhase = iota
	phaseFiles
)

// Parse turns manifest text into a Manifest. Text without a type= key
// anywhere is rejected with ErrMalformed.
//
// The scan starts in the header phase, matching key=value lines until a
// "files:" line switches to the files phase. A key=value line seen inside
// the files section switches back to the header phase and is recorded as a
// header key — real manifests place trailing keys after their file list
// and rely on this re-entry. Lines matching neither shape are skipped.
func Parse(text string) (*Manifest, error) {
	m := &Manifest{
		Bundlable: true,
		Keys:      map[string]string{},
	}

	phase := phaseHeader
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if phase == phaseHeader && filesLineRegex.MatchString(line) {
			phase = phaseFiles
			continue
		}

		if kv := keyValueRegex.FindStringSubmatch(line); kv != nil {
			// In the files phase this is a trailing header key: record it
			// and return to the header phase.
			phase = phaseHeader
			m.Keys[kv[1]] = unquote(kv[2])
			continue
		}

		if phase == phaseFiles {
			if fe := fileEntryRegex.FindStringSubmatch(line); fe != nil {
				m.Files = append(m.Files, FileEntry{
					RelativePath: fe[1],
					SourceURL:    unquote(fe[2]),
				})
			}
			continue
		}
		// Unparseable header line: skipped silently.
	}

	if _, ok := m.Keys["type"]; !ok {
		return nil, ErrMalformed
	}

	m.applyKeys()
	return m, nil
}

// applyKeys copies recognized header keys onto the typed fields.
func (m *Manifest) applyKeys() {
	m.Type = m.Keys["type"]
	m.Name = m.Keys["name"]
	m.Description = m.Keys["description"]
	m.Version = m.Keys["version"]
	m.Author = m.Keys["author"]
	m.License = m.Keys["license"]
	m.Repository = m.Keys["repository"]

	if v, ok := m.Keys["compatible_shells"]; ok {
		m.CompatibleShells = splitList(v)
	}
	if v, ok := m.Keys["dependencies"]; ok {
		m.Dependencies = splitList(v)
	}
	if v, ok := m.Keys["bundle_files"]; ok {
		m.BundleFiles = parseBool(v)
	}
	if v, ok := m.Keys["bundlable"]; ok {
		m.Bundlable = parseBool(v)
	}
	m.BundleFileName = m.Keys["bundle_filename"]
}

// IsPackage reports whether the manifest declares a package (as opposed to
// a repository index or garbage with a stray type key).
func (m *Manifest) IsPackage() bool {
	return m.Type == "package"
}

// BundleName returns the file name of the package's generated bundle:
// the declared bundle_filename, or <name>.sh when absent.
func (m *Manifest) BundleName() string {
	if m.BundleFileName != "" {
		return m.BundleFileName
	}
	return m.Name + ".sh"
}

// PackageURLs returns the repository index's packageN entries ordered by N.
// The keys may appear in any order in the manifest text; N is what orders
// them, and gaps are tolerated.
func (m *Manifest) PackageURLs() []string {
	type entry struct {
		n   int
		url string
	}

	var entries []entry
	for k, v := range m.Keys {
		sub := packageKeyRegex.FindStringSubmatch(k)
		if sub == nil || v == "" {
			continue
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		entries = append(entries, entry{n: n, url: v})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].n < entries[j].n })

	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.url
	}
	return urls
}

// ValidatePackage checks the package-manifest invariants: type must be
// "package" and the declared name must match the requested one.
func (m *Manifest) ValidatePackage(wantName string) error {
	if !m.IsPackage() {
		return fmt.Errorf("manifest type is %q, want \"package\"", m.Type)
	}
	if m.Name != wantName {
		return fmt.Errorf("manifest names package %q, want %q", m.Name, wantName)
	}
	return nil
}

// unquote strips one matching pair of single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// splitList splits a comma-separated list value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBool reads the boolean spellings seen in real manifests.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}
