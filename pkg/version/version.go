// SPDX-License-Identifier: MPL-2.0

// Package version implements dotted-numeric version ordering for installed
// package directories. Components are compared numerically when both sides
// are integers (so 2.10.0 sorts above 2.9.0) and lexically otherwise.
package version

import (
	"regexp"
	"strconv"
	"strings"
)

// versionShapeRegex matches directory names that look like a version:
// at least one numeric component, optionally dot-separated with further
// numeric or alphanumeric components (e.g. "2", "2.10.0", "1.2.0-rc1").
var versionShapeRegex = regexp.MustCompile(`^\d+(\.[0-9A-Za-z\-]+)*$`)

// IsVersionShaped reports whether s can be treated as a version for
// latest-version selection.
func IsVersionShaped(s string) bool {
	return versionShapeRegex.MatchString(s)
}

// Compare orders two dotted version strings. Returns -1 if a < b, 0 if
// equal, 1 if a > b. Components are split on "." and compared numerically
// when both parse as integers; a non-numeric component on either side falls
// back to lexical comparison for that component. A version with more
// components is greater when the shared prefix is equal (1.2.0 > 1.2).
func Compare(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])

		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}

		// Non-numeric component on either side: lexical fallback.
		if as[i] != bs[i] {
			if as[i] < bs[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}

// Latest returns the highest version-shaped entry of candidates under
// Compare ordering. Entries that are not version-shaped are ignored.
// ok is false when no candidate is version-shaped.
func Latest(candidates []string) (latest string, ok bool) {
	for _, c := range candidates {
		if !IsVersionShaped(c) {
			continue
		}
		if !ok || Compare(c, latest) > 0 {
			latest = c
			ok = true
		}
	}
	return latest, ok
}
