// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the platform's home directory variable at dir and
// returns a cleanup function restoring the original value. Tests that
// exercise default global-root or config-dir resolution use this to keep
// the real home directory out of reach.
//
// Windows uses USERPROFILE; everything else uses HOME.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	switch runtime.GOOS {
	case "windows":
		return MustSetenv(t, "USERPROFILE", dir)
	default:
		return MustSetenv(t, "HOME", dir)
	}
}
