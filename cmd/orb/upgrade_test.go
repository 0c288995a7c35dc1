// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/fetch"
	"github.com/orbpkg/orb/internal/selfupdate"
	"github.com/orbpkg/orb/internal/tui"
)

// newUpgradeFixture builds an Updater pointed at a stub repository that
// serves the given remote version marker.
func newUpgradeFixture(t *testing.T, remoteVersion, currentVersion string) *selfupdate.Updater {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/raw/main/version" {
			io.WriteString(w, remoteVersion+"\n")
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	paths := config.Paths{
		ProjectDir:   t.TempDir(),
		GlobalDir:    t.TempDir(),
		ConfigDir:    t.TempDir(),
		OfficialRepo: srv.URL,
	}
	f := fetch.New(fetch.WithRetryPolicy(1, 0), fetch.WithLogger(log.New(io.Discard)))
	return selfupdate.New(paths, f, currentVersion, selfupdate.WithLogger(log.New(io.Discard)))
}

func TestRunUpgrade_CheckReportsAvailability(t *testing.T) {
	var out strings.Builder
	p := upgradeParams{
		stdout:  &out,
		updater: newUpgradeFixture(t, "2.0.0", "1.0.0"),
		check:   true,
	}

	if err := runUpgrade(context.Background(), p); err != nil {
		t.Fatalf("runUpgrade: %v", err)
	}
	if !strings.Contains(out.String(), "Update available") || !strings.Contains(out.String(), "2.0.0") {
		t.Errorf("output = %q, want availability report", out.String())
	}
}

func TestRunUpgrade_CheckUpToDate(t *testing.T) {
	var out strings.Builder
	p := upgradeParams{
		stdout:  &out,
		updater: newUpgradeFixture(t, "1.0.0", "1.0.0"),
		check:   true,
	}

	if err := runUpgrade(context.Background(), p); err != nil {
		t.Fatalf("runUpgrade: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("output = %q, want up-to-date report", out.String())
	}
}

func TestRunUpgrade_UpToDateWithoutForceDoesNotPrompt(t *testing.T) {
	var out strings.Builder
	p := upgradeParams{
		stdout: &out,
		// A prompter over an empty reader: any Confirm call would error.
		prompter: tui.NewPrompter(strings.NewReader(""), io.Discard),
		updater:  newUpgradeFixture(t, "1.0.0", "1.0.0"),
	}

	if err := runUpgrade(context.Background(), p); err != nil {
		t.Fatalf("runUpgrade: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("output = %q, want up-to-date report", out.String())
	}
}

func TestRunUpgrade_DeclinedConfirmationCancels(t *testing.T) {
	var out strings.Builder
	p := upgradeParams{
		stdout:   &out,
		prompter: tui.NewPrompter(strings.NewReader("n\n"), io.Discard),
		updater:  newUpgradeFixture(t, "2.0.0", "1.0.0"),
	}

	if err := runUpgrade(context.Background(), p); err != nil {
		t.Fatalf("runUpgrade: %v", err)
	}
	if !strings.Contains(out.String(), "cancelled") {
		t.Errorf("output = %q, want cancellation notice", out.String())
	}
}
