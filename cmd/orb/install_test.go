// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/fetch"
	"github.com/orbpkg/orb/internal/install"
	"github.com/orbpkg/orb/internal/registry"
	"github.com/orbpkg/orb/internal/resolve"
	"github.com/orbpkg/orb/internal/tui"
)

// installFixture is a stub official repository carrying two package
// listings for the same name, so resolution yields two matches.
type installFixture struct {
	paths     config.Paths
	resolver  *resolve.Resolver
	installer *install.Installer
	firstURL  string
	secondURL string
}

func newInstallFixture(t *testing.T) *installFixture {
	t.Helper()

	files := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	firstURL := srv.URL + "/first"
	secondURL := srv.URL + "/second"
	files["/raw/main/orb.config"] = fmt.Sprintf(
		"type=repository\nname=official\npackage0=%s\npackage1=%s\n", firstURL, secondURL)
	files["/first/raw/main/orb.config"] = "type=package\nname=greet\nversion=1.0.0\n"
	files["/second/raw/main/orb.config"] = "type=package\nname=greet\nversion=2.0.0\n"

	paths := config.Paths{
		ProjectDir:   t.TempDir(),
		GlobalDir:    t.TempDir(),
		ConfigDir:    t.TempDir(),
		OfficialRepo: srv.URL,
	}
	logger := log.New(io.Discard)
	f := fetch.New(fetch.WithRetryPolicy(1, 0), fetch.WithLogger(logger))
	reg := registry.New(paths.RepositoriesDir(), paths.OfficialRepo, f)

	return &installFixture{
		paths:     paths,
		resolver:  resolve.New(reg, f, logger),
		installer: install.New(paths, f, install.WithLogger(logger)),
		firstURL:  firstURL,
		secondURL: secondURL,
	}
}

func TestRunInstall_MultipleMatchesUseSelection(t *testing.T) {
	fx := newInstallFixture(t)

	var out strings.Builder
	p := installParams{
		stdout:    &out,
		resolver:  fx.resolver,
		installer: fx.installer,
		prompter:  tui.NewPrompter(strings.NewReader("2\n"), io.Discard),
		name:      "greet",
		scope:     config.ScopeGlobal,
	}

	if err := runInstall(context.Background(), p); err != nil {
		t.Fatalf("runInstall: %v", err)
	}

	// The second listing declares 2.0.0; picking it installs that version.
	dir := fx.paths.VersionDir(config.ScopeGlobal, "greet", "2.0.0")
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("selected version not installed: %v", err)
	}
	source, err := os.ReadFile(dir + "/.source")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(source)) != fx.secondURL {
		t.Errorf(".source = %q, want the selected repository %q", source, fx.secondURL)
	}
	if !strings.Contains(out.String(), "Installed") {
		t.Errorf("output = %q, want success line", out.String())
	}
}

func TestRunInstall_DeclinedSelectionFails(t *testing.T) {
	fx := newInstallFixture(t)

	p := installParams{
		stdout:    io.Discard,
		resolver:  fx.resolver,
		installer: fx.installer,
		prompter:  tui.NewPrompter(strings.NewReader(""), io.Discard),
		name:      "greet",
		scope:     config.ScopeGlobal,
	}

	if err := runInstall(context.Background(), p); err == nil {
		t.Fatal("runInstall succeeded without a selection")
	}
}
