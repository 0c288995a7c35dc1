// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbpkg/orb/internal/fetch"
	"github.com/orbpkg/orb/internal/registry"
)

// newManifestServer serves orb.config bodies keyed by repository path:
// a request for /<repo>/raw/main/orb.config returns manifests[<repo>].
func newManifestServer(t *testing.T, manifests map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for repo, body := range manifests {
			if r.URL.Path == "/"+repo+"/raw/main/orb.config" {
				_, _ = w.Write([]byte(body))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pkgManifest(name string) string {
	return fmt.Sprintf("type=package\nname=%s\nversion=1.0.0\n", name)
}

func indexManifest(pkgURLs ...string) string {
	out := "type=repository\n"
	for i, u := range pkgURLs {
		out += fmt.Sprintf("package%d=%s\n", i, u)
	}
	return out
}

// newResolver wires a resolver against srv, with the official index at
// /official and user repositories pre-registered in a temp registry dir.
func newResolver(t *testing.T, srv *httptest.Server, userRepos ...string) *Resolver {
	t.Helper()

	dir := t.TempDir()
	for _, u := range userRepos {
		if err := os.WriteFile(filepath.Join(dir, registry.EntryName(u)), []byte(u+"\n"), 0o644); err != nil {
			t.Fatalf("seeding registry: %v", err)
		}
	}

	f := fetch.New(fetch.WithRetryPolicy(1, time.Millisecond))
	reg := registry.New(dir, srv.URL+"/official", f)
	return New(reg, f, nil)
}

func TestResolve_OfficialMatch(t *testing.T) {
	// The map is populated after the server exists so index entries can
	// reference the server's own URL.
	var srv *httptest.Server
	manifests := map[string]string{}
	srv = newManifestServer(t, manifests)
	manifests["official"] = indexManifest(srv.URL + "/pkgs/foo")
	manifests["pkgs/foo"] = pkgManifest("foo")

	r := newResolver(t, srv)

	matches, err := r.Resolve(context.Background(), "foo", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	m := matches[0]
	if m.Origin != OriginOfficial {
		t.Errorf("Origin = %q, want official", m.Origin)
	}
	if m.PackageURL != srv.URL+"/pkgs/foo" {
		t.Errorf("PackageURL = %q", m.PackageURL)
	}
	if m.Manifest == nil || m.Manifest.Version != "1.0.0" {
		t.Errorf("Manifest not carried on match: %+v", m.Manifest)
	}
}

func TestResolve_InsecureGateBlocksUserRepos(t *testing.T) {
	var srv *httptest.Server
	manifests := map[string]string{}
	srv = newManifestServer(t, manifests)
	manifests["official"] = indexManifest() // empty official index
	manifests["user"] = indexManifest(srv.URL + "/pkgs/foo")
	manifests["pkgs/foo"] = pkgManifest("foo")

	r := newResolver(t, srv, srv.URL+"/user")

	// The package exists only in a user repository: without the insecure
	// flag that is still terminal NotFound.
	_, err := r.Resolve(context.Background(), "foo", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	matches, err := r.Resolve(context.Background(), "foo", true)
	if err != nil {
		t.Fatalf("Resolve with insecure: %v", err)
	}
	if len(matches) != 1 || matches[0].Origin != OriginUnofficial {
		t.Fatalf("matches = %+v, want one unofficial match", matches)
	}
}

func TestResolve_AccumulatesAllMatchesInDiscoveryOrder(t *testing.T) {
	var srv *httptest.Server
	manifests := map[string]string{}
	srv = newManifestServer(t, manifests)
	manifests["official"] = indexManifest(srv.URL + "/pkgs/foo-official")
	manifests["user"] = indexManifest(srv.URL + "/pkgs/foo-user")
	manifests["pkgs/foo-official"] = pkgManifest("foo")
	manifests["pkgs/foo-user"] = pkgManifest("foo")

	r := newResolver(t, srv, srv.URL+"/user")

	matches, err := r.Resolve(context.Background(), "foo", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Origin != OriginOfficial || matches[1].Origin != OriginUnofficial {
		t.Errorf("match order = %q then %q, want official then unofficial",
			matches[0].Origin, matches[1].Origin)
	}
}

func TestResolve_ExactNameOnly(t *testing.T) {
	var srv *httptest.Server
	manifests := map[string]string{}
	srv = newManifestServer(t, manifests)
	manifests["official"] = indexManifest(srv.URL + "/pkgs/foobar")
	manifests["pkgs/foobar"] = pkgManifest("foobar")

	r := newResolver(t, srv)

	_, err := r.Resolve(context.Background(), "foo", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for non-exact name", err)
	}
}

func TestResolve_SkipsBrokenListing(t *testing.T) {
	var srv *httptest.Server
	manifests := map[string]string{}
	srv = newManifestServer(t, manifests)
	manifests["official"] = indexManifest(srv.URL+"/pkgs/broken", srv.URL+"/pkgs/foo")
	manifests["pkgs/foo"] = pkgManifest("foo")
	// pkgs/broken is not served: its fetch fails and must not block foo.

	r := newResolver(t, srv)

	matches, err := r.Resolve(context.Background(), "foo", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestResolve_UnreachableOfficialFails(t *testing.T) {
	srv := newManifestServer(t, map[string]string{})
	r := newResolver(t, srv)

	_, err := r.Resolve(context.Background(), "foo", false)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want a non-NotFound failure for unreachable official repo", err)
	}
}
