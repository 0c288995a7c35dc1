// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/fetch"
)

func newMarkerServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestUpdater(t *testing.T, officialRepo, currentVersion string) *Updater {
	t.Helper()
	paths := config.Paths{
		ProjectDir:   t.TempDir(),
		GlobalDir:    t.TempDir(),
		ConfigDir:    t.TempDir(),
		OfficialRepo: officialRepo,
	}
	f := fetch.New(
		fetch.WithRetryPolicy(1, 0),
		fetch.WithLogger(log.New(io.Discard)),
	)
	return New(paths, f, currentVersion, WithLogger(log.New(io.Discard)))
}

// fakeExecutable points the osExecutable seam at a fresh fake binary and
// returns its path.
func fakeExecutable(t *testing.T, content string) string {
	t.Helper()
	exe := filepath.Join(t.TempDir(), "orb")
	if err := os.WriteFile(exe, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}

	orig := osExecutable
	osExecutable = func() (string, error) { return exe, nil }
	t.Cleanup(func() { osExecutable = orig })
	return exe
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		current string
		want    bool
	}{
		{"same version", "1.2.0\n", "1.2.0", false},
		{"different version", "1.3.0\n", "1.2.0", true},
		{"remote behind still counts", "1.1.0\n", "1.2.0", true},
		{"empty marker means no update known", "", "1.2.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newMarkerServer(t, map[string]string{"/raw/main/version": tt.remote})
			u := newTestUpdater(t, srv.URL, tt.current)

			res, err := u.Check(context.Background())
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if res.UpdateAvailable != tt.want {
				t.Errorf("UpdateAvailable = %v, want %v (remote %q, current %q)",
					res.UpdateAvailable, tt.want, tt.remote, tt.current)
			}
		})
	}
}

func TestCheck_MasterFallback(t *testing.T) {
	srv := newMarkerServer(t, map[string]string{"/raw/master/version": "2.0.0\n"})
	u := newTestUpdater(t, srv.URL, "1.0.0")

	res, err := u.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.RemoteVersion != "2.0.0" {
		t.Errorf("RemoteVersion = %q, want 2.0.0 from master", res.RemoteVersion)
	}
}

func TestUpdate(t *testing.T) {
	srv := newMarkerServer(t, map[string]string{
		"/raw/main/version": "2.0.0\n",
		"/raw/main/" + remoteBinaryPath(): "new binary",
	})
	u := newTestUpdater(t, srv.URL, "1.0.0")
	exe := fakeExecutable(t, "old binary")

	if err := u.Update(context.Background(), false); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := os.ReadFile(exe)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new binary" {
		t.Errorf("executable = %q, want the fetched binary", got)
	}

	backups, err := filepath.Glob(exe + ".backup-*")
	if err != nil || len(backups) != 1 {
		t.Fatalf("backups = %v (err %v), want exactly one", backups, err)
	}
	old, err := os.ReadFile(backups[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(old) != "old binary" {
		t.Errorf("backup = %q, want the previous binary", old)
	}
}

func TestUpdate_UpToDateWithoutForce(t *testing.T) {
	srv := newMarkerServer(t, map[string]string{"/raw/main/version": "1.0.0\n"})
	u := newTestUpdater(t, srv.URL, "1.0.0")

	err := u.Update(context.Background(), false)
	if !errors.Is(err, ErrUpToDate) {
		t.Fatalf("error = %v, want ErrUpToDate", err)
	}
}

func TestUpdate_ForceReinstallsSameVersion(t *testing.T) {
	srv := newMarkerServer(t, map[string]string{
		"/raw/main/version": "1.0.0\n",
		"/raw/main/" + remoteBinaryPath(): "same version, fresh bytes",
	})
	u := newTestUpdater(t, srv.URL, "1.0.0")
	exe := fakeExecutable(t, "old binary")

	if err := u.Update(context.Background(), true); err != nil {
		t.Fatalf("Update --force: %v", err)
	}
	got, _ := os.ReadFile(exe)
	if string(got) != "same version, fresh bytes" {
		t.Errorf("executable = %q, want overwritten", got)
	}
}

func TestUpdate_RestoresBackupOnWriteFailure(t *testing.T) {
	srv := newMarkerServer(t, map[string]string{
		"/raw/main/version": "2.0.0\n",
		"/raw/main/" + remoteBinaryPath(): "new binary",
	})
	u := newTestUpdater(t, srv.URL, "1.0.0")
	exe := fakeExecutable(t, "old binary")

	origWrite := writeExecutable
	writeExecutable = func(path string, data []byte, mode os.FileMode) error {
		return errors.New("disk full")
	}
	t.Cleanup(func() { writeExecutable = origWrite })

	err := u.Update(context.Background(), false)
	if err == nil {
		t.Fatal("Update succeeded despite write failure")
	}
	if errors.Is(err, ErrCriticalRestore) {
		t.Fatalf("restore should have succeeded, got %v", err)
	}

	got, readErr := os.ReadFile(exe)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(got) != "old binary" {
		t.Errorf("executable = %q, want the restored backup", got)
	}
}

func TestUpdate_CriticalWhenRestoreAlsoFails(t *testing.T) {
	srv := newMarkerServer(t, map[string]string{
		"/raw/main/version": "2.0.0\n",
		"/raw/main/" + remoteBinaryPath(): "new binary",
	})
	u := newTestUpdater(t, srv.URL, "1.0.0")
	fakeExecutable(t, "old binary")

	origWrite := writeExecutable
	writeExecutable = func(string, []byte, os.FileMode) error { return errors.New("disk full") }
	t.Cleanup(func() { writeExecutable = origWrite })

	origRename := renameFile
	renameFile = func(string, string) error { return errors.New("device gone") }
	t.Cleanup(func() { renameFile = origRename })

	err := u.Update(context.Background(), false)
	if !errors.Is(err, ErrCriticalRestore) {
		t.Fatalf("error = %v, want ErrCriticalRestore", err)
	}
}

func TestMarkCheckDue(t *testing.T) {
	u := newTestUpdater(t, "http://unused.invalid", "1.0.0")
	stamp := u.paths.UpdateStampFile()

	if !u.markCheckDue() {
		t.Fatal("first call should be due")
	}
	if _, err := os.Stat(stamp); err != nil {
		t.Fatalf("stamp file missing after due check: %v", err)
	}

	if u.markCheckDue() {
		t.Error("second immediate call should be gated")
	}

	old := time.Now().Add(-8 * 24 * time.Hour)
	if err := os.Chtimes(stamp, old, old); err != nil {
		t.Fatal(err)
	}
	if !u.markCheckDue() {
		t.Error("call after the interval should be due again")
	}
}
