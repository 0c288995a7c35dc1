// SPDX-License-Identifier: MPL-2.0

// Package selfupdate keeps the running orb binary current against the
// official repository.
//
// Version comparison is plain string equality against a remote marker
// file; there is no semantic ordering, and any difference counts as an
// available update. The opportunistic check is advisory only: it runs in
// a detached goroutine at most once per seven days and swallows every
// error.
package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/orbpkg/orb/internal/config"
	"github.com/orbpkg/orb/internal/fetch"
)

const (
	// versionMarkerPath is the repository-relative path of the remote
	// version marker.
	versionMarkerPath = "version"

	// checkInterval is the minimum time between opportunistic checks.
	checkInterval = 7 * 24 * time.Hour
)

var (
	// ErrUpToDate is returned by Update when no update is available and
	// force was not set.
	ErrUpToDate = errors.New("already up to date")

	// ErrCriticalRestore is returned when overwriting the executable
	// failed and restoring the backup failed too: the installation is in
	// an unknown state and the backup path is the user's way out.
	ErrCriticalRestore = errors.New("update failed and backup restore failed")

	// Test seams.
	osExecutable    = os.Executable
	timeNow         = time.Now
	writeExecutable = func(path string, data []byte, mode os.FileMode) error {
		return os.WriteFile(path, data, mode)
	}
	renameFile = os.Rename
)

type (
	// CheckResult is the outcome of one version check.
	CheckResult struct {
		CurrentVersion  string
		RemoteVersion   string
		UpdateAvailable bool
	}

	// Updater checks for and applies binary updates from the official
	// repository.
	Updater struct {
		paths   config.Paths
		fetcher *fetch.Fetcher
		current string
		logger  *log.Logger
	}

	// Option configures an Updater.
	Option func(*Updater)
)

// WithLogger sets the logger used by the opportunistic check.
func WithLogger(l *log.Logger) Option {
	return func(u *Updater) { u.logger = l }
}

// New creates an Updater for the running version.
func New(paths config.Paths, fetcher *fetch.Fetcher, currentVersion string, opts ...Option) *Updater {
	u := &Updater{
		paths:   paths,
		fetcher: fetcher,
		current: currentVersion,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Check fetches the remote version marker and compares it with the
// running version by string equality.
func (u *Updater) Check(ctx context.Context) (*CheckResult, error) {
	remote, err := u.fetchMarker(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching version marker: %w", err)
	}

	return &CheckResult{
		CurrentVersion:  u.current,
		RemoteVersion:   remote,
		UpdateAvailable: remote != "" && remote != u.current,
	}, nil
}

// Update replaces the running executable with the official repository's
// binary. Unless force is set, an up-to-date binary returns ErrUpToDate
// untouched.
//
// The current executable is first copied to a timestamped backup beside
// it; the backup is kept after a successful update. When the overwrite
// fails, the backup is moved back into place, and a failure of that
// restore too is reported as ErrCriticalRestore.
func (u *Updater) Update(ctx context.Context, force bool) error {
	res, err := u.Check(ctx)
	if err != nil {
		return err
	}
	if !res.UpdateAvailable && !force {
		return fmt.Errorf("%w: version %s", ErrUpToDate, u.current)
	}

	body, err := u.fetcher.FetchFallback(ctx, u.paths.OfficialRepo, remoteBinaryPath())
	if err != nil {
		return fmt.Errorf("fetching binary: %w", err)
	}

	exe, err := osExecutable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	current, err := os.ReadFile(exe)
	if err != nil {
		return fmt.Errorf("reading current executable: %w", err)
	}
	backup := exe + ".backup-" + timeNow().UTC().Format("20060102T150405Z")
	if err := os.WriteFile(backup, current, 0o755); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}

	if err := writeExecutable(exe, body, 0o755); err != nil {
		if restoreErr := renameFile(backup, exe); restoreErr != nil {
			return fmt.Errorf("%w: update error: %v, restore error: %v, backup kept at %s",
				ErrCriticalRestore, err, restoreErr, backup)
		}
		return fmt.Errorf("overwriting executable (backup restored): %w", err)
	}

	u.logger.Info("updated", "from", u.current, "to", res.RemoteVersion, "backup", backup)
	return nil
}

// MaybeCheckInBackground dispatches an advisory update check in a
// detached goroutine, at most once per seven days across invocations. The
// result is only logged; failures are swallowed. Callers never wait on
// it.
func (u *Updater) MaybeCheckInBackground(ctx context.Context) {
	if !u.markCheckDue() {
		return
	}

	go func() {
		res, err := u.Check(ctx)
		if err != nil {
			return
		}
		if res.UpdateAvailable {
			u.logger.Info("a newer orb is available; run `orb upgrade`",
				"current", res.CurrentVersion, "available", res.RemoteVersion)
		}
	}()
}

// markCheckDue reports whether the seven-day gate has elapsed and, when
// it has, stamps the advisory file so concurrent-enough invocations back
// off. The stamp file's modification time is the gate; its content is
// informational.
func (u *Updater) markCheckDue() bool {
	stamp := u.paths.UpdateStampFile()
	if info, err := os.Stat(stamp); err == nil {
		if timeNow().Sub(info.ModTime()) < checkInterval {
			return false
		}
	}

	if err := os.MkdirAll(filepath.Dir(stamp), 0o755); err != nil {
		return false
	}
	if err := os.WriteFile(stamp, []byte(timeNow().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return false
	}
	return true
}

// fetchMarker retrieves the version marker with branch fallback. The
// marker legitimately may be served empty by a misconfigured repository;
// the caller treats empty as "no update known".
func (u *Updater) fetchMarker(ctx context.Context) (string, error) {
	var lastErr error
	for _, branch := range []string{"main", "master"} {
		url := fetch.RawURL(u.paths.OfficialRepo, branch, versionMarkerPath)
		body, err := u.fetcher.FetchString(ctx, url)
		if err == nil {
			return strings.TrimSpace(body), nil
		}
		lastErr = err
	}
	return "", lastErr
}

// remoteBinaryPath is the repository-relative path of the binary for the
// running platform.
func remoteBinaryPath() string {
	return "dist/orb_" + runtime.GOOS + "_" + runtime.GOARCH
}
