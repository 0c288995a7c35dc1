// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/orbpkg/orb/internal/bundler"
	"github.com/orbpkg/orb/internal/fetch"
	"github.com/orbpkg/orb/internal/install"
	"github.com/orbpkg/orb/internal/issue"
	"github.com/orbpkg/orb/internal/manifest"
	"github.com/orbpkg/orb/internal/registry"
	"github.com/orbpkg/orb/internal/resolve"
	"github.com/orbpkg/orb/internal/selfupdate"
)

// issueFor maps a failure to its registered guidance, nil when none fits.
func issueFor(err error) *issue.Issue {
	switch {
	case errors.Is(err, resolve.ErrNotFound):
		return issue.Get(issue.PackageNotFoundId)
	case errors.Is(err, install.ErrManifestMismatch):
		return issue.Get(issue.ManifestMismatchId)
	case errors.Is(err, install.ErrNotInstalled):
		return issue.Get(issue.NotInstalledId)
	case errors.Is(err, registry.ErrInvalidRepository):
		return issue.Get(issue.InvalidRepositoryId)
	case errors.Is(err, bundler.ErrImportNotFound):
		return issue.Get(issue.ImportNotFoundId)
	case errors.Is(err, bundler.ErrNoValidVersion):
		return issue.Get(issue.NoValidVersionId)
	case errors.Is(err, manifest.ErrMalformed):
		return issue.Get(issue.MalformedManifestId)
	case errors.Is(err, selfupdate.ErrCriticalRestore):
		return issue.Get(issue.CriticalRestoreFailureId)
	}

	var fe *fetch.Error
	if errors.As(err, &fe) {
		return issue.Get(issue.FetchFailedId)
	}
	return nil
}

// reportError prints the failure and, when guidance is registered for it,
// the rendered remediation text. User-declined prompts are reported bare:
// the user knows what they just did.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	if errors.Is(err, install.ErrAborted) {
		return
	}
	iss := issueFor(err)
	if iss == nil {
		return
	}
	if md, renderErr := iss.Render("auto"); renderErr == nil {
		fmt.Fprintln(w, md)
	}
}

// fail is the uniform RunE error path: report, then signal exit code 1
// without cobra re-printing the error.
func fail(cmd *cobra.Command, err error) error {
	reportError(cmd.ErrOrStderr(), err)
	return &ExitError{Code: 1, Err: err}
}
