// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	FetchFailedId Id = iota + 1
	MalformedManifestId
	ManifestMismatchId
	PackageNotFoundId
	InvalidRepositoryId
	ImportNotFoundId
	NoValidVersionId
	NotInstalledId
	CriticalRestoreFailureId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	fetchFailedIssue = &Issue{
		id: FetchFailedId,
		mdMsg: `
# Could not reach the repository!

Every fetch attempt against the repository failed.

## Common causes:
- No network connectivity
- The repository URL is wrong or the host is down
- The file moved or was deleted on the default branch

## Things you can try:
- Check your connection and retry
- Verify the repository URL opens in a browser
- If you added this repository yourself, re-check it:
~~~
$ orb repo list
~~~`,
	}

	malformedManifestIssue = &Issue{
		id: MalformedManifestId,
		mdMsg: `
# Malformed orb.config!

The manifest was fetched but could not be understood: it carries no
` + "`type=`" + ` key anywhere.

## A minimal valid package manifest:
~~~
type=package
name=my-tool
version=1.0.0
files:
"my-tool.sh" https://git.example.com/me/my-tool/raw/main/my-tool.sh
~~~

## Things you can try:
- If this is your package, add the missing type key and push
- If not, report the problem to the package author`,
	}

	manifestMismatchIssue = &Issue{
		id: ManifestMismatchId,
		mdMsg: `
# Manifest does not match!

The repository's orb.config declares a different package than the one
you asked for. Installing it anyway could put the wrong files on your
system, so orb refuses.

## Things you can try:
- Check the spelling of the package name
- Search again to see what the repository actually carries:
~~~
$ orb search <name>
~~~`,
	}

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not found!

No permitted repository carries a package with that name.

## Keep in mind:
- Only the official repository is searched by default
- User-added repositories are consulted only with ` + "`--insecure`" + `

## Things you can try:
- Check the spelling of the package name
- Search user repositories too, if you trust them:
~~~
$ orb install --insecure <name>
~~~
- Add the repository that carries the package:
~~~
$ orb repo add <url>
~~~`,
	}

	invalidRepositoryIssue = &Issue{
		id: InvalidRepositoryId,
		mdMsg: `
# Not a valid orb repository!

The URL you tried to add does not serve a parseable orb.config at its
root, so orb cannot use it as a repository.

## A repository needs, at its root on main or master:
~~~
type=repository
name=my-repo
package0=https://git.example.com/me/first-package
package1=https://git.example.com/me/second-package
~~~

## Things you can try:
- Verify the URL points at the repository root, not a subdirectory
- Open ` + "`<url>/raw/main/orb.config`" + ` in a browser and check it parses`,
	}

	importNotFoundIssue = &Issue{
		id: ImportNotFoundId,
		mdMsg: `
# Imported package not installed!

Your script imports a package that is installed neither in the project's
local tree nor globally. Bundling only inlines what is already on disk;
it never fetches.

## Things you can try:
- Install the package first:
~~~
$ orb install <name>
~~~
- Or install it globally:
~~~
$ orb install --global <name>
~~~
- Check the directive for typos: ` + "`# orb import <name> [<version>]`" + ``,
	}

	noValidVersionIssue = &Issue{
		id: NoValidVersionId,
		mdMsg: `
# No valid installed version!

The package directory exists but holds no version directory the bundler
can use: either the version you pinned is not installed, or no
subdirectory is version-shaped (like ` + "`1.2.0`" + `).

## Things you can try:
- List what is actually installed:
~~~
$ orb list
~~~
- Install the version your directive pins
- Drop the version from the directive to take the highest installed one`,
	}

	notInstalledIssue = &Issue{
		id: NotInstalledId,
		mdMsg: `
# Package not installed!

There is nothing to uninstall: the package is absent from the scope you
targeted. If the message mentions the other scope, the package lives
there instead.

## Things you can try:
- List each scope:
~~~
$ orb list
$ orb list --global
~~~
- Retarget the uninstall:
~~~
$ orb uninstall --global <name>
~~~`,
	}

	criticalRestoreFailureIssue = &Issue{
		id: CriticalRestoreFailureId,
		mdMsg: `
# Self-update left orb in an unknown state!

Overwriting the orb executable failed, and restoring the automatic
backup failed too. The binary on disk may be incomplete.

## Things you can try:
- Restore the backup by hand; its path is printed in the error above:
~~~
$ mv <backup-path> $(command -v orb)
~~~
- Or reinstall orb from scratch
- Check free disk space and permissions on the executable's directory`,
	}

	issues = map[Id]*Issue{
		fetchFailedIssue.Id():            fetchFailedIssue,
		malformedManifestIssue.Id():      malformedManifestIssue,
		manifestMismatchIssue.Id():       manifestMismatchIssue,
		packageNotFoundIssue.Id():        packageNotFoundIssue,
		invalidRepositoryIssue.Id():      invalidRepositoryIssue,
		importNotFoundIssue.Id():         importNotFoundIssue,
		noValidVersionIssue.Id():         noValidVersionIssue,
		notInstalledIssue.Id():           notInstalledIssue,
		criticalRestoreFailureIssue.Id(): criticalRestoreFailureIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
