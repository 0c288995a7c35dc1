// SPDX-License-Identifier: MPL-2.0

package config

import (
	"path/filepath"
	"testing"

	"github.com/orbpkg/orb/internal/testutil"
)

func TestScopeOther(t *testing.T) {
	if ScopeLocal.Other() != ScopeGlobal {
		t.Error("ScopeLocal.Other() != ScopeGlobal")
	}
	if ScopeGlobal.Other() != ScopeLocal {
		t.Error("ScopeGlobal.Other() != ScopeLocal")
	}
}

func TestNewPaths(t *testing.T) {
	home := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, home))

	project := t.TempDir()
	cfg := DefaultConfig()

	p, err := NewPaths(project, cfg)
	if err != nil {
		t.Fatalf("NewPaths: %v", err)
	}

	if p.ProjectDir != project {
		t.Errorf("ProjectDir = %q, want %q", p.ProjectDir, project)
	}
	if p.GlobalDir != filepath.Join(home, ".orb") {
		t.Errorf("GlobalDir = %q, want ~/.orb", p.GlobalDir)
	}
	if p.OfficialRepo != DefaultOfficialRepo {
		t.Errorf("OfficialRepo = %q", p.OfficialRepo)
	}
}

func TestNewPaths_EmptyProjectDirMeansCwd(t *testing.T) {
	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
	dir := t.TempDir()
	t.Cleanup(testutil.MustChdir(t, dir))

	p, err := NewPaths("", DefaultConfig())
	if err != nil {
		t.Fatalf("NewPaths: %v", err)
	}
	// Resolve symlinks on both sides: t.TempDir may sit behind one.
	got, _ := filepath.EvalSymlinks(p.ProjectDir)
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("ProjectDir = %q, want working directory %q", got, want)
	}
}

func TestNewPaths_GlobalRootOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GlobalRoot = "/srv/orb"

	p, err := NewPaths(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("NewPaths: %v", err)
	}
	if p.GlobalDir != "/srv/orb" {
		t.Errorf("GlobalDir = %q, want the configured override", p.GlobalDir)
	}
}

func TestPathsLayout(t *testing.T) {
	p := Paths{
		ProjectDir: "/work/proj",
		GlobalDir:  "/home/me/.orb",
		ConfigDir:  "/home/me/.config/orb",
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"local install root", p.InstallRoot(ScopeLocal), "/work/proj/.orb/packages"},
		{"global install root", p.InstallRoot(ScopeGlobal), "/home/me/.orb/packages"},
		{"version dir", p.VersionDir(ScopeLocal, "greet", "1.2.0"), "/work/proj/.orb/packages/greet/1.2.0"},
		{"local metadata log", p.MetadataLog(ScopeLocal, "greet"), "/work/proj/.orb/.meta/greet.log"},
		{"global metadata log", p.MetadataLog(ScopeGlobal, "greet"), "/home/me/.orb/.meta/greet.log"},
		{"repositories dir", p.RepositoriesDir(), "/home/me/.config/orb/repositories"},
		{"project manifest", p.ProjectManifest(), "/work/proj/orb.toml"},
		{"update stamp", p.UpdateStampFile(), "/home/me/.config/orb/last-update-check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != filepath.FromSlash(tt.want) {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
