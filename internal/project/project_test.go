// SPDX-License-Identifier: MPL-2.0

package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUpsert_CreatesFromSkeleton(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orb.toml")

	if err := Upsert(path, "string-utils", "1.2.0"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Package.Name != "my-project" || f.Package.Version != "0.1.0" {
		t.Errorf("skeleton package = %+v", f.Package)
	}
	if f.Dependencies["string-utils"] != "1.2.0" {
		t.Errorf("dependency = %q, want 1.2.0", f.Dependencies["string-utils"])
	}
}

func TestUpsert_OverwritesExistingEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orb.toml")

	if err := Upsert(path, "foo", "1.0.0"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := Upsert(path, "foo", "2.0.0"); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Dependencies["foo"] != "2.0.0" {
		t.Errorf("dependency = %q, want 2.0.0", f.Dependencies["foo"])
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orb.toml")

	if err := Upsert(path, "foo", "1.0.0"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := Remove(path, "foo"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := f.Dependencies["foo"]; ok {
		t.Error("dependency still present after Remove")
	}
}

func TestRemove_MissingManifestIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orb.toml")
	if err := Remove(path, "foo"); err != nil {
		t.Fatalf("Remove on missing manifest: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Remove created a manifest")
	}
}

func TestLoad_PreservesUserFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orb.toml")
	content := "[package]\nname = \"deploy-scripts\"\nversion = \"3.1.0\"\nlicense = \"MIT\"\n\n[dependencies]\nfoo = \"1.0.0\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seeding manifest: %v", err)
	}

	if err := Upsert(path, "bar", "0.2.0"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Package.Name != "deploy-scripts" || f.Package.License != "MIT" {
		t.Errorf("user fields lost: %+v", f.Package)
	}
	if f.Dependencies["foo"] != "1.0.0" || f.Dependencies["bar"] != "0.2.0" {
		t.Errorf("dependencies = %v", f.Dependencies)
	}
}
