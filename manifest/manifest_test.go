package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "demo"
version = "0.1.0"

[source]
dirs = ["src", "lib"]
entry = "main"

[runtime]
cache-path = "build/cache.db"
workers = 4
`
	if err := os.WriteFile(filepath.Join(dir, "quill.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if len(m.Source.Dirs) != 2 {
		t.Errorf("source dirs count = %d, want 2", len(m.Source.Dirs))
	}
	if m.Source.Entry != "main" {
		t.Errorf("source entry = %q, want main", m.Source.Entry)
	}
	if m.Runtime.Workers != 4 {
		t.Errorf("workers = %d, want 4", m.Runtime.Workers)
	}
	if got, want := m.CachePath(), filepath.Join(m.Dir, "build", "cache.db"); got != want {
		t.Errorf("CachePath = %q, want %q", got, want)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, "quill.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "src" {
		t.Errorf("default source dirs = %v, want [src]", m.Source.Dirs)
	}
	if m.Runtime.Workers != 1 {
		t.Errorf("default workers = %d, want 1", m.Runtime.Workers)
	}
	if got, want := m.CachePath(), filepath.Join(m.Dir, ".quill", "cache.db"); got != want {
		t.Errorf("default CachePath = %q, want %q", got, want)
	}
}

func TestLoadManifest_Missing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of an empty directory succeeded")
	}
}

func TestFindAndLoad_WalksUp(t *testing.T) {
	root := t.TempDir()
	tomlContent := `
[project]
name = "nested"
`
	if err := os.WriteFile(filepath.Join(root, "quill.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(deep)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil, want manifest")
	}
	if m.Project.Name != "nested" {
		t.Errorf("project name = %q, want nested", m.Project.Name)
	}
}

func TestFindAndLoad_NotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Errorf("FindAndLoad = %+v, want nil", m)
	}
}

func TestSourceDirPaths(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "paths"

[source]
dirs = ["src"]
`
	if err := os.WriteFile(filepath.Join(dir, "quill.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	paths := m.SourceDirPaths()
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want one entry", paths)
	}
	if !filepath.IsAbs(paths[0]) {
		t.Errorf("path %q is not absolute", paths[0])
	}
}
