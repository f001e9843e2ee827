package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "ruslox.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "0.1.0"
entry = "scripts/start.lox"

[vm]
stack-capacity = 512
frame-capacity = 128
trace = true

[image]
output = "demo.rslx"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Project.Name != "demo" || m.Project.Version != "0.1.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if m.VM.StackCapacity != 512 || m.VM.FrameCapacity != 128 || !m.VM.Trace {
		t.Errorf("vm = %+v", m.VM)
	}
	if m.EntryPath() != filepath.Join(m.Dir, "scripts/start.lox") {
		t.Errorf("EntryPath = %s", m.EntryPath())
	}
	if m.OutputPath() != filepath.Join(m.Dir, "demo.rslx") {
		t.Errorf("OutputPath = %s", m.OutputPath())
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Project.Entry != "main.lox" {
		t.Errorf("default entry = %q, want main.lox", m.Project.Entry)
	}
	if m.Image.Output != "demo.rslx" {
		t.Errorf("default output = %q, want demo.rslx", m.Image.Output)
	}
	if m.VM.StackCapacity != 0 || m.VM.FrameCapacity != 0 {
		t.Errorf("vm capacities should default to zero (VM picks its own): %+v", m.VM)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "not [valid toml")
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[project]
name = "nested"
`)
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Fatal("manifest not found")
	}
	if m.Project.Name != "nested" {
		t.Errorf("name = %q, want nested", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("expected nil manifest, got %+v", m)
	}
}
