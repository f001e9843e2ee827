// Package manifest handles ruslox.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a ruslox.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	VM      VMConfig    `toml:"vm"`
	Image   ImageConfig `toml:"image"`

	// Dir is the directory containing the ruslox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// VMConfig tunes the virtual machine.
type VMConfig struct {
	StackCapacity int  `toml:"stack-capacity"`
	FrameCapacity int  `toml:"frame-capacity"`
	Trace         bool `toml:"trace"`
}

// ImageConfig configures compiled image output.
type ImageConfig struct {
	Output string `toml:"output"`
}

// Load parses a ruslox.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "ruslox.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Project.Entry == "" {
		m.Project.Entry = "main.lox"
	}
	if m.Image.Output == "" {
		m.Image.Output = m.Project.Name + ".rslx"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a ruslox.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "ruslox.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the configured entry script.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Project.Entry)
}

// OutputPath returns the absolute path of the configured image output.
func (m *Manifest) OutputPath() string {
	return filepath.Join(m.Dir, m.Image.Output)
}
