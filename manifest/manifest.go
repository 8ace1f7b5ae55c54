// Package manifest handles quill.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a quill.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Runtime Runtime `toml:"runtime"`

	// Dir is the directory containing the quill.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Runtime configures execution behavior.
type Runtime struct {
	CachePath string `toml:"cache-path"`
	Workers   int    `toml:"workers"`
}

// Load parses a quill.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "quill.toml")
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
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Runtime.Workers <= 0 {
		m.Runtime.Workers = 1
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a quill.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "quill.toml")
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

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// CachePath returns the configured program cache location, defaulting to
// .quill/cache.db under the project root.
func (m *Manifest) CachePath() string {
	if m.Runtime.CachePath != "" {
		if filepath.IsAbs(m.Runtime.CachePath) {
			return m.Runtime.CachePath
		}
		return filepath.Join(m.Dir, m.Runtime.CachePath)
	}
	return filepath.Join(m.Dir, ".quill", "cache.db")
}
