// Package manifest handles callisto.toml kernel configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a callisto.toml kernel configuration.
type Manifest struct {
	Kernel   Kernel   `toml:"kernel"`
	Logging  Logging  `toml:"logging"`
	DataView DataView `toml:"dataview"`

	// Dir is the directory containing the callisto.toml file (set at load time).
	Dir string `toml:"-"`
}

// Kernel contains identity fields reported in kernel_info replies.
type Kernel struct {
	Implementation        string `toml:"implementation"`
	ImplementationVersion string `toml:"implementation-version"`
	Banner                string `toml:"banner"`
}

// Logging configures the commonlog backend.
type Logging struct {
	// Verbosity maps to commonlog verbosity: 0 is warnings and up, each
	// step up adds a level.
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// DataView configures the tabular data viewer comm.
type DataView struct {
	PageSize int `toml:"page-size"`
}

// Load parses a callisto.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "callisto.toml")
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

	m.applyDefaults()
	return &m, nil
}

// Default returns the configuration used when no callisto.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Kernel.Implementation == "" {
		m.Kernel.Implementation = "callisto"
	}
	if m.Kernel.ImplementationVersion == "" {
		m.Kernel.ImplementationVersion = "0.1.0"
	}
	if m.Kernel.Banner == "" {
		m.Kernel.Banner = fmt.Sprintf("Callisto %s", m.Kernel.ImplementationVersion)
	}
	if m.DataView.PageSize <= 0 {
		m.DataView.PageSize = 100
	}
}
