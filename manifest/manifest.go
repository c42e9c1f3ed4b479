// Package manifest handles endo.toml node configuration.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/endojs/endo-sub013/marshal"
	"github.com/google/uuid"
)

// FileName is the name of the configuration file looked up by FindAndLoad.
const FileName = "endo.toml"

// Manifest represents an endo.toml configuration.
type Manifest struct {
	Node    Node          `toml:"node"`
	Marshal MarshalConfig `toml:"marshal"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the endo.toml file (set at load time).
	Dir string `toml:"-"`
}

// Node identifies the local node and the peers it expects to talk to.
type Node struct {
	ID    string   `toml:"id"`
	Peers []string `toml:"peers,omitempty"`
}

// MarshalConfig configures unserialization.
type MarshalConfig struct {
	CyclePolicy string `toml:"cycle-policy"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file,omitempty"`
}

// Default returns the configuration used when no endo.toml exists. The node
// id is freshly minted.
func Default() *Manifest {
	m := &Manifest{Node: Node{ID: uuid.NewString()}}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Marshal.CyclePolicy == "" {
		m.Marshal.CyclePolicy = marshal.ForbidCycles.String()
	}
	if m.Log.Verbosity == 0 {
		m.Log.Verbosity = 1
	}
}

// Load parses an endo.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
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
	if _, err := m.CyclePolicy(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an endo.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Save writes the manifest to endo.toml in dir. An existing file is left
// alone and reported as an error.
func (m *Manifest) Save(dir string) error {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	m.Dir, _ = filepath.Abs(dir)
	return nil
}

// CyclePolicy returns the configured unserialize cycle policy.
func (m *Manifest) CyclePolicy() (marshal.CyclePolicy, error) {
	return marshal.ParseCyclePolicy(m.Marshal.CyclePolicy)
}

// LogPath returns the log file path, resolved against Dir, or nil to log to
// stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.Log.File
	if !filepath.IsAbs(p) && m.Dir != "" {
		p = filepath.Join(m.Dir, p)
	}
	return &p
}
