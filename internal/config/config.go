// Package config reads proofview.toml, the per-proof configuration that
// names the proof, marks where proof harness code lives and supplies
// default input paths for the report command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"proofview/internal/diag"
	"proofview/internal/location"
)

// FileName is looked up in the proof directory.
const FileName = "proofview.toml"

// Config is the decoded proofview.toml of one proof directory.
type Config struct {
	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
	// Dir is the proof directory; relative paths resolve against it.
	Dir    string      `toml:"-"`
	Proof  ProofConfig `toml:"proof"`
	Inputs Inputs      `toml:"inputs"`

	expectedDefined bool
}

type ProofConfig struct {
	Name string `toml:"name"`
	// Root is the path prefix of proof harness and stub code, relative to
	// the source root.
	Root            string   `toml:"root"`
	ExpectedMissing []string `toml:"expected-missing-functions"`
}

// Inputs are default values for report flags.
type Inputs struct {
	Result   []string `toml:"result"`
	Coverage []string `toml:"coverage"`
	Property string   `toml:"property"`
	Loop     string   `toml:"loop"`
	Goto     string   `toml:"goto"`
	Srcdir   string   `toml:"srcdir"`
	Wkdir    string   `toml:"wkdir"`
	Blddir   string   `toml:"blddir"`
	Sources  string   `toml:"sources"`
	Tags     string   `toml:"tags"`
}

// Default is the configuration of a proof directory without a file.
func Default(dir string) *Config {
	return &Config{Dir: dir, Proof: ProofConfig{Name: filepath.Base(dir)}}
}

// Find returns the config file of the proof directory dir, if any.
func Find(dir string) (string, bool, error) {
	if dir == "" {
		dir = "."
	}
	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
	}
	return "", false, nil
}

// Load reads the config of the proof directory dir, falling back to
// Default when there is none.
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve proof directory: %w", err)
	}
	path, ok, err := Find(abs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(abs), nil
	}
	return LoadFile(path)
}

// LoadFile reads one config file. Unknown keys are rejected so that a
// misspelt option does not silently fall back to its default.
func LoadFile(path string) (*Config, error) {
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	cfg := Default(dir)
	cfg.Path = path
	cfg.Proof.Name = ""
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, diag.Wrap(diag.InMalformedInput, path, fmt.Errorf("failed to parse TOML: %w", err))
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, diag.Wrap(diag.InMalformedInput, path, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")))
	}
	if meta.IsDefined("proof", "name") && strings.TrimSpace(cfg.Proof.Name) == "" {
		return nil, diag.Wrap(diag.InMalformedInput, path, errors.New("[proof].name is empty"))
	}
	if strings.TrimSpace(cfg.Proof.Name) == "" {
		cfg.Proof.Name = filepath.Base(dir)
	}
	cfg.Proof.Root = location.Canonical(cfg.Proof.Root)
	cfg.expectedDefined = meta.IsDefined("proof", "expected-missing-functions")
	return cfg, nil
}

// ExpectedMissing returns the functions allowed to have no body, or nil
// when the file does not say. An empty list is not nil.
func (c *Config) ExpectedMissing() []string {
	if !c.expectedDefined {
		return nil
	}
	if c.Proof.ExpectedMissing == nil {
		return []string{}
	}
	return slices.Clone(c.Proof.ExpectedMissing)
}

// Resolve makes p absolute against the proof directory. Empty stays empty.
func (c *Config) Resolve(p string) string {
	if p == "" {
		return ""
	}
	return location.Join(c.Dir, p)
}

// InProofRoot reports whether a root-relative source path belongs to the
// proof harness rather than the project under verification.
func (c *Config) InProofRoot(path string) bool {
	if c.Proof.Root == "" || c.Proof.Root == "." {
		return false
	}
	return path == c.Proof.Root || location.IsChild(path, c.Proof.Root)
}
