// Package config holds the parsed Settings a noid session opens against.
// It defines the Settings shape and its defaults, and Load reads a YAML
// settings file and merges it over those defaults. CLI flags are parsed by
// the thin CLI front end, not here.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/imdario/mergo"
	yaml "github.com/jesseduffield/yaml"

	"github.com/cdl-noid/noid/pkg/noiderr"
)

// Backend names a pluggable store.Store implementation.
type Backend string

const (
	BackendBolt   Backend = "bolt"
	BackendSQLite Backend = "sqlite"
	BackendXML    Backend = "xml"
	BackendMemory Backend = "memory"
)

// Settings is the parsed, merged configuration a session opens with. It
// never itself reads argv, and Load is the only place it reads a config
// file from disk.
type Settings struct {
	// DataDir is the root directory holding one subdirectory per database,
	// "<data_dir>/<db_name>/".
	DataDir string `yaml:"dataDir,omitempty"`

	// DefaultBackend names which store.Store implementation session Open
	// and Create use. The backend is not recorded in a database's admin
	// state, so an existing database must be opened with the same backend
	// it was created with.
	DefaultBackend Backend `yaml:"defaultBackend,omitempty"`

	// DefaultPRNG is the PRNG name recorded as R/generator_random for new
	// random-mode minters. Only "lcg48" (the drand48-compatible generator)
	// is implemented.
	DefaultPRNG string `yaml:"defaultPrng,omitempty"`

	// PersistentConnections enables the optional session-reuse mode:
	// close() on an open path becomes a no-op until unpersist.
	PersistentConnections bool `yaml:"persistentConnections,omitempty"`

	// Debug lowers the session logger's level from Info to Debug; the
	// logger writes to the database's log file either way.
	Debug bool `yaml:"debug,omitempty"`

	// Contact is the default contact string create() stamps into new
	// circulation records when the caller doesn't override it per-call.
	Contact string `yaml:"contact,omitempty"`
}

// Default returns the built-in defaults.
func Default() Settings {
	return Settings{
		DataDir:               defaultDataDir(),
		DefaultBackend:        BackendBolt,
		DefaultPRNG:           "lcg48",
		PersistentConnections: false,
		Debug:                 false,
	}
}

func defaultDataDir() string {
	if envDir := os.Getenv("NOID_DATA_DIR"); envDir != "" {
		return envDir
	}
	dirs := xdg.New("", "noid")
	return dirs.DataHome()
}

// Load reads a YAML settings file at path, merging it over Default(): an
// absent file yields plain defaults rather than an error, since a first
// run has nothing to load yet.
func Load(path string) (Settings, error) {
	settings := Default()
	if path == "" {
		return settings, nil
	}

	content, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return Settings{}, noiderr.Wrap(noiderr.KindConfig, err)
	}

	var fromFile Settings
	if err := yaml.Unmarshal(content, &fromFile); err != nil {
		return Settings{}, noiderr.New(noiderr.KindConfig, "parsing %s: %s", path, err)
	}
	if err := mergo.Merge(&settings, fromFile, mergo.WithOverride); err != nil {
		return Settings{}, noiderr.Wrap(noiderr.KindConfig, err)
	}
	return settings, nil
}

// DBPath returns the directory a database named name lives in, under
// DataDir.
func (s Settings) DBPath(name string) string {
	return filepath.Join(s.DataDir, name)
}

// Validate checks the ambient config concerns: a missing data directory,
// or one that can't be created/written to.
func (s Settings) Validate() error {
	if s.DataDir == "" {
		return noiderr.New(noiderr.KindConfig, "data_dir is not set")
	}
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return noiderr.New(noiderr.KindConfig, "data_dir %q: %s", s.DataDir, err)
	}
	return nil
}
