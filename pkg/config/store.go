package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the live configuration shared by the UI, the MCP server and the
// file watcher. Every mutation is validated and persisted.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config

	// Logger function (optional)
	logFunc func(format string, args ...interface{})
}

// StoreConfig configures NewStore
type StoreConfig struct {
	// Path of config.toml; empty means Path()
	Path    string
	Reset   bool
	LogFunc func(format string, args ...interface{})
}

// NewStore loads the configuration, or writes defaults when Reset is set
func NewStore(sc StoreConfig) (*Store, error) {
	path := sc.Path
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	s := &Store{path: path, logFunc: sc.LogFunc}
	if sc.Reset {
		s.cfg = Default()
		if err := s.cfg.Save(path); err != nil {
			return nil, err
		}
		s.log("Configuration reset to defaults at %s", path)
		return s, nil
	}

	s.cfg = LoadOrDefault(path)
	return s, nil
}

func (s *Store) log(format string, args ...interface{}) {
	if s.logFunc != nil {
		s.logFunc(format, args...)
	}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Dir returns the directory holding the config file
func (s *Store) Dir() string {
	return filepath.Dir(s.path)
}

// Get returns a copy of the current configuration
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set validates, saves and installs cfg
func (s *Store) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := cfg.Save(s.path); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Update applies fn to a copy of the config and stores the result
func (s *Store) Update(fn func(*Config)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.cfg, err
	}
	if err := next.Save(s.path); err != nil {
		return s.cfg, err
	}
	s.cfg = next
	return next, nil
}

// Reset restores and saves the defaults
func (s *Store) Reset() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := Default()
	if err := def.Save(s.path); err != nil {
		return s.cfg, err
	}
	s.cfg = def
	return def, nil
}

// Reload re-reads the file. It reports whether the configuration changed.
// A missing file keeps the in-memory configuration.
func (s *Store) Reload() (Config, bool, error) {
	if _, err := os.Stat(s.path); err != nil {
		return s.Get(), false, nil
	}
	cfg, err := Load(s.path)
	if err != nil {
		return s.Get(), false, fmt.Errorf("reload: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return s.Get(), false, fmt.Errorf("reload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == s.cfg {
		return cfg, false, nil
	}
	s.cfg = cfg
	return cfg, true, nil
}
