package config

import (
	"fmt"
	"sync"
)

// Store holds the live configuration for a running process and hands out
// consistent snapshots. Replace swaps the whole configuration at once, so
// readers never observe a partially applied reload.
//
// For testing, construct a Store around an explicit Config instance rather
// than sharing one across tests.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  *Config
}

// NewStore returns a store seeded with cfg. The path is remembered for
// Reload; it may be empty when the process runs on defaults and
// environment variables alone.
func NewStore(path string, cfg *Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Current returns the live configuration snapshot. Callers must treat the
// returned value as read-only; a reload installs a fresh instance instead
// of mutating the old one.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Replace installs cfg as the live configuration.
func (s *Store) Replace(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Reload re-reads the configuration file and replaces the live snapshot.
// The new configuration is installed only if loading and validation
// succeed; on error the existing configuration remains in effect.
func (s *Store) Reload() (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}

	s.Replace(cfg)
	return cfg, nil
}
