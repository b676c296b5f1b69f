package config

import (
	"fmt"
	"sync"
)

// Loader owns the currently-active Config and the callbacks notified on
// reload. It does no filesystem watching of its own: the caller decides
// when to call Load or Reload, so this package stays free of fsnotify.
type Loader struct {
	path     string
	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)
}

// NewLoader creates a loader bound to path (empty uses ConfigPath()).
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the file this loader reads from.
func (l *Loader) Path() string {
	if l.path == "" {
		return ConfigPath()
	}
	return l.path
}

// Load reads, env-overrides, and validates the configuration, storing
// it as the loader's current config on success.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.Path())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration, or nil if Load has never
// succeeded.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Reload re-reads and re-validates the file and, on success, swaps the
// current config and invokes every OnChange callback with the new
// value. A validation failure leaves the current config untouched and
// is returned to the caller.
func (l *Loader) Reload() (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	for _, cb := range l.onChange {
		cb(cfg)
	}
	return cfg, nil
}

// OnChange registers a callback invoked after a successful Reload.
func (l *Loader) OnChange(cb func(*Config)) {
	l.onChange = append(l.onChange, cb)
}

// LoadFromEnv builds a configuration from defaults plus environment
// overrides only, useful for tests and containerized invocations with
// no config file.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	return cfg
}
