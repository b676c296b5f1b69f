// Package config handles configuration loading, validation, and
// effective-snapshot derivation for keyremapd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"keyremapd/internal/security"
)

// Version is the current configuration schema version.
const Version = 1

// BindingSpec is one Action as it appears in the TOML config, per
// spec §3's Action tagged union. Only the fields relevant to Type are
// meaningful; TOML has no native tagged-union syntax, so this mirrors
// the teacher's struct-of-optional-fields idiom instead.
type BindingSpec struct {
	Type     string `toml:"type"`
	Key      string `toml:"key,omitempty"`
	Tap      string `toml:"tap,omitempty"`
	Hold     string `toml:"hold,omitempty"`
	Layer    string `toml:"layer,omitempty"`
	Opposing string `toml:"opposing,omitempty"`
	Command  string `toml:"command,omitempty"`
}

// LayerSpec is one named layer's bindings, keyed by config-facing
// keycode name (see internal/keycode.ParseName).
type LayerSpec struct {
	Bindings map[string]BindingSpec `toml:"bindings"`
}

// DeviceOverride replaces (never merges) the corresponding section of
// the base config for one device identity, per spec §3's "effective
// config" rule.
type DeviceOverride struct {
	TappingTermMs     *int                   `toml:"tapping_term_ms,omitempty"`
	DoubleTapWindowMs *int                   `toml:"double_tap_window_ms,omitempty"`
	Base              map[string]BindingSpec `toml:"base,omitempty"`
	Layers            map[string]LayerSpec   `toml:"layers,omitempty"`
	GameMode          map[string]BindingSpec `toml:"game_mode,omitempty"`
}

// CommandConfig bounds the Command Dispatcher's spawn rate.
type CommandConfig struct {
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`
	Burst           int     `toml:"burst"`
}

// IPCConfig configures the control-socket transport.
type IPCConfig struct {
	Enabled        bool   `toml:"enabled"`
	SocketPath     string `toml:"socket_path"`
	MaxConnections int    `toml:"max_connections"`
	TimeoutSec     int    `toml:"timeout_sec"`
}

// AuditConfig configures the engine-lifecycle event log.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// Config holds the complete daemon configuration as parsed from TOML.
type Config struct {
	Version int `toml:"version"`

	TappingTermMs     int                    `toml:"tapping_term_ms"`
	DoubleTapWindowMs int                    `toml:"double_tap_window_ms"`
	Base              map[string]BindingSpec `toml:"base"`
	Layers            map[string]LayerSpec   `toml:"layers"`
	GameMode          map[string]BindingSpec `toml:"game_mode"`
	Devices           map[string]DeviceOverride `toml:"devices"`

	Command CommandConfig `toml:"command"`
	IPC     IPCConfig     `toml:"ipc"`
	Audit   AuditConfig   `toml:"audit"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogOutput string `toml:"log_output"`
	LogPath   string `toml:"log_path"`

	mu sync.RWMutex `toml:"-"`
}

// DefaultConfig returns a configuration with sensible defaults and no
// bindings: an empty base layer resolves every key to its identity.
func DefaultConfig() *Config {
	dir := KeyremapdDir()

	return &Config{
		Version:           Version,
		TappingTermMs:     200,
		DoubleTapWindowMs: 0,
		Base:              map[string]BindingSpec{},
		Layers:            map[string]LayerSpec{},
		GameMode:          map[string]BindingSpec{},
		Devices:           map[string]DeviceOverride{},
		Command: CommandConfig{
			RateLimitPerSec: 5,
			Burst:           5,
		},
		IPC: IPCConfig{
			Enabled:        true,
			SocketPath:     defaultSocketPath(),
			MaxConnections: 4,
			TimeoutSec:     10,
		},
		Audit: AuditConfig{
			Enabled: true,
			DBPath:  filepath.Join(dir, "audit.db"),
		},
		LogLevel:  "info",
		LogFormat: "text",
		LogOutput: "stderr",
		LogPath:   filepath.Join(dir, "keyremapd.log"),
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(KeyremapdDir(), "config.toml")
}

// Load reads and decodes a TOML configuration file. A missing file is
// not an error: it yields DefaultConfig(), matching the teacher's
// "missing config is valid" convention.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("decode TOML: %w", err)
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Audit.DBPath), filepath.Dir(c.LogPath)}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := security.EnsureSecureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// KeyremapdDir returns the base keyremapd state directory, honoring the
// KEYREMAPD_DATA_DIR override used by tests and packagers.
func KeyremapdDir() string {
	if envDir := os.Getenv("KEYREMAPD_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// ApplyEnvOverrides applies KEYREMAPD_-prefixed environment overrides.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("KEYREMAPD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("KEYREMAPD_LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("KEYREMAPD_SOCKET_PATH"); v != "" {
		c.IPC.SocketPath = v
	}
	if v := os.Getenv("KEYREMAPD_AUDIT_DB_PATH"); v != "" {
		c.Audit.DBPath = v
	}
}

// Clone returns a copy of the configuration. The top-level Base,
// GameMode and Layers binding tables are copied, as is the Devices map
// itself; each DeviceOverride is copied by value only, so its binding
// maps, layers and timing pointers are shared with the original.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version:           c.Version,
		TappingTermMs:     c.TappingTermMs,
		DoubleTapWindowMs: c.DoubleTapWindowMs,
		Command:           c.Command,
		IPC:               c.IPC,
		Audit:             c.Audit,
		LogLevel:          c.LogLevel,
		LogFormat:         c.LogFormat,
		LogOutput:         c.LogOutput,
		LogPath:           c.LogPath,
	}
	clone.Base = cloneBindings(c.Base)
	clone.GameMode = cloneBindings(c.GameMode)
	clone.Layers = make(map[string]LayerSpec, len(c.Layers))
	for name, layer := range c.Layers {
		clone.Layers[name] = LayerSpec{Bindings: cloneBindings(layer.Bindings)}
	}
	clone.Devices = make(map[string]DeviceOverride, len(c.Devices))
	for id, ov := range c.Devices {
		clone.Devices[id] = ov
	}
	return clone
}

func cloneBindings(m map[string]BindingSpec) map[string]BindingSpec {
	out := make(map[string]BindingSpec, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func defaultSocketPath() string {
	return GetDefaultPaths().SocketPath
}
