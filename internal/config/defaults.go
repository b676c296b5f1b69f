package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// PlatformDataDir returns keyremapd's state directory, following the
// XDG Base Directory Specification: $XDG_DATA_HOME/keyremapd, falling
// back to ~/.local/share/keyremapd. The daemon is Linux-only (spec §1
// scopes it to userspace evdev/uinput), so there is a single platform
// path here rather than the teacher's per-GOOS switch.
func PlatformDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "keyremapd")
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return filepath.Join("/tmp", "keyremapd")
	}
	return filepath.Join(home, ".local", "share", "keyremapd")
}

// PlatformConfigDir returns $XDG_CONFIG_HOME/keyremapd, falling back to
// ~/.config/keyremapd.
func PlatformConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "keyremapd")
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return filepath.Join("/tmp", "keyremapd")
	}
	return filepath.Join(home, ".config", "keyremapd")
}

// PlatformRuntimeDir returns $XDG_RUNTIME_DIR/keyremapd for the control
// socket, falling back to /tmp/keyremapd-$UID.
func PlatformRuntimeDir() string {
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, "keyremapd")
	}
	return filepath.Join("/tmp", "keyremapd-"+strconv.Itoa(os.Getuid()))
}

// DefaultPaths bundles the directories and well-known files a running
// daemon needs to locate without explicit flags.
type DefaultPaths struct {
	DataDir    string
	ConfigDir  string
	RuntimeDir string

	ConfigFile string
	AuditFile  string
	SocketPath string
	PIDFile    string
}

// GetDefaultPaths returns all default paths for the current install.
func GetDefaultPaths() *DefaultPaths {
	dataDir := PlatformDataDir()
	configDir := PlatformConfigDir()
	runtimeDir := PlatformRuntimeDir()

	return &DefaultPaths{
		DataDir:    dataDir,
		ConfigDir:  configDir,
		RuntimeDir: runtimeDir,

		ConfigFile: filepath.Join(configDir, "config.toml"),
		AuditFile:  filepath.Join(dataDir, "audit.db"),
		SocketPath: getDefaultSocketPath(runtimeDir),
		PIDFile:    filepath.Join(runtimeDir, "keyremapd.pid"),
	}
}

func getDefaultSocketPath(runtimeDir string) string {
	if runtimeDir != "" {
		return filepath.Join(runtimeDir, "keyremapd.sock")
	}
	return "/tmp/keyremapd.sock"
}

// FindConfigFile searches the current directory and the standard config
// directory for config.toml, returning "" if neither has one.
func FindConfigFile() string {
	paths := GetDefaultPaths()
	for _, dir := range []string{".", paths.ConfigDir} {
		path := filepath.Join(dir, "config.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
