package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())
}

func TestConfigPathUsesKeyremapdDir(t *testing.T) {
	t.Setenv("KEYREMAPD_DATA_DIR", "/tmp/kr-test")
	require.Equal(t, "/tmp/kr-test/config.toml", ConfigPath())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().TappingTermMs, cfg.TappingTermMs)
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
tapping_term_ms = 150
double_tap_window_ms = 250

[base.A]
type = "home_row"
tap = "A"
hold = "LeftSuper"

[base.CapsLock]
type = "layer_to"
layer = "nav"

[layers.nav.bindings.H]
type = "key"
key = "Left"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 150, cfg.TappingTermMs)
	require.Equal(t, 250, cfg.DoubleTapWindowMs)
	require.Equal(t, "home_row", cfg.Base["A"].Type)
	require.Equal(t, "nav", cfg.Base["CapsLock"].Layer)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("KEYREMAPD_LOG_LEVEL", "debug")
	t.Setenv("KEYREMAPD_SOCKET_PATH", "/tmp/custom.sock")
	cfg.ApplyEnvOverrides()
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/tmp/custom.sock", cfg.IPC.SocketPath)
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Base["A"] = BindingSpec{Type: "key", Key: "A"}
	clone := cfg.Clone()
	clone.Base["A"] = BindingSpec{Type: "key", Key: "B"}
	require.Equal(t, "A", cfg.Base["A"].Key)
	require.Equal(t, "B", clone.Base["A"].Key)
}
