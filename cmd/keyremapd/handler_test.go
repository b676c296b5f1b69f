package main

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/config"
	"keyremapd/internal/engine"
	"keyremapd/internal/ipc"
)

func startTestDaemon(t *testing.T, cfg *config.Config, reload func() (*config.Config, error)) (*daemonHandler, string) {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "keyremapd.sock")

	h := newDaemonHandler("1.0.0-test", filepath.Join(dir, "config.toml"), cfg, reload)

	srv, err := ipc.NewServer(ipc.ServerConfig{
		SocketPath:     sockPath,
		Version:        "1.0.0-test",
		MaxConnections: 4,
	}, h)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	return h, sockPath
}

func testClient(t *testing.T, sockPath string) *ipc.IPCClient {
	t.Helper()
	c := ipc.NewClient(ipc.ClientConfig{
		SocketPath:     sockPath,
		ClientName:     "keyremapctl-test",
		ClientVersion:  "1.0.0-test",
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 2 * time.Second,
	})
	require.NoError(t, c.Connect())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHandlerStatusReportsRegisteredDevices(t *testing.T) {
	h, sockPath := startTestDaemon(t, config.DefaultConfig(), nil)
	h.register("event3", make(chan engine.ControlMessage, 1))

	client := testClient(t, sockPath)
	status, err := client.Status()
	require.NoError(t, err)
	require.Equal(t, "1.0.0-test", status.Version)
	require.Contains(t, status.Devices, "event3")
	require.False(t, status.GameModeOn)
}

func TestHandlerStatusReportsGameModeDevices(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GameMode["F1"] = config.BindingSpec{Type: "key", Key: "Esc"}
	require.NoError(t, cfg.Validate())

	h, sockPath := startTestDaemon(t, cfg, nil)
	h.register("event3", make(chan engine.ControlMessage, 1))

	client := testClient(t, sockPath)
	status, err := client.Status()
	require.NoError(t, err)
	require.Contains(t, status.GameModeDevices, "event3")
}

func TestHandlerStatusOmitsGameModeDevicesWithoutBindings(t *testing.T) {
	h, sockPath := startTestDaemon(t, config.DefaultConfig(), nil)
	h.register("event3", make(chan engine.ControlMessage, 1))

	client := testClient(t, sockPath)
	status, err := client.Status()
	require.NoError(t, err)
	require.NotContains(t, status.GameModeDevices, "event3")
}

func TestHandlerGetConfigReturnsTOML(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogLevel = "debug"
	h, sockPath := startTestDaemon(t, cfg, nil)
	_ = h

	client := testClient(t, sockPath)
	resp, err := client.GetConfig()
	require.NoError(t, err)
	require.Contains(t, resp.TOML, "log_level")
	require.Contains(t, resp.TOML, "debug")
}

func TestHandlerReloadPushesSnapshotToEachEngine(t *testing.T) {
	cfg := config.DefaultConfig()
	reloaded := config.DefaultConfig()
	reloaded.TappingTermMs = 999

	h, sockPath := startTestDaemon(t, cfg, func() (*config.Config, error) {
		return reloaded, nil
	})

	control := make(chan engine.ControlMessage, 1)
	h.register("event3", control)

	client := testClient(t, sockPath)
	resp, err := client.ReloadConfig()
	require.NoError(t, err)
	require.True(t, resp.Success)

	select {
	case <-control:
	case <-time.After(time.Second):
		t.Fatal("expected a reload control message")
	}
}

func TestHandlerReloadFailurePropagatesError(t *testing.T) {
	h, sockPath := startTestDaemon(t, config.DefaultConfig(), func() (*config.Config, error) {
		return nil, errors.New("boom")
	})
	_ = h

	client := testClient(t, sockPath)
	resp, err := client.ReloadConfig()
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Equal(t, "boom", resp.Error)
}

func TestHandlerSetGameModeBroadcastsToAllDevices(t *testing.T) {
	h, sockPath := startTestDaemon(t, config.DefaultConfig(), nil)

	a := make(chan engine.ControlMessage, 1)
	b := make(chan engine.ControlMessage, 1)
	h.register("event3", a)
	h.register("event7", b)

	client := testClient(t, sockPath)
	resp, err := client.SetGameMode(true)
	require.NoError(t, err)
	require.True(t, resp.Success)

	for _, c := range []<-chan engine.ControlMessage{a, b} {
		select {
		case <-c:
		case <-time.After(time.Second):
			t.Fatal("expected a game-mode control message on every device")
		}
	}
}

func TestHandlerShutdownSignalsShutdownChannel(t *testing.T) {
	h, sockPath := startTestDaemon(t, config.DefaultConfig(), nil)

	client := testClient(t, sockPath)
	resp, err := client.Shutdown()
	require.NoError(t, err)
	require.True(t, resp.Success)

	select {
	case <-h.shutdownRequested():
	case <-time.After(time.Second):
		t.Fatal("expected shutdownRequested to fire")
	}
}

func TestHandlerUnregisterRemovesDeviceFromStatus(t *testing.T) {
	h, sockPath := startTestDaemon(t, config.DefaultConfig(), nil)
	h.register("event3", make(chan engine.ControlMessage, 1))
	h.unregister("event3")

	client := testClient(t, sockPath)
	status, err := client.Status()
	require.NoError(t, err)
	require.NotContains(t, status.Devices, "event3")
}
