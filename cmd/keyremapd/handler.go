package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"keyremapd/internal/config"
	"keyremapd/internal/engine"
	"keyremapd/internal/ipc"
)

// daemonHandler answers keyremapctl's requests over the control
// socket. It never touches a running engine's internal state directly:
// every effect (reload, game mode) is a ControlMessage sent down that
// device's control channel, the same path the daemon's own signal and
// file-watcher handling uses.
type daemonHandler struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string
	startedAt  time.Time
	version    string
	gameModeOn bool

	controls map[string]chan<- engine.ControlMessage
	reload   func() (*config.Config, error)

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newDaemonHandler(version, configPath string, cfg *config.Config, reload func() (*config.Config, error)) *daemonHandler {
	return &daemonHandler{
		cfg:        cfg,
		configPath: configPath,
		startedAt:  time.Now(),
		version:    version,
		controls:   make(map[string]chan<- engine.ControlMessage),
		reload:     reload,
		shutdownCh: make(chan struct{}),
	}
}

// shutdownRequested fires once an IPC client has sent a shutdown
// command, letting main's select treat it the same as a signal.
func (h *daemonHandler) shutdownRequested() <-chan struct{} {
	return h.shutdownCh
}

func (h *daemonHandler) register(deviceID string, control chan<- engine.ControlMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.controls[deviceID] = control
}

func (h *daemonHandler) unregister(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.controls, deviceID)
}

func (h *daemonHandler) setConfig(cfg *config.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

func (h *daemonHandler) deviceIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.controls))
	for id := range h.controls {
		ids = append(ids, id)
	}
	return ids
}

// broadcast sends msg to every live engine's control channel. Used for
// shutdown and game-mode toggles, which apply daemon-wide.
func (h *daemonHandler) broadcast(msg engine.ControlMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.controls {
		c <- msg
	}
}

// HandleMessage implements ipc.Handler.
func (h *daemonHandler) HandleMessage(ctx context.Context, client *ipc.Client, msg *ipc.Message) (*ipc.Message, error) {
	switch msg.Header.Type {
	case ipc.MsgStatusRequest:
		return h.handleStatus(msg)
	case ipc.MsgGetConfig:
		return h.handleGetConfig(msg)
	case ipc.MsgReloadConfig:
		return h.handleReload(msg)
	case ipc.MsgSetGameMode:
		return h.handleSetGameMode(msg)
	case ipc.MsgShutdown:
		return h.handleShutdown(msg)
	default:
		return ipc.NewErrorMessage(msg.Header.RequestID, ipc.ErrInvalidRequest, "unsupported message type"), nil
	}
}

func (h *daemonHandler) handleStatus(msg *ipc.Message) (*ipc.Message, error) {
	h.mu.RLock()
	gameModeOn := h.gameModeOn
	cfg := h.cfg
	h.mu.RUnlock()

	devices := h.deviceIDs()

	resp := &ipc.StatusResponse{
		Version:         h.version,
		Uptime:          time.Since(h.startedAt),
		StartedAt:       h.startedAt,
		Devices:         devices,
		GameModeOn:      gameModeOn,
		ConfigPath:      h.configPath,
		GameModeDevices: gameModeDevices(cfg, devices),
	}
	return ipc.NewResponse(ipc.MsgStatusResponse, msg.Header.RequestID, resp)
}

// gameModeDevices reports which of devices has any game_mode bindings
// in its effective config, so keyremapctl can tell "game mode is on"
// apart from "game mode is on and actually remapping this device".
func gameModeDevices(cfg *config.Config, devices []string) []string {
	var out []string
	for _, id := range devices {
		snap, err := cfg.Effective(id)
		if err != nil {
			continue
		}
		if snap.GameModeLayer != nil {
			out = append(out, id)
		}
	}
	return out
}

func (h *daemonHandler) handleGetConfig(msg *ipc.Message) (*ipc.Message, error) {
	h.mu.RLock()
	cfg := h.cfg
	h.mu.RUnlock()

	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return ipc.NewErrorMessage(msg.Header.RequestID, ipc.ErrInternalError, err.Error()), nil
	}
	return ipc.NewResponse(ipc.MsgGetConfigResp, msg.Header.RequestID, &ipc.GetConfigResponse{TOML: sb.String()})
}

// handleReload re-reads the config file immediately, rather than
// waiting for the watcher's debounce window, and pushes the new
// effective snapshot to every running engine.
func (h *daemonHandler) handleReload(msg *ipc.Message) (*ipc.Message, error) {
	if err := h.reloadAll(); err != nil {
		return ipc.NewResponse(ipc.MsgReloadResp, msg.Header.RequestID, &ipc.ReloadConfigResponse{Success: false, Error: err.Error()})
	}
	return ipc.NewResponse(ipc.MsgReloadResp, msg.Header.RequestID, &ipc.ReloadConfigResponse{Success: true})
}

// reloadAll re-reads the config file and pushes each device's new
// effective snapshot to its engine. Shared by the IPC reload command
// and internal/watcher's debounced file-change trigger.
func (h *daemonHandler) reloadAll() error {
	cfg, err := h.reload()
	if err != nil {
		return err
	}
	h.setConfig(cfg)

	for _, id := range h.deviceIDs() {
		snap, err := cfg.Effective(id)
		if err != nil {
			continue
		}
		h.mu.RLock()
		c, ok := h.controls[id]
		h.mu.RUnlock()
		if ok {
			c <- engine.ReloadConfig(snap)
		}
	}
	return nil
}

// handleShutdown acknowledges the request, then signals main's select
// loop, since the actual broadcast(engine.Shutdown())/cancel/wg.Wait
// sequence needs to run on the main goroutine, not inside a live IPC
// connection handler.
func (h *daemonHandler) handleShutdown(msg *ipc.Message) (*ipc.Message, error) {
	resp, err := ipc.NewResponse(ipc.MsgShutdown, msg.Header.RequestID, &ipc.ShutdownResponse{Success: true})
	h.shutdownOnce.Do(func() { close(h.shutdownCh) })
	return resp, err
}

func (h *daemonHandler) handleSetGameMode(msg *ipc.Message) (*ipc.Message, error) {
	var req ipc.SetGameModeRequest
	if err := ipc.Decode(msg.Payload, &req); err != nil {
		return ipc.NewErrorMessage(msg.Header.RequestID, ipc.ErrInvalidRequest, "invalid game mode request"), nil
	}

	h.mu.Lock()
	h.gameModeOn = req.Enabled
	h.mu.Unlock()

	h.broadcast(engine.SetGameMode(req.Enabled))
	return ipc.NewResponse(ipc.MsgSetGameModeResp, msg.Header.RequestID, &ipc.SetGameModeResponse{Success: true})
}
