// Command keyremapd is the userspace keyboard remapping daemon: it
// grabs physical keyboards via evdev, drives the remapping engine
// (layers, tap/hold, SOCD resolution, command dispatch), and emits the
// transformed stream through a synthetic uinput keyboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"keyremapd/internal/audit"
	"keyremapd/internal/command"
	"keyremapd/internal/config"
	"keyremapd/internal/engine"
	"keyremapd/internal/ipc"
	"keyremapd/internal/logging"
	"keyremapd/internal/security"
	"keyremapd/internal/watcher"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: "+config.ConfigPath()+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyremapd: load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "keyremapd: invalid config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "keyremapd: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logging.SetDefault(logger)

	crashHandler := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir:  logging.DefaultCrashDir(),
		Version:   Version,
		Component: "keyremapd",
	})

	resolvedPath := *configPath
	if resolvedPath == "" {
		resolvedPath = config.ConfigPath()
	}

	exitCode := 1
	crashHandler.Recover(func() {
		exitCode = run(cfg, logger, resolvedPath)
	})
	os.Exit(exitCode)
}

// run holds the daemon's steady-state lifecycle: device acquisition,
// IPC and watcher startup, and the shutdown sequence. It is called
// from inside a CrashHandler.Recover wrapper, so a panic anywhere
// below is caught, dumped, and logged rather than taking the process
// down with a bare stack trace. After such a panic run never returns,
// so main's exitCode keeps its initial value of 1, the "unrecoverable
// failure" exit code; HandlePanic itself never calls os.Exit.
func run(cfg *config.Config, logger *logging.Logger, resolvedPath string) int {
	if security.WarnIfRoot() {
		logger.Warn("running as root; evdev/uinput access does not require it when the user is in the input group")
	}
	if _, err := os.Stat(resolvedPath); err == nil {
		if err := security.VerifyFilePermissions(resolvedPath, security.PermSecretFile); err != nil {
			logger.Warn("config file permissions are looser than expected", "path", resolvedPath, "error", err)
		}
	}

	var auditLog *audit.Log
	if cfg.Audit.Enabled {
		opened, err := audit.Open(cfg.Audit.DBPath)
		if err != nil {
			logger.Error("open audit log, continuing without it", "error", err)
		} else {
			auditLog = opened
			defer auditLog.Close()
		}
	}

	dispatcher := command.New(logger.Logger, cfg.Command.RateLimitPerSec, cfg.Command.Burst)

	handler := newDaemonHandler(Version, resolvedPath, cfg, func() (*config.Config, error) {
		reloaded, err := config.Load(resolvedPath)
		if err != nil {
			return nil, err
		}
		if err := reloaded.Validate(); err != nil {
			return nil, err
		}
		return reloaded, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	coord := &coordinator{
		ctx:        ctx,
		cfg:        cfg,
		logger:     logger,
		audit:      auditLog,
		dispatcher: dispatcher,
		handler:    handler,
		wg:         &wg,
	}

	if err := coord.grabAll(); err != nil {
		logger.Error("grab devices", "error", err)
		return 1
	}
	if len(coord.deviceIDs) == 0 {
		logger.Error("no keyboard devices found")
		return 1
	}

	server, err := startIPCServer(cfg, handler)
	if err != nil {
		logger.Error("start IPC server", "error", err)
		return 1
	}
	defer server.Stop()

	fileWatcher, err := startConfigWatcher(resolvedPath, handler, logger)
	if err != nil {
		logger.Warn("start config watcher, hot-reload via file writes disabled", "error", err)
	} else {
		defer fileWatcher.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("keyremapd started", "devices", len(coord.deviceIDs), "socket", server.SocketPath())

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("signal received, shutting down")
	case <-handler.shutdownRequested():
		logger.Info("shutdown requested over control socket")
	case err := <-coord.firstFatal():
		logger.Error("device engine exited unrecoverably", "error", err)
		exitCode = 1
	}

	handler.broadcast(engine.Shutdown())
	cancel()
	wg.Wait()

	return exitCode
}

func setupLogger(cfg *config.Config) *logging.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	format := logging.FormatText
	if cfg.LogFormat == "json" {
		format = logging.FormatJSON
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = format
	logCfg.Output = cfg.LogOutput
	logCfg.FilePath = cfg.LogPath

	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyremapd: set up logging: %v, falling back to stderr\n", err)
		return logging.Default()
	}
	return logger
}

func startIPCServer(cfg *config.Config, handler *daemonHandler) (*ipc.Server, error) {
	serverCfg := ipc.ServerConfig{
		SocketPath:     cfg.IPC.SocketPath,
		Version:        Version,
		MaxConnections: cfg.IPC.MaxConnections,
	}
	if serverCfg.MaxConnections <= 0 {
		serverCfg.MaxConnections = ipc.DefaultServerConfig("").MaxConnections
	}

	server, err := ipc.NewServer(serverCfg, handler)
	if err != nil {
		return nil, err
	}
	if err := server.Start(); err != nil {
		return nil, err
	}
	return server, nil
}

func startConfigWatcher(path string, handler *daemonHandler, logger *logging.Logger) (*watcher.Watcher, error) {
	w, err := watcher.New([]string{path}, 1)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}

	go func() {
		var lastHash [32]byte
		haveHash := false

		for {
			select {
			case ev, ok := <-w.Events():
				if !ok {
					return
				}
				if haveHash && ev.Hash == lastHash {
					// Editors commonly rewrite a file with byte-identical
					// content (save-as-same, touch). Skip the reload so an
					// unchanged config is not re-read, re-validated and
					// pushed to every engine for nothing.
					logger.Debug("config file rewritten with unchanged content, skipping reload", "path", ev.Path)
					continue
				}
				lastHash, haveHash = ev.Hash, true

				logger.Info("config file changed, reloading", "path", ev.Path)
				if err := handler.reloadAll(); err != nil {
					logger.Error("reload config after file change", "error", err)
				}
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	return w, nil
}
