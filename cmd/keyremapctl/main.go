// keyremapctl is the control CLI for keyremapd.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"keyremapd/internal/config"
	"keyremapd/internal/ipc"
)

var socketPath = flag.String("socket", "", "path to keyremapd's control socket (default: "+config.GetDefaultPaths().SocketPath+")")

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	switch cmd {
	case "status":
		cmdStatus()
	case "reload":
		cmdReload()
	case "game-mode":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: keyremapctl game-mode <on|off>")
			os.Exit(1)
		}
		cmdGameMode(flag.Arg(1))
	case "config":
		cmdConfig()
	case "shutdown":
		cmdShutdown()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `keyremapctl - Control utility for keyremapd

Usage: keyremapctl [options] <command> [args]

Commands:
  status             Show daemon status and device list
  reload             Ask the daemon to re-read its config file now
  game-mode <on|off> Toggle game mode daemon-wide
  config             Dump the daemon's active effective config as YAML
  shutdown           Stop the daemon and every engine it is running
  help               Show this help message

Options:
  -socket <path>  Path to keyremapd's control socket`)
}

func connect() *ipc.IPCClient {
	paths := config.GetDefaultPaths()
	cfg := ipc.DefaultClientConfig(paths.RuntimeDir)
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}

	client := ipc.NewClient(cfg)
	if err := client.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "keyremapctl: connect to %s: %v\n", cfg.SocketPath, err)
		os.Exit(1)
	}
	return client
}

func cmdStatus() {
	client := connect()
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyremapctl: status: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== keyremapd Status ===")
	fmt.Printf("Version:     %s\n", status.Version)
	fmt.Printf("Uptime:      %s\n", status.Uptime)
	fmt.Printf("Started at:  %s\n", status.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Config path: %s\n", status.ConfigPath)
	fmt.Printf("Game mode:   %v\n", status.GameModeOn)
	fmt.Printf("Devices (%d):\n", len(status.Devices))
	for _, id := range status.Devices {
		fmt.Printf("  - %s\n", id)
	}
}

func cmdReload() {
	client := connect()
	defer client.Close()

	resp, err := client.ReloadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyremapctl: reload: %v\n", err)
		os.Exit(1)
	}
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "keyremapctl: reload rejected: %s\n", resp.Error)
		os.Exit(1)
	}
	fmt.Println("config reloaded")
}

func cmdGameMode(arg string) {
	var enabled bool
	switch arg {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		fmt.Fprintf(os.Stderr, "keyremapctl: game-mode: expected on or off, got %q\n", arg)
		os.Exit(1)
	}

	client := connect()
	defer client.Close()

	resp, err := client.SetGameMode(enabled)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyremapctl: game-mode: %v\n", err)
		os.Exit(1)
	}
	if !resp.Success {
		fmt.Fprintln(os.Stderr, "keyremapctl: game-mode: daemon rejected the request")
		os.Exit(1)
	}
	fmt.Printf("game mode %s\n", arg)
}

// cmdConfig re-renders the daemon's active TOML config as YAML, purely
// as a more scannable debug view; the daemon's own on-disk format
// stays TOML.
func cmdConfig() {
	client := connect()
	defer client.Close()

	resp, err := client.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyremapctl: config: %v\n", err)
		os.Exit(1)
	}

	var generic map[string]any
	if _, err := toml.Decode(resp.TOML, &generic); err != nil {
		fmt.Fprintf(os.Stderr, "keyremapctl: decode config: %v\n", err)
		os.Exit(1)
	}

	out, err := yaml.Marshal(generic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyremapctl: render config: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

func cmdShutdown() {
	client := connect()
	defer client.Close()

	resp, err := client.Shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyremapctl: shutdown: %v\n", err)
		os.Exit(1)
	}
	if !resp.Success {
		fmt.Fprintln(os.Stderr, "keyremapctl: shutdown: daemon rejected the request")
		os.Exit(1)
	}
	fmt.Println("shutdown requested")
}
