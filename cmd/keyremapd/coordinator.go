package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"keyremapd/internal/audit"
	"keyremapd/internal/command"
	"keyremapd/internal/config"
	"keyremapd/internal/device"
	"keyremapd/internal/engine"
	"keyremapd/internal/keycode"
	"keyremapd/internal/logging"
)

// coordinator grabs every discovered keyboard and launches one engine
// goroutine per device. It adds no synchronization the engine does not
// already specify on its own control channel: grabAll only wires
// together device discovery, the engine's run loop, and the daemon
// handler's registry.
type coordinator struct {
	ctx        context.Context
	cfg        *config.Config
	logger     *logging.Logger
	audit      *audit.Log
	dispatcher *command.Dispatcher
	handler    *daemonHandler
	wg         *sync.WaitGroup

	deviceIDs []string
	fatal     chan error
}

// grabAll discovers candidate keyboards and starts an engine for each
// one that can be opened, translated, and given a virtual counterpart.
// A device that fails any of those steps is skipped with a warning
// rather than aborting the whole daemon; only "zero devices grabbed"
// is treated as fatal, by the caller in run().
func (c *coordinator) grabAll() error {
	if c.fatal == nil {
		c.fatal = make(chan error, 8)
	}

	infos, err := device.Discover()
	if err != nil {
		return fmt.Errorf("discover keyboards: %w", err)
	}

	for _, info := range infos {
		if err := c.grabOne(info); err != nil {
			c.logger.Warn("skipping device", "device", info.Name, "path", info.Path, "error", err)
		}
	}
	return nil
}

func (c *coordinator) grabOne(info device.Info) error {
	phys, err := engine.OpenEvdev(info.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", info.Path, err)
	}

	translator := keycode.NewTranslator()
	virt, err := engine.CreateUinputDevice("keyremapd virtual keyboard", translator.Capabilities())
	if err != nil {
		phys.Close()
		return fmt.Errorf("create virtual device: %w", err)
	}

	snap, err := c.cfg.Effective(info.ID)
	if err != nil {
		phys.Close()
		virt.Close()
		return fmt.Errorf("derive effective config: %w", err)
	}

	control := make(chan engine.ControlMessage, 4)
	c.handler.register(info.ID, control)
	c.deviceIDs = append(c.deviceIDs, info.ID)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.handler.unregister(info.ID)

		err := engine.Run(c.ctx, engine.RunConfig{
			DeviceID:   info.ID,
			Phys:       phys,
			Virt:       virt,
			Initial:    snap,
			Control:    control,
			Dispatcher: c.dispatcher,
			Logger:     c.logger.Logger,
			Audit:      c.audit,
		})
		if err != nil {
			if errors.Is(err, engine.ErrDeviceGone) {
				c.logger.Warn("device engine exited, other devices unaffected", "device", info.ID, "error", err)
				return
			}
			select {
			case c.fatal <- fmt.Errorf("device %s: %w", info.ID, err):
			default:
			}
		}
	}()

	return nil
}

// firstFatal returns the channel the first unrecoverable per-device
// engine error arrives on.
func (c *coordinator) firstFatal() <-chan error {
	if c.fatal == nil {
		c.fatal = make(chan error, 8)
	}
	return c.fatal
}
