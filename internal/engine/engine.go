// Package engine implements the Device Engine from spec §4.6: the per-device
// hot path that reads physical key events, drives the Key Translator,
// Keymap Resolver, Tap/Hold Engine, SOCD Resolver, and Command Dispatcher,
// and emits a deterministic batch of virtual key events per tick.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"keyremapd/internal/audit"
	"keyremapd/internal/command"
	"keyremapd/internal/config"
	"keyremapd/internal/keycode"
	"keyremapd/internal/keymap"
	"keyremapd/internal/socd"
	"keyremapd/internal/taphold"
)

// ErrDeviceGone is returned by Run when the physical device disappears
// (EOF on read) or the virtual device stops accepting writes. It is
// recoverable for the daemon as a whole: the coordinator drops this
// engine and the other grabbed devices are unaffected.
var ErrDeviceGone = errors.New("engine: device gone")

// Emission is one virtual key transition queued for the next flush.
type Emission struct {
	Code    keycode.Code
	Pressed bool
}

// PhysicalDevice is the grabbed physical input device an engine reads
// key events from. ReadEvent blocks until either a key event is ready
// or deadline passes, per spec §4.6 step 2; value==2 (repeat) and any
// non-key event type are dropped internally and never surface here —
// they are batch delimiters only per spec §4.1.
type PhysicalDevice interface {
	ReadEvent(deadline time.Time) (code keycode.OsCode, pressed bool, ok bool, err error)
	Close() error
}

// VirtualDevice is the synthetic input device an engine writes the
// transformed event stream to. Emit queues one key transition; Sync
// flushes the queued transitions as a single batch (spec §6: "every
// logical press/release must be followed by a synchronization event").
type VirtualDevice interface {
	Emit(code keycode.OsCode, pressed bool) error
	Sync() error
	Close() error
}

// ControlMessage is the tagged variant the coordinator sends on the
// control channel, per spec §6.
type ControlMessage struct {
	kind reloadKind
	snap *config.Snapshot
	on   bool
}

type reloadKind int

const (
	controlReload reloadKind = iota
	controlGameMode
	controlShutdown
)

// ReloadConfig builds a control message that swaps the engine's
// effective snapshot at the next loop boundary.
func ReloadConfig(snap *config.Snapshot) ControlMessage {
	return ControlMessage{kind: controlReload, snap: snap}
}

// SetGameMode builds a control message that toggles game mode.
func SetGameMode(on bool) ControlMessage {
	return ControlMessage{kind: controlGameMode, on: on}
}

// Shutdown builds a control message that asks the engine to unwind.
func Shutdown() ControlMessage {
	return ControlMessage{kind: controlShutdown}
}

// IdleTick bounds how long a loop iteration waits with nothing pending,
// so the control channel and shutdown are checked even on a silent
// device.
const IdleTick = 250 * time.Millisecond

// RunConfig bundles everything one Device Engine instance needs.
type RunConfig struct {
	DeviceID   string
	Phys       PhysicalDevice
	Virt       VirtualDevice
	Initial    *config.Snapshot
	Control    <-chan ControlMessage
	Dispatcher *command.Dispatcher
	Logger     *slog.Logger
	Audit      *audit.Log
}

// engine is the live state for one grabbed device. Exported via Run
// rather than a constructor, since nothing outside this package ever
// needs to hold an *engine between ticks.
type engine struct {
	deviceID string
	phys     PhysicalDevice
	virt     VirtualDevice
	control  <-chan ControlMessage
	dispatch *command.Dispatcher
	logger   *slog.Logger
	audit    *audit.Log

	translator keycode.Translator
	resolver   *keymap.Resolver
	stack      *keymap.Stack
	tapHold    *taphold.Engine
	socdRes    *socd.Resolver
	gameMode   bool

	held    map[keycode.Code]bool        // currently-pressed virtual keycodes
	active  map[keycode.Code]keymap.Action // non-taphold dispatch in progress, keyed by physical key
	batch   []Emission
}

// Run drives one Device Engine until Shutdown, a control-channel close,
// or an unrecoverable device error, per spec §4.6 and §5. It always
// releases every held virtual key and closes both devices before
// returning, on every exit path.
func Run(ctx context.Context, cfg RunConfig) error {
	e := &engine{
		deviceID:   cfg.DeviceID,
		phys:       cfg.Phys,
		virt:       cfg.Virt,
		control:    cfg.Control,
		dispatch:   cfg.Dispatcher,
		logger:     cfg.Logger,
		audit:      cfg.Audit,
		translator: keycode.NewTranslator(),
		held:       make(map[keycode.Code]bool),
		active:     make(map[keycode.Code]keymap.Action),
		stack:      keymap.NewStack(),
	}
	e.applySnapshot(cfg.Initial)

	e.recordAudit(ctx, audit.EventEngineStart, "")

	defer func() {
		e.releaseAll()
		_ = e.flush()
		_ = e.phys.Close()
		_ = e.virt.Close()
	}()

	for {
		deadline := e.nextDeadline()

		osCode, pressed, ok, err := e.phys.ReadEvent(deadline)
		if err != nil {
			e.logger.Info("physical device read failed, exiting engine", "device", e.deviceID, "error", err)
			e.recordAudit(ctx, audit.EventUngrab, err.Error())
			return ErrDeviceGone
		}
		if ok {
			e.processOsEvent(osCode, pressed, time.Now())
			// Drain any further events already buffered by the kernel
			// without blocking again, per spec §4.6 step 3.
			for {
				osCode, pressed, ok, err := e.phys.ReadEvent(time.Time{})
				if err != nil {
					e.logger.Info("physical device read failed, exiting engine", "device", e.deviceID, "error", err)
					e.recordAudit(ctx, audit.EventUngrab, err.Error())
					return ErrDeviceGone
				}
				if !ok {
					break
				}
				e.processOsEvent(osCode, pressed, time.Now())
			}
		}

		e.forceTimeouts(time.Now())

		shutdown, err := e.drainControl(ctx)
		if err != nil {
			return err
		}
		if shutdown {
			e.recordAudit(ctx, audit.EventShutdown, "")
			return e.flush()
		}

		if err := e.flush(); err != nil {
			e.logger.Warn("virtual device write failed, treating as device loss", "device", e.deviceID, "error", err)
			return ErrDeviceGone
		}
	}
}

func (e *engine) applySnapshot(snap *config.Snapshot) {
	e.resolver = snap.Resolver
	e.tapHold = taphold.New(snap.TappingTerm, snap.DoubleTapWindow)
	e.socdRes = socd.NewResolver(snap.SocdPairings)
}

func (e *engine) nextDeadline() time.Time {
	now := time.Now()
	deadline := now.Add(IdleTick)
	if d, ok := e.tapHold.NextDeadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

// processOsEvent implements spec §4.6's process(event) step: translate,
// drop if unmapped, then dispatch.
func (e *engine) processOsEvent(os keycode.OsCode, pressed bool, now time.Time) {
	k, ok := e.translator.In(os)
	if !ok {
		return // unmapped OS key code: dropped silently, per spec §7
	}
	if pressed {
		e.onPress(k, now)
	} else {
		e.onRelease(k, now)
	}
}

func (e *engine) onPress(k keycode.Code, now time.Time) {
	// Permissive hold: any other key's press forces Pending HomeRow
	// slots to Hold, in press order, before this event's own emissions.
	e.queueTapHold(e.tapHold.ForceHomeRowPendings(now))

	if e.tapHold.Has(k) {
		return // stray repeat of an already-pending/held key; ignore
	}
	if _, ok := e.active[k]; ok {
		return // same
	}

	action := e.resolver.Resolve(k, e.stack, e.gameMode)
	switch action.Kind {
	case keymap.KeyAction:
		e.active[k] = action
		e.queue(action.Key, true)
	case keymap.HomeRowAction:
		e.queueTapHold(e.tapHold.Press(k, taphold.HomeRow, action.Tap, action.Hold, now))
	case keymap.OverloadAction:
		e.queueTapHold(e.tapHold.Press(k, taphold.Overload, action.Tap, action.Hold, now))
	case keymap.LayerToAction:
		e.active[k] = action
		if !e.resolver.HasLayer(action.Layer) {
			e.logger.Warn("LayerTo references unknown layer, no-op", "layer", action.Layer)
			break
		}
		e.stack.Push(action.Layer)
	case keymap.SocdAction:
		e.active[k] = action
		e.queueSocd(e.socdRes.Press(action.Self))
	case keymap.CommandAction:
		e.active[k] = action
		e.dispatch.Dispatch(action.Command)
	}
}

func (e *engine) onRelease(k keycode.Code, now time.Time) {
	if e.tapHold.Has(k) {
		e.queueTapHold(e.tapHold.Release(k, now))
		return
	}

	action, ok := e.active[k]
	if !ok {
		e.logger.Error("unmatched key release, forcing consistent state", "key", k)
		e.recoverFromInvariantViolation()
		return
	}
	delete(e.active, k)

	switch action.Kind {
	case keymap.KeyAction:
		e.queue(action.Key, false)
	case keymap.LayerToAction:
		if e.resolver.HasLayer(action.Layer) {
			e.stack.PopName(action.Layer)
		}
	case keymap.SocdAction:
		e.queueSocd(e.socdRes.Release(action.Self))
	case keymap.CommandAction:
		// Command releases are ignored entirely, per spec §4.5 and §9.
	}
}

func (e *engine) forceTimeouts(now time.Time) {
	e.queueTapHold(e.tapHold.CheckTimeouts(now))
}

// drainControl applies every pending control message without blocking,
// per spec §4.6 step 5. It reports whether a shutdown was observed,
// either explicit or implied by the channel closing.
func (e *engine) drainControl(ctx context.Context) (shutdown bool, err error) {
	for {
		select {
		case msg, ok := <-e.control:
			if !ok {
				return true, nil // control channel closed: treat as Shutdown, per spec §7
			}
			switch msg.kind {
			case controlReload:
				e.applySnapshot(msg.snap)
				e.recordAudit(ctx, audit.EventReload, "")
			case controlGameMode:
				e.gameMode = msg.on
				e.recordAudit(ctx, audit.EventGameModeToggle, fmt.Sprintf("%v", msg.on))
			case controlShutdown:
				return true, nil
			}
		default:
			return false, nil
		}
	}
}

func (e *engine) queue(code keycode.Code, pressed bool) {
	e.batch = append(e.batch, Emission{Code: code, Pressed: pressed})
	if pressed {
		e.held[code] = true
	} else {
		delete(e.held, code)
	}
}

func (e *engine) queueTapHold(ems []taphold.Emission) {
	for _, em := range ems {
		e.queue(em.Code, em.Pressed)
	}
}

func (e *engine) queueSocd(ems []socd.Emission) {
	for _, em := range ems {
		e.queue(em.Code, em.Pressed)
	}
}

// releaseAll queues a release for every virtual key still pressed, per
// spec §4.6's shutdown/ungrab obligation.
func (e *engine) releaseAll() {
	for code := range e.held {
		e.batch = append(e.batch, Emission{Code: code, Pressed: false})
	}
	e.held = make(map[keycode.Code]bool)
}

// recoverFromInvariantViolation implements spec §7's policy for an
// unmatched release: force a consistent state and keep running.
func (e *engine) recoverFromInvariantViolation() {
	e.releaseAll()
	e.tapHold.Reset()
	e.socdRes.Reset()
	e.active = make(map[keycode.Code]keymap.Action)
}

// flush writes the queued batch to the virtual device and syncs once,
// per spec §4.6 step 6 and §6's "one synchronization event per batch".
// A transient write error is retried once before being treated as
// device loss, per spec §7.
func (e *engine) flush() error {
	if len(e.batch) == 0 {
		return nil
	}
	batch := e.batch
	e.batch = nil

	for _, em := range batch {
		os := e.translator.Out(em.Code)
		if err := e.emitWithRetry(os, em.Pressed); err != nil {
			return err
		}
	}
	return e.virt.Sync()
}

func (e *engine) emitWithRetry(os keycode.OsCode, pressed bool) error {
	err := e.virt.Emit(os, pressed)
	if err == nil {
		return nil
	}
	e.logger.Warn("virtual device write failed, retrying once", "error", err)
	if err := e.virt.Emit(os, pressed); err != nil {
		return fmt.Errorf("virtual write failed after retry: %w", err)
	}
	return nil
}

func (e *engine) recordAudit(ctx context.Context, typ audit.EventType, detail string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, typ, e.deviceID, detail); err != nil {
		e.logger.Warn("audit record failed", "error", err)
	}
}
