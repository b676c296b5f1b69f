//go:build linux

package engine

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"keyremapd/internal/keycode"
)

// inputEventSize is sizeof(struct input_event) on 64-bit Linux: a
// 16-byte timeval, a uint16 type, a uint16 code, and an int32 value.
// Matches the byte layout the teacher's own evdev reader in
// internal/keystroke parses by hand.
const inputEventSize = 24

const (
	evSyn = 0x00
	evKey = 0x01

	synReport = 0

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// eviocgrabCmd is EVIOCGRAB, _IOW('E', 0x90, int).
const eviocgrabCmd = 0x40044590

// uinput ioctl requests, computed the same way the kernel header does
// (_IOW('U', nr, size)); no external uinput library is used since none
// of the example repos carries one.
const (
	uiSetEvBitCmd  = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBitCmd = 0x40045565 // _IOW('U', 101, int)
	uiDevCreateCmd = 0x5501     // _IO('U', 1)
	uiDevDestroyCmd = 0x5502    // _IO('U', 2)
	uiDevSetupCmd   = 0x405c5503 // _IOW('U', 3, sizeof(uinput_setup))

	uinputMaxNameSize = 80
)

// uinputSetup mirrors struct uinput_setup from linux/uinput.h.
type uinputSetup struct {
	ID struct {
		Bustype uint16
		Vendor  uint16
		Product uint16
		Version uint16
	}
	Name         [uinputMaxNameSize]byte
	FFEffectsMax uint32
}

// EvdevDevice is a grabbed physical keyboard input device.
type EvdevDevice struct {
	f   *os.File
	buf [inputEventSize]byte
}

// OpenEvdev opens and exclusively grabs the event device at path, per
// spec §6's "the device must be grabbed exclusively".
func OpenEvdev(path string) (*EvdevDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), eviocgrabCmd, 1); err != nil {
		f.Close()
		return nil, fmt.Errorf("grab %s: %w", path, err)
	}
	return &EvdevDevice{f: f}, nil
}

// ReadEvent implements PhysicalDevice. It relies on the runtime's
// integrated poller via (*os.File).SetReadDeadline, which Linux's
// evdev character devices support. A zero deadline polls: it returns
// an event the kernel has already buffered, or ok=false at once.
func (d *EvdevDevice) ReadEvent(deadline time.Time) (keycode.OsCode, bool, bool, error) {
	if deadline.IsZero() {
		deadline = time.Now().Add(time.Millisecond)
	}
	if err := d.f.SetReadDeadline(deadline); err != nil {
		return 0, false, false, err
	}
	for {
		n, err := d.f.Read(d.buf[:])
		if err != nil {
			if os.IsTimeout(err) {
				return 0, false, false, nil
			}
			return 0, false, false, err
		}
		if n < inputEventSize {
			continue
		}

		typ := binary.LittleEndian.Uint16(d.buf[16:18])
		code := binary.LittleEndian.Uint16(d.buf[18:20])
		value := int32(binary.LittleEndian.Uint32(d.buf[20:24]))

		if typ != evKey {
			continue // sync/other event types are batch delimiters only
		}
		if value == keyRepeat {
			continue // repeats are dropped per spec §6
		}
		return keycode.OsCode(code), value == keyPress, true, nil
	}
}

// Close releases the grab and closes the device, relying on the
// kernel's close-on-exit semantics as a backstop per spec §4.6.
func (d *EvdevDevice) Close() error {
	_ = unix.IoctlSetInt(int(d.f.Fd()), eviocgrabCmd, 0)
	return d.f.Close()
}

// UinputDevice is a synthetic keyboard created via /dev/uinput.
type UinputDevice struct {
	f *os.File
}

// CreateUinputDevice creates and registers a virtual keyboard
// advertising every OS code in capabilities, per spec §6's "must
// advertise the full set of emitted keycodes in its capability mask".
func CreateUinputDevice(name string, capabilities []keycode.OsCode) (*UinputDevice, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}

	if err := unix.IoctlSetInt(int(f.Fd()), uiSetEvBitCmd, evKey); err != nil {
		f.Close()
		return nil, fmt.Errorf("UI_SET_EVBIT EV_KEY: %w", err)
	}
	for _, code := range capabilities {
		if err := unix.IoctlSetInt(int(f.Fd()), uiSetKeyBitCmd, int(code)); err != nil {
			f.Close()
			return nil, fmt.Errorf("UI_SET_KEYBIT %d: %w", code, err)
		}
	}

	var setup uinputSetup
	setup.ID.Bustype = 0x06 // BUS_VIRTUAL
	setup.ID.Vendor = 0x4b52
	setup.ID.Product = 0x4d44
	setup.ID.Version = 1
	copy(setup.Name[:], name)

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uiDevSetupCmd, uintptr(unsafe.Pointer(&setup))); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("UI_DEV_SETUP: %w", errno)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uiDevCreateCmd, 0); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("UI_DEV_CREATE: %w", errno)
	}

	return &UinputDevice{f: f}, nil
}

// Emit implements VirtualDevice: it writes one key event without a
// trailing sync, per spec §6 ("every logical press/release must be
// followed by a synchronization event" — Sync is called once per
// flushed batch, not per key).
func (d *UinputDevice) Emit(code keycode.OsCode, pressed bool) error {
	value := int32(keyRelease)
	if pressed {
		value = keyPress
	}
	return d.write(evKey, uint16(code), value)
}

// Sync flushes a SYN_REPORT, making the batch visible to consumers.
func (d *UinputDevice) Sync() error {
	return d.write(evSyn, synReport, 0)
}

func (d *UinputDevice) write(typ, code uint16, value int32) error {
	var buf [inputEventSize]byte
	binary.LittleEndian.PutUint16(buf[16:18], typ)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	_, err := d.f.Write(buf[:])
	return err
}

// Close destroys the virtual device and closes its handle.
func (d *UinputDevice) Close() error {
	_, _, _ = unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), uiDevDestroyCmd, 0)
	return d.f.Close()
}
