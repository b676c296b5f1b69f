package security

import "os"

// WarnIfRoot reports whether the process is running as root. evdev and
// uinput access only needs membership in the input/uinput groups, so
// the daemon logs a warning rather than refusing to start when this is
// true — running as root is unnecessary, not unsafe enough to block.
func WarnIfRoot() bool {
	return os.Geteuid() == 0
}
