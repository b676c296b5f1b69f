package config

import (
	"errors"
	"fmt"
	"strings"

	"keyremapd/internal/keycode"
	"keyremapd/internal/security"
)

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig performs the checks spec §6 says the parser must
// guarantee before the core engine may assume them: valid keycodes,
// existing layer names, symmetric SOCD pairs, positive sub-1000ms
// timings, and syntactically sane device override keys.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateTiming("tapping_term_ms", c.TappingTermMs, true)...)
	errs = append(errs, validateTiming("double_tap_window_ms", c.DoubleTapWindowMs, false)...)

	layerNames := make(map[string]bool, len(c.Layers))
	for name := range c.Layers {
		layerNames[name] = true
	}

	socd := newSocdChecker()
	errs = append(errs, validateBindings("base", c.Base, layerNames, socd)...)
	for name, layer := range c.Layers {
		errs = append(errs, validateBindings("layers."+name, layer.Bindings, layerNames, socd)...)
	}
	errs = append(errs, validateBindings("game_mode", c.GameMode, layerNames, socd)...)
	errs = append(errs, socd.errors()...)

	for id, ov := range c.Devices {
		// Device override keys are device.Info.ID values: 16 lowercase
		// hex characters derived from a sha256 of the kernel's input_id/
		// uniq/phys. Anything else can never match a real device.
		if err := security.ValidateHexString(id, 16); err != nil {
			errs = append(errs, ValidationError{Field: "devices", Message: fmt.Sprintf("device override key %q is not a valid device ID: %v", id, err)})
			continue
		}
		prefix := fmt.Sprintf("devices.%s", id)
		if ov.TappingTermMs != nil {
			errs = append(errs, validateTiming(prefix+".tapping_term_ms", *ov.TappingTermMs, true)...)
		}
		if ov.DoubleTapWindowMs != nil {
			errs = append(errs, validateTiming(prefix+".double_tap_window_ms", *ov.DoubleTapWindowMs, false)...)
		}
		devSocd := newSocdChecker()
		errs = append(errs, validateBindings(prefix+".base", ov.Base, layerNames, devSocd)...)
		for name, layer := range ov.Layers {
			errs = append(errs, validateBindings(prefix+".layers."+name, layer.Bindings, layerNames, devSocd)...)
		}
		errs = append(errs, validateBindings(prefix+".game_mode", ov.GameMode, layerNames, devSocd)...)
		errs = append(errs, devSocd.errors()...)
	}

	if c.Command.RateLimitPerSec <= 0 {
		errs = append(errs, ValidationError{Field: "command.rate_limit_per_sec", Message: "must be positive"})
	}
	if c.Command.Burst < 1 {
		errs = append(errs, ValidationError{Field: "command.burst", Message: "must be at least 1"})
	}

	if c.IPC.Enabled {
		if c.IPC.SocketPath == "" {
			errs = append(errs, ValidationError{Field: "ipc.socket_path", Message: "required when IPC is enabled"})
		}
		if c.IPC.MaxConnections < 1 {
			errs = append(errs, ValidationError{Field: "ipc.max_connections", Message: "must be at least 1"})
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "log_level", Message: fmt.Sprintf("invalid level: %s", c.LogLevel)})
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "log_format", Message: fmt.Sprintf("invalid format: %s", c.LogFormat)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateTiming enforces spec §6's "positive and < 1000ms" guarantee.
// With positiveRequired false, 0 is also accepted, so that
// double_tap_window_ms == 0 can mean "disabled".
func validateTiming(field string, ms int, positiveRequired bool) ValidationErrors {
	var errs ValidationErrors
	if ms == 0 && !positiveRequired {
		return errs
	}
	if ms <= 0 {
		errs = append(errs, ValidationError{Field: field, Message: "must be positive"})
	}
	if ms >= 1000 {
		errs = append(errs, ValidationError{Field: field, Message: "must be less than 1000ms"})
	}
	return errs
}

// socdChecker accumulates declared Socd bindings across base/layers/
// game_mode within one effective-config scope and checks, at the end,
// that every declaration is mirrored symmetrically per spec §4.4.
type socdChecker struct {
	declared map[keycode.Code]keycode.Code // self -> opposing
}

func newSocdChecker() *socdChecker {
	return &socdChecker{declared: make(map[keycode.Code]keycode.Code)}
}

func (s *socdChecker) add(self, opposing keycode.Code) {
	s.declared[self] = opposing
}

func (s *socdChecker) errors() ValidationErrors {
	var errs ValidationErrors
	for self, opposing := range s.declared {
		mirrored, ok := s.declared[opposing]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "socd",
				Message: fmt.Sprintf("%s declares Socd(%s,%s) but %s has no matching declaration", self, self, opposing, opposing),
			})
			continue
		}
		if mirrored != self {
			errs = append(errs, ValidationError{
				Field:   "socd",
				Message: fmt.Sprintf("%s declares Socd(%s,%s) but %s declares Socd(%s,%s), not back to %s", self, self, opposing, opposing, opposing, mirrored, self),
			})
		}
	}
	return errs
}

// validateBindings checks one Keycode→BindingSpec table: every key name
// and every referenced key name must be valid, every LayerTo target
// must be a declared layer, and every Socd binding is recorded for the
// caller's symmetry check.
func validateBindings(scope string, bindings map[string]BindingSpec, layerNames map[string]bool, socd *socdChecker) ValidationErrors {
	var errs ValidationErrors
	for keyName, spec := range bindings {
		self, ok := keycode.ParseName(keyName)
		if !ok {
			errs = append(errs, ValidationError{Field: scope + "." + keyName, Message: "unknown keycode name"})
			continue
		}

		switch spec.Type {
		case "key":
			if _, ok := keycode.ParseName(spec.Key); !ok {
				errs = append(errs, ValidationError{Field: scope + "." + keyName + ".key", Message: "unknown keycode name: " + spec.Key})
			}
		case "home_row", "overload":
			if _, ok := keycode.ParseName(spec.Tap); !ok {
				errs = append(errs, ValidationError{Field: scope + "." + keyName + ".tap", Message: "unknown keycode name: " + spec.Tap})
			}
			if _, ok := keycode.ParseName(spec.Hold); !ok {
				errs = append(errs, ValidationError{Field: scope + "." + keyName + ".hold", Message: "unknown keycode name: " + spec.Hold})
			}
		case "layer_to":
			if spec.Layer != "base" && !layerNames[spec.Layer] {
				errs = append(errs, ValidationError{Field: scope + "." + keyName + ".layer", Message: "unknown layer: " + spec.Layer})
			}
		case "socd":
			opposing, ok := keycode.ParseName(spec.Opposing)
			if !ok {
				errs = append(errs, ValidationError{Field: scope + "." + keyName + ".opposing", Message: "unknown keycode name: " + spec.Opposing})
				continue
			}
			socd.add(self, opposing)
		case "command":
			if strings.TrimSpace(spec.Command) == "" {
				errs = append(errs, ValidationError{Field: scope + "." + keyName + ".command", Message: "command string cannot be empty"})
			}
		default:
			errs = append(errs, ValidationError{Field: scope + "." + keyName + ".type", Message: "unknown action type: " + spec.Type})
		}
	}
	return errs
}
