package config

import (
	"fmt"
	"time"

	"keyremapd/internal/keycode"
	"keyremapd/internal/keymap"
	"keyremapd/internal/socd"
)

// Snapshot is the fully-resolved, immutable configuration one Device
// Engine runs against. It is derived once at startup and once per
// reload (spec §3's "effective config is a snapshot, not a live
// view"): nothing in internal/engine reaches back into *Config.
type Snapshot struct {
	TappingTerm     time.Duration
	DoubleTapWindow time.Duration
	Resolver        *keymap.Resolver
	SocdPairings    []socd.Pairing
	GameModeLayer   *keymap.Layer
}

// Effective derives the Snapshot for deviceID. A device with no entry
// in c.Devices gets the base config verbatim. An override replaces
// (never merges) the sections it sets, per spec §3: TappingTermMs and
// DoubleTapWindowMs are replaced field-by-field since each is a scalar,
// but Base, Layers, and GameMode are each replaced as a whole section
// the moment the override sets any key within them.
func (c *Config) Effective(deviceID string) (*Snapshot, error) {
	c.mu.RLock()
	ov, hasOverride := c.Devices[deviceID]
	tappingTermMs := c.TappingTermMs
	doubleTapWindowMs := c.DoubleTapWindowMs
	baseSpecs := c.Base
	layerSpecs := c.Layers
	gameModeSpecs := c.GameMode
	c.mu.RUnlock()

	if hasOverride {
		if ov.TappingTermMs != nil {
			tappingTermMs = *ov.TappingTermMs
		}
		if ov.DoubleTapWindowMs != nil {
			doubleTapWindowMs = *ov.DoubleTapWindowMs
		}
		if ov.Base != nil {
			baseSpecs = ov.Base
		}
		if ov.Layers != nil {
			layerSpecs = ov.Layers
		}
		if ov.GameMode != nil {
			gameModeSpecs = ov.GameMode
		}
	}

	base, pairings, err := buildLayer(keymap.BaseLayer, baseSpecs)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}

	layers := make(map[string]*keymap.Layer, len(layerSpecs))
	for name, spec := range layerSpecs {
		layer, more, err := buildLayer(name, spec.Bindings)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", name, err)
		}
		layers[name] = layer
		pairings = append(pairings, more...)
	}

	var gameMode *keymap.Layer
	if len(gameModeSpecs) > 0 {
		gm, more, err := buildLayer(keymap.GameModeLayer, gameModeSpecs)
		if err != nil {
			return nil, fmt.Errorf("game_mode: %w", err)
		}
		gameMode = gm
		pairings = append(pairings, more...)
	}

	return &Snapshot{
		TappingTerm:     time.Duration(tappingTermMs) * time.Millisecond,
		DoubleTapWindow: time.Duration(doubleTapWindowMs) * time.Millisecond,
		Resolver:        keymap.NewResolver(base, layers, gameMode),
		SocdPairings:    dedupePairings(pairings),
		GameModeLayer:   gameMode,
	}, nil
}

// buildLayer converts one BindingSpec table into a keymap.Layer plus
// any SOCD pairings it declares. Validate is assumed to have already
// rejected unknown keycodes and malformed entries; a build-time error
// here indicates a caller skipped Validate.
func buildLayer(name string, specs map[string]BindingSpec) (*keymap.Layer, []socd.Pairing, error) {
	bindings := make(map[keycode.Code]keymap.Action, len(specs))
	var pairings []socd.Pairing

	for keyName, spec := range specs {
		self, ok := keycode.ParseName(keyName)
		if !ok {
			return nil, nil, fmt.Errorf("unknown keycode name %q", keyName)
		}

		switch spec.Type {
		case "key":
			target, ok := keycode.ParseName(spec.Key)
			if !ok {
				return nil, nil, fmt.Errorf("%s: unknown key target %q", keyName, spec.Key)
			}
			bindings[self] = keymap.Key(target)
		case "home_row":
			tap, hold, err := parseTapHold(spec)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", keyName, err)
			}
			bindings[self] = keymap.HomeRow(tap, hold)
		case "overload":
			tap, hold, err := parseTapHold(spec)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", keyName, err)
			}
			bindings[self] = keymap.Overload(tap, hold)
		case "layer_to":
			bindings[self] = keymap.LayerTo(spec.Layer)
		case "socd":
			opposing, ok := keycode.ParseName(spec.Opposing)
			if !ok {
				return nil, nil, fmt.Errorf("%s: unknown opposing key %q", keyName, spec.Opposing)
			}
			bindings[self] = keymap.Socd(self, opposing)
			pairings = append(pairings, socd.Pairing{A: self, B: opposing})
		case "command":
			bindings[self] = keymap.Command(spec.Command)
		default:
			return nil, nil, fmt.Errorf("%s: unknown action type %q", keyName, spec.Type)
		}
	}

	return &keymap.Layer{Name: name, Bindings: bindings}, pairings, nil
}

func parseTapHold(spec BindingSpec) (tap, hold keycode.Code, err error) {
	tap, ok := keycode.ParseName(spec.Tap)
	if !ok {
		return 0, 0, fmt.Errorf("unknown tap target %q", spec.Tap)
	}
	hold, ok = keycode.ParseName(spec.Hold)
	if !ok {
		return 0, 0, fmt.Errorf("unknown hold target %q", spec.Hold)
	}
	return tap, hold, nil
}

// dedupePairings collapses the symmetric (A,B) and (B,A) declarations
// validation requires into one socd.Pairing per pair, since the engine
// only needs to register each pair with its Resolver once.
func dedupePairings(in []socd.Pairing) []socd.Pairing {
	seen := make(map[[2]keycode.Code]bool, len(in))
	out := make([]socd.Pairing, 0, len(in)/2+1)
	for _, p := range in {
		key := [2]keycode.Code{p.A, p.B}
		rev := [2]keycode.Code{p.B, p.A}
		if seen[key] || seen[rev] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
