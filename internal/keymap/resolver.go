package keymap

import "keyremapd/internal/keycode"

// Resolver holds the layer set of one effective config snapshot and
// implements the lookup order from spec §4.2.
type Resolver struct {
	Base     *Layer
	Layers   map[string]*Layer
	GameMode *Layer // nil if the config defines no game_mode remaps
}

// NewResolver builds a resolver over base, the named layers (not
// including base or game_mode, which are passed separately), and the
// optional game_mode layer.
func NewResolver(base *Layer, layers map[string]*Layer, gameMode *Layer) *Resolver {
	return &Resolver{Base: base, Layers: layers, GameMode: gameMode}
}

// HasLayer reports whether name is a known layer the stack may push,
// for the Device Engine's "unknown layer name in LayerTo" check.
func (r *Resolver) HasLayer(name string) bool {
	_, ok := r.Layers[name]
	return ok
}

// Resolve implements spec §4.2's four-step lookup order. stack is
// consulted top-to-bottom excluding base, which is always tried last
// before the identity fallback.
func (r *Resolver) Resolve(k keycode.Code, stack *Stack, gameModeOn bool) Action {
	if gameModeOn && r.GameMode != nil {
		if a, ok := r.GameMode.Bindings[k]; ok {
			return a
		}
	}

	for _, name := range stack.Names() {
		layer := r.Layers[name]
		if layer == nil {
			continue
		}
		if a, ok := layer.Bindings[k]; ok {
			return a
		}
	}

	if r.Base != nil {
		if a, ok := r.Base.Bindings[k]; ok {
			return a
		}
	}

	return Key(k)
}
