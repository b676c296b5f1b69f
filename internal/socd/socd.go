// Package socd resolves Simultaneous Opposite Cardinal Direction pairs
// under last-input priority: of two declared opposing keys, only the
// more recently pressed side is ever active on the virtual device.
package socd

import "keyremapd/internal/keycode"

// Emission is a single virtual key transition the resolver wants emitted,
// in the order it must appear in the batch.
type Emission struct {
	Code    keycode.Code
	Pressed bool
}

// Pair is the per-declared-binding state described in spec §3 ("SOCD
// pair"). None is represented by Active == keycode.Unknown.
type Pair struct {
	A, B      keycode.Code
	AHeld     bool
	BHeld     bool
	LastInput keycode.Code
	Active    keycode.Code
}

func (p *Pair) other(k keycode.Code) keycode.Code {
	if k == p.A {
		return p.B
	}
	return p.A
}

func (p *Pair) heldOf(k keycode.Code) bool {
	if k == p.A {
		return p.AHeld
	}
	return p.BHeld
}

func (p *Pair) setHeld(k keycode.Code, held bool) {
	if k == p.A {
		p.AHeld = held
	} else {
		p.BHeld = held
	}
}

// resolve recomputes new_active per spec §4.4 step 3 and emits the
// release/press transition per step 4, mutating p.Active in place.
func (p *Pair) resolve() []Emission {
	var newActive keycode.Code
	switch {
	case p.AHeld && p.BHeld:
		newActive = p.LastInput
	case p.AHeld:
		newActive = p.A
	case p.BHeld:
		newActive = p.B
	default:
		newActive = keycode.Unknown
	}

	if newActive == p.Active {
		return nil
	}

	var out []Emission
	if p.Active != keycode.Unknown {
		out = append(out, Emission{Code: p.Active, Pressed: false})
	}
	if newActive != keycode.Unknown {
		out = append(out, Emission{Code: newActive, Pressed: true})
	}
	p.Active = newActive
	return out
}

// Pairing is a declared opposing pair as found in a config snapshot
// (e.g. Socd(W, S) together with its symmetric Socd(S, W)).
type Pairing struct {
	A, B keycode.Code
}

// Resolver holds one Pair per declared pairing, indexed by both of its
// keys so a press/release of either side finds the same *Pair.
type Resolver struct {
	byKey map[keycode.Code]*Pair
}

// NewResolver builds a resolver from the symmetric pairings found in an
// effective config snapshot. The config validator is responsible for
// having rejected asymmetric or partial declarations before this runs.
func NewResolver(pairings []Pairing) *Resolver {
	r := &Resolver{byKey: make(map[keycode.Code]*Pair, len(pairings)*2)}
	for _, pr := range pairings {
		p := &Pair{A: pr.A, B: pr.B}
		r.byKey[pr.A] = p
		r.byKey[pr.B] = p
	}
	return r
}

// Has reports whether k participates in a declared SOCD pair.
func (r *Resolver) Has(k keycode.Code) bool {
	_, ok := r.byKey[k]
	return ok
}

// Press processes a physical press of k, which must satisfy Has(k).
func (r *Resolver) Press(k keycode.Code) []Emission {
	p := r.byKey[k]
	p.setHeld(k, true)
	p.LastInput = k
	return p.resolve()
}

// Release processes a physical release of k, which must satisfy Has(k).
// last_input is left unchanged per spec §4.4 step 2.
func (r *Resolver) Release(k keycode.Code) []Emission {
	p := r.byKey[k]
	p.setHeld(k, false)
	return p.resolve()
}

// Reset clears all pair state without emitting releases; callers that
// need outstanding virtual presses released (e.g. shutdown) must do so
// via their own held-set, not through the resolver.
func (r *Resolver) Reset() {
	seen := make(map[*Pair]bool)
	for _, p := range r.byKey {
		if seen[p] {
			continue
		}
		seen[p] = true
		p.AHeld, p.BHeld = false, false
		p.Active = keycode.Unknown
	}
}
