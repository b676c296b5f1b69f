// Package taphold drives the per-physical-key tap/hold state machines
// described in spec §4.3: HomeRow (permissive hold) and Overload (pure
// timing), including double-tap-to-hold-tap-key.
package taphold

import (
	"time"

	"keyremapd/internal/keycode"
)

// Variant selects which edge a Pending slot resolves on besides timeout
// and release: HomeRow additionally resolves on any other key's press.
type Variant int

const (
	HomeRow Variant = iota
	Overload
)

// Phase is one slot's position in the state machine of spec §4.3.
type Phase int

const (
	Idle Phase = iota
	Pending
	ResolvedTap
	ResolvedHold
	DoubleTapHold
)

// Emission is a single virtual key transition the engine wants emitted.
type Emission struct {
	Code    keycode.Code
	Pressed bool
}

// Slot is the ephemeral per-physical-key state from spec §3.
type Slot struct {
	Key       keycode.Code
	Variant   Variant
	Tap       keycode.Code
	Hold      keycode.Code
	Phase     Phase
	PressedAt time.Time
}

// Engine owns every live tap/hold slot for one Device Engine instance.
type Engine struct {
	tappingTerm     time.Duration
	doubleTapWindow time.Duration // 0 disables double-tap-hold entirely
	slots           map[keycode.Code]*Slot
	order           []keycode.Code // press order, for deterministic forced resolution
	lastTapRelease  map[keycode.Code]time.Time
}

// New builds a tap/hold engine for one effective config's timing values.
// doubleTapWindow of 0 disables the double-tap-hold edge.
func New(tappingTerm, doubleTapWindow time.Duration) *Engine {
	return &Engine{
		tappingTerm:     tappingTerm,
		doubleTapWindow: doubleTapWindow,
		slots:           make(map[keycode.Code]*Slot),
		lastTapRelease:  make(map[keycode.Code]time.Time),
	}
}

// Has reports whether k currently has a live slot.
func (e *Engine) Has(k keycode.Code) bool {
	_, ok := e.slots[k]
	return ok
}

func (e *Engine) destroy(k keycode.Code) {
	delete(e.slots, k)
	for i, c := range e.order {
		if c == k {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Press handles the physical press of a tap/hold-bound key k.
//
// If a prior tap of the same physical key resolved within
// doubleTapWindow of now, the slot jumps straight to DoubleTapHold and
// emits press(tap) (held, not released, until the matching release).
// Otherwise a new Pending slot is created at t0 = now.
func (e *Engine) Press(k keycode.Code, variant Variant, tap, hold keycode.Code, now time.Time) []Emission {
	if last, ok := e.lastTapRelease[k]; ok && e.doubleTapWindow > 0 && now.Sub(last) <= e.doubleTapWindow {
		delete(e.lastTapRelease, k)
		e.slots[k] = &Slot{Key: k, Variant: variant, Tap: tap, Hold: hold, Phase: DoubleTapHold, PressedAt: now}
		return []Emission{{Code: tap, Pressed: true}}
	}
	e.slots[k] = &Slot{Key: k, Variant: variant, Tap: tap, Hold: hold, Phase: Pending, PressedAt: now}
	e.order = append(e.order, k)
	return nil
}

// Release handles the physical release of key k, which must have a live
// slot (i.e. Has(k) was true).
func (e *Engine) Release(k keycode.Code, now time.Time) []Emission {
	slot, ok := e.slots[k]
	if !ok {
		return nil
	}
	switch slot.Phase {
	case Pending:
		// elapsed == tappingTerm resolves to Hold, not tap; strictly less
		// than the term is required for a tap per the boundary rule.
		if now.Sub(slot.PressedAt) < e.tappingTerm {
			e.destroy(k)
			e.lastTapRelease[k] = now
			return []Emission{{Code: slot.Tap, Pressed: true}, {Code: slot.Tap, Pressed: false}}
		}
		e.destroy(k)
		return []Emission{{Code: slot.Hold, Pressed: true}, {Code: slot.Hold, Pressed: false}}
	case ResolvedHold:
		e.destroy(k)
		return []Emission{{Code: slot.Hold, Pressed: false}}
	case DoubleTapHold:
		e.destroy(k)
		return []Emission{{Code: slot.Tap, Pressed: false}}
	default:
		e.destroy(k)
		return nil
	}
}

// ForceHomeRowPendings resolves every currently Pending HomeRow slot to
// Hold immediately, in press order, per spec §4.3's permissive-hold edge
// and the "multiple Pendings" ordering rule in §4.3. The Device Engine
// must call this, and emit its resulting transitions, before processing
// the event that triggered the force.
func (e *Engine) ForceHomeRowPendings(now time.Time) []Emission {
	var out []Emission
	for _, k := range append([]keycode.Code(nil), e.order...) {
		slot := e.slots[k]
		if slot == nil || slot.Phase != Pending || slot.Variant != HomeRow {
			continue
		}
		slot.Phase = ResolvedHold
		out = append(out, Emission{Code: slot.Hold, Pressed: true})
	}
	return out
}

// CheckTimeouts force-resolves every Pending slot (either variant) whose
// tapping term has elapsed as of now, per spec §4.3's timeout edge and
// the "poll with a bounded wait" requirement in §4.3's edge cases.
func (e *Engine) CheckTimeouts(now time.Time) []Emission {
	var out []Emission
	for _, k := range append([]keycode.Code(nil), e.order...) {
		slot := e.slots[k]
		if slot == nil || slot.Phase != Pending {
			continue
		}
		if now.Sub(slot.PressedAt) >= e.tappingTerm {
			slot.Phase = ResolvedHold
			out = append(out, Emission{Code: slot.Hold, Pressed: true})
		}
	}
	return out
}

// NextDeadline returns the earliest timeout among live Pending slots, if
// any, for the Device Engine's `min(next_pending_timeout, fixed_idle_tick)`
// deadline computation (spec §4.6 step 1).
func (e *Engine) NextDeadline() (time.Time, bool) {
	var deadline time.Time
	found := false
	for _, slot := range e.slots {
		if slot.Phase != Pending {
			continue
		}
		d := slot.PressedAt.Add(e.tappingTerm)
		if !found || d.Before(deadline) {
			deadline = d
			found = true
		}
	}
	return deadline, found
}

// Reset destroys all live slots without emitting releases; the caller's
// held-set (not this engine) is the source of truth for what must be
// released on shutdown/ungrab.
func (e *Engine) Reset() {
	e.slots = make(map[keycode.Code]*Slot)
	e.order = nil
	e.lastTapRelease = make(map[keycode.Code]time.Time)
}
