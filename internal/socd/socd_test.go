package socd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keycode"
)

func newWASD() *Resolver {
	return NewResolver([]Pairing{
		{A: keycode.W, B: keycode.S},
		{A: keycode.A, B: keycode.D},
	})
}

func TestBasicPress(t *testing.T) {
	r := newWASD()
	require.Equal(t, []Emission{{keycode.W, true}}, r.Press(keycode.W))
}

func TestOppositeDirections(t *testing.T) {
	r := newWASD()
	require.Equal(t, []Emission{{keycode.W, true}}, r.Press(keycode.W))
	require.Equal(t, []Emission{{keycode.W, false}, {keycode.S, true}}, r.Press(keycode.S))
}

func TestReleaseOpposite(t *testing.T) {
	r := newWASD()
	r.Press(keycode.W)
	r.Press(keycode.S)
	// S is active; releasing S should fall back to W (still held).
	require.Equal(t, []Emission{{keycode.S, false}, {keycode.W, true}}, r.Release(keycode.S))
}

func TestHorizontalAndVerticalIndependent(t *testing.T) {
	r := newWASD()
	require.Equal(t, []Emission{{keycode.W, true}}, r.Press(keycode.W))
	require.Equal(t, []Emission{{keycode.A, true}}, r.Press(keycode.A))
	require.Equal(t, []Emission{{keycode.W, false}, {keycode.S, true}}, r.Press(keycode.S))
	// horizontal pair untouched by the vertical transition
	require.True(t, r.Has(keycode.A))
}

func TestNeitherHeldIsNone(t *testing.T) {
	r := newWASD()
	r.Press(keycode.W)
	require.Equal(t, []Emission{{keycode.W, false}}, r.Release(keycode.W))
}

func TestLastInputPriorityScenario(t *testing.T) {
	// spec.md §8 scenario 5: P(W)@0, P(S)@20, R(S)@40, R(W)@60.
	r := newWASD()
	require.Equal(t, []Emission{{keycode.W, true}}, r.Press(keycode.W))
	require.Equal(t, []Emission{{keycode.W, false}, {keycode.S, true}}, r.Press(keycode.S))
	require.Equal(t, []Emission{{keycode.S, false}, {keycode.W, true}}, r.Release(keycode.S))
	require.Equal(t, []Emission{{keycode.W, false}}, r.Release(keycode.W))
}

func TestUnrelatedKeyNotInAnyPair(t *testing.T) {
	r := newWASD()
	require.False(t, r.Has(keycode.Q))
}

func TestResetClearsState(t *testing.T) {
	r := newWASD()
	r.Press(keycode.W)
	r.Reset()
	require.Equal(t, []Emission{{keycode.S, true}}, r.Press(keycode.S))
}
