package taphold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keycode"
)

func ms(n int) time.Time {
	return time.Unix(0, 0).Add(time.Duration(n) * time.Millisecond)
}

// scenario 1: pure tap.
func TestPureTap(t *testing.T) {
	e := New(130*time.Millisecond, 0)
	require.Nil(t, e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(0)))
	got := e.Release(keycode.A, ms(50))
	require.Equal(t, []Emission{{keycode.A, true}, {keycode.A, false}}, got)
}

// scenario 2: pure hold.
func TestPureHold(t *testing.T) {
	e := New(130*time.Millisecond, 0)
	e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(0))
	timeout := e.CheckTimeouts(ms(130))
	require.Equal(t, []Emission{{keycode.LeftSuper, true}}, timeout)
	got := e.Release(keycode.A, ms(200))
	require.Equal(t, []Emission{{keycode.LeftSuper, false}}, got)
}

// scenario 3: permissive hold, HomeRow forced by another key's press.
func TestPermissiveHold(t *testing.T) {
	e := New(130*time.Millisecond, 0)
	e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(0))
	// C pressed at 40ms: force homerow pendings before emitting C.
	forced := e.ForceHomeRowPendings(ms(40))
	require.Equal(t, []Emission{{keycode.LeftSuper, true}}, forced)
	// A's slot is now ResolvedHold; releasing it at 100ms emits only release.
	got := e.Release(keycode.A, ms(100))
	require.Equal(t, []Emission{{keycode.LeftSuper, false}}, got)
}

// scenario 4: Overload does not permissive-hold.
func TestOverloadDoesNotForce(t *testing.T) {
	e := New(130*time.Millisecond, 0)
	e.Press(keycode.A, Overload, keycode.A, keycode.LeftCtrl, ms(0))
	forced := e.ForceHomeRowPendings(ms(40))
	require.Nil(t, forced)
	require.True(t, e.Has(keycode.A))
	got := e.Release(keycode.A, ms(100))
	require.Equal(t, []Emission{{keycode.A, true}, {keycode.A, false}}, got)
}

// scenario 7: double-tap hold.
func TestDoubleTapHold(t *testing.T) {
	e := New(130*time.Millisecond, 300*time.Millisecond)
	e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(0))
	tap := e.Release(keycode.A, ms(50))
	require.Equal(t, []Emission{{keycode.A, true}, {keycode.A, false}}, tap)

	secondPress := e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(100))
	require.Equal(t, []Emission{{keycode.A, true}}, secondPress)

	got := e.Release(keycode.A, ms(500))
	require.Equal(t, []Emission{{keycode.A, false}}, got)
}

func TestDoubleTapWindowBoundaryMissed(t *testing.T) {
	e := New(130*time.Millisecond, 300*time.Millisecond)
	e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(0))
	e.Release(keycode.A, ms(50))
	// last tap-release was at 50ms; window+1 puts the next press at 351ms.
	secondPress := e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(351))
	require.Nil(t, secondPress)
	require.Equal(t, Pending, e.slots[keycode.A].Phase)
}

func TestZeroTappingTermResolvesImmediatelyToHold(t *testing.T) {
	e := New(0, 0)
	e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(0))
	got := e.CheckTimeouts(ms(0))
	require.Equal(t, []Emission{{keycode.LeftSuper, true}}, got)
}

func TestHeldExactlyAtTappingTermBoundaryResolvesHold(t *testing.T) {
	e := New(130*time.Millisecond, 0)
	e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(0))
	got := e.Release(keycode.A, ms(130))
	require.Equal(t, []Emission{{keycode.LeftSuper, true}, {keycode.LeftSuper, false}}, got)
}

func TestMultiplePendingsForceInPressOrder(t *testing.T) {
	e := New(130*time.Millisecond, 0)
	e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(0))
	e.Press(keycode.S, HomeRow, keycode.S, keycode.LeftAlt, ms(5))
	forced := e.ForceHomeRowPendings(ms(40))
	require.Equal(t, []Emission{
		{keycode.LeftSuper, true},
		{keycode.LeftAlt, true},
	}, forced)
}

func TestNextDeadlineTracksEarliestPending(t *testing.T) {
	e := New(130*time.Millisecond, 0)
	_, ok := e.NextDeadline()
	require.False(t, ok)

	e.Press(keycode.A, HomeRow, keycode.A, keycode.LeftSuper, ms(10))
	e.Press(keycode.S, HomeRow, keycode.S, keycode.LeftAlt, ms(5))
	deadline, ok := e.NextDeadline()
	require.True(t, ok)
	require.Equal(t, ms(135), deadline)
}
