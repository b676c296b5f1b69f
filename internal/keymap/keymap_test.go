package keymap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keycode"
)

func TestIdentityFallback(t *testing.T) {
	base := &Layer{Name: BaseLayer, Bindings: map[keycode.Code]Action{}}
	r := NewResolver(base, map[string]*Layer{}, nil)
	require.Equal(t, Key(keycode.Q), r.Resolve(keycode.Q, NewStack(), false))
}

func TestBaseBindingUsedWhenNoLayerOverrides(t *testing.T) {
	base := &Layer{Name: BaseLayer, Bindings: map[keycode.Code]Action{
		keycode.CapsLock: LayerTo("nav"),
	}}
	r := NewResolver(base, map[string]*Layer{}, nil)
	require.Equal(t, LayerTo("nav"), r.Resolve(keycode.CapsLock, NewStack(), false))
}

func TestLayerStackShadowsBase(t *testing.T) {
	base := &Layer{Name: BaseLayer, Bindings: map[keycode.Code]Action{
		keycode.H: Key(keycode.H),
	}}
	nav := &Layer{Name: "nav", Bindings: map[keycode.Code]Action{
		keycode.H: Key(keycode.Left),
	}}
	r := NewResolver(base, map[string]*Layer{"nav": nav}, nil)

	stack := NewStack()
	stack.Push("nav")
	require.Equal(t, Key(keycode.Left), r.Resolve(keycode.H, stack, false))
}

func TestTopOfStackWinsOverLowerLayer(t *testing.T) {
	base := &Layer{Name: BaseLayer, Bindings: map[keycode.Code]Action{}}
	lower := &Layer{Name: "lower", Bindings: map[keycode.Code]Action{
		keycode.J: Key(keycode.Down),
	}}
	upper := &Layer{Name: "upper", Bindings: map[keycode.Code]Action{
		keycode.J: Key(keycode.Up),
	}}
	r := NewResolver(base, map[string]*Layer{"lower": lower, "upper": upper}, nil)

	stack := NewStack()
	stack.Push("lower")
	stack.Push("upper")
	require.Equal(t, Key(keycode.Up), r.Resolve(keycode.J, stack, false))
}

func TestGameModeConsultedFirst(t *testing.T) {
	base := &Layer{Name: BaseLayer, Bindings: map[keycode.Code]Action{
		keycode.W: Socd(keycode.W, keycode.S),
	}}
	nav := &Layer{Name: "nav", Bindings: map[keycode.Code]Action{
		keycode.W: Key(keycode.Up),
	}}
	gameMode := &Layer{Name: GameModeLayer, Bindings: map[keycode.Code]Action{
		keycode.W: Key(keycode.W),
	}}
	r := NewResolver(base, map[string]*Layer{"nav": nav}, gameMode)

	stack := NewStack()
	stack.Push("nav")
	require.Equal(t, Key(keycode.W), r.Resolve(keycode.W, stack, true))
	require.Equal(t, Key(keycode.Up), r.Resolve(keycode.W, stack, false))
}

func TestGameModeFallsThroughWhenUnbound(t *testing.T) {
	base := &Layer{Name: BaseLayer, Bindings: map[keycode.Code]Action{
		keycode.Q: Key(keycode.Tab),
	}}
	gameMode := &Layer{Name: GameModeLayer, Bindings: map[keycode.Code]Action{}}
	r := NewResolver(base, map[string]*Layer{}, gameMode)

	require.Equal(t, Key(keycode.Tab), r.Resolve(keycode.Q, NewStack(), true))
}

func TestStackPushPopAndBaseIsPermanent(t *testing.T) {
	s := NewStack()
	require.False(t, s.Pop())
	s.Push("nav")
	require.Equal(t, []string{"nav"}, s.Names())
	require.True(t, s.Pop())
	require.Nil(t, s.Names())
}

func TestStackPopNameRemovesPushedFrame(t *testing.T) {
	s := NewStack()
	s.Push("nav")
	s.Push("sym")
	require.True(t, s.PopName("nav"))
	require.Equal(t, []string{"sym"}, s.Names())
}

func TestHasLayer(t *testing.T) {
	base := &Layer{Name: BaseLayer, Bindings: map[keycode.Code]Action{}}
	r := NewResolver(base, map[string]*Layer{"nav": {Name: "nav"}}, nil)
	require.True(t, r.HasLayer("nav"))
	require.False(t, r.HasLayer("missing"))
}
