package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keycode"
	"keyremapd/internal/keymap"
)

func TestEffectiveAppliesBaseBindings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Base["CapsLock"] = BindingSpec{Type: "layer_to", Layer: "nav"}
	cfg.Layers["nav"] = LayerSpec{Bindings: map[string]BindingSpec{
		"H": {Type: "key", Key: "Left"},
	}}
	require.NoError(t, cfg.Validate())

	snap, err := cfg.Effective("unknown-device")
	require.NoError(t, err)

	action := snap.Resolver.Resolve(keycode.CapsLock, keymap.NewStack(), false)
	require.Equal(t, keymap.LayerToAction, action.Kind)
	require.Equal(t, "nav", action.Layer)
}

func TestEffectiveDeviceOverrideReplacesSection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Base["A"] = BindingSpec{Type: "key", Key: "B"}
	term := 120
	cfg.Devices["aaaaaaaa11112222"] = DeviceOverride{
		TappingTermMs: &term,
		Base:          map[string]BindingSpec{"C": {Type: "key", Key: "D"}},
	}
	require.NoError(t, cfg.Validate())

	snap, err := cfg.Effective("aaaaaaaa11112222")
	require.NoError(t, err)
	require.Equal(t, 120*time.Millisecond, snap.TappingTerm)

	stack := keymap.NewStack()
	// the override replaces base entirely: "A" is no longer remapped.
	require.Equal(t, keymap.KeyAction, snap.Resolver.Resolve(keycode.A, stack, false).Kind)
	require.Equal(t, keycode.A, snap.Resolver.Resolve(keycode.A, stack, false).Key)

	action := snap.Resolver.Resolve(keycode.C, stack, false)
	require.Equal(t, keycode.D, action.Key)
}

func TestEffectiveDeviceWithoutOverrideUsesBase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Base["A"] = BindingSpec{Type: "key", Key: "B"}
	require.NoError(t, cfg.Validate())

	snap, err := cfg.Effective("no-such-device")
	require.NoError(t, err)

	action := snap.Resolver.Resolve(keycode.A, keymap.NewStack(), false)
	require.Equal(t, keycode.B, action.Key)
}

func TestEffectiveCollectsSocdPairingsOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Base["W"] = BindingSpec{Type: "socd", Opposing: "S"}
	cfg.Base["S"] = BindingSpec{Type: "socd", Opposing: "W"}
	require.NoError(t, cfg.Validate())

	snap, err := cfg.Effective("dev")
	require.NoError(t, err)
	require.Len(t, snap.SocdPairings, 1)
}

func TestEffectiveGameModeLayerOnlyBuiltWhenPresent(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	snap, err := cfg.Effective("dev")
	require.NoError(t, err)
	require.Nil(t, snap.GameModeLayer)
}
