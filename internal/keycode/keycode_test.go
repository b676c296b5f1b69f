package keycode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslatorRoundTrip(t *testing.T) {
	tr := NewTranslator()
	for c := Unknown + 1; c < maxCode; c++ {
		os := tr.Out(c)
		got, ok := tr.In(os)
		require.Truef(t, ok, "code %d: Out produced %d which In rejects", c, os)
		require.Equalf(t, c, got, "code %d: round trip via evdev %d produced %d instead", c, os, got)
	}
}

func TestTranslatorUnknownOsCodeRejected(t *testing.T) {
	tr := NewTranslator()
	_, ok := tr.In(0xffff)
	require.False(t, ok)
}

func TestOutPanicsOnUnknown(t *testing.T) {
	tr := NewTranslator()
	require.Panics(t, func() { tr.Out(Unknown) })
}

func TestCapabilitiesCoversEveryCode(t *testing.T) {
	tr := NewTranslator()
	caps := make(map[OsCode]bool)
	for _, os := range tr.Capabilities() {
		caps[os] = true
	}
	for c := Unknown + 1; c < maxCode; c++ {
		require.Truef(t, caps[tr.Out(c)], "code %d missing from capability set", c)
	}
}

func TestValid(t *testing.T) {
	require.False(t, Unknown.Valid())
	require.True(t, A.Valid())
	require.False(t, maxCode.Valid())
}
