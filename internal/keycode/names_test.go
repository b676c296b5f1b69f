package keycode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNameRoundTrip(t *testing.T) {
	for c := Unknown + 1; c < maxCode; c++ {
		name := c.String()
		require.NotEqual(t, "Unknown", name)
		require.NotEqual(t, "Invalid", name)
		got, ok := ParseName(name)
		require.True(t, ok)
		require.Equal(t, c, got)
	}
}

func TestParseNameUnknown(t *testing.T) {
	_, ok := ParseName("NotAKey")
	require.False(t, ok)
}
