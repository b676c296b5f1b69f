package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDevicesFile = `I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
P: Phys=isa0060/serio0/input0
S: Sysfs=/devices/platform/i8042/serio0/input/input0
U: Uniq=
H: Handlers=sysrq kbd event3
B: PROP=0
B: EV=120013
B: KEY=402000000 3803078f800d001 feffffdfffefffff fffffffffffffffe
B: MSC=10

I: Bus=0003 Vendor=046d Product=c52b Version=0111
N: Name="Logitech USB Receiver Mouse"
P: Phys=usb-0000:00:14.0-1/input2
S: Sysfs=/devices/pci0000:00/0000:00:14.0/usb1/1-1/1-1:1.2/0003:046D:C52B.0002/input/input5
U: Uniq=
H: Handlers=mouse1 event5
B: PROP=0
B: EV=17
B: REL=1943
B: MSC=10

I: Bus=0003 Vendor=04d9 Product=0348 Version=0110
N: Name="Vendor Mechanical Keyboard"
P: Phys=usb-0000:00:14.0-2/input0
S: Sysfs=/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/0003:04D9:0348.0003/input/input7
U: Uniq=DEADBEEF01
H: Handlers=sysrq kbd event7 leds
B: PROP=0
B: EV=120013
B: KEY=1000000000007 ff800000000007ff febeffdfffefffff fffffffffffffffe
B: MSC=10
`

func withSampleDevicesFile(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "devices")
	require.NoError(t, os.WriteFile(path, []byte(sampleDevicesFile), 0644))

	prev := devicesFilePath
	devicesFilePath = path
	t.Cleanup(func() { devicesFilePath = prev })
}

func TestDiscoverFindsOnlyKeyboards(t *testing.T) {
	withSampleDevicesFile(t)

	infos, err := Discover()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	var names []string
	for _, info := range infos {
		names = append(names, info.Name)
	}
	require.Contains(t, names, "AT Translated Set 2 keyboard")
	require.Contains(t, names, "Vendor Mechanical Keyboard")
	require.NotContains(t, names, "Logitech USB Receiver Mouse")
}

func TestDiscoverExtractsEventPath(t *testing.T) {
	withSampleDevicesFile(t)

	infos, err := Discover()
	require.NoError(t, err)

	byName := map[string]Info{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	require.Equal(t, "/dev/input/event3", byName["AT Translated Set 2 keyboard"].Path)
	require.Equal(t, "/dev/input/event7", byName["Vendor Mechanical Keyboard"].Path)
}

func TestDiscoverIdentityIsStableAndUnique(t *testing.T) {
	withSampleDevicesFile(t)

	first, err := Discover()
	require.NoError(t, err)
	second, err := Discover()
	require.NoError(t, err)

	require.Equal(t, first[0].ID, second[0].ID, "identity must be stable across re-enumeration")

	ids := map[string]bool{}
	for _, info := range first {
		require.False(t, ids[info.ID], "identity must be unique per distinct device")
		ids[info.ID] = true
	}
}

func TestDiscoverMissingFileReturnsError(t *testing.T) {
	prev := devicesFilePath
	devicesFilePath = filepath.Join(t.TempDir(), "does-not-exist")
	defer func() { devicesFilePath = prev }()

	_, err := Discover()
	require.Error(t, err)
}

func TestEventNumber(t *testing.T) {
	n, err := EventNumber("/dev/input/event12")
	require.NoError(t, err)
	require.Equal(t, 12, n)

	_, err = EventNumber("/dev/input/mouse1")
	require.Error(t, err)
}

func TestParseIdentLine(t *testing.T) {
	bus, vendor, product, version := parseIdentLine("I: Bus=0003 Vendor=04d9 Product=0348 Version=0110")
	require.Equal(t, "0003", bus)
	require.Equal(t, "04d9", vendor)
	require.Equal(t, "0348", product)
	require.Equal(t, "0110", version)
}
