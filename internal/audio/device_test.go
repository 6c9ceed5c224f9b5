package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestChooseDefaultDevice(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := choose(devices, "default", "")
	require.NoError(t, err)
	require.Equal(t, "elgato", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestChooseMatchesDescription(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "alsa_input.usb-sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := choose(devices, "WH-1000", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-sony", selection.Device.ID)
}

func TestChooseMutedPrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := choose(devices, "elgato", "sony")
	require.NoError(t, err)
	require.Equal(t, "sony", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestChooseUnavailablePrimaryFallsBackToDefault(t *testing.T) {
	devices := []Device{
		{ID: "usb", Description: "USB Mic", Available: false},
		{ID: "builtin", Description: "Built-in", Available: true, Default: true},
	}

	selection, err := choose(devices, "usb", "default")
	require.NoError(t, err)
	require.Equal(t, "builtin", selection.Device.ID)
	require.Contains(t, selection.Warning, "not available")
}

func TestChooseFailsWhenPrimaryAndFallbackMuted(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
	}

	_, err := choose(devices, "default", "default")
	require.ErrorIs(t, err, ErrDeviceMuted)
}

func TestChooseUnknownInput(t *testing.T) {
	devices := []Device{{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true}}

	_, err := choose(devices, "missing", "")
	require.ErrorContains(t, err, "did not match")
}

func TestChooseMissingFallback(t *testing.T) {
	devices := []Device{{ID: "elgato", Available: true, Muted: true, Default: true}}

	_, err := choose(devices, "", "sony")
	require.ErrorIs(t, err, ErrDeviceMuted)
	require.ErrorContains(t, err, "no usable fallback")
}

func TestChooseWithoutDevices(t *testing.T) {
	_, err := choose(nil, "", "")
	require.ErrorIs(t, err, ErrNoDevices)
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, dev.matches("elgato"))
	require.True(t, dev.matches("wave 3"))
	require.False(t, dev.matches("missing"))
	require.False(t, dev.matches(""))
}

func TestDescribe(t *testing.T) {
	require.Equal(t, "Mic (mic-1)", Describe(Device{ID: "mic-1", Description: "Mic"}))
	require.Equal(t, "mic-1", Describe(Device{ID: "mic-1"}))
	require.Equal(t, "Mic", Describe(Device{Description: " Mic "}))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)
}

func TestSelectDeviceFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := SelectDevice(context.Background(), "default", "default")
	require.Error(t, err)
}

func TestSourceState(t *testing.T) {
	require.Equal(t, "running", sourceState(0))
	require.Equal(t, "suspended", sourceState(2))
	require.Equal(t, "unknown(99)", sourceState(99))
}

func TestActivePortAvailable(t *testing.T) {
	require.False(t, activePortAvailable(nil))
	require.True(t, activePortAvailable(&pulseproto.GetSourceInfoReply{}))

	yes := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, yes, []sourcePort{{name: "mic", available: portAvailableYes}})
	require.True(t, activePortAvailable(yes))

	unknown := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, unknown, []sourcePort{{name: "mic", available: portAvailableUnknown}})
	require.True(t, activePortAvailable(unknown))

	no := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, no, []sourcePort{{name: "line", available: portAvailableYes}, {name: "mic", available: portAvailableNo}})
	require.False(t, activePortAvailable(no))
}

func TestDeviceFromReply(t *testing.T) {
	reply := &pulseproto.GetSourceInfoReply{SourceName: "mic-1", Device: "Desk Mic", Mute: true}
	dev := deviceFromReply(reply, "mic-1")
	require.Equal(t, Device{ID: "mic-1", Description: "Desk Mic", State: "running", Available: true, Muted: true, Default: true}, dev)
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))
	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}
	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
