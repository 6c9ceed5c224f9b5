//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Needs a running Pulse or PipeWire server with at least one source.
func TestPulseDefaultSourceIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)

	defaults := 0
	for _, device := range devices {
		require.NotEmpty(t, device.ID)
		if device.Default {
			defaults++
		}
	}
	require.LessOrEqual(t, defaults, 1)

	selection, err := SelectDevice(ctx, "default", "")
	if err != nil {
		t.Skipf("default source not usable here: %v", err)
	}
	require.True(t, selection.Device.Default)
	require.Contains(t, Describe(selection.Device), selection.Device.ID)
}
