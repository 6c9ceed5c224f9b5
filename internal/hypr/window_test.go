package hypr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryActiveWindowTrimsFields(t *testing.T) {
	installHyprctlStub(t, `
if [[ "${1:-}" == "-j" && "${2:-}" == "activewindow" ]]; then
  echo '{"address":" 0xabc ","class":" brave-browser ","initialClass":" Brave "}'
  exit 0
fi
exit 1
`)

	window, err := QueryActiveWindow(context.Background())
	require.NoError(t, err)
	require.Equal(t, ActiveWindow{Address: "0xabc", Class: "brave-browser", InitialClass: "Brave"}, window)
}

func TestQueryActiveWindowRejectsEmptyAddress(t *testing.T) {
	installHyprctlStub(t, `
echo '{"address":"","class":"brave"}'
`)

	_, err := QueryActiveWindow(context.Background())
	require.ErrorContains(t, err, "empty address")
}

func TestQueryActiveWindowRejectsBadJSON(t *testing.T) {
	installHyprctlStub(t, `
echo 'not json'
`)

	_, err := QueryActiveWindow(context.Background())
	require.ErrorContains(t, err, "decode hyprctl activewindow json")
}

func TestSendShortcutRequiresNonEmptyPayload(t *testing.T) {
	require.ErrorContains(t, SendShortcut(context.Background(), " "), "non-empty payload")
}

func TestTargetedShortcut(t *testing.T) {
	t.Parallel()

	t.Run("builds payload", func(t *testing.T) {
		got, err := TargetedShortcut("SUPER,V", " 0xabc ")
		require.NoError(t, err)
		require.Equal(t, "SUPER,V,address:0xabc", got)
	})

	t.Run("rejects empty shortcut", func(t *testing.T) {
		_, err := TargetedShortcut("", "0xabc")
		require.ErrorContains(t, err, "shortcut")
	})

	t.Run("rejects empty address", func(t *testing.T) {
		_, err := TargetedShortcut("CTRL,V", "")
		require.ErrorContains(t, err, "address")
	})
}

func TestPasteDispatchesShortcutToActiveWindow(t *testing.T) {
	lines := recordArgs(t, `
if [[ "${1:-}" == "-j" && "${2:-}" == "activewindow" ]]; then
  echo '{"address":"0xdef","class":"kitty","initialClass":"kitty"}'
  exit 0
fi
`)

	require.NoError(t, Paste(context.Background(), "CTRL,V"))
	require.Equal(t, []string{"--quiet dispatch sendshortcut CTRL,V,address:0xdef"}, lines())
}

func TestPasteFailsWithoutFocusedWindow(t *testing.T) {
	installHyprctlStub(t, `
echo '{"address":""}'
`)

	err := Paste(context.Background(), "CTRL,V")
	require.ErrorContains(t, err, "resolve active window")
}

func TestWaitActiveWindowHonorsContextCancel(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WaitActiveWindow(ctx, 3, 10*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}
