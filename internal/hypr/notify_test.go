package hypr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifyAndDismissUseHyprctlDispatch(t *testing.T) {
	lines := recordArgs(t, "")

	require.NoError(t, Notify(context.Background(), Notification{Icon: IconError, TimeoutMS: 1200, Text: "Transcription failed"}))
	require.NoError(t, Notify(context.Background(), Notification{Icon: IconInfo, TimeoutMS: 300000, Color: "rgb(cba6f7)", Text: "Processing"}))
	require.NoError(t, DismissNotify(context.Background()))

	require.Equal(t, []string{
		"--quiet dispatch notify 3 1200 rgb(89b4fa) Transcription failed",
		"--quiet dispatch notify 1 300000 rgb(cba6f7) Processing",
		"--quiet dispatch dismissnotify",
	}, lines())
}
