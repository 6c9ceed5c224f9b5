package hypr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionReturnsFirstLine(t *testing.T) {
	installHyprctlStub(t, `
if [[ "${1:-}" == "version" ]]; then
  printf 'Hyprland 0.52.1 built from branch main\nTag: v0.52.1\n'
  exit 0
fi
exit 1
`)

	version, err := Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Hyprland 0.52.1 built from branch main", version)
}

func TestCtlReturnsCombinedOutputOnFailure(t *testing.T) {
	installHyprctlStub(t, `
echo 'boom from hyprctl' >&2
exit 1
`)

	err := SendShortcut(context.Background(), "CTRL,V,address:0xabc")
	require.ErrorContains(t, err, "boom from hyprctl")
}

func TestCtlFailsWithoutHyprctl(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := Version(context.Background())
	require.ErrorContains(t, err, "hyprctl [version] failed")
}

// recordArgs installs a stub that appends its argv to a log and returns a
// reader for the recorded lines.
func recordArgs(t *testing.T, prelude string) func() []string {
	t.Helper()

	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, prelude+`
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	return func() []string {
		data, err := os.ReadFile(argsFile)
		require.NoError(t, err)
		return strings.Split(strings.TrimSpace(string(data)), "\n")
	}
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
