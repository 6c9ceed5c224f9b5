package app

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/murmur/internal/ipc"
	"github.com/stretchr/testify/require"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// runCLI executes murmur with args against the config written by
// setupRunnerEnv.
func runCLI(t *testing.T, env runnerEnv, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}
	code := runner.Execute(context.Background(), append([]string{"--config", env.configPath}, args...))
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestExecuteTopLevelFlags(t *testing.T) {
	tests := []struct {
		args       []string
		code       int
		stdout     string
		stderr     string
		wantStderr bool
	}{
		{args: []string{"--help"}, code: 0, stdout: "Usage:"},
		{args: []string{"version"}, code: 0, stdout: "murmur "},
		{args: []string{"definitely-not-a-command"}, code: 2, stderr: "unknown command", wantStderr: true},
	}

	for _, tc := range tests {
		t.Run(tc.args[0], func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := Execute(context.Background(), tc.args, &stdout, &stderr)
			require.Equal(t, tc.code, code)
			if tc.stdout != "" {
				require.Contains(t, stdout.String(), tc.stdout)
			}
			if tc.wantStderr {
				require.Contains(t, stderr.String(), tc.stderr)
				require.Contains(t, stderr.String(), "Usage:")
			} else {
				require.Empty(t, stderr.String())
			}
		})
	}
}

func TestStatusWithoutDaemonIsIdle(t *testing.T) {
	env := setupRunnerEnv(t)

	res := runCLI(t, env, "status")
	require.Equal(t, 0, res.code)
	require.Equal(t, "idle\n", res.stdout)
	require.Empty(t, res.stderr)
}

func TestPressWithoutDaemonFails(t *testing.T) {
	env := setupRunnerEnv(t)

	res := runCLI(t, env, "press")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "murmur daemon is not running")
	require.Contains(t, res.stderr, "murmur serve")
}

func TestCommandsForwardToDaemon(t *testing.T) {
	env := setupRunnerEnv(t)
	seen := make(chan string, 8)

	fakeDaemon(t, env.socketPath(), func(_ context.Context, req ipc.Request) ipc.Response {
		seen <- req.Command
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "processing"}
		case ipc.CommandLast:
			return ipc.Response{OK: true, Message: "你好，世界"}
		default:
			return ipc.Response{OK: true, Message: req.Command + " queued"}
		}
	})

	want := map[string]string{
		ipc.CommandStatus:  "processing\n",
		ipc.CommandLast:    "你好，世界\n",
		ipc.CommandPress:   "press queued\n",
		ipc.CommandRelease: "release queued\n",
		ipc.CommandToggle:  "toggle queued\n",
		ipc.CommandCancel:  "cancel queued\n",
	}
	for command, out := range want {
		res := runCLI(t, env, command)
		require.Equal(t, 0, res.code, command)
		require.Empty(t, res.stderr, command)
		require.Equal(t, out, res.stdout, command)
		require.Equal(t, command, <-seen)
	}
}

func TestStatusEmptyDaemonStateIsIdle(t *testing.T) {
	env := setupRunnerEnv(t)
	fakeDaemon(t, env.socketPath(), func(context.Context, ipc.Request) ipc.Response {
		return ipc.Response{OK: true}
	})

	res := runCLI(t, env, "status")
	require.Equal(t, 0, res.code)
	require.Equal(t, "idle\n", res.stdout)
}

func TestDaemonRejectionExitsNonZero(t *testing.T) {
	env := setupRunnerEnv(t)
	fakeDaemon(t, env.socketPath(), func(context.Context, ipc.Request) ipc.Response {
		return ipc.Failure("processing", "coordinator is shutting down")
	})

	res := runCLI(t, env, "toggle")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "coordinator is shutting down")
}

func TestSetThenGetPersistsPreferences(t *testing.T) {
	env := setupRunnerEnv(t)

	require.Zero(t, runCLI(t, env, "set", "mode", "cloud").code)
	require.Zero(t, runCLI(t, env, "set", "polish_enabled", "false").code)
	require.FileExists(t, filepath.Join(filepath.Dir(env.configPath), "settings.yaml"))

	res := runCLI(t, env, "get", "mode")
	require.Equal(t, 0, res.code)
	require.Equal(t, "cloud\n", res.stdout)

	res = runCLI(t, env, "get")
	require.Equal(t, 0, res.code)
	require.Contains(t, res.stdout, "mode=cloud\n")
	require.Contains(t, res.stdout, "polish_enabled=false\n")
}

func TestSetRejections(t *testing.T) {
	env := setupRunnerEnv(t)

	res := runCLI(t, env, "set", "volume", "11")
	require.Equal(t, 2, res.code)
	require.Contains(t, res.stderr, "unknown setting")

	res = runCLI(t, env, "set", "mode", "telepathy")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "invalid mode")
}

func TestDoctorReportsFailuresOutsideHyprland(t *testing.T) {
	env := setupRunnerEnv(t)
	t.Setenv("XDG_SESSION_TYPE", "x11")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	res := runCLI(t, env, "doctor")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stdout, "config: loaded")
	require.Contains(t, res.stdout, "XDG_SESSION_TYPE")
}

func TestDevicesWithoutPulseFails(t *testing.T) {
	env := setupRunnerEnv(t)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	res := runCLI(t, env, "devices")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "error:")
}

func TestTryForward(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "murmur.sock")
	fakeDaemon(t, socketPath, func(_ context.Context, req ipc.Request) ipc.Response {
		if req.Command == ipc.CommandStatus {
			return ipc.Response{OK: true, State: "recording"}
		}
		return ipc.Failure("recording", "unsupported")
	})

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "recording", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, ipc.CommandCancel)
	require.True(t, handled)
	require.ErrorContains(t, err, "unsupported")
}

func TestTryForwardIgnoresStaleSocketFile(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "murmur.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.False(t, handled)
	require.NoError(t, err)
	require.FileExists(t, socketPath)
}

func TestTryForwardHangupIsHandledError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "murmur.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		if conn, err := listener.Accept(); err == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.True(t, handled)
	require.ErrorContains(t, err, `forward command "status":`)
}

type runnerEnv struct {
	configPath string
	runtimeDir string
}

func (e runnerEnv) socketPath() string { return filepath.Join(e.runtimeDir, "murmur.sock") }

func setupRunnerEnv(t *testing.T) runnerEnv {
	t.Helper()

	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("MURMUR_API_KEY", "")

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte("{}\n"), 0o600))
	return runnerEnv{configPath: configPath, runtimeDir: runtimeDir}
}

// fakeDaemon serves handler on socketPath until the test ends.
func fakeDaemon(t *testing.T, socketPath string, handler ipc.HandlerFunc) {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ipc.Serve(ctx, listener, handler) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}
