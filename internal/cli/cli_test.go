package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/murmur.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/murmur.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
	require.Empty(t, parsed.Args)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantArgs []string
		wantHelp bool
		wantPath string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantCmd: CommandVersion,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:    "press",
			args:    []string{"press"},
			wantCmd: CommandPress,
		},
		{
			name:     "release with config",
			args:     []string{"--config", "/tmp/cfg", "release"},
			wantCmd:  CommandRelease,
			wantPath: "/tmp/cfg",
		},
		{
			name:    "get all",
			args:    []string{"get"},
			wantCmd: CommandGet,
		},
		{
			name:     "get one key",
			args:     []string{"get", "mode"},
			wantCmd:  CommandGet,
			wantArgs: []string{"mode"},
		},
		{
			name:    "get too many",
			args:    []string{"get", "mode", "language"},
			wantErr: "expects [KEY]",
		},
		{
			name:     "set key value",
			args:     []string{"set", "mode", "cloud"},
			wantCmd:  CommandSet,
			wantArgs: []string{"mode", "cloud"},
		},
		{
			name:     "set value that looks like a flag",
			args:     []string{"set", "polish_prompt", "--terse"},
			wantCmd:  CommandSet,
			wantArgs: []string{"polish_prompt", "--terse"},
		},
		{
			name:    "set missing value",
			args:    []string{"set", "mode"},
			wantErr: "expects KEY VALUE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			if len(tc.wantArgs) == 0 {
				require.Empty(t, parsed.Args)
			} else {
				require.Equal(t, tc.wantArgs, parsed.Args)
			}
		})
	}
}

func TestForwardedCommands(t *testing.T) {
	for _, cmd := range []Command{CommandPress, CommandRelease, CommandToggle, CommandCancel, CommandStatus, CommandLast} {
		require.True(t, cmd.Forwarded(), cmd)
	}
	for _, cmd := range []Command{CommandServe, CommandGet, CommandSet, CommandDoctor, CommandDevices, CommandVersion, CommandHelp} {
		require.False(t, cmd.Forwarded(), cmd)
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("murmur")
	for _, want := range []string{"serve", "press", "release", "toggle", "cancel", "last", "get [KEY]", "set KEY V", "--config PATH"} {
		require.Contains(t, text, want)
	}
}
