// Package cli parses murmur's command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandPress   Command = "press"
	CommandRelease Command = "release"
	CommandToggle  Command = "toggle"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandLast    Command = "last"
	CommandGet     Command = "get"
	CommandSet     Command = "set"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// arity is the accepted positional argument range per command.
type arity struct{ min, max int }

var validCommands = map[Command]arity{
	CommandServe:   {},
	CommandPress:   {},
	CommandRelease: {},
	CommandToggle:  {},
	CommandCancel:  {},
	CommandStatus:  {},
	CommandLast:    {},
	CommandGet:     {0, 1},
	CommandSet:     {2, 2},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Forwarded reports whether the command is sent to the running daemon.
func (c Command) Forwarded() bool {
	switch c {
	case CommandPress, CommandRelease, CommandToggle, CommandCancel, CommandStatus, CommandLast:
		return true
	default:
		return false
	}
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			want, ok := validCommands[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			if len(rest) < want.min || len(rest) > want.max {
				if want.max == 0 {
					return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
				}
				return Parsed{}, fmt.Errorf("command %q expects %s", arg, usageArgs(cmd))
			}

			parsed.Command = cmd
			parsed.Args = rest
			parsed.ShowHelp = cmd == CommandHelp
			return parsed, nil
		}
	}

	return parsed, nil
}

func usageArgs(cmd Command) string {
	switch cmd {
	case CommandGet:
		return "[KEY]"
	case CommandSet:
		return "KEY VALUE"
	default:
		return "no arguments"
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Commands:
  serve       Run the dictation daemon in the foreground
  press       Start recording (push-to-talk key down)
  release     Stop recording and transcribe (push-to-talk key up)
  toggle      Press when idle, release when recording
  cancel      Discard the recording or cancel transcription and polish
  status      Print current state
  last        Print the most recent pasted text
  get [KEY]   Print one preference, or all of them
  set KEY V   Persist a preference (mode, language, punctuation_style,
              polish_enabled, polish_prompt, script, api_key)
  devices     List available input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/murmur/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
