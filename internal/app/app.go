// Package app maps parsed commands onto the daemon, the settings store and
// the diagnostics.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/cli"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/doctor"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/logging"
	"github.com/rbright/murmur/internal/settings"
	"github.com/rbright/murmur/internal/version"
)

const (
	binaryName     = "murmur"
	forwardTimeout = 220 * time.Millisecond
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	// Preferences and credentials live next to the config file.
	store := settings.New(cfgLoaded.Dir(), logger)

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, store, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, store)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandGet:
		return r.commandGet(store, parsed.Args)
	case cli.CommandSet:
		return r.commandSet(store, parsed.Args[0], parsed.Args[1])
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	default:
		if parsed.Command.Forwarded() {
			return r.forwardOrFail(ctx, string(parsed.Command))
		}
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandServe(ctx context.Context, cfg config.Config, store *settings.Store, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := ipc.Release(listener, socketPath); err != nil {
			logger.Warn("release socket failed", "error", err.Error())
		}
	}()

	if err := buildDaemon(cfg, store, logger).run(ctx, listener); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// commandDevices prints Pulse sources as a table; "*" marks the server default.
func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stderr, "error: no audio input devices found")
		return 1
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tDESCRIPTION\tSTATE\tAVAILABLE\tMUTED")
	for _, device := range devices {
		mark := ""
		if device.Default {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, device.ID, device.Description, device.State, yesNo(device.Available), yesNo(device.Muted))
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (r Runner) commandGet(store *settings.Store, args []string) int {
	keys := settings.Keys()
	if len(args) == 1 {
		keys = args
	}

	for _, key := range keys {
		value, err := store.Get(key)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if len(args) == 1 {
			fmt.Fprintln(r.Stdout, value)
			continue
		}
		fmt.Fprintf(r.Stdout, "%s=%s\n", key, value)
	}
	return 0
}

func (r Runner) commandSet(store *settings.Store, key, value string) int {
	if err := store.Set(key, value); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		if errors.Is(err, settings.ErrUnknownKey) {
			return 2
		}
		return 1
	}
	return 0
}

// commandStatus never fails for a missing daemon: no daemon means idle.
func (r Runner) commandStatus(ctx context.Context) int {
	state := "idle"
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
		if handled && err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if handled && resp.State != "" {
			state = resp.State
		}
	}
	fmt.Fprintln(r.Stdout, state)
	return 0
}

// forwardOrFail relays command to a running daemon and prints its message.
func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	switch {
	case !handled:
		fmt.Fprintf(r.Stderr, "error: murmur daemon is not running (start it with `%s serve`)\n", binaryName)
		return 1
	case err != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward sends command to the daemon. handled is false only when no
// daemon owns the socket.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsNotRunning(err) {
		return ipc.Response{}, false, nil
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
