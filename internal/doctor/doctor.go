// Package doctor runs readiness diagnostics for config, preferences, tools,
// audio, offline models and the cloud endpoint.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/hypr"
	"github.com/rbright/murmur/internal/localasr"
	"github.com/rbright/murmur/internal/netcheck"
	"github.com/rbright/murmur/internal/session"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Preferences is the slice of the settings store doctor inspects.
type Preferences interface {
	Snapshot() session.Preferences
	HasCredential() bool
	SettingsPath() string
}

// Run executes every check for a loaded config and preference store.
func Run(ctx context.Context, cfg config.Loaded, prefs Preferences) Report {
	checks := []Check{checkConfig(cfg)}

	snapshot := prefs.Snapshot()
	checks = append(checks,
		Check{Name: "settings", Pass: true, Message: fmt.Sprintf("mode %s from %q", snapshot.Mode, prefs.SettingsPath())},
		checkCredential(snapshot.Mode, prefs.HasCredential()),
	)

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	if usesHyprland(cfg.Config) {
		checks = append(checks, checkHyprland(ctx))
	}

	if len(cfg.Config.Clipboard.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	} else {
		checks = append(checks, Check{Name: "clipboard_cmd", Pass: true, Message: "using the system clipboard"})
	}

	if cfg.Config.Paste.Enable && len(cfg.Config.PasteCmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.PasteCmd.Argv, "paste_cmd"))
	}

	checks = append(checks,
		checkAudioSelection(ctx, cfg.Config),
		checkOfflineModel(ctx, "offline-a", cfg.Config.Offline, cfg.Config.Offline.ModelA),
		checkOfflineModel(ctx, "offline-b", cfg.Config.Offline, cfg.Config.Offline.ModelB),
		checkCloudReachable(ctx, cfg.Config.Network.Probe),
	)

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("no file at %q; using defaults", cfg.Path)
	}
	if len(cfg.Warnings) > 0 {
		message += fmt.Sprintf(" (%d warnings)", len(cfg.Warnings))
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkCredential only fails when the current mode needs the cloud.
func checkCredential(mode session.Mode, has bool) Check {
	switch {
	case has:
		return Check{Name: "credential", Pass: true, Message: "API key configured"}
	case mode == session.ModeCloud:
		return Check{Name: "credential", Pass: false, Message: "cloud mode needs an API key (murmur set api_key KEY)"}
	default:
		return Check{Name: "credential", Pass: true, Message: "no API key; cloud mode and polish unavailable"}
	}
}

func usesHyprland(cfg config.Config) bool {
	pasteViaHypr := cfg.Paste.Enable && len(cfg.PasteCmd.Argv) == 0
	indicatorViaHypr := cfg.Indicator.Enable && strings.EqualFold(strings.TrimSpace(cfg.Indicator.Backend), "hypr")
	return pasteViaHypr || indicatorViaHypr
}

func checkHyprland(ctx context.Context) Check {
	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) == "" {
		return Check{Name: "hyprland", Pass: false, Message: "HYPRLAND_INSTANCE_SIGNATURE is empty"}
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	version, err := hypr.Version(probeCtx)
	if err != nil {
		return Check{Name: "hyprland", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprland", Pass: true, Message: version}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %s", audio.Describe(selection.Device))
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkOfflineModel asks the gRPC sidecar for health or finds the whisper binary.
func checkOfflineModel(ctx context.Context, name string, offline config.OfflineConfig, model config.ModelConfig) Check {
	switch model.Backend {
	case config.BackendWhisper:
		whisper := localasr.NewWhisperCLI(localasr.WhisperConfig{Command: model.Command.Argv, Model: model.Model}, nil)
		check := checkBinary(whisper.Binary(), "whisper CLI")
		check.Name = name
		return check
	default:
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		recognizer := localasr.NewGRPCRecognizer(localasr.GRPCConfig{
			Endpoint:    offline.GRPC,
			Model:       model.Model,
			DialTimeout: probeTimeout,
		}, nil)
		defer recognizer.Close()

		if err := recognizer.Health(probeCtx); err != nil {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s at %s: %v", model.Model, offline.GRPC, err)}
		}
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s serving at %s", model.Model, offline.GRPC)}
	}
}

// checkCloudReachable dials the configured probe address once.
func checkCloudReachable(ctx context.Context, address string) Check {
	monitor := netcheck.New(address, 0, nil, netcheck.WithProbeTimeout(probeTimeout))
	if !monitor.Probe(ctx) {
		return Check{Name: "network", Pass: false, Message: fmt.Sprintf("%s unreachable; cloud mode will fail fast", address)}
	}
	return Check{Name: "network", Pass: true, Message: fmt.Sprintf("%s reachable", address)}
}
