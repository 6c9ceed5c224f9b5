package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// Offline model backends.
const (
	BackendGRPC    = "grpc"
	BackendWhisper = "whisper"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.Cloud.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("cloud.base_url must not be empty")
	}
	if u, err := url.Parse(base); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("cloud.base_url must be an http(s) URL")
	}
	if strings.TrimSpace(cfg.Cloud.TranscribeModel) == "" {
		return nil, fmt.Errorf("cloud.transcribe_model must not be empty")
	}
	if strings.TrimSpace(cfg.Cloud.PolishModel) == "" {
		return nil, fmt.Errorf("cloud.polish_model must not be empty")
	}
	if cfg.Cloud.RequestTimeoutMS < 0 {
		return nil, fmt.Errorf("cloud.request_timeout_ms must be >= 0")
	}

	models := []struct {
		name  string
		model ModelConfig
	}{
		{"offline.model_a", cfg.Offline.ModelA},
		{"offline.model_b", cfg.Offline.ModelB},
	}
	for _, entry := range models {
		name, model := entry.name, entry.model
		switch model.Backend {
		case BackendGRPC:
			if strings.TrimSpace(cfg.Offline.GRPC) == "" {
				return nil, fmt.Errorf("offline.grpc must not be empty when %s.backend=grpc", name)
			}
		case BackendWhisper:
			if len(model.Command.Argv) == 0 {
				return nil, fmt.Errorf("%s.command must not be empty when %s.backend=whisper", name, name)
			}
		default:
			return nil, fmt.Errorf("%s.backend must be one of: grpc, whisper", name)
		}
		if strings.TrimSpace(model.Model) == "" {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("%s.model is empty; the backend default applies", name)})
		}
	}

	if probe := strings.TrimSpace(cfg.Network.Probe); probe != "" {
		if _, _, err := net.SplitHostPort(probe); err != nil {
			return nil, fmt.Errorf("network.probe must be host:port: %w", err)
		}
	}
	if cfg.Network.IntervalMS <= 0 {
		return nil, fmt.Errorf("network.interval_ms must be > 0")
	}

	if cfg.Session.ProcessingTimeoutMS <= 0 {
		return nil, fmt.Errorf("session.processing_timeout_ms must be > 0")
	}
	if cfg.Session.RearmDelayMS < 0 {
		return nil, fmt.Errorf("session.rearm_delay_ms must be >= 0")
	}
	if cfg.Session.MinRecordingBytes < 0 {
		return nil, fmt.Errorf("session.min_recording_bytes must be >= 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" && backend != "system" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop, system")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Paste.Enable && cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
		return nil, fmt.Errorf("paste_cmd is configured but empty")
	}
	if cfg.Paste.Enable && len(cfg.PasteCmd.Argv) == 0 && strings.TrimSpace(cfg.Paste.Shortcut) == "" {
		return nil, fmt.Errorf("paste.shortcut must not be empty when paste.enable=true and paste_cmd is unset")
	}
	if cfg.Clipboard.Raw != "" && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}
	if len(cfg.Clipboard.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "clipboard_cmd is unset; using the system clipboard"})
	}

	warnings = append(warnings, terminologyWarnings(cfg.Terminology)...)
	return warnings, nil
}

func terminologyWarnings(cfg TerminologyConfig) []Warning {
	keys := make([]string, 0, len(cfg.Extra))
	for key := range cfg.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var warnings []Warning
	for _, key := range keys {
		if strings.TrimSpace(cfg.Extra[key]) == "" {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("terminology.extra %q maps to an empty value and is ignored", key)})
		}
	}
	return warnings
}
