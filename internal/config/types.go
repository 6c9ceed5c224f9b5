// Package config resolves, parses, validates, and defaults murmur runtime configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by the daemon.
type Config struct {
	Cloud       CloudConfig
	Offline     OfflineConfig
	Network     NetworkConfig
	Session     SessionConfig
	Audio       AudioConfig
	Paste       PasteConfig
	Indicator   IndicatorConfig
	Clipboard   CommandConfig
	PasteCmd    CommandConfig
	Terminology TerminologyConfig
	Debug       DebugConfig
}

// CloudConfig points the cloud transcription and polish client at an
// OpenAI-compatible endpoint. The API key lives in the credential store.
type CloudConfig struct {
	BaseURL          string
	TranscribeModel  string
	PolishModel      string
	TextPath         string
	RequestTimeoutMS int
}

// OfflineConfig configures the two local transcription modes.
type OfflineConfig struct {
	GRPC   string
	ModelA ModelConfig
	ModelB ModelConfig
}

// ModelConfig selects how one offline mode reaches its model.
type ModelConfig struct {
	// Backend is "grpc" or "whisper".
	Backend string
	Model   string
	Command CommandConfig
}

// NetworkConfig controls the reachability probe.
type NetworkConfig struct {
	Probe      string
	IntervalMS int
}

// SessionConfig tunes coordinator timing.
type SessionConfig struct {
	ProcessingTimeoutMS int
	RearmDelayMS        int
	MinRecordingBytes   int64
}

// ProcessingTimeout bounds one transcription plus polish pass.
func (s SessionConfig) ProcessingTimeout() time.Duration {
	return time.Duration(s.ProcessingTimeoutMS) * time.Millisecond
}

// RearmDelay is the input hold-off after a session ends.
func (s SessionConfig) RearmDelay() time.Duration {
	return time.Duration(s.RearmDelayMS) * time.Millisecond
}

// RequestTimeout bounds one cloud HTTP request.
func (c CloudConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Interval is the probe period.
func (n NetworkConfig) Interval() time.Duration {
	return time.Duration(n.IntervalMS) * time.Millisecond
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// PasteConfig controls post-commit paste behavior.
type PasteConfig struct {
	Enable   bool
	Shortcut string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	Locale            string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	ErrorTimeoutMS    int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// TerminologyConfig extends the built-in correction dictionary.
type TerminologyConfig struct {
	Extra map[string]string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
