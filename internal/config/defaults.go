package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"
	whisper := "whisper"

	return Config{
		Cloud: CloudConfig{
			BaseURL:          "https://api.openai.com/v1",
			TranscribeModel:  "whisper-1",
			PolishModel:      "gpt-4o-mini",
			TextPath:         "text",
			RequestTimeoutMS: 30000,
		},
		Offline: OfflineConfig{
			GRPC:   "127.0.0.1:50051",
			ModelA: ModelConfig{Backend: BackendGRPC, Model: "sensevoice-small"},
			ModelB: ModelConfig{
				Backend: BackendWhisper,
				Model:   "ggml-base.bin",
				Command: mustCommand(whisper),
			},
		},
		Network: NetworkConfig{
			Probe:      "api.openai.com:443",
			IntervalMS: 5000,
		},
		Session: SessionConfig{
			ProcessingTimeoutMS: 60000,
			RearmDelayMS:        300,
			MinRecordingBytes:   1024,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Paste: PasteConfig{Enable: true, Shortcut: "CTRL,V"},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			Locale:         "",
			DesktopAppName: "murmur-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Clipboard:   mustCommand(clipboard),
		Terminology: TerminologyConfig{Extra: map[string]string{}},
		Debug:       DebugConfig{},
	}
}
