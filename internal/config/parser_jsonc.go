package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Cloud       *jsoncCloud       `json:"cloud"`
	Offline     *jsoncOffline     `json:"offline"`
	Network     *jsoncNetwork     `json:"network"`
	Session     *jsoncSession     `json:"session"`
	Audio       *jsoncAudio       `json:"audio"`
	Paste       *jsoncPaste       `json:"paste"`
	Indicator   *jsoncIndicator   `json:"indicator"`
	Terminology *jsoncTerminology `json:"terminology"`
	Debug       *jsoncDebug       `json:"debug"`

	ClipboardCmd *string `json:"clipboard_cmd"`
	PasteCmd     *string `json:"paste_cmd"`
}

type jsoncCloud struct {
	BaseURL          *string `json:"base_url"`
	TranscribeModel  *string `json:"transcribe_model"`
	PolishModel      *string `json:"polish_model"`
	TextPath         *string `json:"text_path"`
	RequestTimeoutMS *int    `json:"request_timeout_ms"`
}

type jsoncOffline struct {
	GRPC   *string     `json:"grpc"`
	ModelA *jsoncModel `json:"model_a"`
	ModelB *jsoncModel `json:"model_b"`
}

type jsoncModel struct {
	Backend *string `json:"backend"`
	Model   *string `json:"model"`
	Command *string `json:"command"`
}

type jsoncNetwork struct {
	Probe      *string `json:"probe"`
	IntervalMS *int    `json:"interval_ms"`
}

type jsoncSession struct {
	ProcessingTimeoutMS *int   `json:"processing_timeout_ms"`
	RearmDelayMS        *int   `json:"rearm_delay_ms"`
	MinRecordingBytes   *int64 `json:"min_recording_bytes"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncPaste struct {
	Enable   *bool   `json:"enable"`
	Shortcut *string `json:"shortcut"`
}

type jsoncIndicator struct {
	Enable            *bool   `json:"enable"`
	Backend           *string `json:"backend"`
	Locale            *string `json:"locale"`
	DesktopAppName    *string `json:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms"`
}

type jsoncTerminology struct {
	Extra map[string]string `json:"extra"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if c := payload.Cloud; c != nil {
		setString(&cfg.Cloud.BaseURL, c.BaseURL)
		setString(&cfg.Cloud.TranscribeModel, c.TranscribeModel)
		setString(&cfg.Cloud.PolishModel, c.PolishModel)
		setString(&cfg.Cloud.TextPath, c.TextPath)
		setValue(&cfg.Cloud.RequestTimeoutMS, c.RequestTimeoutMS)
	}

	if o := payload.Offline; o != nil {
		setString(&cfg.Offline.GRPC, o.GRPC)
		if err := o.ModelA.applyTo(&cfg.Offline.ModelA, "offline.model_a"); err != nil {
			return err
		}
		if err := o.ModelB.applyTo(&cfg.Offline.ModelB, "offline.model_b"); err != nil {
			return err
		}
	}

	if n := payload.Network; n != nil {
		setString(&cfg.Network.Probe, n.Probe)
		setValue(&cfg.Network.IntervalMS, n.IntervalMS)
	}

	if s := payload.Session; s != nil {
		setValue(&cfg.Session.ProcessingTimeoutMS, s.ProcessingTimeoutMS)
		setValue(&cfg.Session.RearmDelayMS, s.RearmDelayMS)
		setValue(&cfg.Session.MinRecordingBytes, s.MinRecordingBytes)
	}

	if a := payload.Audio; a != nil {
		setValue(&cfg.Audio.Input, a.Input)
		setValue(&cfg.Audio.Fallback, a.Fallback)
	}

	if p := payload.Paste; p != nil {
		setValue(&cfg.Paste.Enable, p.Enable)
		setString(&cfg.Paste.Shortcut, p.Shortcut)
	}

	if i := payload.Indicator; i != nil {
		setValue(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.Backend, i.Backend)
		setString(&cfg.Indicator.Locale, i.Locale)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setValue(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, i.SoundCancelFile)
		setValue(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if payload.ClipboardCmd != nil {
		command, err := ParseCommand(*payload.ClipboardCmd)
		if err != nil {
			return fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = command
	}

	if payload.PasteCmd != nil {
		command, err := ParseCommand(*payload.PasteCmd)
		if err != nil {
			return fmt.Errorf("invalid paste_cmd: %w", err)
		}
		cfg.PasteCmd = command
	}

	if t := payload.Terminology; t != nil && t.Extra != nil {
		extra := make(map[string]string, len(cfg.Terminology.Extra)+len(t.Extra))
		for spoken, canonical := range cfg.Terminology.Extra {
			extra[spoken] = canonical
		}
		for spoken, canonical := range t.Extra {
			trimmed := strings.TrimSpace(spoken)
			if trimmed == "" {
				return fmt.Errorf("terminology.extra contains an empty key")
			}
			extra[trimmed] = strings.TrimSpace(canonical)
		}
		cfg.Terminology.Extra = extra
	}

	if d := payload.Debug; d != nil {
		setValue(&cfg.Debug.EnableAudioDump, d.AudioDump)
	}

	return nil
}

func (m *jsoncModel) applyTo(dst *ModelConfig, key string) error {
	if m == nil {
		return nil
	}
	if m.Backend != nil {
		dst.Backend = strings.ToLower(strings.TrimSpace(*m.Backend))
	}
	setString(&dst.Model, m.Model)
	if m.Command != nil {
		command, err := ParseCommand(*m.Command)
		if err != nil {
			return fmt.Errorf("invalid %s.command: %w", key, err)
		}
		dst.Command = command
	}
	return nil
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
