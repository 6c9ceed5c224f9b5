package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/transcript"
	"golang.org/x/text/language"
)

// Mode selects the transcription backend for one session.
type Mode string

const (
	ModeCloud    Mode = "cloud"
	ModeOfflineA Mode = "offline-a"
	ModeOfflineB Mode = "offline-b"
)

// ParseMode validates a persisted mode name.
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case ModeCloud, ModeOfflineA, ModeOfflineB:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want cloud, offline-a, or offline-b)", raw)
	}
}

// Offline reports whether the mode runs without the cloud backend.
func (m Mode) Offline() bool {
	return m == ModeOfflineA || m == ModeOfflineB
}

// Preferences is the user configuration snapshot taken when a session starts.
type Preferences struct {
	Mode          Mode
	Language      string
	Style         transcript.Style
	PolishEnabled bool
	Prompt        string
	Script        string
}

// DefaultPreferences is used when no preference source is wired.
func DefaultPreferences() Preferences {
	return Preferences{Mode: ModeOfflineA, Style: transcript.StyleFullWidth}
}

// BaseLanguage reduces a stored language tag such as "zh-TW" to the ISO 639
// code transcription backends accept ("zh"). Empty stays empty.
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if parsed, err := language.Parse(tag); err == nil {
		if base, conf := parsed.Base(); conf != language.No {
			return base.String()
		}
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// Asset is a finished recording on disk.
type Asset struct {
	Path     string
	Size     int64
	Duration time.Duration
	Device   string
}

// PolishRequest is one polish backend invocation.
type PolishRequest struct {
	Text   string
	Prompt string
	Style  transcript.Style
}

// DefaultPolishPrompt is sent when the user has not configured a prompt.
const DefaultPolishPrompt = "You clean up dictated text. Fix recognition mistakes, punctuation, " +
	"capitalization, and technical terms. Remove filler words and false starts. " +
	"Keep the speaker's language, meaning, and wording otherwise. " +
	"Reply with the cleaned text only."

// Recorder captures audio between Start and Stop.
type Recorder interface {
	Start(context.Context) error
	// Stop ends capture. A nil asset with a nil error means nothing was recorded.
	Stop(context.Context) (*Asset, error)
	Delete(Asset) error
}

// Transcriber maps an audio asset to text. Implementations must honor ctx.
type Transcriber interface {
	Transcribe(ctx context.Context, asset Asset, language string) (string, error)
}

// TranscriberFunc adapts a function to the Transcriber interface.
type TranscriberFunc func(context.Context, Asset, string) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, asset Asset, language string) (string, error) {
	return f(ctx, asset, language)
}

// Polisher rewrites transcribed text. Implementations must honor ctx.
type Polisher interface {
	Polish(context.Context, PolishRequest) (string, error)
}

// Indicator is the presentation side of the coordinator: status changes and
// user notices. Rendering notices into text is the indicator's job.
type Indicator interface {
	SetStatus(context.Context, fsm.State)
	Notify(context.Context, Notice)
}

// PreferenceSource returns the current persisted preferences.
type PreferenceSource interface {
	Snapshot() Preferences
}

// CredentialSource reports whether a cloud API credential is configured.
type CredentialSource interface {
	HasCredential() bool
}

// Reachability reports the latest known network state without blocking.
type Reachability interface {
	Reachable() bool
}

// SettingsOpener brings up the settings surface for the user.
type SettingsOpener interface {
	OpenSettings(context.Context) error
}

// ScriptConverter converts text into a script variant; unsupported input is
// returned unchanged.
type ScriptConverter interface {
	Convert(text, variant string) string
}

type noopIndicator struct{}

func (noopIndicator) SetStatus(context.Context, fsm.State) {}
func (noopIndicator) Notify(context.Context, Notice)       {}

type staticPreferences Preferences

func (p staticPreferences) Snapshot() Preferences { return Preferences(p) }

type staticFlag bool

func (f staticFlag) HasCredential() bool { return bool(f) }
func (f staticFlag) Reachable() bool     { return bool(f) }

type noopSettings struct{}

func (noopSettings) OpenSettings(context.Context) error { return nil }

type identityScript struct{}

func (identityScript) Convert(text, _ string) string { return text }

type unavailableRecorder struct{}

func (unavailableRecorder) Start(context.Context) error           { return ErrRecorderUnavailable }
func (unavailableRecorder) Stop(context.Context) (*Asset, error) { return nil, nil }
func (unavailableRecorder) Delete(Asset) error                   { return nil }
