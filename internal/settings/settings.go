// Package settings persists user preferences and the cloud API credential.
//
// Preferences live in a viper-managed YAML file and are re-read on every
// Snapshot so edits made through `murmur set` or by hand apply to the next
// session without a restart. The credential lives in a dotenv file readable
// only by the owner; the process environment takes precedence over it.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/transcript"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Setting keys accepted by Get and Set.
const (
	KeyMode          = "mode"
	KeyLanguage      = "language"
	KeyStyle         = "punctuation_style"
	KeyPolishEnabled = "polish_enabled"
	KeyPolishPrompt  = "polish_prompt"
	KeyScript        = "script"
	KeyAPIKey        = "api_key"
)

// CredentialEnv names the API key in both the environment and credentials.env.
const CredentialEnv = "MURMUR_API_KEY"

const (
	settingsFile    = "settings.yaml"
	credentialsFile = "credentials.env"
)

// ErrUnknownKey is returned for keys outside Keys().
var ErrUnknownKey = errors.New("unknown setting")

// Keys lists every user-editable setting in display order.
func Keys() []string {
	return []string{KeyMode, KeyLanguage, KeyStyle, KeyPolishEnabled, KeyPolishPrompt, KeyScript, KeyAPIKey}
}

// Store reads and writes preferences under one directory.
type Store struct {
	dir         string
	logger      *slog.Logger
	openCommand []string

	mu sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithOpenCommand replaces xdg-open for OpenSettings. The settings path is
// appended as the final argument.
func WithOpenCommand(argv ...string) Option {
	return func(s *Store) {
		if len(argv) > 0 {
			s.openCommand = append([]string(nil), argv...)
		}
	}
}

// New returns a store rooted at dir, usually config.Dir().
func New(dir string, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{dir: dir, logger: logger, openCommand: []string{"xdg-open"}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SettingsPath is the YAML preference file.
func (s *Store) SettingsPath() string { return filepath.Join(s.dir, settingsFile) }

// CredentialsPath is the dotenv credential file.
func (s *Store) CredentialsPath() string { return filepath.Join(s.dir, credentialsFile) }

func (s *Store) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault(KeyMode, string(session.ModeOfflineA))
	v.SetDefault(KeyLanguage, "")
	v.SetDefault(KeyStyle, string(transcript.StyleFullWidth))
	v.SetDefault(KeyPolishEnabled, false)
	v.SetDefault(KeyPolishPrompt, "")
	v.SetDefault(KeyScript, "")

	path := s.SettingsPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return v, fmt.Errorf("stat settings %q: %w", path, err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return v, fmt.Errorf("read settings %q: %w", path, err)
	}
	return v, nil
}

// Snapshot returns current preferences. Unreadable files and invalid values
// fall back to defaults per field and are logged.
func (s *Store) Snapshot() session.Preferences {
	v, err := s.read()
	if err != nil {
		s.logger.Warn("settings unreadable; using defaults", "error", err.Error())
	}

	prefs := session.DefaultPreferences()
	if mode, err := session.ParseMode(v.GetString(KeyMode)); err == nil {
		prefs.Mode = mode
	} else {
		s.logger.Warn("invalid setting ignored", "key", KeyMode, "error", err.Error())
	}
	if style, err := transcript.ParseStyle(v.GetString(KeyStyle)); err == nil {
		prefs.Style = style
	} else {
		s.logger.Warn("invalid setting ignored", "key", KeyStyle, "error", err.Error())
	}
	if lang, err := normalizeLanguage(v.GetString(KeyLanguage)); err == nil {
		prefs.Language = lang
	} else {
		s.logger.Warn("invalid setting ignored", "key", KeyLanguage, "error", err.Error())
	}
	if script := v.GetString(KeyScript); transcript.ValidScript(script) {
		prefs.Script = strings.ToLower(strings.TrimSpace(script))
	}
	prefs.PolishEnabled = v.GetBool(KeyPolishEnabled)
	prefs.Prompt = v.GetString(KeyPolishPrompt)
	return prefs
}

// Get returns the stored value for key. The API key is masked.
func (s *Store) Get(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == KeyAPIKey {
		return maskCredential(s.Credential()), nil
	}
	if !knownPreference(key) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	v, err := s.read()
	if err != nil {
		return "", err
	}
	if key == KeyPolishEnabled {
		return strconv.FormatBool(v.GetBool(key)), nil
	}
	return v.GetString(key), nil
}

// Set validates and persists one setting.
func (s *Store) Set(key, raw string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == KeyAPIKey {
		return s.writeCredential(strings.TrimSpace(raw))
	}
	if !knownPreference(key) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	value, err := normalize(key, raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.read()
	if err != nil {
		return err
	}
	v.Set(key, value)
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := v.WriteConfigAs(s.SettingsPath()); err != nil {
		return fmt.Errorf("write settings %q: %w", s.SettingsPath(), err)
	}
	s.logger.Info("setting updated", "key", key)
	return nil
}

// Credential returns the API key, preferring the process environment.
func (s *Store) Credential() string {
	if key := strings.TrimSpace(os.Getenv(CredentialEnv)); key != "" {
		return key
	}
	values, err := godotenv.Read(s.CredentialsPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("credentials unreadable", "path", s.CredentialsPath(), "error", err.Error())
		}
		return ""
	}
	return strings.TrimSpace(values[CredentialEnv])
}

// HasCredential reports whether an API key is configured.
func (s *Store) HasCredential() bool {
	return s.Credential() != ""
}

// writeCredential stores key, or removes it when empty.
func (s *Store) writeCredential(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.CredentialsPath()
	values, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read credentials %q: %w", path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	if key == "" {
		delete(values, CredentialEnv)
	} else {
		values[CredentialEnv] = key
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("write credentials %q: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restrict credentials %q: %w", path, err)
	}
	s.logger.Info("credential updated", "set", key != "")
	return nil
}

// OpenSettings opens the preference file in the user's default editor,
// creating it with defaults first when missing.
func (s *Store) OpenSettings(ctx context.Context) error {
	path := s.SettingsPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.Set(KeyMode, string(session.ModeOfflineA)); err != nil {
			return err
		}
	}

	argv := append(append([]string(nil), s.openCommand...), path)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if output, err := cmd.CombinedOutput(); err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed == "" {
			return fmt.Errorf("open settings: %w", err)
		}
		return fmt.Errorf("open settings: %w (%s)", err, trimmed)
	}
	return nil
}

func knownPreference(key string) bool {
	switch key {
	case KeyMode, KeyLanguage, KeyStyle, KeyPolishEnabled, KeyPolishPrompt, KeyScript:
		return true
	default:
		return false
	}
}

func normalize(key, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch key {
	case KeyMode:
		mode, err := session.ParseMode(raw)
		return string(mode), err
	case KeyLanguage:
		return normalizeLanguage(raw)
	case KeyStyle:
		style, err := transcript.ParseStyle(raw)
		return string(style), err
	case KeyPolishEnabled:
		return strconv.ParseBool(raw)
	case KeyPolishPrompt:
		return raw, nil
	case KeyScript:
		if !transcript.ValidScript(raw) {
			return nil, fmt.Errorf("unsupported script %q (want none or one of %s)", raw, strings.Join(transcript.ScriptVariants, ", "))
		}
		return strings.ToLower(raw), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// normalizeLanguage canonicalizes a BCP 47 hint. Empty and "auto" mean
// let the backend detect the language.
func normalizeLanguage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "auto") {
		return "", nil
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

func maskCredential(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
