package localasr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rbright/murmur/internal/session"
)

// WhisperConfig runs a whisper-compatible CLI that accepts
// `<audio> --model M --output_dir D --output_format txt [--language L]`.
type WhisperConfig struct {
	Command []string
	Model   string
}

// WhisperCLI implements session.Transcriber by shelling out per request.
type WhisperCLI struct {
	cfg    WhisperConfig
	logger *slog.Logger
}

// NewWhisperCLI builds a CLI transcriber.
func NewWhisperCLI(cfg WhisperConfig, logger *slog.Logger) *WhisperCLI {
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"whisper"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WhisperCLI{cfg: cfg, logger: logger}
}

// Binary returns the executable the transcriber runs.
func (w *WhisperCLI) Binary() string {
	return w.cfg.Command[0]
}

// Transcribe runs the CLI and reads <asset>.txt from a scratch directory.
func (w *WhisperCLI) Transcribe(ctx context.Context, asset session.Asset, language string) (string, error) {
	outDir, err := os.MkdirTemp("", "murmur-whisper-*")
	if err != nil {
		return "", fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	args := append([]string(nil), w.cfg.Command[1:]...)
	args = append(args, asset.Path, "--output_dir", outDir, "--output_format", "txt")
	if model := strings.TrimSpace(w.cfg.Model); model != "" {
		args = append(args, "--model", model)
	}
	if lang := session.BaseLanguage(language); lang != "" {
		args = append(args, "--language", lang)
	}

	cmd := exec.CommandContext(ctx, w.cfg.Command[0], args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", w.runError(ctx, err, output)
	}

	base := filepath.Base(asset.Path)
	txt := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".txt")
	content, err := os.ReadFile(txt)
	if err != nil {
		return "", session.NewBackendError(session.ReasonInvalidResponse, fmt.Errorf("read whisper output: %w", err))
	}
	return strings.TrimSpace(string(content)), nil
}

func (w *WhisperCLI) runError(ctx context.Context, err error, output []byte) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return session.NewBackendError(session.ReasonCancelled, ctx.Err())
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return session.NewBackendError(session.ReasonModelUnavailable, fmt.Errorf("whisper binary %q: %w", w.Binary(), err))
	}

	trimmed := strings.TrimSpace(string(output))
	w.logger.Debug("whisper failed", "error", err.Error(), "output", trimmed)
	if trimmed == "" {
		return session.NewBackendError(session.ReasonUnknown, fmt.Errorf("whisper failed: %w", err))
	}
	return session.NewBackendError(session.ReasonUnknown, fmt.Errorf("whisper failed: %w (%s)", err, trimmed))
}
