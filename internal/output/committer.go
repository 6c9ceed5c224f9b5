// Package output delivers final text: clipboard first, then an optional paste
// into the focused window.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/hypr"
)

const (
	clipboardTimeout = 2 * time.Second
	pasteCmdTimeout  = 2 * time.Second
	hyprPasteTimeout = 1200 * time.Millisecond
)

// Option customizes a Committer.
type Option func(*Committer)

// WithSystemClipboard replaces the library clipboard writer used when no
// clipboard command is configured.
func WithSystemClipboard(write func(string) error) Option {
	return func(c *Committer) { c.systemClipboard = write }
}

// WithHyprPaste replaces the Hyprland shortcut paste.
func WithHyprPaste(paste func(context.Context, string) error) Option {
	return func(c *Committer) { c.hyprPaste = paste }
}

// Committer implements session.Committer.
type Committer struct {
	config config.Config
	logger *slog.Logger

	systemClipboard func(string) error
	hyprPaste       func(context.Context, string) error
}

// NewCommitter constructs a committer from runtime config.
func NewCommitter(cfg config.Config, logger *slog.Logger, opts ...Option) *Committer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Committer{
		config:          cfg,
		logger:          logger,
		systemClipboard: clipboard.WriteAll,
		hyprPaste:       hypr.Paste,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Commit sets the clipboard and, when enabled, pastes. A paste failure is
// returned after the clipboard is already set so the user can paste by hand.
func (c *Committer) Commit(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if err := c.setClipboard(ctx, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if !c.config.Paste.Enable {
		return nil
	}

	if err := c.paste(ctx); err != nil {
		c.logger.Error("paste dispatch failed; clipboard remains set", "error", err.Error())
		return fmt.Errorf("paste: %w", err)
	}
	return nil
}

func (c *Committer) setClipboard(ctx context.Context, text string) error {
	if len(c.config.Clipboard.Argv) == 0 {
		return c.systemClipboard(text)
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	return runCommandWithInput(clipboardCtx, c.config.Clipboard.Argv, text)
}

func (c *Committer) paste(ctx context.Context) error {
	if len(c.config.PasteCmd.Argv) > 0 {
		pasteCtx, cancel := context.WithTimeout(ctx, pasteCmdTimeout)
		defer cancel()
		return runCommandWithInput(pasteCtx, c.config.PasteCmd.Argv, "")
	}

	pasteCtx, cancel := context.WithTimeout(ctx, hyprPasteTimeout)
	defer cancel()
	return c.hyprPaste(pasteCtx, c.config.Paste.Shortcut)
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
