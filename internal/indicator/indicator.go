// Package indicator renders session status and notices for the user: an
// on-screen surface plus short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/session"
)

const (
	BackendHypr    = "hypr"
	BackendDesktop = "desktop"
	BackendSystem  = "system"

	dispatchTimeout     = 400 * time.Millisecond
	defaultErrorTimeout = 1200
	// statusTimeoutMS keeps a status surface up for the longest session.
	statusTimeoutMS = 300000
)

// Option customizes an Indicator.
type Option func(*Indicator)

// WithSurface replaces the backend chosen from config.
func WithSurface(s Surface) Option {
	return func(i *Indicator) { i.surface = s }
}

// WithCuePlayer replaces audio cue playback.
func WithCuePlayer(play func(cueKind, config.IndicatorConfig) error) Option {
	return func(i *Indicator) { i.playCueFn = play }
}

// Indicator implements session.Indicator.
type Indicator struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	surface  Surface

	playCueFn func(cueKind, config.IndicatorConfig) error

	mu       sync.Mutex
	previous fsm.State
	noticed  bool

	soundMu sync.Mutex
}

// New creates an indicator from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger, opts ...Option) *Indicator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	i := &Indicator{
		cfg:       cfg,
		logger:    logger,
		messages:  indicatorMessages(resolveLocale(cfg.Locale)),
		surface:   surfaceFor(cfg),
		playCueFn: emitCue,
		previous:  fsm.StateIdle,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func surfaceFor(cfg config.IndicatorConfig) Surface {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendDesktop:
		return newDesktopSurface(cfg.DesktopAppName)
	case BackendSystem:
		return newSystemSurface()
	default:
		return hyprSurface{}
	}
}

// SetStatus shows the surface for state and plays the matching cue.
func (i *Indicator) SetStatus(ctx context.Context, state fsm.State) {
	i.mu.Lock()
	previous := i.previous
	noticed := i.noticed
	i.previous = state
	if state == fsm.StateRecording {
		i.noticed = false
	}
	i.mu.Unlock()

	switch state {
	case fsm.StateRecording:
		i.playCue(cueStart)
		i.show(ctx, toneInfo, statusTimeoutMS, i.messages.recording)
	case fsm.StateProcessing:
		i.playCue(cueStop)
		i.show(ctx, toneProgress, statusTimeoutMS, i.messages.processing)
	case fsm.StateIdle:
		switch {
		case noticed:
			// The error surface dismisses itself after its timeout.
			return
		case previous == fsm.StateProcessing:
			i.playCue(cueComplete)
		case previous == fsm.StateRecording:
			i.playCue(cueCancel)
		}
		i.dismiss(ctx)
	}
}

// Notify renders notice in the user's locale and shows it as an error.
func (i *Indicator) Notify(ctx context.Context, notice session.Notice) {
	i.mu.Lock()
	i.noticed = true
	i.mu.Unlock()

	i.playCue(cueError)
	i.show(ctx, toneError, i.errorTimeout(), i.messages.render(notice))
}

// Render returns the localized text for notice.
func (i *Indicator) Render(notice session.Notice) string {
	return i.messages.render(notice)
}

func (i *Indicator) errorTimeout() int {
	if i.cfg.ErrorTimeoutMS <= 0 {
		return defaultErrorTimeout
	}
	return i.cfg.ErrorTimeoutMS
}

func (i *Indicator) show(ctx context.Context, t tone, timeoutMS int, text string) {
	if !i.cfg.Enable {
		return
	}
	i.run(ctx, func(ctx context.Context) error {
		return i.surface.Show(ctx, t, timeoutMS, text)
	})
}

func (i *Indicator) dismiss(ctx context.Context) {
	if !i.cfg.Enable {
		return
	}
	i.run(ctx, i.surface.Dismiss)
}

// run executes an indicator operation with a bounded timeout.
func (i *Indicator) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		i.logger.Debug("indicator dispatch failed", "error", err.Error())
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (i *Indicator) playCue(kind cueKind) {
	if !i.cfg.SoundEnable {
		return
	}
	go func() {
		i.soundMu.Lock()
		defer i.soundMu.Unlock()
		if err := i.playCueFn(kind, i.cfg); err != nil {
			i.logger.Debug("indicator audio cue failed", "error", err.Error())
		}
	}()
}
