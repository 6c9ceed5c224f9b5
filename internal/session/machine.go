package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/transcript"
)

// machine is the session state owned by the Run loop. It is only reachable
// through ops passed to Coordinator.post.
type machine struct {
	ctx    context.Context
	c      *Coordinator
	logger *slog.Logger

	state     fsm.State
	accepting bool
	closing   bool
	rearmGen  uint64
	nextID    uint64
	active    *activeSession
}

type activeSession struct {
	id        uint64
	prefs     Preferences
	startedAt time.Time
	discard   bool

	asset      *Asset
	timer      *time.Timer
	cancelCall context.CancelFunc

	converted      string
	polishAttempts int
}

type rearm int

const (
	rearmNow rearm = iota
	rearmDelayed
)

func newMachine(ctx context.Context, c *Coordinator) *machine {
	return &machine{
		ctx:       ctx,
		c:         c,
		logger:    c.logger,
		state:     fsm.StateIdle,
		accepting: true,
	}
}

func (m *machine) current(id uint64) *activeSession {
	if m.active == nil || m.active.id != id {
		return nil
	}
	return m.active
}

func (m *machine) transition(event fsm.Event) bool {
	next, err := fsm.Transition(m.state, event)
	if err != nil {
		m.logger.Error("session transition rejected", "error", err.Error())
		return false
	}
	m.state = next
	m.c.setStatus(next)
	m.c.deps.Indicator.SetStatus(m.ctx, next)
	return true
}

func (m *machine) notify(notice Notice) {
	attrs := []any{"kind", string(notice.Kind)}
	if notice.Reason != "" {
		attrs = append(attrs, "reason", string(notice.Reason))
	}
	if notice.Err != nil {
		attrs = append(attrs, "error", notice.Err.Error())
	}
	m.logger.Warn("session notice", attrs...)
	m.c.deps.Indicator.Notify(m.ctx, notice)
}

func (m *machine) press() {
	if m.state != fsm.StateIdle || !m.accepting || m.closing {
		m.logger.Debug("press ignored", "state", string(m.state), "accepting", m.accepting)
		return
	}

	m.nextID++
	s := &activeSession{
		id:        m.nextID,
		prefs:     m.c.deps.Preferences.Snapshot(),
		startedAt: time.Now(),
	}
	if !m.transition(fsm.EventPress) {
		return
	}
	m.active = s

	if err := m.c.deps.Recorder.Start(m.ctx); err != nil {
		m.notify(Notice{Kind: KindRecordingUnavailable, Err: err})
		m.active = nil
		m.transition(fsm.EventAbort)
		return
	}
	m.logger.Info("recording started", "session_id", s.id, "mode", string(s.prefs.Mode))
}

func (m *machine) toggle() {
	switch m.state {
	case fsm.StateIdle:
		m.press()
	case fsm.StateRecording:
		m.release()
	default:
		m.logger.Debug("toggle ignored", "state", string(m.state))
	}
}

func (m *machine) release() {
	if m.state != fsm.StateRecording || m.active == nil {
		m.logger.Debug("release ignored", "state", string(m.state))
		return
	}
	if !m.transition(fsm.EventRelease) {
		return
	}
	m.stopRecorder(m.active.id)
}

// discard drops an active recording without transcribing it.
func (m *machine) discard() {
	if m.state != fsm.StateRecording || m.active == nil {
		return
	}
	m.active.discard = true
	if !m.transition(fsm.EventRelease) {
		return
	}
	m.stopRecorder(m.active.id)
}

func (m *machine) stopRecorder(id uint64) {
	ctx, c, recorder := m.ctx, m.c, m.c.deps.Recorder
	go func() {
		asset, err := recorder.Stop(ctx)
		if !c.post(func(m *machine) { m.onRecorded(id, asset, err) }) && asset != nil {
			_ = recorder.Delete(*asset)
		}
	}()
}

func (m *machine) onRecorded(id uint64, asset *Asset, err error) {
	s := m.current(id)
	if s == nil {
		if asset != nil {
			m.deleteAsset(*asset)
		}
		return
	}
	s.asset = asset

	if s.discard {
		m.logger.Info("recording discarded", "session_id", id)
		m.finish(s, "cancelled", rearmDelayed)
		return
	}
	if err != nil || asset == nil {
		attrs := []any{"session_id", id}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		m.logger.Warn("recording produced no asset", attrs...)
		m.finish(s, "no-asset", rearmDelayed)
		return
	}
	if asset.Size < m.c.opts.MinRecordingBytes {
		m.releaseAsset(s)
		m.notify(Notice{Kind: KindTooShort})
		m.finish(s, "too-short", rearmDelayed)
		return
	}

	m.armTimeout(s)
	m.dispatch(s)
}

func (m *machine) dispatch(s *activeSession) {
	mode := s.prefs.Mode
	if mode == ModeCloud {
		if !m.c.deps.Network.Reachable() {
			m.fail(s, Notice{Kind: KindNoNetwork}, rearmNow)
			return
		}
		if !m.c.deps.Credentials.HasCredential() {
			m.openSettings()
			m.fail(s, Notice{Kind: KindCredentialMissing}, rearmNow)
			return
		}
	}

	transcriber := m.c.deps.Transcribers[mode]
	if transcriber == nil {
		err := fmt.Errorf("no transcriber configured for mode %q", mode)
		m.fail(s, Notice{Kind: KindTranscriptionFailed, Reason: ReasonModelUnavailable, Err: err}, rearmNow)
		return
	}

	id, asset, language := s.id, *s.asset, s.prefs.Language
	m.launch(s, func(ctx context.Context) func(*machine) {
		text, err := transcriber.Transcribe(ctx, asset, language)
		return func(m *machine) { m.onTranscribed(id, text, err) }
	})
}

func (m *machine) onTranscribed(id uint64, text string, err error) {
	s := m.current(id)
	if s == nil {
		m.logger.Debug("stale transcription dropped", "session_id", id)
		return
	}
	m.endCall(s)
	m.releaseAsset(s)

	if err != nil {
		if IsCancelled(err) {
			m.finish(s, "cancelled", rearmDelayed)
			return
		}
		m.notify(Notice{Kind: KindTranscriptionFailed, Reason: ReasonOf(err), Err: err})
		m.finish(s, "transcription-failed", rearmDelayed)
		return
	}

	converted := m.c.deps.Script.Convert(text, s.prefs.Script)
	if strings.TrimSpace(converted) == "" {
		m.notify(Notice{Kind: KindNoSpeech, Err: ErrEmptyTranscript})
		m.finish(s, "no-speech", rearmDelayed)
		return
	}
	s.converted = converted

	switch {
	case !s.prefs.PolishEnabled:
		m.finalize(s, converted)
	case s.prefs.Mode.Offline() && !m.c.deps.Network.Reachable():
		m.logger.Info("polish skipped: network unreachable", "session_id", id)
		m.finalize(s, transcript.BasicCleanup(converted))
	case !m.c.deps.Credentials.HasCredential():
		m.logger.Info("polish skipped: no credential", "session_id", id)
		m.finalize(s, converted)
	case m.c.deps.Polisher == nil:
		m.logger.Info("polish skipped: no polisher configured", "session_id", id)
		m.finalize(s, converted)
	default:
		m.polish(s)
	}
}

func (m *machine) polish(s *activeSession) {
	req := PolishRequest{
		Text:   s.converted,
		Prompt: strings.TrimSpace(s.prefs.Prompt),
		Style:  s.prefs.Style,
	}
	if req.Prompt == "" {
		req.Prompt = DefaultPolishPrompt
	}
	if s.prefs.Mode == ModeCloud {
		req.Style = transcript.StyleFullWidth
	}

	s.polishAttempts++
	id, attempt, polisher := s.id, s.polishAttempts, m.c.deps.Polisher
	m.launch(s, func(ctx context.Context) func(*machine) {
		text, err := polisher.Polish(ctx, req)
		return func(m *machine) { m.onPolished(id, attempt, text, err) }
	})
}

func (m *machine) onPolished(id uint64, attempt int, text string, err error) {
	s := m.current(id)
	if s == nil {
		m.logger.Debug("stale polish dropped", "session_id", id, "attempt", attempt)
		return
	}
	m.endCall(s)

	if err == nil {
		m.finalize(s, text)
		return
	}
	if IsCancelled(err) {
		m.finish(s, "cancelled", rearmDelayed)
		return
	}
	if attempt == 1 && IsRetryable(err) {
		m.logger.Info("retrying polish", "session_id", id, "reason", string(ReasonOf(err)), "error", err.Error())
		m.polish(s)
		return
	}

	m.notify(Notice{Kind: KindPolishFailed, Reason: ReasonOf(err), Err: err})
	m.finalize(s, s.converted)
}

func (m *machine) finalize(s *activeSession, text string) {
	m.disarm(s)

	opts := transcript.Options{Style: s.prefs.Style}
	if s.prefs.Mode.Offline() && !s.prefs.PolishEnabled {
		opts.Terminology = m.c.deps.Terminology
	}
	normalized := transcript.Normalize(text, opts)
	m.c.setLast(normalized)

	if err := m.c.deps.Committer.Commit(m.ctx, normalized); err != nil {
		m.notify(Notice{Kind: KindPasteFailed, Err: err})
	}
	m.finish(s, "pasted", rearmDelayed)
}

func (m *machine) onTimeout(id uint64) {
	s := m.current(id)
	if s == nil {
		return
	}
	s.timer = nil

	m.notify(Notice{Kind: KindTimeout, Err: fmt.Errorf("no result after %s", m.c.opts.ProcessingTimeout)})
	if s.cancelCall != nil {
		s.cancelCall()
	}
	m.releaseAsset(s)
	m.finish(s, "timeout", rearmNow)
}

// fail ends a session on a guard or dispatch failure.
func (m *machine) fail(s *activeSession, notice Notice, mode rearm) {
	m.disarm(s)
	m.releaseAsset(s)
	m.notify(notice)
	m.finish(s, string(notice.Kind), mode)
}

// finish is the single exit to idle. It is safe to call after any subset of
// disarm, endCall, and releaseAsset has already run.
func (m *machine) finish(s *activeSession, outcome string, mode rearm) {
	m.disarm(s)
	m.endCall(s)
	m.releaseAsset(s)
	m.active = nil

	switch m.state {
	case fsm.StateRecording:
		m.transition(fsm.EventAbort)
	case fsm.StateProcessing:
		m.transition(fsm.EventFinish)
	}

	m.logger.Info("session finished",
		"session_id", s.id,
		"mode", string(s.prefs.Mode),
		"outcome", outcome,
		"duration_ms", time.Since(s.startedAt).Milliseconds(),
		"polish_attempts", s.polishAttempts,
	)

	switch mode {
	case rearmNow:
		m.rearmGen++
		m.accepting = true
	case rearmDelayed:
		m.rearmGen++
		m.accepting = false
		gen, c := m.rearmGen, m.c
		time.AfterFunc(c.opts.RearmDelay, func() {
			c.post(func(m *machine) {
				if m.rearmGen == gen {
					m.accepting = true
				}
			})
		})
	}
}

func (m *machine) armTimeout(s *activeSession) {
	m.disarm(s)
	id, c := s.id, m.c
	s.timer = time.AfterFunc(c.opts.ProcessingTimeout, func() {
		c.post(func(m *machine) { m.onTimeout(id) })
	})
}

func (m *machine) disarm(s *activeSession) {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
}

// launch runs one backend call off the loop. Its completion op is posted
// back with the session id so a late result can be recognized as stale.
func (m *machine) launch(s *activeSession, call func(context.Context) func(*machine)) {
	m.endCall(s)

	callCtx, cancel := context.WithCancel(m.ctx)
	s.cancelCall = cancel
	m.c.setInflight(cancel)

	c := m.c
	go func() {
		complete := call(callCtx)
		c.post(complete)
	}()
}

func (m *machine) endCall(s *activeSession) {
	if s.cancelCall == nil {
		return
	}
	s.cancelCall()
	s.cancelCall = nil
	m.c.setInflight(nil)
}

func (m *machine) openSettings() {
	opener, logger := m.c.deps.Settings, m.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opener.OpenSettings(ctx); err != nil {
			logger.Warn("open settings failed", "error", err.Error())
		}
	}()
}

// releaseAsset deletes the session asset once; later calls are no-ops.
func (m *machine) releaseAsset(s *activeSession) {
	if s.asset == nil {
		return
	}
	asset := *s.asset
	s.asset = nil
	m.deleteAsset(asset)
}

func (m *machine) deleteAsset(asset Asset) {
	if err := m.c.deps.Recorder.Delete(asset); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("delete audio asset failed", "path", asset.Path, "error", err.Error())
	}
}

func (m *machine) shutdown() {
	m.closing = true
	s := m.active
	if s == nil {
		return
	}

	m.disarm(s)
	m.endCall(s)
	if m.state == fsm.StateRecording {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		asset, err := m.c.deps.Recorder.Stop(ctx)
		cancel()
		if err == nil && asset != nil {
			s.asset = asset
		}
	}
	m.releaseAsset(s)
	m.active = nil
	m.state = fsm.StateIdle
	m.c.setStatus(fsm.StateIdle)
	m.logger.Info("session abandoned on shutdown", "session_id", s.id)
}

// drain runs ops queued before shutdown so stale completions can release
// their assets. Presses are refused once closing is set.
func (m *machine) drain(mailbox <-chan func(*machine)) {
	for {
		select {
		case op := <-mailbox:
			op(m)
		default:
			return
		}
	}
}
