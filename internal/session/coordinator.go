// Package session runs the single-flight dictation session coordinator.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/transcript"
)

const (
	DefaultProcessingTimeout = 60 * time.Second
	DefaultRearmDelay        = 300 * time.Millisecond
	DefaultMinRecordingBytes = 1024

	mailboxSize = 64
)

// Deps are the collaborators a coordinator drives. Nil fields fall back to
// inert defaults so partial wiring still returns to idle on every path.
type Deps struct {
	Logger       *slog.Logger
	Recorder     Recorder
	Transcribers map[Mode]Transcriber
	Polisher     Polisher
	Indicator    Indicator
	Committer    Committer
	Preferences  PreferenceSource
	Credentials  CredentialSource
	Network      Reachability
	Settings     SettingsOpener
	Script       ScriptConverter
	Terminology  *transcript.Terminology
}

// Options tune coordinator timing.
type Options struct {
	ProcessingTimeout time.Duration
	// RearmDelay holds off new presses after a session ends so the trailing
	// key release is not read as a fresh press.
	RearmDelay        time.Duration
	MinRecordingBytes int64
}

func (o Options) withDefaults() Options {
	if o.ProcessingTimeout <= 0 {
		o.ProcessingTimeout = DefaultProcessingTimeout
	}
	if o.RearmDelay <= 0 {
		o.RearmDelay = DefaultRearmDelay
	}
	if o.MinRecordingBytes <= 0 {
		o.MinRecordingBytes = DefaultMinRecordingBytes
	}
	return o
}

// Coordinator owns session state. Every mutation runs as an op on the Run
// loop; backend completions are posted back as ops and never touch state
// directly.
type Coordinator struct {
	logger *slog.Logger
	deps   Deps
	opts   Options

	mailbox chan func(*machine)
	done    chan struct{}
	// closing is held shared by every post and exclusively while Run winds
	// down, so no op lands in the mailbox after the final drain.
	closing sync.RWMutex

	mu       sync.RWMutex
	status   fsm.State
	last     string
	inflight context.CancelFunc
}

// NewCoordinator wires a coordinator with safe defaults for missing deps.
func NewCoordinator(deps Deps, opts Options) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Recorder == nil {
		deps.Recorder = unavailableRecorder{}
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Committer == nil {
		deps.Committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if deps.Preferences == nil {
		deps.Preferences = staticPreferences(DefaultPreferences())
	}
	if deps.Credentials == nil {
		deps.Credentials = staticFlag(false)
	}
	if deps.Network == nil {
		deps.Network = staticFlag(true)
	}
	if deps.Settings == nil {
		deps.Settings = noopSettings{}
	}
	if deps.Script == nil {
		deps.Script = identityScript{}
	}

	return &Coordinator{
		logger:  deps.Logger,
		deps:    deps,
		opts:    opts.withDefaults(),
		mailbox: make(chan func(*machine), mailboxSize),
		done:    make(chan struct{}),
		status:  fsm.StateIdle,
	}
}

// Run processes input and completions until ctx is done. It must be called
// at most once.
func (c *Coordinator) Run(ctx context.Context) error {
	m := newMachine(ctx, c)
	for {
		select {
		case <-ctx.Done():
			close(c.done)
			c.closing.Lock()
			m.shutdown()
			m.drain(c.mailbox)
			c.closing.Unlock()
			return nil
		case op := <-c.mailbox:
			op(m)
		}
	}
}

// post queues op for the Run loop. It reports false once Run has started
// shutting down; the caller then owns any resource the op would release.
// post must not be called from the Run goroutine.
func (c *Coordinator) post(op func(*machine)) bool {
	c.closing.RLock()
	defer c.closing.RUnlock()

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.mailbox <- op:
		return true
	case <-c.done:
		return false
	}
}

// Press starts a session when idle and accepting input.
func (c *Coordinator) Press() {
	c.post(func(m *machine) { m.press() })
}

// Release ends an active recording.
func (c *Coordinator) Release() {
	c.post(func(m *machine) { m.release() })
}

// Toggle presses when idle and releases when recording.
func (c *Coordinator) Toggle() {
	c.post(func(m *machine) { m.toggle() })
}

// Cancel discards an active recording and cancels any in-flight backend call.
func (c *Coordinator) Cancel() {
	c.CancelAll()
	c.post(func(m *machine) { m.discard() })
}

// CancelAll cancels the in-flight transcription or polish call, if any. It
// does not change state; the cancelled completion is absorbed silently.
func (c *Coordinator) CancelAll() {
	c.mu.RLock()
	cancel := c.inflight
	c.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}

// Status returns the current state snapshot.
func (c *Coordinator) Status() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Last returns the most recent pasted text.
func (c *Coordinator) Last() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Coordinator) setStatus(state fsm.State) {
	c.mu.Lock()
	c.status = state
	c.mu.Unlock()
}

func (c *Coordinator) setLast(text string) {
	c.mu.Lock()
	c.last = text
	c.mu.Unlock()
}

func (c *Coordinator) setInflight(cancel context.CancelFunc) {
	c.mu.Lock()
	c.inflight = cancel
	c.mu.Unlock()
}

// Handle serves IPC commands against the coordinator.
func (c *Coordinator) Handle(_ context.Context, req ipc.Request) ipc.Response {
	state := string(c.Status())

	var queued bool
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: state, Message: "status"}
	case ipc.CommandLast:
		return ipc.Response{OK: true, State: state, Message: c.Last()}
	case ipc.CommandPress:
		queued = c.post(func(m *machine) { m.press() })
	case ipc.CommandRelease:
		queued = c.post(func(m *machine) { m.release() })
	case ipc.CommandToggle:
		queued = c.post(func(m *machine) { m.toggle() })
	case ipc.CommandCancel:
		c.CancelAll()
		queued = c.post(func(m *machine) { m.discard() })
	default:
		return ipc.Failure(state, "unknown command: %s", req.Command)
	}

	if !queued {
		return ipc.Failure(state, "coordinator is shutting down")
	}
	return ipc.Response{OK: true, State: state, Message: req.Command + " queued"}
}
