package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/transcript"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	startErr  error
	size      int64
	noAsset   bool
	stopDelay time.Duration

	starts      atomic.Int32
	stops       atomic.Int32
	deletes     atomic.Int32
	overlapping atomic.Int32
	recording   atomic.Bool

	mu      sync.Mutex
	deleted map[string]int
}

func (f *fakeRecorder) Start(context.Context) error {
	f.starts.Add(1)
	if f.startErr != nil {
		return f.startErr
	}
	if !f.recording.CompareAndSwap(false, true) {
		f.overlapping.Add(1)
	}
	return nil
}

func (f *fakeRecorder) Stop(context.Context) (*Asset, error) {
	if f.stopDelay > 0 {
		time.Sleep(f.stopDelay)
	}
	n := f.stops.Add(1)
	f.recording.Store(false)
	if f.noAsset {
		return nil, nil
	}
	size := f.size
	if size == 0 {
		size = 32000
	}
	return &Asset{Path: fmt.Sprintf("/tmp/asset-%d", n), Size: size}, nil
}

func (f *fakeRecorder) Delete(asset Asset) error {
	f.deletes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted == nil {
		f.deleted = make(map[string]int)
	}
	f.deleted[asset.Path]++
	return nil
}

func (f *fakeRecorder) deletedTwice() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.deleted {
		if n > 1 {
			return true
		}
	}
	return false
}

type fakeIndicator struct {
	mu       sync.Mutex
	statuses []fsm.State
	notices  []Notice
}

func (f *fakeIndicator) SetStatus(_ context.Context, state fsm.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, state)
}

func (f *fakeIndicator) Notify(_ context.Context, notice Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
}

func (f *fakeIndicator) statusHistory() []fsm.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fsm.State(nil), f.statuses...)
}

func (f *fakeIndicator) noticeKinds() []Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]Kind, 0, len(f.notices))
	for _, n := range f.notices {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (f *fakeIndicator) lastNotice() Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notices) == 0 {
		return Notice{}
	}
	return f.notices[len(f.notices)-1]
}

type fakeCommitter struct {
	err   error
	mu    sync.Mutex
	texts []string
}

func (f *fakeCommitter) Commit(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeCommitter) committed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakePolisher struct {
	results []polishResult
	calls   atomic.Int32

	mu       sync.Mutex
	requests []PolishRequest
}

type polishResult struct {
	text string
	err  error
}

func (f *fakePolisher) Polish(_ context.Context, req PolishRequest) (string, error) {
	n := int(f.calls.Add(1))
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if n > len(f.results) {
		return req.Text, nil
	}
	r := f.results[n-1]
	return r.text, r.err
}

func (f *fakePolisher) lastRequest() PolishRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type flag struct{ v atomic.Bool }

func newFlag(v bool) *flag {
	f := &flag{}
	f.v.Store(v)
	return f
}

func (f *flag) HasCredential() bool { return f.v.Load() }
func (f *flag) Reachable() bool     { return f.v.Load() }

type fakeSettings struct{ opens atomic.Int32 }

func (f *fakeSettings) OpenSettings(context.Context) error {
	f.opens.Add(1)
	return nil
}

type fixture struct {
	recorder    *fakeRecorder
	indicator   *fakeIndicator
	committer   *fakeCommitter
	polisher    *fakePolisher
	settings    *fakeSettings
	credentials *flag
	network     *flag
	prefs       Preferences
	calls       atomic.Int32
	transcribe  func(context.Context, Asset, string) (string, error)
	opts        Options
	script      ScriptConverter

	// customPolisher replaces polisher when set.
	customPolisher Polisher
}

func newFixture() *fixture {
	return &fixture{
		recorder:    &fakeRecorder{},
		indicator:   &fakeIndicator{},
		committer:   &fakeCommitter{},
		polisher:    &fakePolisher{},
		settings:    &fakeSettings{},
		credentials: newFlag(true),
		network:     newFlag(true),
		prefs:       Preferences{Mode: ModeOfflineA, Style: transcript.StyleFullWidth},
		transcribe: func(context.Context, Asset, string) (string, error) {
			return "hello world", nil
		},
		opts: Options{
			ProcessingTimeout: 2 * time.Second,
			RearmDelay:        5 * time.Millisecond,
		},
	}
}

func (f *fixture) start(t *testing.T) *Coordinator {
	t.Helper()

	transcriber := TranscriberFunc(func(ctx context.Context, asset Asset, language string) (string, error) {
		f.calls.Add(1)
		return f.transcribe(ctx, asset, language)
	})

	var polisher Polisher = f.polisher
	if f.customPolisher != nil {
		polisher = f.customPolisher
	}

	ctrl := NewCoordinator(Deps{
		Recorder: f.recorder,
		Transcribers: map[Mode]Transcriber{
			ModeCloud:    transcriber,
			ModeOfflineA: transcriber,
			ModeOfflineB: transcriber,
		},
		Polisher:    polisher,
		Indicator:   f.indicator,
		Committer:   f.committer,
		Preferences: staticPreferences(f.prefs),
		Credentials: f.credentials,
		Network:     f.network,
		Settings:    f.settings,
		Script:      f.script,
		Terminology: transcript.NewTerminology(nil),
	}, f.opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ctrl
}

// runSession drives one press/release cycle and waits until the session is
// back to idle and accepting input again.
func runSession(t *testing.T, ctrl *Coordinator, f *fixture) {
	t.Helper()

	starts := f.recorder.starts.Load()
	ctrl.Press()
	require.Eventually(t, func() bool { return f.recorder.starts.Load() == starts+1 }, 2*time.Second, 5*time.Millisecond)
	ctrl.Release()
	waitForState(t, ctrl, fsm.StateProcessing, fsm.StateIdle)
	waitForIdle(t, ctrl, f)
}

func waitForIdle(t *testing.T, ctrl *Coordinator, f *fixture) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ctrl.Status() == fsm.StateIdle && f.recorder.stops.Load() == f.recorder.starts.Load()
	}, 3*time.Second, 5*time.Millisecond)
	// Let the rearm timer reopen input.
	time.Sleep(4 * f.opts.RearmDelay)
}

func waitForState(t *testing.T, ctrl *Coordinator, desired ...fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := ctrl.Status()
		for _, want := range desired {
			if state == want {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Failf(t, "state wait timed out", "wanted one of %v, got %s", desired, ctrl.Status())
}

var errBoom = errors.New("boom")
