// Package pipeline turns a Pulse capture into a WAV asset the session can hand
// to any transcription backend.
package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/logging"
	"github.com/rbright/murmur/internal/session"
)

// TempPrefix marks recordings owned by murmur so stale ones can be swept.
const TempPrefix = "RecordTemp_"

// capture is the slice of audio.Capture the recorder depends on.
type capture interface {
	Chunks() <-chan []byte
	Stop() error
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithDir overrides the directory recordings are written to.
func WithDir(dir string) Option {
	return func(r *Recorder) { r.dir = dir }
}

// WithDeviceSelector overrides Pulse device resolution.
func WithDeviceSelector(fn func(context.Context, string, string) (audio.Selection, error)) Option {
	return func(r *Recorder) { r.selectDevice = fn }
}

// WithCaptureStarter overrides how a capture stream is opened.
func WithCaptureStarter(fn func(context.Context, audio.Device) (capture, error)) Option {
	return func(r *Recorder) { r.startCapture = fn }
}

// Recorder implements session.Recorder on top of a Pulse record stream.
type Recorder struct {
	cfg    config.Config
	logger *slog.Logger
	dir    string

	selectDevice func(context.Context, string, string) (audio.Selection, error)
	startCapture func(context.Context, audio.Device) (capture, error)

	mu     sync.Mutex
	active *recording
}

type recording struct {
	capture capture
	device  audio.Device
	path    string
	done    chan writeResult
}

type writeResult struct {
	pcmBytes int64
	err      error
}

// NewRecorder constructs a recorder from runtime config.
func NewRecorder(cfg config.Config, logger *slog.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Recorder{
		cfg:          cfg,
		logger:       logger,
		dir:          DefaultDir(),
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device) (capture, error) {
			return audio.StartCapture(ctx, device)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultDir returns the runtime directory for in-flight recordings.
func DefaultDir() string {
	if runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtimeDir != "" {
		return filepath.Join(runtimeDir, "murmur")
	}
	return filepath.Join(os.TempDir(), "murmur")
}

// Start resolves the input device and begins writing a WAV file.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return errors.New("recording already in progress")
	}

	selection, err := r.selectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	if selection.Warning != "" {
		r.logger.Warn(selection.Warning)
	}

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	path := filepath.Join(r.dir, TempPrefix+uuid.NewString()+".wav")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create recording %q: %w", path, err)
	}

	stream, err := r.startCapture(ctx, selection.Device)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}

	rec := &recording{
		capture: stream,
		device:  selection.Device,
		path:    path,
		done:    make(chan writeResult, 1),
	}
	go func() {
		rec.done <- encodeWAV(file, stream.Chunks())
	}()

	r.active = rec
	r.logger.Debug("recording started", "device", audio.Describe(selection.Device), "path", path)
	return nil
}

// Stop ends capture and returns the finished asset. Silence yields no asset.
func (r *Recorder) Stop(ctx context.Context) (*session.Asset, error) {
	r.mu.Lock()
	rec := r.active
	r.active = nil
	r.mu.Unlock()

	if rec == nil {
		return nil, nil
	}

	_ = rec.capture.Stop()

	var result writeResult
	select {
	case result = <-rec.done:
	case <-ctx.Done():
		go func() {
			<-rec.done
			_ = os.Remove(rec.path)
		}()
		return nil, ctx.Err()
	}

	if result.err != nil {
		_ = os.Remove(rec.path)
		return nil, fmt.Errorf("write recording: %w", result.err)
	}
	if result.pcmBytes == 0 {
		_ = os.Remove(rec.path)
		return nil, nil
	}

	info, err := os.Stat(rec.path)
	if err != nil {
		return nil, fmt.Errorf("stat recording: %w", err)
	}

	asset := &session.Asset{
		Path:     rec.path,
		Size:     info.Size(),
		Duration: pcmDuration(result.pcmBytes),
		Device:   audio.Describe(rec.device),
	}
	r.logger.Debug("recording stopped", "path", asset.Path, "bytes", asset.Size, "duration", asset.Duration)

	if r.cfg.Debug.EnableAudioDump {
		r.dumpAudio(asset.Path)
	}
	return asset, nil
}

// Delete removes a recording. Missing files are not an error.
func (r *Recorder) Delete(asset session.Asset) error {
	if asset.Path == "" {
		return nil
	}
	if err := os.Remove(asset.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete recording %q: %w", asset.Path, err)
	}
	return nil
}

// CleanupStale removes recordings left behind by a previous process and
// reports how many were removed.
func (r *Recorder) CleanupStale() int {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("read recording dir failed", "dir", r.dir, "error", err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), TempPrefix) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			r.logger.Warn("remove stale recording failed", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("removed stale recordings", "count", removed)
	}
	return removed
}

// encodeWAV drains chunks into a 16-bit mono WAV file. It keeps draining
// after a write failure so the capture never blocks.
func encodeWAV(file *os.File, chunks <-chan []byte) writeResult {
	enc := wav.NewEncoder(file, audio.SampleRate, audio.BitDepth, audio.Channels, 1)
	format := &goaudio.Format{NumChannels: audio.Channels, SampleRate: audio.SampleRate}

	var (
		result  writeResult
		samples []int
	)
	for chunk := range chunks {
		if len(chunk) < 2 || result.err != nil {
			continue
		}
		samples = decodePCM16(chunk, samples[:0])
		buf := &goaudio.IntBuffer{Format: format, Data: samples, SourceBitDepth: audio.BitDepth}
		if err := enc.Write(buf); err != nil {
			result.err = err
			continue
		}
		result.pcmBytes += int64(len(samples) * 2)
	}

	if err := enc.Close(); err != nil && result.err == nil {
		result.err = err
	}
	if err := file.Close(); err != nil && result.err == nil {
		result.err = err
	}
	return result
}

// decodePCM16 reads little-endian signed 16-bit samples into dst.
func decodePCM16(chunk []byte, dst []int) []int {
	for i := 0; i+1 < len(chunk); i += 2 {
		dst = append(dst, int(int16(binary.LittleEndian.Uint16(chunk[i:i+2]))))
	}
	return dst
}

func pcmDuration(pcmBytes int64) time.Duration {
	bytesPerSecond := int64(audio.SampleRate * audio.Channels * (audio.BitDepth / 8))
	return time.Duration(pcmBytes) * time.Second / time.Duration(bytesPerSecond)
}

// dumpAudio copies a finished recording under the state debug dir.
func (r *Recorder) dumpAudio(path string) {
	stateDir, err := logging.StateDir()
	if err != nil {
		r.logger.Warn("unable to resolve debug dir", "error", err)
		return
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		r.logger.Warn("unable to create debug dir", "error", err)
		return
	}

	target := filepath.Join(debugDir, fmt.Sprintf("audio-%s.wav", time.Now().Format("20060102-150405.000")))
	if err := copyFile(path, target); err != nil {
		r.logger.Warn("unable to write debug audio dump", "error", err)
		return
	}
	r.logger.Debug("wrote debug audio dump", "path", target)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
